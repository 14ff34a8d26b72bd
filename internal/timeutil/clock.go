package timeutil

import (
	"time"
)

// Location is the business time zone. Invoice years and audit timestamps
// are rendered in it.
var Location = time.UTC

// SetLocation switches the business time zone. Unknown names keep the
// current location and return the load error.
func SetLocation(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	Location = loc
	return nil
}

// Now returns the current time in the business time zone
func Now() time.Time {
	return time.Now().In(Location)
}

// Local converts any time to the business time zone
func Local(t time.Time) time.Time {
	return t.In(Location)
}

// StartOfDay returns midnight of t's day in the business time zone
func StartOfDay(t time.Time) time.Time {
	l := t.In(Location)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, Location)
}

// Clock is injected into services so tests control time.
type Clock func() time.Time

// Common layouts
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)
