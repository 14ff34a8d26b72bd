package models

import (
	"github.com/shopspring/decimal"

	"gem-backend/internal/apperrors"
)

// Quantity is a pieces/weight pair. Pieces are whole stones, weight is in
// the item's weight unit.
type Quantity struct {
	Pieces uint            `json:"pieces"`
	Weight decimal.Decimal `json:"weight"`
}

// ShapeQuantity is a quantity addressed to one shape bucket. Shape is empty
// for single-mode items.
type ShapeQuantity struct {
	Shape string `json:"shape,omitempty"`
	Quantity
}

func (q Quantity) IsZero() bool {
	return q.Pieces == 0 && q.Weight.IsZero()
}

func (q Quantity) Add(o Quantity) Quantity {
	return Quantity{Pieces: q.Pieces + o.Pieces, Weight: q.Weight.Add(o.Weight)}
}

// Sub assumes q covers o.
func (q Quantity) Sub(o Quantity) Quantity {
	return Quantity{Pieces: q.Pieces - o.Pieces, Weight: q.Weight.Sub(o.Weight)}
}

// Covers reports whether q is at least o on both axes.
func (q Quantity) Covers(o Quantity) bool {
	return q.Pieces >= o.Pieces && q.Weight.GreaterThanOrEqual(o.Weight)
}

// Validate rejects negative weights. Pieces cannot be negative by type.
func (q Quantity) Validate() error {
	if q.Weight.IsNegative() {
		return apperrors.Validation("weight must not be negative")
	}
	return nil
}
