package repositories

import (
	"context"
)

// nextCounterValue increments key and returns the new value, starting at 1.
// Rows are locked until the surrounding transaction ends, so concurrent
// sales of one tenant and year serialize on the counter.
func nextCounterValue(ctx context.Context, q querier, key string) (int64, error) {
	var v int64
	err := q.QueryRow(ctx,
		`INSERT INTO counters(key, value) VALUES($1, 1)
		 ON CONFLICT (key) DO UPDATE SET value = counters.value + 1
		 RETURNING value`, key).Scan(&v)
	if err != nil {
		return 0, translate(err, "counter")
	}
	return v, nil
}
