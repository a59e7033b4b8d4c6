package records

import (
	"context"
	"time"

	"github.com/w-h-a/salesbot/query"
)

// Record is one financial entry owned by the external sales data
// source. Monetary columns are pointers because the source may carry
// nulls; readers treat nil as zero.
type Record struct {
	Id              int64     `json:"id"`
	Customer        string    `json:"customer"`
	EntryDate       time.Time `json:"entry_date"`
	Amount          *float64  `json:"amount"`
	TotalReceived   *float64  `json:"total_received"`
	RemainingAmount *float64  `json:"remaining_amount"`
}

// Value reads the requested monetary field, nil as zero.
func (r Record) Value(f query.Field) float64 {
	var v *float64
	switch f.OrDefault() {
	case query.FieldReceived:
		v = r.TotalReceived
	case query.FieldRemaining:
		v = r.RemainingAmount
	default:
		v = r.Amount
	}
	if v == nil {
		return 0
	}
	return *v
}

// Source looks records up by customer name. Both lookups return
// newest-first by entry date; zero matches is an empty slice, not an
// error.
type Source interface {
	Exact(ctx context.Context, customer string) ([]Record, error)
	Fuzzy(ctx context.Context, customer string) ([]Record, error)
	Close() error
}
