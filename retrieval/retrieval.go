// Package retrieval maps structured queries to records. The adapter is
// polymorphic over query kinds: each kind gets its own lookup strategy
// and unknown kinds fetch nothing, so new kinds are added without
// touching the orchestrator's control flow.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/w-h-a/salesbot/query"
	"github.com/w-h-a/salesbot/records"
)

// ErrRetrieval marks transport or storage failures during lookup.
// Callers degrade it to an empty result; it never aborts a turn.
var ErrRetrieval = errors.New("retrieval failure")

type Strategy interface {
	Fetch(ctx context.Context, q *query.Query) ([]records.Record, error)
}

type Adapter struct {
	strategies map[query.Kind]Strategy
}

func (a *Adapter) Retrieve(ctx context.Context, q *query.Query) ([]records.Record, error) {
	if q == nil {
		return nil, nil
	}

	strategy, ok := a.strategies[q.Kind]
	if !ok {
		return nil, nil
	}

	recs, err := strategy.Fetch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	return recs, nil
}

// Register installs a strategy for a query kind, replacing any previous
// one.
func (a *Adapter) Register(kind query.Kind, strategy Strategy) {
	a.strategies[kind] = strategy
}

type financialLookup struct {
	source records.Source
}

// Fetch tries an exact customer match first and falls back to a single
// substring match only when the exact pass finds nothing.
func (f *financialLookup) Fetch(ctx context.Context, q *query.Query) ([]records.Record, error) {
	recs, err := f.source.Exact(ctx, q.Entity)
	if err != nil {
		return nil, err
	}
	if len(recs) > 0 {
		return recs, nil
	}

	return f.source.Fuzzy(ctx, q.Entity)
}

func New(source records.Source) *Adapter {
	if source == nil {
		panic("records source is required")
	}

	return &Adapter{
		strategies: map[query.Kind]Strategy{
			query.KindFinancialLookup: &financialLookup{source: source},
		},
	}
}
