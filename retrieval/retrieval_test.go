package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/salesbot/query"
	"github.com/w-h-a/salesbot/records"
)

type fakeSource struct {
	exact      []records.Record
	fuzzy      []records.Record
	err        error
	exactCalls int
	fuzzyCalls int
}

func (f *fakeSource) Exact(ctx context.Context, customer string) ([]records.Record, error) {
	f.exactCalls++
	return f.exact, f.err
}

func (f *fakeSource) Fuzzy(ctx context.Context, customer string) ([]records.Record, error) {
	f.fuzzyCalls++
	return f.fuzzy, f.err
}

func (f *fakeSource) Close() error {
	return nil
}

func financial(entity string) *query.Query {
	return &query.Query{Kind: query.KindFinancialLookup, Entity: entity, Field: query.FieldAmount}
}

func TestRetrieveExactHitSuppressesFuzzy(t *testing.T) {
	source := &fakeSource{exact: []records.Record{{Id: 1}}}
	a := New(source)

	recs, err := a.Retrieve(context.Background(), financial("北京极客邦有限公司"))

	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, 1, source.exactCalls)
	assert.Equal(t, 0, source.fuzzyCalls)
}

func TestRetrieveFallsBackToFuzzyOnce(t *testing.T) {
	source := &fakeSource{fuzzy: []records.Record{{Id: 2}, {Id: 3}}}
	a := New(source)

	recs, err := a.Retrieve(context.Background(), financial("极客邦"))

	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, 1, source.exactCalls)
	assert.Equal(t, 1, source.fuzzyCalls)
}

func TestRetrieveNothingFoundIsNotAnError(t *testing.T) {
	source := &fakeSource{}
	a := New(source)

	recs, err := a.Retrieve(context.Background(), financial("不存在的客户"))

	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, 1, source.exactCalls)
	assert.Equal(t, 1, source.fuzzyCalls)
}

func TestRetrieveWrapsSourceFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	a := New(source)

	recs, err := a.Retrieve(context.Background(), financial("甲"))

	assert.Nil(t, recs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrieval)
}

func TestRetrieveNilQuery(t *testing.T) {
	source := &fakeSource{}
	a := New(source)

	recs, err := a.Retrieve(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, recs)
	assert.Equal(t, 0, source.exactCalls)
}

func TestRetrieveUnknownKindFetchesNothing(t *testing.T) {
	source := &fakeSource{exact: []records.Record{{Id: 1}}}
	a := New(source)

	recs, err := a.Retrieve(context.Background(), &query.Query{Kind: query.KindChitChat})

	require.NoError(t, err)
	assert.Nil(t, recs)
	assert.Equal(t, 0, source.exactCalls)
	assert.Equal(t, 0, source.fuzzyCalls)
}

type countingStrategy struct {
	calls int
}

func (c *countingStrategy) Fetch(ctx context.Context, q *query.Query) ([]records.Record, error) {
	c.calls++
	return []records.Record{{Id: 9}}, nil
}

func TestRegisterAddsKindWithoutTouchingOthers(t *testing.T) {
	source := &fakeSource{exact: []records.Record{{Id: 1}}}
	a := New(source)

	strategy := &countingStrategy{}
	a.Register(query.Kind(2), strategy)

	recs, err := a.Retrieve(context.Background(), &query.Query{Kind: query.Kind(2)})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, 1, strategy.calls)

	recs, err = a.Retrieve(context.Background(), financial("甲"))
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, 1, source.exactCalls)
}
