// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package distribute

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/docsync/internal/delta"
	"github.com/pdiddy/docsync/internal/join"
	"github.com/pdiddy/docsync/internal/schema"
	"github.com/pdiddy/docsync/internal/store"
	"github.com/pdiddy/docsync/pkg/types"
)

const testVectorLen = 3

type sliceSource struct {
	rows []store.Row
	pos  int
}

func (s *sliceSource) Next() (store.Row, bool, error) {
	if s.pos >= len(s.rows) {
		return store.Row{}, true, nil
	}
	r := s.rows[s.pos]
	s.pos++
	return r, false, nil
}

// fakeSink records delivered batches and can fail from a given batch
// number on.
type fakeSink struct {
	batches   [][]types.Record
	failAfter int // deliver this many batches, then reject
}

func (s *fakeSink) Deliver(_ context.Context, batch []types.Record) error {
	if s.failAfter > 0 && len(s.batches) >= s.failAfter {
		return fmt.Errorf("stream rejected")
	}
	copied := make([]types.Record, len(batch))
	copy(copied, batch)
	s.batches = append(s.batches, copied)
	return nil
}

func (s *fakeSink) Close() {}

func (s *fakeSink) keys() []string {
	var keys []string
	for _, b := range s.batches {
		for _, r := range b {
			keys = append(keys, r.Key)
		}
	}
	return keys
}

func newGeneration(t *testing.T, keys ...string) *store.Generation {
	t.Helper()
	mgr, err := store.NewManager(
		types.StoreConfig{DataDir: t.TempDir(), VectorLength: testVectorLen}, zap.NewNop())
	require.NoError(t, err)
	gen, err := mgr.Create(context.Background(), "baseline")
	require.NoError(t, err)
	t.Cleanup(func() { gen.Close() })

	canonical, err := schema.ByName(schema.CanonicalName)
	require.NoError(t, err)
	rows := make([]store.Row, len(keys))
	for i, k := range keys {
		rows[i] = store.Row{Key: k, Values: []any{int64(i + 1)}}
	}
	_, err = gen.BulkLoad(context.Background(), canonical, &sliceSource{rows: rows})
	require.NoError(t, err)
	require.NoError(t, join.NewEngine(zap.NewNop()).Materialize(context.Background(), gen))
	return gen
}

func newDistributor(sink Sink, batchSize int) *Distributor {
	return New(types.DistributorConfig{BatchSize: batchSize}, sink, zap.NewNop())
}

func TestStreamAllBatches(t *testing.T) {
	gen := newGeneration(t, "A", "B", "C", "D", "E", "F", "G")
	sink := &fakeSink{}

	summary, err := newDistributor(sink, 3).StreamAll(context.Background(), gen)
	require.NoError(t, err)
	assert.Equal(t, Summary{Records: 7, Batches: 3}, summary)

	require.Len(t, sink.batches, 3)
	assert.Len(t, sink.batches[0], 3)
	assert.Len(t, sink.batches[1], 3)
	assert.Len(t, sink.batches[2], 1)
	assert.ElementsMatch(t, []string{"A", "B", "C", "D", "E", "F", "G"}, sink.keys())
}

func TestStreamAllOneRecordPerBatch(t *testing.T) {
	gen := newGeneration(t, "A", "B")
	sink := &fakeSink{}

	summary, err := newDistributor(sink, 1).StreamAll(context.Background(), gen)
	require.NoError(t, err)
	assert.Equal(t, Summary{Records: 2, Batches: 2}, summary)
}

func TestStreamAllMapsRecordFields(t *testing.T) {
	gen := newGeneration(t, "A")
	sink := &fakeSink{}

	_, err := newDistributor(sink, 10).StreamAll(context.Background(), gen)
	require.NoError(t, err)
	require.Len(t, sink.batches, 1)

	rec := sink.batches[0][0]
	assert.Equal(t, "A", rec.Key)
	assert.EqualValues(t, 1, rec.ID)
	assert.Equal(t, []string{}, rec.Authors)
	assert.Equal(t, []int64{0, 0, 0}, rec.Downloads)
}

// A rejected batch stops the run and is surfaced; batches already
// handed over stay delivered.
func TestStreamAllSinkFailure(t *testing.T) {
	gen := newGeneration(t, "A", "B", "C", "D")
	sink := &fakeSink{failAfter: 1}

	summary, err := newDistributor(sink, 2).StreamAll(context.Background(), gen)
	require.ErrorIs(t, err, types.ErrSinkDelivery)
	assert.Equal(t, Summary{Records: 2, Batches: 1}, summary)
	assert.Len(t, sink.batches, 1)
}

func TestStreamDeltaOnlyChangedAndAdded(t *testing.T) {
	gen := newGeneration(t, "A", "B", "C", "D")

	// Persist a delta by hand: B changed, D added.
	for _, stmt := range []string{
		"CREATE TABLE " + schema.ChangedKeysTable + " (key TEXT PRIMARY KEY)",
		"INSERT INTO " + schema.ChangedKeysTable + " VALUES ('B')",
		"CREATE TABLE " + schema.AddedKeysTable + " (key TEXT PRIMARY KEY)",
		"INSERT INTO " + schema.AddedKeysTable + " VALUES ('D')",
	} {
		_, err := gen.DB().Exec(stmt)
		require.NoError(t, err)
	}

	sink := &fakeSink{}
	summary, err := newDistributor(sink, 10).StreamDelta(context.Background(), gen)
	require.NoError(t, err)
	assert.Equal(t, Summary{Records: 2, Batches: 1}, summary)
	assert.ElementsMatch(t, []string{"B", "D"}, sink.keys())

	// Loadable via the delta package too, for replay symmetry.
	d, err := delta.Load(context.Background(), gen)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, d.Changed)
	assert.Equal(t, []string{"D"}, d.Added)
}

func TestStreamAllEmptyRowView(t *testing.T) {
	gen := newGeneration(t, "A")
	_, err := gen.DB().Exec("DELETE FROM " + schema.RowViewTable)
	require.NoError(t, err)

	sink := &fakeSink{}
	summary, err := newDistributor(sink, 5).StreamAll(context.Background(), gen)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
	assert.Empty(t, sink.batches)
}
