// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/docsync/internal/schema"
	"github.com/pdiddy/docsync/pkg/types"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManager(types.StoreConfig{DataDir: t.TempDir(), VectorLength: 3}, zap.NewNop())
	require.NoError(t, err)
	return mgr
}

// sliceSource feeds a fixed row slice to BulkLoad.
type sliceSource struct {
	rows []Row
	pos  int
}

func (s *sliceSource) Next() (Row, bool, error) {
	if s.pos >= len(s.rows) {
		return Row{}, true, nil
	}
	r := s.rows[s.pos]
	s.pos++
	return r, false, nil
}

func loadCanonical(t *testing.T, gen *Generation, keys ...string) {
	t.Helper()
	attr, err := schema.ByName(schema.CanonicalName)
	require.NoError(t, err)
	rows := make([]Row, len(keys))
	for i, k := range keys {
		rows[i] = Row{Key: k, Values: []any{int64(i + 1)}}
	}
	_, err = gen.BulkLoad(context.Background(), attr, &sliceSource{rows: rows})
	require.NoError(t, err)
}

// fakeMaterialize stands in for the join engine where only the row
// view's existence matters.
func fakeMaterialize(t *testing.T, gen *Generation, marker string) {
	t.Helper()
	_, err := gen.DB().Exec("CREATE TABLE " + schema.RowViewTable + " (key TEXT PRIMARY KEY)")
	require.NoError(t, err)
	_, err = gen.DB().Exec("INSERT INTO "+schema.RowViewTable+" VALUES (?)", marker)
	require.NoError(t, err)
}

func TestCreateAllocatesEveryAttributeStore(t *testing.T) {
	mgr := testManager(t)
	gen, err := mgr.Create(context.Background(), "candidate")
	require.NoError(t, err)
	defer gen.Close()

	for _, attr := range schema.Attributes {
		n, err := gen.Count(context.Background(), attr.Name)
		require.NoError(t, err, "store %s must exist", attr.Name)
		assert.Zero(t, n)
	}
}

func TestCreateFailsWhenNameInUse(t *testing.T) {
	mgr := testManager(t)
	gen, err := mgr.Create(context.Background(), "candidate")
	require.NoError(t, err)
	gen.Close()

	_, err = mgr.Create(context.Background(), "candidate")
	require.ErrorIs(t, err, types.ErrGenerationExists)
	assert.Contains(t, err.Error(), "candidate")
}

func TestOpenUnknownGeneration(t *testing.T) {
	mgr := testManager(t)
	_, err := mgr.Open("ghost")
	require.ErrorIs(t, err, types.ErrGenerationNotFound)
}

func TestDestroyIsIdempotent(t *testing.T) {
	mgr := testManager(t)
	gen, err := mgr.Create(context.Background(), "doomed")
	require.NoError(t, err)
	gen.Close()

	require.NoError(t, mgr.Destroy("doomed"))
	assert.False(t, mgr.Exists("doomed"))
	require.NoError(t, mgr.Destroy("doomed"))
	require.NoError(t, mgr.Destroy("never-existed"))
}

func TestBulkLoadRejectsDuplicateKey(t *testing.T) {
	mgr := testManager(t)
	gen, err := mgr.Create(context.Background(), "candidate")
	require.NoError(t, err)
	defer gen.Close()

	attr, err := schema.ByName("author")
	require.NoError(t, err)
	rows := []Row{
		{Key: "2003ApJ...1A", Values: []any{`["Adams, A"]`}},
		{Key: "2003ApJ...1A", Values: []any{`["Brown, B"]`}},
	}
	_, err = gen.BulkLoad(context.Background(), attr, &sliceSource{rows: rows})
	require.ErrorIs(t, err, types.ErrDuplicateKey)
	assert.Contains(t, err.Error(), "2003ApJ...1A")

	// The failed load must not leave partial rows behind.
	n, err := gen.Count(context.Background(), "author")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPromoteRequiresExistingBaseline(t *testing.T) {
	mgr := testManager(t)
	gen, err := mgr.Create(context.Background(), "candidate")
	require.NoError(t, err)
	fakeMaterialize(t, gen, "c1")
	gen.Close()

	err = mgr.Promote(context.Background(), "candidate", "baseline", "")
	require.ErrorIs(t, err, types.ErrPromotionConflict)
}

func TestPromoteRequiresMaterializedCandidate(t *testing.T) {
	mgr := testManager(t)
	base, err := mgr.Create(context.Background(), "baseline")
	require.NoError(t, err)
	fakeMaterialize(t, base, "b1")
	base.Close()

	cand, err := mgr.Create(context.Background(), "candidate")
	require.NoError(t, err)
	cand.Close()

	err = mgr.Promote(context.Background(), "candidate", "baseline", "")
	require.ErrorIs(t, err, types.ErrPromotionConflict)
	assert.Contains(t, err.Error(), "not materialized")
}

func TestPromoteReplacesBaseline(t *testing.T) {
	mgr := testManager(t)
	base, err := mgr.Create(context.Background(), "baseline")
	require.NoError(t, err)
	fakeMaterialize(t, base, "old")
	base.Close()

	cand, err := mgr.Create(context.Background(), "candidate")
	require.NoError(t, err)
	fakeMaterialize(t, cand, "new")
	cand.Close()

	require.NoError(t, mgr.Promote(context.Background(), "candidate", "baseline", ""))
	assert.False(t, mgr.Exists("candidate"))

	promoted, err := mgr.Open("baseline")
	require.NoError(t, err)
	defer promoted.Close()
	var marker string
	require.NoError(t, promoted.DB().QueryRow(
		"SELECT key FROM "+schema.RowViewTable).Scan(&marker))
	assert.Equal(t, "new", marker)
}

func TestPromoteRetainsPrior(t *testing.T) {
	mgr := testManager(t)
	base, err := mgr.Create(context.Background(), "baseline")
	require.NoError(t, err)
	fakeMaterialize(t, base, "old")
	base.Close()

	cand, err := mgr.Create(context.Background(), "candidate")
	require.NoError(t, err)
	fakeMaterialize(t, cand, "new")
	cand.Close()

	require.NoError(t, mgr.Promote(context.Background(), "candidate", "baseline", "prior"))

	prior, err := mgr.Open("prior")
	require.NoError(t, err)
	defer prior.Close()
	var marker string
	require.NoError(t, prior.DB().QueryRow(
		"SELECT key FROM "+schema.RowViewTable).Scan(&marker))
	assert.Equal(t, "old", marker)
}

// A reader that opened the baseline before promotion keeps seeing the
// complete pre-promotion generation; a reader opening after sees the
// complete post-promotion one. No mixed state is observable.
func TestPromotionIsAtomicForOpenReaders(t *testing.T) {
	mgr := testManager(t)
	base, err := mgr.Create(context.Background(), "baseline")
	require.NoError(t, err)
	fakeMaterialize(t, base, "old")
	base.Close()

	cand, err := mgr.Create(context.Background(), "candidate")
	require.NoError(t, err)
	fakeMaterialize(t, cand, "new")
	cand.Close()

	reader, err := mgr.Open("baseline")
	require.NoError(t, err)
	defer reader.Close()
	// Pin one connection so every read hits the pre-promotion file.
	conn, err := reader.DB().Conn(context.Background())
	require.NoError(t, err)
	defer conn.Close()
	var before string
	require.NoError(t, conn.QueryRowContext(context.Background(),
		"SELECT key FROM "+schema.RowViewTable).Scan(&before))
	require.Equal(t, "old", before)

	require.NoError(t, mgr.Promote(context.Background(), "candidate", "baseline", ""))

	var after string
	require.NoError(t, conn.QueryRowContext(context.Background(),
		"SELECT key FROM "+schema.RowViewTable).Scan(&after))
	assert.Equal(t, "old", after, "open reader must keep the pre-promotion generation")

	fresh, err := mgr.Open("baseline")
	require.NoError(t, err)
	defer fresh.Close()
	var now string
	require.NoError(t, fresh.DB().QueryRow(
		"SELECT key FROM "+schema.RowViewTable).Scan(&now))
	assert.Equal(t, "new", now)
}

func TestCanonicalLoadRoundTrip(t *testing.T) {
	mgr := testManager(t)
	gen, err := mgr.Create(context.Background(), "candidate")
	require.NoError(t, err)
	defer gen.Close()

	loadCanonical(t, gen, "2003ApJ...1A", "2003ApJ...2B")
	n, err := gen.Count(context.Background(), schema.CanonicalName)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
