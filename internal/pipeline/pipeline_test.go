// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/docsync/internal/schema"
	"github.com/pdiddy/docsync/pkg/types"
)

// testConfig wires a pipeline over temp dirs with a 3-bucket vector.
func testConfig(t *testing.T) types.PipelineConfig {
	t.Helper()
	return types.PipelineConfig{
		Store: types.StoreConfig{DataDir: t.TempDir(), VectorLength: 3},
		Ingest: types.IngestConfig{
			DataPath: t.TempDir(),
			Files: map[string]string{
				"canonical": "canonical.list",
				"author":    "authors.links",
				"relevance": "docmetrics.tab",
			},
		},
	}
}

func writeFlatFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeDataset(t *testing.T, dir string, keys []string, boosts map[string]string) {
	t.Helper()
	var canonical, authors, metrics string
	for _, k := range keys {
		canonical += k + "\n"
		authors += k + "\tAdams, A\n"
		boost, ok := boosts[k]
		if !ok {
			boost = "1.0"
		}
		metrics += k + "\t" + boost + "\t0\t0\t0\n"
	}
	writeFlatFile(t, dir, "canonical.list", canonical)
	writeFlatFile(t, dir, "authors.links", authors)
	writeFlatFile(t, dir, "docmetrics.tab", metrics)
}

func TestBuildCandidateMaterializes(t *testing.T) {
	cfg := testConfig(t)
	writeDataset(t, cfg.Ingest.DataPath, []string{"A", "B"}, nil)

	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, p.BuildCandidate(context.Background(), "candidate"))

	gen, err := p.Manager.Open("candidate")
	require.NoError(t, err)
	defer gen.Close()
	ok, err := gen.Materialized(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBuildCandidateDestroysPartialOnFailure(t *testing.T) {
	cfg := testConfig(t)
	// No flat files at all: ingest fails opening canonical.list.
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	err = p.BuildCandidate(context.Background(), "candidate")
	require.Error(t, err)
	assert.False(t, p.Manager.Exists("candidate"),
		"failed candidate must not be left behind")
}

func TestBuildCandidateReplacesLeftover(t *testing.T) {
	cfg := testConfig(t)
	writeDataset(t, cfg.Ingest.DataPath, []string{"A"}, nil)

	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, p.BuildCandidate(context.Background(), "candidate"))
	require.NoError(t, p.BuildCandidate(context.Background(), "candidate"))
}

func TestRunFullDeltaPipeline(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	// First generation becomes the baseline.
	writeDataset(t, cfg.Ingest.DataPath, []string{"A", "B"}, nil)
	require.NoError(t, p.BuildCandidate(ctx, "baseline"))

	// Second dataset: C appears, B's boost changes.
	writeDataset(t, cfg.Ingest.DataPath, []string{"A", "B", "C"},
		map[string]string{"B": "2.0"})

	d, err := p.Run(ctx, "candidate", "baseline", "prior")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, d.Changed)
	assert.Equal(t, []string{"C"}, d.Added)

	// The candidate was promoted; the old baseline is retained.
	assert.False(t, p.Manager.Exists("candidate"))
	assert.True(t, p.Manager.Exists("prior"))

	promoted, err := p.Manager.Open("baseline")
	require.NoError(t, err)
	defer promoted.Close()
	n, err := promoted.Count(ctx, schema.CanonicalName)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	// The promoted generation still carries the persisted delta.
	var changed int64
	require.NoError(t, promoted.DB().QueryRow(
		"SELECT count(*) FROM "+schema.ChangedKeysTable).Scan(&changed))
	assert.EqualValues(t, 1, changed)
}

func TestComputeDeltaRequiresBaseline(t *testing.T) {
	cfg := testConfig(t)
	writeDataset(t, cfg.Ingest.DataPath, []string{"A"}, nil)

	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, p.BuildCandidate(context.Background(), "candidate"))

	_, _, err = p.ComputeDelta(context.Background(), "candidate", "missing")
	require.ErrorIs(t, err, types.ErrGenerationNotFound)
}
