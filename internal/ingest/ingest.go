// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest loads attribute flat files into a candidate
// generation's stores. Each attribute family has its own loader; the
// attribute catalog, not the file name, selects which one runs.
// Attributes of one candidate load in parallel, and Run returns only
// when every load has finished, which is the barrier row-view
// materialization relies on.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/docsync/internal/schema"
	"github.com/pdiddy/docsync/internal/store"
	"github.com/pdiddy/docsync/pkg/types"
)

// DefaultFiles maps each attribute to its conventional flat-file path
// relative to the data directory.
var DefaultFiles = map[string]string{
	"canonical": "bibcodes.list.can",
	"author":    "facet_authors/all.links",
	"refereed":  "refereed/all.links",
	"simbad":    "simbad/simbad_objects.tab",
	"ned":       "ned/ned_objects.tab",
	"grants":    "grants/all.links",
	"citation":  "citation/all.links",
	"relevance": "relevance/docmetrics.tab",
	"reader":    "alsoread_bib/all.links",
	"download":  "reads/downloads.links",
	"reads":     "reads/all.links",
	"reference": "reference/all.links",
}

// Ingester bulk-loads every configured attribute file into one
// generation.
type Ingester struct {
	cfg types.IngestConfig
	log *zap.Logger
}

// NewIngester builds an Ingester. An empty Files map falls back to
// DefaultFiles; MaxRows zero means unlimited, matching -1.
func NewIngester(cfg types.IngestConfig, log *zap.Logger) *Ingester {
	if len(cfg.Files) == 0 {
		cfg.Files = DefaultFiles
	}
	return &Ingester{cfg: cfg, log: log}
}

// Summary reports rows loaded per attribute.
type Summary map[string]int64

// Run ingests all configured attribute files into gen, one goroutine
// per attribute. The stores are disjoint so the loads have no ordering
// dependency on each other; the first failure cancels the rest and the
// whole candidate should then be destroyed and retried from scratch.
func (i *Ingester) Run(ctx context.Context, gen *store.Generation) (Summary, error) {
	summary := make(Summary, len(schema.Attributes))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, attr := range schema.Attributes {
		rel, ok := i.cfg.Files[attr.Name]
		if !ok || rel == "" {
			i.log.Debug("attribute has no configured file, leaving store empty",
				zap.String("generation", gen.Name), zap.String("attribute", attr.Name))
			continue
		}
		attr := attr
		path := filepath.Join(i.cfg.DataPath, rel)
		g.Go(func() error {
			src, err := openSource(attr, path, gen.VectorLength(), i.cfg.MaxRows)
			if err != nil {
				return fmt.Errorf("generation %q: attribute %s: %w", gen.Name, attr.Name, err)
			}
			defer src.Close()

			n, err := gen.BulkLoad(ctx, attr, src)
			if err != nil {
				return err
			}
			mu.Lock()
			summary[attr.Name] = n
			mu.Unlock()
			i.log.Info("loaded attribute",
				zap.String("generation", gen.Name),
				zap.String("attribute", attr.Name),
				zap.Int64("rows", n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}

// VerifyResult compares a flat file's line count against its store's
// row count. Only meaningful for files that never repeat a key.
type VerifyResult struct {
	Attribute string
	FileLines int64
	StoreRows int64
}

// OK reports whether the counts agree.
func (v VerifyResult) OK() bool { return v.FileLines == v.StoreRows }

// verifyAttributes are the stores whose flat files carry exactly one
// line per key.
var verifyAttributes = []string{"canonical", "author", "reads", "download", "refereed", "relevance"}

// Verify checks that ingest read every line: for each non-aggregating
// attribute, the flat file's line count must equal the store row count.
func (i *Ingester) Verify(ctx context.Context, gen *store.Generation) ([]VerifyResult, error) {
	var results []VerifyResult
	for _, name := range verifyAttributes {
		rel, ok := i.cfg.Files[name]
		if !ok || rel == "" {
			continue
		}
		lines, err := countLines(filepath.Join(i.cfg.DataPath, rel))
		if err != nil {
			return nil, fmt.Errorf("generation %q: verifying %s: %w", gen.Name, name, err)
		}
		rows, err := gen.Count(ctx, name)
		if err != nil {
			return nil, err
		}
		r := VerifyResult{Attribute: name, FileLines: lines, StoreRows: rows}
		if !r.OK() {
			i.log.Warn("count mismatch",
				zap.String("generation", gen.Name),
				zap.String("attribute", name),
				zap.Int64("file_lines", lines),
				zap.Int64("store_rows", rows))
		}
		results = append(results, r)
	}
	return results, nil
}

func countLines(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	var count int64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		count++
	}
	return count, sc.Err()
}
