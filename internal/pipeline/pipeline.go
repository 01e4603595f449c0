// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences whole generation runs: build a candidate
// from flat files, compare it against the baseline, and promote it.
// Each step runs to completion or fails the run; a failed candidate is
// destroyed and retried from scratch, never resumed.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/docsync/internal/delta"
	"github.com/pdiddy/docsync/internal/ingest"
	"github.com/pdiddy/docsync/internal/join"
	"github.com/pdiddy/docsync/internal/store"
	"github.com/pdiddy/docsync/pkg/types"
)

// Pipeline wires the stages of one generation run.
type Pipeline struct {
	Manager  *store.Manager
	Ingester *ingest.Ingester
	Join     *join.Engine
	Delta    *delta.Engine
	Auditor  *delta.Auditor

	log *zap.Logger
}

// New constructs every stage from config.
func New(cfg types.PipelineConfig, log *zap.Logger) (*Pipeline, error) {
	mgr, err := store.NewManager(cfg.Store, log)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Manager:  mgr,
		Ingester: ingest.NewIngester(cfg.Ingest, log),
		Join:     join.NewEngine(log),
		Delta:    delta.NewEngine(cfg.Delta, log),
		Auditor:  delta.NewAuditor(log),
		log:      log,
	}, nil
}

// BuildCandidate drops any leftover generation under name, creates a
// fresh one, ingests every configured attribute file, verifies line
// counts, and materializes the row view. On error the partial
// candidate is destroyed.
func (p *Pipeline) BuildCandidate(ctx context.Context, name string) (err error) {
	if err := p.Manager.Destroy(name); err != nil {
		return err
	}
	gen, err := p.Manager.Create(ctx, name)
	if err != nil {
		return err
	}
	defer func() {
		gen.Close()
		if err != nil {
			if derr := p.Manager.Destroy(name); derr != nil {
				p.log.Error("destroying failed candidate",
					zap.String("generation", name), zap.Error(derr))
			}
		}
	}()

	if _, err = p.Ingester.Run(ctx, gen); err != nil {
		return err
	}
	results, err := p.Ingester.Verify(ctx, gen)
	if err != nil {
		return err
	}
	for _, r := range results {
		if !r.OK() {
			return fmt.Errorf("generation %q: attribute %s ingested %d rows from %d lines",
				name, r.Attribute, r.StoreRows, r.FileLines)
		}
	}
	return p.Join.Materialize(ctx, gen)
}

// ComputeDelta compares candidate against baseline, persists the
// changed/added sets inside the candidate, and returns them with the
// per-field audit report.
func (p *Pipeline) ComputeDelta(ctx context.Context, candidate, baseline string) (types.Delta, *types.AuditReport, error) {
	if !p.Manager.Exists(baseline) {
		return types.Delta{}, nil, fmt.Errorf("baseline %q: %w", baseline, types.ErrGenerationNotFound)
	}
	gen, err := p.Manager.Open(candidate)
	if err != nil {
		return types.Delta{}, nil, err
	}
	defer gen.Close()

	d, err := p.Delta.Compute(ctx, gen, p.Manager.Path(baseline))
	if err != nil {
		return types.Delta{}, nil, err
	}
	report, err := p.Auditor.Report(ctx, gen, baseline, p.Manager.Path(baseline))
	if err != nil {
		return types.Delta{}, nil, err
	}
	return d, report, nil
}

// Run executes a full delta run: build the candidate, compute its
// delta against the baseline, and promote it. retainPrior, when
// non-empty, keeps the old baseline under that name.
func (p *Pipeline) Run(ctx context.Context, candidate, baseline, retainPrior string) (types.Delta, error) {
	if err := p.BuildCandidate(ctx, candidate); err != nil {
		return types.Delta{}, err
	}
	d, _, err := p.ComputeDelta(ctx, candidate, baseline)
	if err != nil {
		return types.Delta{}, err
	}
	if err := p.Manager.Promote(ctx, candidate, baseline, retainPrior); err != nil {
		return types.Delta{}, err
	}
	return d, nil
}
