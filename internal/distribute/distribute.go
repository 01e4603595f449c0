// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package distribute streams row-view records downstream in bounded
// batches. Delivery is fire-and-forget and at-least-once: the sink
// owns retry and acknowledgement, a failed batch stops iteration, and
// batches already handed over are never revoked.
package distribute

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/pdiddy/docsync/internal/join"
	"github.com/pdiddy/docsync/internal/schema"
	"github.com/pdiddy/docsync/internal/store"
	"github.com/pdiddy/docsync/pkg/types"
)

const defaultBatchSize = 100

// Sink accepts delivery batches on behalf of the downstream consumer.
type Sink interface {
	Deliver(ctx context.Context, batch []types.Record) error
	Close()
}

// Distributor iterates a generation's row view and hands batches to a
// sink.
type Distributor struct {
	sink      Sink
	batchSize int
	log       *zap.Logger
}

// New builds a Distributor. BatchSize below 1 falls back to the
// default; 1 delivers one record per batch.
func New(cfg types.DistributorConfig, sink Sink, log *zap.Logger) *Distributor {
	batch := cfg.BatchSize
	if batch < 1 {
		batch = defaultBatchSize
	}
	return &Distributor{sink: sink, batchSize: batch, log: log}
}

// Summary reports what one streaming run handed to the sink.
type Summary struct {
	Records int
	Batches int
}

// StreamAll streams every row-view record of gen.
func (d *Distributor) StreamAll(ctx context.Context, gen *store.Generation) (Summary, error) {
	builder := sq.Select(schema.RowViewColumns()...).
		From(schema.RowViewTable).
		OrderBy("rowid")
	return d.stream(ctx, gen, builder)
}

// StreamDelta streams only the records named by the generation's
// persisted changed and added key tables, so a computed diff can be
// replayed without the baseline.
func (d *Distributor) StreamDelta(ctx context.Context, gen *store.Generation) (Summary, error) {
	subset := fmt.Sprintf("SELECT %[1]s FROM %[2]s UNION SELECT %[1]s FROM %[3]s",
		schema.KeyColumn, schema.ChangedKeysTable, schema.AddedKeysTable)
	builder := sq.Select(schema.RowViewColumns()...).
		From(schema.RowViewTable).
		Where(fmt.Sprintf("%s IN (%s)", schema.KeyColumn, subset)).
		OrderBy("rowid")
	return d.stream(ctx, gen, builder)
}

func (d *Distributor) stream(ctx context.Context, gen *store.Generation, builder sq.SelectBuilder) (Summary, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return Summary{}, fmt.Errorf("building stream query: %w", err)
	}
	rows, err := gen.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return Summary{}, fmt.Errorf("generation %q: iterating row view: %w", gen.Name, err)
	}
	defer rows.Close()

	var summary Summary
	batch := make([]types.Record, 0, d.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := d.sink.Deliver(ctx, batch); err != nil {
			return fmt.Errorf("generation %q: batch %d (%d records already sent): %w: %v",
				gen.Name, summary.Batches+1, summary.Records, types.ErrSinkDelivery, err)
		}
		summary.Batches++
		summary.Records += len(batch)
		batch = batch[:0]
		return nil
	}

	for rows.Next() {
		rec, err := join.ScanRecord(rows)
		if err != nil {
			return summary, fmt.Errorf("generation %q: %w", gen.Name, err)
		}
		batch = append(batch, *rec)
		if len(batch) >= d.batchSize {
			if err := flush(); err != nil {
				return summary, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("generation %q: iterating row view: %w", gen.Name, err)
	}
	if err := flush(); err != nil {
		return summary, err
	}

	d.log.Info("streamed records",
		zap.String("generation", gen.Name),
		zap.Int("records", summary.Records),
		zap.Int("batches", summary.Batches))
	return summary, nil
}
