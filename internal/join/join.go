// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package join materializes a generation's unified row view: every key
// in the canonical store, left-joined against each attribute store with
// the attribute's default substituted where no row matches. The
// emitted SQL is derived from the schema catalog so the default policy
// stays in one place.
package join

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/pdiddy/docsync/internal/schema"
	"github.com/pdiddy/docsync/internal/store"
	"github.com/pdiddy/docsync/pkg/types"
)

// Engine builds and queries row views.
type Engine struct {
	log *zap.Logger
}

// NewEngine builds a join engine.
func NewEngine(log *zap.Logger) *Engine {
	return &Engine{log: log}
}

// materializeSQL emits the CREATE TABLE ... AS SELECT joining every
// attribute store against the canonical key set with COALESCE defaults.
// ORDER BY key makes re-materialization of unchanged stores reproduce
// the table byte for byte.
func materializeSQL(vectorLen int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s AS SELECT %s.%s AS %s, %s.id AS id",
		schema.RowViewTable, schema.CanonicalName, schema.KeyColumn,
		schema.KeyColumn, schema.CanonicalName)
	for _, a := range schema.Attributes {
		if a.Name == schema.CanonicalName {
			continue
		}
		for _, c := range a.Columns {
			fmt.Fprintf(&b, ", COALESCE(%s.%s, %s) AS %s",
				a.Name, c.Name, c.DefaultSQL(vectorLen), c.Name)
		}
	}
	fmt.Fprintf(&b, " FROM %s", schema.CanonicalName)
	for _, a := range schema.Attributes {
		if a.Name == schema.CanonicalName {
			continue
		}
		fmt.Fprintf(&b, " LEFT JOIN %s ON %s.%s = %s.%s",
			a.Name, a.Name, schema.KeyColumn, schema.CanonicalName, schema.KeyColumn)
	}
	fmt.Fprintf(&b, " ORDER BY %s.%s", schema.CanonicalName, schema.KeyColumn)
	return b.String()
}

// Materialize builds the row view for gen, replacing any prior one.
// The row view's key set is exactly the canonical store's key set no
// matter which optional attributes hold data. It fails with
// ErrMissingCanonicalDomain when the canonical store is empty.
func (e *Engine) Materialize(ctx context.Context, gen *store.Generation) error {
	n, err := gen.Count(ctx, schema.CanonicalName)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("generation %q: %w", gen.Name, types.ErrMissingCanonicalDomain)
	}

	db := gen.DB()
	statements := []string{
		"DROP TABLE IF EXISTS " + schema.RowViewTable,
		materializeSQL(gen.VectorLength()),
		fmt.Sprintf("CREATE UNIQUE INDEX %s_key ON %s(%s)",
			schema.RowViewTable, schema.RowViewTable, schema.KeyColumn),
		fmt.Sprintf("CREATE INDEX %s_id ON %s(id)",
			schema.RowViewTable, schema.RowViewTable),
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("generation %q: materializing row view: %w", gen.Name, err)
		}
	}
	e.log.Info("materialized row view",
		zap.String("generation", gen.Name), zap.Int64("keys", n))
	return nil
}

// Lookup returns the row-view record for one key via the key index.
func (e *Engine) Lookup(ctx context.Context, gen *store.Generation, key string) (*types.Record, error) {
	query, args, err := sq.Select(schema.RowViewColumns()...).
		From(schema.RowViewTable).
		Where(sq.Eq{schema.KeyColumn: key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building lookup query: %w", err)
	}
	rec, err := ScanRecord(gen.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("generation %q: key %q not in row view", gen.Name, key)
	}
	if err != nil {
		return nil, fmt.Errorf("generation %q: key %q: %w", gen.Name, key, err)
	}
	return rec, nil
}

// ByKeys returns the row-view records matching keys, ordered by key.
func (e *Engine) ByKeys(ctx context.Context, gen *store.Generation, keys []string) ([]types.Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	query, args, err := sq.Select(schema.RowViewColumns()...).
		From(schema.RowViewTable).
		Where(sq.Eq{schema.KeyColumn: keys}).
		OrderBy(schema.KeyColumn).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building batch query: %w", err)
	}
	rows, err := gen.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("generation %q: querying row view: %w", gen.Name, err)
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		rec, err := ScanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("generation %q: %w", gen.Name, err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// RowScanner is satisfied by both *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanRecord decodes one row-view row, unpacking JSON array columns.
func ScanRecord(row RowScanner) (*types.Record, error) {
	var rec types.Record
	var refereed int64
	var authors, simbad, ned, grants, citations, readers, downloads, reads, reference string

	err := row.Scan(
		&rec.Key, &rec.ID,
		&authors, &refereed, &simbad, &ned, &grants, &citations,
		&rec.Boost, &rec.CitationCount, &rec.ReadCount, &rec.NormCites,
		&readers, &downloads, &reads, &reference,
	)
	if err != nil {
		return nil, err
	}
	rec.Refereed = refereed != 0

	for _, col := range []struct {
		raw  string
		dest any
	}{
		{authors, &rec.Authors},
		{simbad, &rec.SimbadObjects},
		{ned, &rec.NedObjects},
		{grants, &rec.Grants},
		{citations, &rec.Citations},
		{readers, &rec.Readers},
		{downloads, &rec.Downloads},
		{reads, &rec.Reads},
		{reference, &rec.Reference},
	} {
		if err := json.Unmarshal([]byte(col.raw), col.dest); err != nil {
			return nil, fmt.Errorf("decoding sequence column: %w", err)
		}
	}
	return &rec, nil
}
