// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package delta compares two generations' row views. The changed set
// is driven by an explicit versioned field list, never inferred from
// the table schema, so fields deliberately left out of change
// detection are auditable. Results are persisted as tables inside the
// candidate so downstream consumers can replay a diff after the
// baseline generation is gone.
package delta

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/docsync/internal/schema"
	"github.com/pdiddy/docsync/internal/store"
	"github.com/pdiddy/docsync/pkg/types"
)

// Engine computes changed/added key sets.
type Engine struct {
	fields []string
	log    *zap.Logger
}

// NewEngine builds a delta engine. An empty CompareFields list selects
// schema.CompareFieldsV1.
func NewEngine(cfg types.DeltaConfig, log *zap.Logger) *Engine {
	fields := cfg.CompareFields
	if len(fields) == 0 {
		fields = schema.CompareFieldsV1
	}
	return &Engine{fields: fields, log: log}
}

// Fields returns the comparison field list in effect.
func (e *Engine) Fields() []string { return e.fields }

// Compute compares the candidate's row view against the baseline's and
// persists the result: changed keys (present in both, differing in at
// least one compared field) and added keys (in the candidate's
// canonical domain but not the baseline's). A key never lands in both
// sets; added keys are reported exactly once, in added. Neither
// generation is mutated beyond the candidate's two result tables.
func (e *Engine) Compute(ctx context.Context, cand *store.Generation, baselinePath string) (types.Delta, error) {
	if err := cand.AttachBaseline(ctx, baselinePath); err != nil {
		return types.Delta{}, err
	}
	defer cand.DetachBaseline(context.WithoutCancel(ctx))

	if err := e.checkComparable(ctx, cand); err != nil {
		return types.Delta{}, err
	}

	statements := []string{
		"DROP TABLE IF EXISTS " + schema.ChangedKeysTable,
		fmt.Sprintf("CREATE TABLE %s (%s TEXT PRIMARY KEY)",
			schema.ChangedKeysTable, schema.KeyColumn),
		changedSQL(e.fields),
		"DROP TABLE IF EXISTS " + schema.AddedKeysTable,
		fmt.Sprintf("CREATE TABLE %s (%s TEXT PRIMARY KEY)",
			schema.AddedKeysTable, schema.KeyColumn),
		addedSQL(),
	}
	for _, stmt := range statements {
		if _, err := cand.DB().ExecContext(ctx, stmt); err != nil {
			return types.Delta{}, fmt.Errorf("generation %q: computing delta: %w", cand.Name, err)
		}
	}

	d, err := Load(ctx, cand)
	if err != nil {
		return types.Delta{}, err
	}
	e.log.Info("computed delta",
		zap.String("generation", cand.Name),
		zap.String("baseline", baselinePath),
		zap.Int("changed", len(d.Changed)),
		zap.Int("added", len(d.Added)))
	return d, nil
}

// Load reads back a previously computed delta from the candidate's
// result tables.
func Load(ctx context.Context, gen *store.Generation) (types.Delta, error) {
	var d types.Delta
	var err error
	if d.Changed, err = readKeys(ctx, gen, schema.ChangedKeysTable); err != nil {
		return types.Delta{}, err
	}
	if d.Added, err = readKeys(ctx, gen, schema.AddedKeysTable); err != nil {
		return types.Delta{}, err
	}
	return d, nil
}

// changedSQL joins both row views on the key and flags rows where any
// compared field differs. Sequence and vector columns hold JSON array
// literals, so text inequality is ordered and element-wise.
func changedSQL(fields []string) string {
	conds := make([]string, len(fields))
	for i, f := range fields {
		conds[i] = fmt.Sprintf("main.%[1]s.%[2]s != baseline.%[1]s.%[2]s", schema.RowViewTable, f)
	}
	return fmt.Sprintf(
		"INSERT INTO %[1]s SELECT main.%[2]s.%[3]s FROM main.%[2]s JOIN baseline.%[2]s"+
			" ON main.%[2]s.%[3]s = baseline.%[2]s.%[3]s WHERE %[4]s",
		schema.ChangedKeysTable, schema.RowViewTable, schema.KeyColumn,
		strings.Join(conds, " OR "))
}

// addedSQL anti-joins the canonical domains; it is independent of any
// other attribute.
func addedSQL() string {
	return fmt.Sprintf(
		"INSERT INTO %[1]s SELECT main.%[2]s.%[3]s FROM main.%[2]s LEFT JOIN baseline.%[2]s"+
			" ON main.%[2]s.%[3]s = baseline.%[2]s.%[3]s WHERE baseline.%[2]s.%[3]s IS NULL",
		schema.AddedKeysTable, schema.CanonicalName, schema.KeyColumn)
}

// checkComparable verifies that both row views exist and carry every
// compared field.
func (e *Engine) checkComparable(ctx context.Context, cand *store.Generation) error {
	for _, ns := range []string{"main", "baseline"} {
		cols, err := tableColumns(ctx, cand, ns, schema.RowViewTable)
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			return fmt.Errorf("generation %q: %s row view missing: %w",
				cand.Name, ns, types.ErrComparisonFieldMismatch)
		}
		for _, f := range e.fields {
			if !cols[f] {
				return fmt.Errorf("generation %q: %s row view lacks compared field %q: %w",
					cand.Name, ns, f, types.ErrComparisonFieldMismatch)
			}
		}
	}
	return nil
}

func tableColumns(ctx context.Context, gen *store.Generation, ns, table string) (map[string]bool, error) {
	rows, err := gen.DB().QueryContext(ctx,
		fmt.Sprintf("PRAGMA %s.table_info(%s)", ns, table))
	if err != nil {
		return nil, fmt.Errorf("generation %q: reading %s.%s columns: %w", gen.Name, ns, table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("generation %q: scanning column info: %w", gen.Name, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func readKeys(ctx context.Context, gen *store.Generation, table string) ([]string, error) {
	rows, err := gen.DB().QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", schema.KeyColumn, table, schema.KeyColumn))
	if err != nil {
		return nil, fmt.Errorf("generation %q: reading %s: %w", gen.Name, table, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("generation %q: scanning %s: %w", gen.Name, table, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
