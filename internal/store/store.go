// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store owns the generation lifecycle. A generation is one
// SQLite database file under the data directory holding one table per
// attribute plus, once materialized, the joined row view. Generations
// are isolated by construction: a candidate is invisible until its file
// is renamed over the baseline's, and the rename is the single atomic
// promotion primitive.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/docsync/internal/schema"
	"github.com/pdiddy/docsync/pkg/types"
)

const (
	defaultVectorLength  = 21
	defaultBusyTimeoutMS = 30000
)

// Manager creates, opens, destroys, and promotes generations.
type Manager struct {
	dataDir     string
	vectorLen   int
	busyTimeout int
	log         *zap.Logger
}

// NewManager builds a Manager from config, applying defaults.
func NewManager(cfg types.StoreConfig, log *zap.Logger) (*Manager, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("store: data_dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	vectorLen := cfg.VectorLength
	if vectorLen <= 0 {
		vectorLen = defaultVectorLength
	}
	busy := cfg.BusyTimeoutMS
	if busy <= 0 {
		busy = defaultBusyTimeoutMS
	}
	return &Manager{
		dataDir:     cfg.DataDir,
		vectorLen:   vectorLen,
		busyTimeout: busy,
		log:         log,
	}, nil
}

// VectorLength returns the configured bucket count for vector attributes.
func (m *Manager) VectorLength() int { return m.vectorLen }

// Path returns the database file backing the named generation.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.dataDir, name+".db")
}

// Exists reports whether the named generation holds data on disk.
func (m *Manager) Exists(name string) bool {
	_, err := os.Stat(m.Path(name))
	return err == nil
}

func (m *Manager) open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d", path, m.busyTimeout)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// ATTACH DATABASE is scoped to a single SQLite connection, so the
	// handle must never spread statements across pooled connections.
	db.SetMaxOpenConns(1)
	return db, nil
}

// Create allocates an empty generation with one empty attribute store
// per known attribute. It fails if the name is already in use.
func (m *Manager) Create(ctx context.Context, name string) (*Generation, error) {
	if m.Exists(name) {
		return nil, fmt.Errorf("generation %q: %w", name, types.ErrGenerationExists)
	}
	db, err := m.open(m.Path(name))
	if err != nil {
		return nil, fmt.Errorf("generation %q: opening database: %w", name, err)
	}
	for _, attr := range schema.Attributes {
		if _, err := db.ExecContext(ctx, schema.CreateTableSQL(attr)); err != nil {
			db.Close()
			os.Remove(m.Path(name))
			return nil, fmt.Errorf("generation %q: creating %s store: %w", name, attr.Name, err)
		}
	}
	m.log.Info("created attribute stores", zap.String("generation", name))
	return &Generation{Name: name, Path: m.Path(name), db: db, vectorLen: m.vectorLen}, nil
}

// Open opens an existing generation.
func (m *Manager) Open(name string) (*Generation, error) {
	if !m.Exists(name) {
		return nil, fmt.Errorf("generation %q: %w", name, types.ErrGenerationNotFound)
	}
	db, err := m.open(m.Path(name))
	if err != nil {
		return nil, fmt.Errorf("generation %q: opening database: %w", name, err)
	}
	return &Generation{Name: name, Path: m.Path(name), db: db, vectorLen: m.vectorLen}, nil
}

// Destroy irreversibly removes the generation and all its data. It is
// idempotent: destroying a generation that does not exist is not an
// error, but the underlying removal is conditional on existence.
func (m *Manager) Destroy(name string) error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(m.Path(name) + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("generation %q: destroying: %w", name, err)
		}
	}
	m.log.Info("destroyed generation", zap.String("generation", name))
	return nil
}

// Promote atomically renames the candidate to the baseline name. The
// rename is indivisible at the filesystem level: readers holding the
// old baseline see the complete pre-promotion generation, new opens see
// the complete post-promotion one, and no reader ever observes a mix.
// If retainPrior is non-empty the old baseline is renamed aside to that
// name first instead of being replaced; otherwise it is overwritten.
// Promotion fails with ErrPromotionConflict if the baseline name does
// not currently hold a generation or the candidate has not been
// materialized.
func (m *Manager) Promote(ctx context.Context, candidate, baseline, retainPrior string) error {
	if !m.Exists(baseline) {
		return fmt.Errorf("promote %q -> %q: baseline holds no generation: %w",
			candidate, baseline, types.ErrPromotionConflict)
	}
	cand, err := m.Open(candidate)
	if err != nil {
		return fmt.Errorf("promote %q -> %q: %w", candidate, baseline, types.ErrPromotionConflict)
	}
	materialized, err := cand.Materialized(ctx)
	cand.Close()
	if err != nil {
		return fmt.Errorf("promote %q -> %q: %w", candidate, baseline, err)
	}
	if !materialized {
		return fmt.Errorf("promote %q -> %q: candidate not materialized: %w",
			candidate, baseline, types.ErrPromotionConflict)
	}

	if retainPrior != "" {
		if err := m.Destroy(retainPrior); err != nil {
			return err
		}
		if err := os.Rename(m.Path(baseline), m.Path(retainPrior)); err != nil {
			return fmt.Errorf("promote %q -> %q: retaining prior as %q: %w",
				candidate, baseline, retainPrior, err)
		}
	}
	// Stale sidecar files from the replaced baseline must not pair with
	// the renamed candidate's database.
	for _, suffix := range []string{"-wal", "-shm"} {
		os.Remove(m.Path(baseline) + suffix)
	}
	if err := os.Rename(m.Path(candidate), m.Path(baseline)); err != nil {
		return fmt.Errorf("promote %q -> %q: %w", candidate, baseline, err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		os.Remove(m.Path(candidate) + suffix)
	}
	m.log.Info("promoted generation",
		zap.String("candidate", candidate),
		zap.String("baseline", baseline),
		zap.String("retained_prior", retainPrior))
	return nil
}

// Generation is an open handle on one generation's namespace.
type Generation struct {
	Name string
	Path string

	db        *sql.DB
	vectorLen int
}

// DB exposes the underlying database for the join, delta, and
// distribution layers.
func (g *Generation) DB() *sql.DB { return g.db }

// VectorLength returns the bucket count vector attributes were loaded with.
func (g *Generation) VectorLength() int { return g.vectorLen }

// Close releases the database handle.
func (g *Generation) Close() error { return g.db.Close() }

// Materialized reports whether the row view has been built.
func (g *Generation) Materialized(ctx context.Context) (bool, error) {
	var n int
	err := g.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`,
		schema.RowViewTable,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("generation %q: checking row view: %w", g.Name, err)
	}
	return n > 0, nil
}

// AttachBaseline attaches another generation's database under the alias
// "baseline" so delta and audit SQL can span both namespaces.
func (g *Generation) AttachBaseline(ctx context.Context, path string) error {
	if _, err := g.db.ExecContext(ctx, `ATTACH DATABASE ? AS baseline`, path); err != nil {
		return fmt.Errorf("generation %q: attaching baseline %s: %w", g.Name, path, err)
	}
	return nil
}

// DetachBaseline reverses AttachBaseline.
func (g *Generation) DetachBaseline(ctx context.Context) error {
	if _, err := g.db.ExecContext(ctx, `DETACH DATABASE baseline`); err != nil {
		return fmt.Errorf("generation %q: detaching baseline: %w", g.Name, err)
	}
	return nil
}

// Row is one pre-aggregated bulk row: the key plus one value per
// attribute column.
type Row struct {
	Key    string
	Values []any
}

// RowSource yields bulk rows. Next reports done=true once the source is
// exhausted.
type RowSource interface {
	Next() (row Row, done bool, err error)
}

// BulkLoad inserts rows into one attribute store inside a single
// transaction. A repeated key violates the store's primary key and
// fails the whole load with ErrDuplicateKey; loaders must present each
// key at most once.
func (g *Generation) BulkLoad(ctx context.Context, attr schema.Attribute, src RowSource) (int64, error) {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("generation %q: beginning %s load: %w", g.Name, attr.Name, err)
	}
	defer tx.Rollback()

	placeholders := "?"
	for range attr.Columns {
		placeholders += ", ?"
	}
	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf("INSERT INTO %s VALUES (%s)", attr.Name, placeholders))
	if err != nil {
		return 0, fmt.Errorf("generation %q: preparing %s insert: %w", g.Name, attr.Name, err)
	}
	defer stmt.Close()

	var count int64
	for {
		row, done, err := src.Next()
		if err != nil {
			return 0, fmt.Errorf("generation %q: reading %s rows: %w", g.Name, attr.Name, err)
		}
		if done {
			break
		}
		args := append([]any{row.Key}, row.Values...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			if isPrimaryKeyConflict(err) {
				return 0, fmt.Errorf("generation %q: attribute %s key %q: %w",
					g.Name, attr.Name, row.Key, types.ErrDuplicateKey)
			}
			return 0, fmt.Errorf("generation %q: inserting %s key %q: %w",
				g.Name, attr.Name, row.Key, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("generation %q: committing %s load: %w", g.Name, attr.Name, err)
	}
	return count, nil
}

// Count returns the row count of one table in the generation.
func (g *Generation) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := g.db.QueryRowContext(ctx, "SELECT count(*) FROM "+table).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("generation %q: counting %s: %w", g.Name, table, err)
	}
	return n, nil
}

func isPrimaryKeyConflict(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			serr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
