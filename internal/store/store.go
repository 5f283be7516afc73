// Package store persists fitted vocabularies in SQLite so that a later
// predict run can check it transforms text with the same id space.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/example/go-sentiprep/internal/tokenizer"
)

// ErrNotFound is returned when no run matches a lookup.
var ErrNotFound = errors.New("store: not found")

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	model_name   TEXT NOT NULL,
	max_nb_words INTEGER NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model_name, created_at);

CREATE TABLE IF NOT EXISTS vocabulary (
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	token  TEXT NOT NULL,
	id     INTEGER NOT NULL,
	count  INTEGER NOT NULL,
	PRIMARY KEY (run_id, id)
);
`

// Run is one persisted vocabulary fit.
type Run struct {
	RunID      string    `db:"run_id"`
	ModelName  string    `db:"model_name"`
	MaxNbWords int       `db:"max_nb_words"`
	CreatedAt  time.Time `db:"-"`
}

type runRow struct {
	Run
	CreatedAt string `db:"created_at"`
}

type entryRow struct {
	Token string `db:"token"`
	ID    int32  `db:"id"`
	Count int    `db:"count"`
}

// Store wraps a SQLite database.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary store %q: %w", path, err)
	}
	// One writer at a time; SQLite serialises anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate vocabulary store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveVocabulary records run and every entry of vocab in one transaction.
func (s *Store) SaveVocabulary(ctx context.Context, run Run, vocab *tokenizer.Vocabulary) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, model_name, max_nb_words, created_at) VALUES (?, ?, ?, ?)`,
		run.RunID, run.ModelName, run.MaxNbWords, run.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO vocabulary (run_id, token, id, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare vocabulary insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range vocab.Entries() {
		if _, err := stmt.ExecContext(ctx, run.RunID, e.Token, e.ID, e.Count); err != nil {
			return fmt.Errorf("insert token %q: %w", e.Token, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// LatestRun returns the most recent run recorded for modelName.
func (s *Store) LatestRun(ctx context.Context, modelName string) (Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row,
		`SELECT run_id, model_name, max_nb_words, created_at FROM runs
		 WHERE model_name = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, modelName)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: no run for model %q", ErrNotFound, modelName)
	}
	if err != nil {
		return Run{}, fmt.Errorf("query latest run: %w", err)
	}

	return row.toRun()
}

// Entries returns up to limit entries of runID ordered by id. A limit of
// zero or less returns all of them.
func (s *Store) Entries(ctx context.Context, runID string, limit int) ([]tokenizer.Entry, error) {
	query := `SELECT token, id, count FROM vocabulary WHERE run_id = ? ORDER BY id`
	args := []any{runID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query vocabulary of %s: %w", runID, err)
	}

	entries := make([]tokenizer.Entry, len(rows))
	for i, r := range rows {
		entries[i] = tokenizer.Entry{Token: r.Token, ID: r.ID, Count: r.Count}
	}

	return entries, nil
}

// Vocabulary restores the full vocabulary of run.
func (s *Store) Vocabulary(ctx context.Context, run Run) (*tokenizer.Vocabulary, error) {
	entries, err := s.Entries(ctx, run.RunID, 0)
	if err != nil {
		return nil, err
	}

	return tokenizer.Restore(entries, run.MaxNbWords)
}

func (r runRow) toRun() (Run, error) {
	t, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: created_at %q: %w", r.RunID, r.CreatedAt, err)
	}
	run := r.Run
	run.CreatedAt = t
	return run, nil
}
