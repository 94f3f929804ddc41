// Package history records CLI-level telemetry about past `cloudlens
// run` invocations — not pipeline-stream state, which the engine
// itself never persists. The schema-on-open, prepared-query, and
// time-ranged listing shape is adapted from the reference
// architecture's discovery database (pkg/discovery/database.go),
// repointed at run rows instead of rate-limit rows. See DESIGN.md.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run records one cloudlens run invocation.
type Run struct {
	ID         int64
	StartedAt  time.Time
	Duration   time.Duration
	ConfigPath string
	InputType  string
	RecordsIn  int
	RecordsOut int
	Suppressed int
	Expanded   int
	Success    bool
	ErrorText  string
}

// Store manages the SQLite-backed run history database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the run history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		config_path TEXT NOT NULL,
		input_type TEXT NOT NULL,
		records_in INTEGER NOT NULL DEFAULT 0,
		records_out INTEGER NOT NULL DEFAULT 0,
		suppressed INTEGER NOT NULL DEFAULT 0,
		expanded INTEGER NOT NULL DEFAULT 0,
		success BOOLEAN NOT NULL,
		error_text TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordRun inserts a completed run into the history.
func (s *Store) RecordRun(run *Run) error {
	query := `
	INSERT INTO runs (
		started_at, duration_ms, config_path, input_type,
		records_in, records_out, suppressed, expanded, success, error_text
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.Exec(query,
		run.StartedAt.Unix(), run.Duration.Milliseconds(), run.ConfigPath, run.InputType,
		run.RecordsIn, run.RecordsOut, run.Suppressed, run.Expanded, run.Success, run.ErrorText)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		run.ID = id
	}
	return nil
}

// ListRuns returns the most recent runs, newest first, up to limit.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	query := `
	SELECT id, started_at, duration_ms, config_path, input_type,
	       records_in, records_out, suppressed, expanded, success, error_text
	FROM runs
	ORDER BY started_at DESC
	LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Run
	for rows.Next() {
		run := &Run{}
		var startedAt int64
		var durationMs int64

		if err := rows.Scan(
			&run.ID, &startedAt, &durationMs, &run.ConfigPath, &run.InputType,
			&run.RecordsIn, &run.RecordsOut, &run.Suppressed, &run.Expanded,
			&run.Success, &run.ErrorText); err != nil {
			return nil, err
		}

		run.StartedAt = time.Unix(startedAt, 0)
		run.Duration = time.Duration(durationMs) * time.Millisecond
		results = append(results, run)
	}

	return results, rows.Err()
}

// RunsSince returns runs started at or after cutoff, newest first.
func (s *Store) RunsSince(cutoff time.Time) ([]*Run, error) {
	query := `
	SELECT id, started_at, duration_ms, config_path, input_type,
	       records_in, records_out, suppressed, expanded, success, error_text
	FROM runs
	WHERE started_at >= ?
	ORDER BY started_at DESC`

	rows, err := s.db.Query(query, cutoff.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Run
	for rows.Next() {
		run := &Run{}
		var startedAt int64
		var durationMs int64

		if err := rows.Scan(
			&run.ID, &startedAt, &durationMs, &run.ConfigPath, &run.InputType,
			&run.RecordsIn, &run.RecordsOut, &run.Suppressed, &run.Expanded,
			&run.Success, &run.ErrorText); err != nil {
			return nil, err
		}

		run.StartedAt = time.Unix(startedAt, 0)
		run.Duration = time.Duration(durationMs) * time.Millisecond
		results = append(results, run)
	}

	return results, rows.Err()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DefaultPath returns the default location for the run history database.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/cloudlens-history.db"
	}
	return filepath.Join(homeDir, ".cloudlens", "history.db")
}
