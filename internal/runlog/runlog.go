// Package runlog keeps a local SQLite history of pipeline runs so operators
// can see what recent runs discovered and processed without trawling logs.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	jurisdictions TEXT NOT NULL,
	discovered INTEGER NOT NULL DEFAULT 0,
	processed INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`

// Entry summarizes one pipeline run.
type Entry struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	Jurisdictions string
	Discovered    int
	Processed     int
	Failed        int
	Skipped       int
	Notes         string
}

// Log is the run-history database handle.
type Log struct {
	db *sql.DB
}

// Open creates or opens the run-history database at path.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create runlog directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open runlog: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize runlog schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Close releases the database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

// Record stores one completed run.
func (l *Log) Record(ctx context.Context, entry Entry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, jurisdictions, discovered, processed, failed, skipped, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.StartedAt.UTC().Format(time.RFC3339),
		entry.FinishedAt.UTC().Format(time.RFC3339),
		entry.Jurisdictions,
		entry.Discovered,
		entry.Processed,
		entry.Failed,
		entry.Skipped,
		entry.Notes,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (l *Log) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, jurisdictions, discovered, processed, failed, skipped, notes
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var started, finished string
		if err := rows.Scan(&entry.ID, &started, &finished, &entry.Jurisdictions,
			&entry.Discovered, &entry.Processed, &entry.Failed, &entry.Skipped, &entry.Notes); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		entry.StartedAt, _ = time.Parse(time.RFC3339, started)
		entry.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
