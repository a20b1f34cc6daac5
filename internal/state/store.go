// Package state persists build history in SQLite so operators can see what
// the last runs did. The store is optional: a nil *Store is a no-op.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("state store is closed")

// BuildRecord is one persisted pipeline run.
type BuildRecord struct {
	ID        string
	Started   time.Time
	Finished  time.Time
	Outcome   string // "success" | "failure"
	Converted int
	Skipped   int
	Failed    int
}

// FileRecord is the persisted outcome for one notebook within a run.
type FileRecord struct {
	BuildID  string
	Notebook string
	Status   string // "converted" | "skipped" | "failed"
	Duration time.Duration
	Error    string
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the store at dbPath, initializing the schema.
// Parent directories are created as needed.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		converted INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS build_files (
		build_id TEXT NOT NULL,
		notebook TEXT NOT NULL,
		status TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		error TEXT,
		FOREIGN KEY (build_id) REFERENCES builds(id)
	);
	CREATE INDEX IF NOT EXISTS idx_build_files_build ON build_files(build_id);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordBuild persists a run and its per-notebook outcomes in one
// transaction.
func (s *Store) RecordBuild(ctx context.Context, build BuildRecord, files []FileRecord) error {
	if s == nil {
		return nil
	}
	if s.db == nil {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO builds (id, started, finished, outcome, converted, skipped, failed) VALUES (?, ?, ?, ?, ?, ?, ?)",
		build.ID, build.Started.Unix(), build.Finished.Unix(), build.Outcome,
		build.Converted, build.Skipped, build.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}

	for _, f := range files {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO build_files (build_id, notebook, status, duration_ms, error) VALUES (?, ?, ?, ?, ?)",
			build.ID, f.Notebook, f.Status, f.Duration.Milliseconds(), f.Error,
		)
		if err != nil {
			return fmt.Errorf("insert build file: %w", err)
		}
	}

	return tx.Commit()
}

// RecentBuilds returns the latest builds, newest first.
func (s *Store) RecentBuilds(ctx context.Context, limit int) ([]BuildRecord, error) {
	if s == nil {
		return nil, nil
	}
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started, finished, outcome, converted, skipped, failed FROM builds ORDER BY started DESC, id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var builds []BuildRecord
	for rows.Next() {
		var b BuildRecord
		var started, finished int64
		if err := rows.Scan(&b.ID, &started, &finished, &b.Outcome, &b.Converted, &b.Skipped, &b.Failed); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		b.Started = time.Unix(started, 0)
		b.Finished = time.Unix(finished, 0)
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

// BuildFiles returns the per-notebook outcomes for one build.
func (s *Store) BuildFiles(ctx context.Context, buildID string) ([]FileRecord, error) {
	if s == nil {
		return nil, nil
	}
	if s.db == nil {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT build_id, notebook, status, duration_ms, error FROM build_files WHERE build_id = ? ORDER BY notebook",
		buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("query build files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		var durationMS int64
		var errText sql.NullString
		if err := rows.Scan(&f.BuildID, &f.Notebook, &f.Status, &durationMS, &errText); err != nil {
			return nil, fmt.Errorf("scan build file: %w", err)
		}
		f.Duration = time.Duration(durationMS) * time.Millisecond
		f.Error = errText.String
		files = append(files, f)
	}
	return files, rows.Err()
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
