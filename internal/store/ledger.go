// Package store keeps the run ledger: one record per run and one per
// processed row, so later runs can skip rows already submitted.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"formfill/internal/logging"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound indicates an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Run statuses.
const (
	RunRunning   = "running"
	RunFinished  = "finished"
	RunCancelled = "cancelled"
)

// RunInfo describes a run when it starts.
type RunInfo struct {
	ID       string
	FormURL  string
	DataFile string
	Started  time.Time
}

// RunSummary is a run with its row tallies.
type RunSummary struct {
	RunInfo
	Finished  time.Time
	Status    string
	Rows      int
	Submitted int
	Complete  int
	Partial   int
	Failed    int
	Skipped   int
}

// FieldRecord is the stored form of one field result.
type FieldRecord struct {
	Anchor string `json:"anchor"`
	Column string `json:"column,omitempty"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// RowRecord is the stored form of one row report.
type RowRecord struct {
	RunID     string
	Index     int
	Hash      string
	Outcome   string
	Submitted bool
	Filled    int
	Skipped   int
	Failed    int
	Fields    []FieldRecord
	Started   time.Time
	Duration  time.Duration
}

// Ledger is a SQLite-backed run history.
type Ledger struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open creates or opens the ledger at path.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db, dbPath: path}
	if err := l.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}

	logging.StoreDebug("Opened ledger %s", path)
	return l, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.dbPath
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		form_url TEXT NOT NULL,
		data_file TEXT,
		started_ms INTEGER NOT NULL,
		finished_ms INTEGER,
		status TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_ms);

	CREATE TABLE IF NOT EXISTS row_results (
		run_id TEXT NOT NULL REFERENCES runs(id),
		row_index INTEGER NOT NULL,
		row_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		submitted INTEGER NOT NULL DEFAULT 0,
		filled INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		fields_json TEXT,
		started_ms INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		PRIMARY KEY (run_id, row_index)
	);
	CREATE INDEX IF NOT EXISTS idx_rows_hash ON row_results(row_hash);
	`
	_, err := l.db.Exec(schema)
	return err
}

// BeginRun records a new run as running.
func (l *Ledger) BeginRun(ctx context.Context, info RunInfo) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, form_url, data_file, started_ms, status) VALUES (?, ?, ?, ?, ?)`,
		info.ID, info.FormURL, info.DataFile, info.Started.UnixMilli(), RunRunning)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	logging.StoreDebug("Run %s started", info.ID)
	return nil
}

// RecordRow stores (or replaces) one row's result.
func (l *Ledger) RecordRow(ctx context.Context, rec RowRecord) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err = l.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO row_results
			(run_id, row_index, row_hash, outcome, submitted, filled, skipped, failed, fields_json, started_ms, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Index, rec.Hash, rec.Outcome, boolToInt(rec.Submitted),
		rec.Filled, rec.Skipped, rec.Failed, string(fields),
		rec.Started.UnixMilli(), rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record row %d: %w", rec.Index+1, err)
	}
	return nil
}

// FinishRun stamps a run's end time and status.
func (l *Ledger) FinishRun(ctx context.Context, id string, finished time.Time, status string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_ms = ?, status = ? WHERE id = ?`,
		finished.UnixMilli(), status, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return nil
}

// SubmittedHashes returns the content hashes of rows submitted in any run
// against formURL.
func (l *Ledger) SubmittedHashes(ctx context.Context, formURL string) (map[string]bool, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT DISTINCT r.row_hash
		FROM row_results r JOIN runs u ON u.id = r.run_id
		WHERE u.form_url = ? AND r.submitted = 1`, formURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query submitted rows: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out[h] = true
	}
	return out, rows.Err()
}

// Runs lists the most recent runs, newest first. limit <= 0 lists all.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	q := `
		SELECT u.id, u.form_url, COALESCE(u.data_file, ''), u.started_ms, COALESCE(u.finished_ms, 0), u.status,
			COUNT(r.row_index),
			COALESCE(SUM(r.submitted), 0),
			COALESCE(SUM(r.outcome = 'complete'), 0),
			COALESCE(SUM(r.outcome = 'partial'), 0),
			COALESCE(SUM(r.outcome = 'failed'), 0),
			COALESCE(SUM(r.outcome = 'skipped'), 0)
		FROM runs u LEFT JOIN row_results r ON r.run_id = u.id
		GROUP BY u.id
		ORDER BY u.started_ms DESC, u.rowid DESC`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var started, finished int64
		if err := rows.Scan(&s.ID, &s.FormURL, &s.DataFile, &started, &finished, &s.Status,
			&s.Rows, &s.Submitted, &s.Complete, &s.Partial, &s.Failed, &s.Skipped); err != nil {
			return nil, err
		}
		s.Started = time.UnixMilli(started)
		if finished > 0 {
			s.Finished = time.UnixMilli(finished)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RunRows returns the stored rows of one run in row order.
func (l *Ledger) RunRows(ctx context.Context, runID string) ([]RowRecord, error) {
	var exists int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT row_index, row_hash, outcome, submitted, filled, skipped, failed, COALESCE(fields_json, ''), started_ms, duration_ms
		FROM row_results WHERE run_id = ? ORDER BY row_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	var out []RowRecord
	for rows.Next() {
		rec := RowRecord{RunID: runID}
		var submitted int
		var fields string
		var started, duration int64
		if err := rows.Scan(&rec.Index, &rec.Hash, &rec.Outcome, &submitted, &rec.Filled, &rec.Skipped, &rec.Failed,
			&fields, &started, &duration); err != nil {
			return nil, err
		}
		rec.Submitted = submitted == 1
		rec.Started = time.UnixMilli(started)
		rec.Duration = time.Duration(duration) * time.Millisecond
		if fields != "" {
			if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
				logging.StoreWarn("Run %s row %d: unreadable field results: %v", runID, rec.Index+1, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
