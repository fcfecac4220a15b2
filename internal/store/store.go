// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists assessment runs, per-record results, discrepancies,
// review tickets and applied field updates in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/provider-verify/pkg/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DefaultPath is the database file used when none is configured.
const DefaultPath = "data/results.db"

// Store manages the results SQLite database. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path, creating its directory and
// schema if needed.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			total INTEGER NOT NULL,
			processed INTEGER NOT NULL,
			auto_updated INTEGER NOT NULL,
			needs_review INTEGER NOT NULL,
			urgent INTEGER NOT NULL,
			error_count INTEGER NOT NULL,
			average_confidence REAL NOT NULL,
			cancelled INTEGER NOT NULL,
			stage_errors TEXT,
			stats TEXT,
			actions TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES runs(id),
			position INTEGER NOT NULL,
			record_id TEXT NOT NULL,
			status TEXT NOT NULL,
			confidence REAL NOT NULL,
			auto_updated INTEGER NOT NULL,
			needs_review INTEGER NOT NULL,
			urgent_review INTEGER NOT NULL,
			processing_ns INTEGER NOT NULL,
			summary TEXT,
			error TEXT,
			outcomes TEXT,
			validated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_record_id ON results(record_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id)`,
		`CREATE TABLE IF NOT EXISTS discrepancies (
			id TEXT PRIMARY KEY,
			result_id TEXT NOT NULL REFERENCES results(id),
			position INTEGER NOT NULL,
			record_id TEXT NOT NULL,
			type TEXT NOT NULL,
			field TEXT,
			current_value TEXT,
			validated_value TEXT,
			source TEXT,
			priority TEXT,
			confidence REAL NOT NULL,
			detected_at TEXT,
			resolved INTEGER NOT NULL DEFAULT 0,
			resolved_by TEXT,
			resolution_notes TEXT,
			resolved_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_discrepancies_result_id ON discrepancies(result_id)`,
		`CREATE TABLE IF NOT EXISTS tickets (
			id TEXT PRIMARY KEY,
			record_id TEXT NOT NULL,
			result_id TEXT NOT NULL,
			priority TEXT NOT NULL,
			status TEXT NOT NULL,
			discrepancies TEXT,
			notes TEXT,
			assigned_to TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			resolved_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status)`,
		`CREATE TABLE IF NOT EXISTS field_updates (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id TEXT NOT NULL,
			result_id TEXT,
			field TEXT NOT NULL,
			old_value TEXT,
			new_value TEXT,
			source TEXT,
			confidence REAL,
			applied_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_field_updates_record_id ON field_updates(record_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun writes a run report with its results and discrepancies in one
// transaction. Saving the same run again replaces it.
func (s *Store) SaveRun(ctx context.Context, rep *types.BatchReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM discrepancies WHERE result_id IN (SELECT id FROM results WHERE run_id = ?)`,
		`DELETE FROM results WHERE run_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, rep.ID); err != nil {
			return fmt.Errorf("clearing previous run: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, completed_at, total, processed, auto_updated, needs_review,
			urgent, error_count, average_confidence, cancelled, stage_errors, stats, actions)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			started_at=excluded.started_at, completed_at=excluded.completed_at,
			total=excluded.total, processed=excluded.processed,
			auto_updated=excluded.auto_updated, needs_review=excluded.needs_review,
			urgent=excluded.urgent, error_count=excluded.error_count,
			average_confidence=excluded.average_confidence, cancelled=excluded.cancelled,
			stage_errors=excluded.stage_errors, stats=excluded.stats, actions=excluded.actions`,
		rep.ID, formatTime(rep.StartedAt), formatTime(rep.CompletedAt),
		rep.Total, rep.Processed, rep.AutoUpdated, rep.NeedsReview, rep.Urgent, rep.ErrorCount,
		rep.AverageConfidence, rep.Cancelled,
		mustJSON(rep.Errors), mustJSON(rep.Stats), mustJSON(rep.Actions),
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	resStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (id, run_id, position, record_id, status, confidence, auto_updated,
			needs_review, urgent_review, processing_ns, summary, error, outcomes, validated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing result insert: %w", err)
	}
	defer resStmt.Close()

	discStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO discrepancies (id, result_id, position, record_id, type, field,
			current_value, validated_value, source, priority, confidence, detected_at,
			resolved, resolved_by, resolution_notes, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing discrepancy insert: %w", err)
	}
	defer discStmt.Close()

	for i, res := range rep.Results {
		_, err := resStmt.ExecContext(ctx,
			res.ID, rep.ID, i, res.RecordID, string(res.Status), res.Confidence,
			res.AutoUpdated, res.NeedsReview, res.UrgentReview, int64(res.ProcessingTime),
			res.Summary, res.Error, mustJSON(res.Outcomes), formatTime(res.ValidatedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting result %s: %w", res.ID, err)
		}
		for j, d := range res.Discrepancies {
			_, err := discStmt.ExecContext(ctx,
				d.ID, res.ID, j, res.RecordID, string(d.Type), d.Field,
				d.CurrentValue, d.ValidatedValue, string(d.Source), string(d.Priority), d.Confidence,
				formatTime(d.DetectedAt), d.Resolution.Resolved, d.Resolution.ResolvedBy,
				d.Resolution.Notes, formatTime(d.Resolution.ResolvedAt),
			)
			if err != nil {
				return fmt.Errorf("inserting discrepancy %s: %w", d.ID, err)
			}
		}
	}

	return tx.Commit()
}

// RunSummary is the stored headline of one run.
type RunSummary struct {
	ID                string              `json:"id" yaml:"id"`
	StartedAt         time.Time           `json:"started_at" yaml:"started_at"`
	CompletedAt       time.Time           `json:"completed_at" yaml:"completed_at"`
	Total             int                 `json:"total" yaml:"total"`
	Processed         int                 `json:"processed" yaml:"processed"`
	AutoUpdated       int                 `json:"auto_updated" yaml:"auto_updated"`
	NeedsReview       int                 `json:"needs_review" yaml:"needs_review"`
	Urgent            int                 `json:"urgent" yaml:"urgent"`
	ErrorCount        int                 `json:"error_count" yaml:"error_count"`
	AverageConfidence float64             `json:"average_confidence" yaml:"average_confidence"`
	Cancelled         bool                `json:"cancelled" yaml:"cancelled"`
	Errors            []types.StageError  `json:"errors,omitempty" yaml:"errors,omitempty"`
	Stats             types.RunStats      `json:"stats" yaml:"stats"`
	Actions           types.ActionSummary `json:"actions" yaml:"actions"`
}

const runColumns = `id, started_at, completed_at, total, processed, auto_updated, needs_review,
	urgent, error_count, average_confidence, cancelled, stage_errors, stats, actions`

// Runs lists stored runs, newest first. limit <= 0 means all.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run returns one stored run.
func (s *Store) Run(ctx context.Context, id string) (RunSummary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunSummary{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (RunSummary, error) {
	var (
		r                        RunSummary
		started, completed       string
		stageErrs, stats, action sql.NullString
	)
	err := sc.Scan(&r.ID, &started, &completed, &r.Total, &r.Processed, &r.AutoUpdated, &r.NeedsReview,
		&r.Urgent, &r.ErrorCount, &r.AverageConfidence, &r.Cancelled, &stageErrs, &stats, &action)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scanning run: %w", err)
	}
	r.StartedAt = parseTime(started)
	r.CompletedAt = parseTime(completed)
	if err := unmarshalJSON(stageErrs, &r.Errors); err != nil {
		return r, err
	}
	if err := unmarshalJSON(stats, &r.Stats); err != nil {
		return r, err
	}
	if err := unmarshalJSON(action, &r.Actions); err != nil {
		return r, err
	}
	return r, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalJSON(s sql.NullString, v any) error {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(s.String), v); err != nil {
		return fmt.Errorf("decoding stored JSON: %w", err)
	}
	return nil
}
