// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/provider-verify/pkg/types"
)

// ResultFilter narrows ListResults. Zero fields do not filter.
type ResultFilter struct {
	RunID    string
	RecordID string
	Status   types.Status
	Limit    int
}

const resultColumns = `id, record_id, status, confidence, auto_updated, needs_review, urgent_review,
	processing_ns, summary, error, outcomes, validated_at`

// ListResults returns stored results with their discrepancies. Results of a
// single run come back in input order; otherwise newest first.
func (s *Store) ListResults(ctx context.Context, f ResultFilter) ([]types.AggregateResult, error) {
	var (
		where []string
		args  []any
	)
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.RecordID != "" {
		where = append(where, "record_id = ?")
		args = append(args, f.RecordID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + resultColumns + ` FROM results`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if f.RunID != "" {
		b.WriteString(" ORDER BY position")
	} else {
		b.WriteString(" ORDER BY validated_at DESC, position")
	}
	if f.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var out []types.AggregateResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}

	for i := range out {
		ds, err := s.discrepancies(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Discrepancies = ds
		out[i].TotalDiscrepancies = len(ds)
	}
	return out, nil
}

// LatestResult returns the most recent result for a record.
func (s *Store) LatestResult(ctx context.Context, recordID string) (types.AggregateResult, error) {
	results, err := s.ListResults(ctx, ResultFilter{RecordID: recordID, Limit: 1})
	if err != nil {
		return types.AggregateResult{}, err
	}
	if len(results) == 0 {
		return types.AggregateResult{}, fmt.Errorf("result for record %s: %w", recordID, ErrNotFound)
	}
	return results[0], nil
}

func scanResult(sc scanner) (types.AggregateResult, error) {
	var (
		r               types.AggregateResult
		status          string
		processing      int64
		summary, errMsg sql.NullString
		outcomes        sql.NullString
		validated       string
	)
	err := sc.Scan(&r.ID, &r.RecordID, &status, &r.Confidence, &r.AutoUpdated, &r.NeedsReview,
		&r.UrgentReview, &processing, &summary, &errMsg, &outcomes, &validated)
	if err != nil {
		return r, fmt.Errorf("scanning result: %w", err)
	}
	r.Status = types.Status(status)
	r.ProcessingTime = time.Duration(processing)
	r.Summary = summary.String
	r.Error = errMsg.String
	r.ValidatedAt = parseTime(validated)
	if err := unmarshalJSON(outcomes, &r.Outcomes); err != nil {
		return r, fmt.Errorf("result %s outcomes: %w", r.ID, err)
	}
	return r, nil
}

const discrepancyColumns = `id, record_id, type, field, current_value, validated_value, source,
	priority, confidence, detected_at, resolved, resolved_by, resolution_notes, resolved_at`

func (s *Store) discrepancies(ctx context.Context, resultID string) ([]types.Discrepancy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+discrepancyColumns+` FROM discrepancies WHERE result_id = ? ORDER BY position`, resultID)
	if err != nil {
		return nil, fmt.Errorf("querying discrepancies: %w", err)
	}
	defer rows.Close()

	var out []types.Discrepancy
	for rows.Next() {
		d, err := scanDiscrepancy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Discrepancy returns one stored discrepancy.
func (s *Store) Discrepancy(ctx context.Context, id string) (types.Discrepancy, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+discrepancyColumns+` FROM discrepancies WHERE id = ?`, id)
	d, err := scanDiscrepancy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return d, fmt.Errorf("discrepancy %s: %w", id, ErrNotFound)
	}
	return d, err
}

func scanDiscrepancy(sc scanner) (types.Discrepancy, error) {
	var (
		d                                       types.Discrepancy
		typ, source, priority                   string
		field, current, validated               sql.NullString
		detected, resolvedBy, notes, resolvedAt sql.NullString
	)
	err := sc.Scan(&d.ID, &d.RecordID, &typ, &field, &current, &validated, &source, &priority,
		&d.Confidence, &detected, &d.Resolution.Resolved, &resolvedBy, &notes, &resolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("scanning discrepancy: %w", err)
	}
	d.Type = types.DiscrepancyType(typ)
	d.Source = types.Source(source)
	d.Priority = types.Priority(priority)
	d.Field = field.String
	d.CurrentValue = current.String
	d.ValidatedValue = validated.String
	d.DetectedAt = parseTime(detected.String)
	d.Resolution.ResolvedBy = resolvedBy.String
	d.Resolution.Notes = notes.String
	d.Resolution.ResolvedAt = parseTime(resolvedAt.String)
	return d, nil
}

// ResolveDiscrepancy marks one discrepancy resolved.
func (s *Store) ResolveDiscrepancy(ctx context.Context, id, by, notes string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE discrepancies SET resolved = 1, resolved_by = ?, resolution_notes = ?, resolved_at = ?
		 WHERE id = ?`, by, notes, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("resolving discrepancy %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("discrepancy %s: %w", id, ErrNotFound)
	}
	return nil
}
