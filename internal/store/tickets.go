// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/provider-verify/pkg/types"
)

// CreateTicket stores a new review ticket.
func (s *Store) CreateTicket(ctx context.Context, t types.Ticket) error {
	if t.Status == "" {
		t.Status = types.TicketOpen
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tickets (id, record_id, result_id, priority, status, discrepancies, notes,
			assigned_to, created_at, updated_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.RecordID, t.ResultID, string(t.Priority), string(t.Status),
		mustJSON(t.Discrepancies), mustJSON(t.Notes), t.AssignedTo,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt), formatTime(t.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting ticket %s: %w", t.ID, err)
	}
	return nil
}

// TicketFilter narrows Tickets. Zero fields do not filter.
type TicketFilter struct {
	Status   types.TicketStatus
	Priority types.Priority
	RecordID string
}

const ticketColumns = `id, record_id, result_id, priority, status, discrepancies, notes,
	assigned_to, created_at, updated_at, resolved_at`

// Tickets lists tickets ordered by priority (high first), then creation time.
func (s *Store) Tickets(ctx context.Context, f TicketFilter) ([]types.Ticket, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, string(f.Priority))
	}
	if f.RecordID != "" {
		where = append(where, "record_id = ?")
		args = append(args, f.RecordID)
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tickets: %w", err)
	}
	defer rows.Close()

	var out []types.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tickets: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank(); ri != rj {
			return ri < rj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Ticket returns one ticket.
func (s *Store) Ticket(ctx context.Context, id string) (types.Ticket, error) {
	return s.ticket(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) ticket(ctx context.Context, q queryRower, id string) (types.Ticket, error) {
	t, err := scanTicket(q.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return t, fmt.Errorf("ticket %s: %w", id, ErrNotFound)
	}
	return t, err
}

func scanTicket(sc scanner) (types.Ticket, error) {
	var (
		t                  types.Ticket
		priority, status   string
		discs, notes       sql.NullString
		assigned, resolved sql.NullString
		created, updated   string
	)
	err := sc.Scan(&t.ID, &t.RecordID, &t.ResultID, &priority, &status, &discs, &notes,
		&assigned, &created, &updated, &resolved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("scanning ticket: %w", err)
	}
	t.Priority = types.Priority(priority)
	t.Status = types.TicketStatus(status)
	t.AssignedTo = assigned.String
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	t.ResolvedAt = parseTime(resolved.String)
	if err := unmarshalJSON(discs, &t.Discrepancies); err != nil {
		return t, fmt.Errorf("ticket %s discrepancies: %w", t.ID, err)
	}
	if err := unmarshalJSON(notes, &t.Notes); err != nil {
		return t, fmt.Errorf("ticket %s notes: %w", t.ID, err)
	}
	return t, nil
}

// ResolveTicket closes a ticket and marks every discrepancy it carries as
// resolved by the same reviewer. Resolving a resolved ticket is an error.
func (s *Store) ResolveTicket(ctx context.Context, id, by, notes string, at time.Time) (types.Ticket, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Ticket{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	t, err := s.ticket(ctx, tx, id)
	if err != nil {
		return types.Ticket{}, err
	}
	if t.Status == types.TicketResolved {
		return types.Ticket{}, fmt.Errorf("ticket %s is already resolved", id)
	}

	t.Status = types.TicketResolved
	t.ResolvedAt = at
	t.UpdatedAt = at
	t.Notes = append(t.Notes, "Resolved: "+notes)
	for i := range t.Discrepancies {
		t.Discrepancies[i].Resolve(by, notes, at)
		_, err := tx.ExecContext(ctx,
			`UPDATE discrepancies SET resolved = 1, resolved_by = ?, resolution_notes = ?, resolved_at = ?
			 WHERE id = ?`, by, notes, formatTime(at), t.Discrepancies[i].ID)
		if err != nil {
			return types.Ticket{}, fmt.Errorf("resolving discrepancy %s: %w", t.Discrepancies[i].ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tickets SET status = ?, discrepancies = ?, notes = ?, updated_at = ?, resolved_at = ?
		 WHERE id = ?`,
		string(t.Status), mustJSON(t.Discrepancies), mustJSON(t.Notes), formatTime(at), formatTime(at), id)
	if err != nil {
		return types.Ticket{}, fmt.Errorf("updating ticket %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return types.Ticket{}, fmt.Errorf("committing: %w", err)
	}
	return t, nil
}

// AssignTicket sets a ticket's assignee and moves it to in progress.
func (s *Store) AssignTicket(ctx context.Context, id, assignee string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tickets SET assigned_to = ?, status = ?, updated_at = ? WHERE id = ? AND status != ?`,
		assignee, string(types.TicketInProgress), formatTime(at), id, string(types.TicketResolved))
	if err != nil {
		return fmt.Errorf("assigning ticket %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("open ticket %s: %w", id, ErrNotFound)
	}
	return nil
}

// TicketStats counts tickets by state.
type TicketStats struct {
	Open       int `json:"open" yaml:"open"`
	UrgentOpen int `json:"urgent_open" yaml:"urgent_open"`
	Resolved   int `json:"resolved" yaml:"resolved"`
}

// TicketStats returns ticket counts for the dashboard view.
func (s *Store) TicketStats(ctx context.Context) (TicketStats, error) {
	var st TicketStats
	err := s.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN status != ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status != ? AND priority = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		 FROM tickets`,
		string(types.TicketResolved), string(types.TicketResolved), string(types.PriorityHigh),
		string(types.TicketResolved),
	).Scan(&st.Open, &st.UrgentOpen, &st.Resolved)
	if err != nil {
		return st, fmt.Errorf("counting tickets: %w", err)
	}
	return st, nil
}

// ApplyUpdates records field updates made by automatic approval.
func (s *Store) ApplyUpdates(ctx context.Context, updates []types.FieldUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO field_updates (record_id, result_id, field, old_value, new_value, source, confidence, applied_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		_, err := stmt.ExecContext(ctx, u.RecordID, u.ResultID, u.Field, u.OldValue, u.NewValue,
			string(u.Source), u.Confidence, formatTime(u.AppliedAt))
		if err != nil {
			return fmt.Errorf("inserting update for %s.%s: %w", u.RecordID, u.Field, err)
		}
	}
	return tx.Commit()
}

// FieldUpdates returns the update history of a record, oldest first.
func (s *Store) FieldUpdates(ctx context.Context, recordID string) ([]types.FieldUpdate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, result_id, field, old_value, new_value, source, confidence, applied_at
		 FROM field_updates WHERE record_id = ? ORDER BY rowid`, recordID)
	if err != nil {
		return nil, fmt.Errorf("querying field updates: %w", err)
	}
	defer rows.Close()

	var out []types.FieldUpdate
	for rows.Next() {
		var (
			u                            types.FieldUpdate
			resultID, oldV, newV, source sql.NullString
			applied                      string
		)
		if err := rows.Scan(&u.RecordID, &resultID, &u.Field, &oldV, &newV, &source, &u.Confidence, &applied); err != nil {
			return nil, fmt.Errorf("scanning field update: %w", err)
		}
		u.ResultID = resultID.String
		u.OldValue = oldV.String
		u.NewValue = newV.String
		u.Source = types.Source(source.String)
		u.AppliedAt = parseTime(applied)
		out = append(out, u)
	}
	return out, rows.Err()
}
