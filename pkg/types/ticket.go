// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// TicketStatus is the lifecycle state of a review ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
)

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved:
		return true
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text leaves the
// status unset.
func (s *TicketStatus) UnmarshalText(text []byte) error {
	v := TicketStatus(text)
	if v != "" && !v.Valid() {
		return fmt.Errorf("unknown ticket status %q", string(text))
	}
	*s = v
	return nil
}

// Ticket asks a human to review one assessed record.
type Ticket struct {
	ID       string       `json:"id" yaml:"id"`
	RecordID string       `json:"record_id" yaml:"record_id"`
	ResultID string       `json:"result_id" yaml:"result_id"`
	Priority Priority     `json:"priority" yaml:"priority"`
	Status   TicketStatus `json:"status" yaml:"status"`

	// Discrepancies are the result's discrepancies at ticket creation.
	Discrepancies []Discrepancy `json:"discrepancies,omitempty" yaml:"discrepancies,omitempty"`

	Notes      []string  `json:"notes,omitempty" yaml:"notes,omitempty"`
	AssignedTo string    `json:"assigned_to,omitempty" yaml:"assigned_to,omitempty"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
	ResolvedAt time.Time `json:"resolved_at,omitempty" yaml:"resolved_at,omitempty"`
}

// FieldUpdate is one field change applied by an automatic update.
type FieldUpdate struct {
	RecordID   string    `json:"record_id" yaml:"record_id"`
	ResultID   string    `json:"result_id" yaml:"result_id"`
	Field      string    `json:"field" yaml:"field"`
	OldValue   string    `json:"old_value" yaml:"old_value"`
	NewValue   string    `json:"new_value" yaml:"new_value"`
	Source     Source    `json:"source" yaml:"source"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
	AppliedAt  time.Time `json:"applied_at" yaml:"applied_at"`
}
