// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Status is the disposition status of an assessed record.
type Status string

const (
	StatusPending     Status = "pending"
	StatusValidated   Status = "validated"
	StatusNeedsReview Status = "needs_review"
	StatusUrgent      Status = "urgent"
	StatusError       Status = "error"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusValidated, StatusNeedsReview, StatusUrgent, StatusError:
		return true
	}
	return false
}

// Disposition is the routing decision derived from a result's flags.
type Disposition string

const (
	DispositionAutoAccept  Disposition = "auto_accept"
	DispositionNeedsReview Disposition = "needs_review"
	DispositionUrgent      Disposition = "urgent"
	DispositionError       Disposition = "error"
)

// AggregateResult is the decision engine's output for one record. It is
// immutable after construction except for discrepancy resolution state.
type AggregateResult struct {
	// ID uniquely identifies this assessment.
	ID string `json:"id" yaml:"id"`

	// RecordID is the assessed record.
	RecordID string `json:"record_id" yaml:"record_id"`

	// Status is the threshold-derived status (or error).
	Status Status `json:"status" yaml:"status"`

	// Confidence is the aggregated confidence in [0,100].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Outcomes lists the source outcomes consumed.
	Outcomes []SourceOutcome `json:"outcomes" yaml:"outcomes"`

	// Discrepancies is the deduplicated, prioritized discrepancy list.
	Discrepancies []Discrepancy `json:"discrepancies" yaml:"discrepancies"`

	// TotalDiscrepancies is len(Discrepancies).
	TotalDiscrepancies int `json:"total_discrepancies" yaml:"total_discrepancies"`

	// AutoUpdated, NeedsReview and UrgentReview are mutually exclusive; exactly
	// one is true for a successfully scored record and none for an error.
	AutoUpdated  bool `json:"auto_updated" yaml:"auto_updated"`
	NeedsReview  bool `json:"needs_review" yaml:"needs_review"`
	UrgentReview bool `json:"urgent_review" yaml:"urgent_review"`

	// ProcessingTime is how long scoring took.
	ProcessingTime time.Duration `json:"processing_time" yaml:"processing_time"`

	// Summary is a human-readable description of the decision.
	Summary string `json:"summary" yaml:"summary"`

	// Error describes the record-level failure when Status is StatusError.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// ValidatedAt is when the assessment completed.
	ValidatedAt time.Time `json:"validated_at" yaml:"validated_at"`
}

// Disposition reports the routing decision. AutoUpdated is checked first.
func (r AggregateResult) Disposition() Disposition {
	switch {
	case r.Status == StatusError:
		return DispositionError
	case r.AutoUpdated:
		return DispositionAutoAccept
	case r.UrgentReview:
		return DispositionUrgent
	case r.NeedsReview:
		return DispositionNeedsReview
	}
	return DispositionError
}
