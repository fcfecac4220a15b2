// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// StageError records a pipeline-stage-level failure.
type StageError struct {
	Stage   string    `json:"stage" yaml:"stage"`
	Message string    `json:"message" yaml:"message"`
	Time    time.Time `json:"time" yaml:"time"`
}

// SourceStats accumulates per-source reliability over one run.
type SourceStats struct {
	Total             int     `json:"total" yaml:"total"`
	Successful        int     `json:"successful" yaml:"successful"`
	AverageConfidence float64 `json:"average_confidence" yaml:"average_confidence"`
}

// RunStats holds the running statistics of one pipeline run. It is owned by
// the run that produced it.
type RunStats struct {
	RecordsAssessed    int                    `json:"records_assessed" yaml:"records_assessed"`
	AutoApproved       int                    `json:"auto_approved" yaml:"auto_approved"`
	FlaggedForReview   int                    `json:"flagged_for_review" yaml:"flagged_for_review"`
	FlaggedUrgent      int                    `json:"flagged_urgent" yaml:"flagged_urgent"`
	Errors             int                    `json:"errors" yaml:"errors"`
	TotalDiscrepancies int                    `json:"total_discrepancies" yaml:"total_discrepancies"`
	AverageConfidence  float64                `json:"average_confidence" yaml:"average_confidence"`
	Sources            map[Source]SourceStats `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// ActionSummary counts the actions taken by the act stage. An actor returns
// one per record; the pipeline sums them.
type ActionSummary struct {
	Processed      int `json:"processed" yaml:"processed"`
	AutoUpdated    int `json:"auto_updated" yaml:"auto_updated"`
	TicketsCreated int `json:"tickets_created" yaml:"tickets_created"`
	UrgentTickets  int `json:"urgent_tickets" yaml:"urgent_tickets"`
	FieldUpdates   int `json:"field_updates" yaml:"field_updates"`
	Failed         int `json:"failed" yaml:"failed"`
}

// Add accumulates o into s.
func (s *ActionSummary) Add(o ActionSummary) {
	s.Processed += o.Processed
	s.AutoUpdated += o.AutoUpdated
	s.TicketsCreated += o.TicketsCreated
	s.UrgentTickets += o.UrgentTickets
	s.FieldUpdates += o.FieldUpdates
	s.Failed += o.Failed
}

// BatchReport aggregates the results of one pipeline run.
type BatchReport struct {
	// ID uniquely identifies the run.
	ID string `json:"id" yaml:"id"`

	// Total is the number of records submitted; Processed is how many have a result.
	Total     int `json:"total" yaml:"total"`
	Processed int `json:"processed" yaml:"processed"`

	// Validated counts results with a successful disposition (auto+review+urgent).
	Validated   int `json:"validated" yaml:"validated"`
	AutoUpdated int `json:"auto_updated" yaml:"auto_updated"`
	NeedsReview int `json:"needs_review" yaml:"needs_review"`
	Urgent      int `json:"urgent" yaml:"urgent"`
	ErrorCount  int `json:"error_count" yaml:"error_count"`

	// DiscrepancyCounts is a histogram of discrepancy types across results.
	DiscrepancyCounts map[DiscrepancyType]int `json:"discrepancy_counts" yaml:"discrepancy_counts"`

	// AverageConfidence is the mean confidence over scored (non-error) results.
	AverageConfidence float64 `json:"average_confidence" yaml:"average_confidence"`

	// Duration is the total wall-clock time of the run.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// StageTimings maps stage name to its wall-clock time.
	StageTimings map[string]time.Duration `json:"stage_timings,omitempty" yaml:"stage_timings,omitempty"`

	// Errors lists stage-level failures.
	Errors []StageError `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Cancelled reports that the run stopped early on a stop signal.
	Cancelled bool `json:"cancelled" yaml:"cancelled"`

	Stats   RunStats      `json:"stats" yaml:"stats"`
	Actions ActionSummary `json:"actions" yaml:"actions"`

	// Results holds per-record results in input order.
	Results []AggregateResult `json:"results" yaml:"results"`

	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
}

// Partial reports whether a stage failure or stop signal cut the run short.
func (r *BatchReport) Partial() bool {
	return r.Cancelled || len(r.Errors) > 0
}
