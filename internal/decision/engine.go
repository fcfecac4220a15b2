// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package decision turns aggregated confidence and resolved discrepancies into
// a disposition and assembles the per-record AggregateResult.
package decision

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/provider-verify/internal/aggregate"
	"github.com/pdiddy/provider-verify/internal/resolve"
	"github.com/pdiddy/provider-verify/pkg/types"
)

// summaryIssues is how many discrepancies a summary lists before eliding.
const summaryIssues = 3

// Engine scores records. It is stateless apart from its configuration and is
// safe for concurrent use.
type Engine struct {
	thresholds Thresholds
	agg        *aggregate.Aggregator
	now        func() time.Time
}

// New returns an Engine configured with cfg's thresholds and weights.
func New(cfg types.ScoringConfig) *Engine {
	return &Engine{
		thresholds: Thresholds{AutoUpdate: cfg.AutoUpdateThreshold, NeedsReview: cfg.NeedsReviewThreshold},
		agg:        aggregate.New(cfg),
		now:        time.Now,
	}
}

// WithClock returns a copy of e whose aggregator and timestamps use clock.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	cp := *e
	cp.agg = e.agg.WithClock(clock)
	cp.now = clock
	return &cp
}

// Aggregator exposes the engine's aggregator for explanations.
func (e *Engine) Aggregator() *aggregate.Aggregator { return e.agg }

// Thresholds returns the configured cut points.
func (e *Engine) Thresholds() Thresholds { return e.thresholds }

// Decide applies the engine's thresholds to a score.
func (e *Engine) Decide(confidence float64, discrepancies []types.Discrepancy) Decision {
	return Decide(e.thresholds, confidence, discrepancies)
}

// Assess scores one record from its source outcomes and assembles the result.
func (e *Engine) Assess(rec types.Record, outcomes []types.SourceOutcome) types.AggregateResult {
	start := time.Now()

	normalized := make([]types.SourceOutcome, len(outcomes))
	var all []types.Discrepancy
	for i, o := range outcomes {
		o = o.Normalize(rec.ID)
		// Each assessment owns its discrepancies, whatever IDs the source sent.
		for j := range o.Discrepancies {
			o.Discrepancies[j].ID = uuid.NewString()
		}
		normalized[i] = o
		all = append(all, o.Discrepancies...)
	}

	confidence := e.agg.Aggregate(normalized)
	resolved := resolve.Resolve(all)
	d := e.Decide(confidence, resolved)

	return types.AggregateResult{
		ID:                 uuid.NewString(),
		RecordID:           rec.ID,
		Status:             d.Status,
		Confidence:         confidence,
		Outcomes:           normalized,
		Discrepancies:      resolved,
		TotalDiscrepancies: len(resolved),
		AutoUpdated:        d.AutoUpdated,
		NeedsReview:        d.NeedsReview,
		UrgentReview:       d.UrgentReview,
		ProcessingTime:     time.Since(start),
		Summary:            Summarize(rec, confidence, d, resolved),
		ValidatedAt:        e.now(),
	}
}

// Failed builds the ERROR-status result for a record whose processing failed.
// No disposition flag is set.
func (e *Engine) Failed(rec types.Record, outcomes []types.SourceOutcome, err error) types.AggregateResult {
	msg := "unknown failure"
	if err != nil {
		msg = err.Error()
	}
	return types.AggregateResult{
		ID:          uuid.NewString(),
		RecordID:    rec.ID,
		Status:      types.StatusError,
		Outcomes:    outcomes,
		Summary:     fmt.Sprintf("Provider: %s\nDecision: processing failed: %s", rec.DisplayName(), msg),
		Error:       msg,
		ValidatedAt: e.now(),
	}
}

// Summarize renders the human-readable assessment summary.
func Summarize(rec types.Record, confidence float64, d Decision, discrepancies []types.Discrepancy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provider: %s\n", rec.DisplayName())
	fmt.Fprintf(&b, "Confidence: %.1f%%\n", confidence)

	switch {
	case d.AutoUpdated:
		b.WriteString("Decision: AUTO-APPROVED for update")
	case d.UrgentReview:
		b.WriteString("Decision: URGENT REVIEW REQUIRED")
	default:
		b.WriteString("Decision: needs manual review")
	}

	if len(discrepancies) == 0 {
		b.WriteString("\nNo discrepancies detected")
		return b.String()
	}

	b.WriteString("\nIssues found:")
	for i, disc := range discrepancies {
		if i == summaryIssues {
			fmt.Fprintf(&b, "\n... and %d more issues", len(discrepancies)-summaryIssues)
			break
		}
		fmt.Fprintf(&b, "\n- %s: %s (%q -> %q)", disc.Type, disc.Field, disc.CurrentValue, disc.ValidatedValue)
	}
	return b.String()
}
