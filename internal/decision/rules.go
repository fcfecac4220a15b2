// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package decision

import "github.com/pdiddy/provider-verify/pkg/types"

const (
	// MinDiscrepancyConfidence is the per-discrepancy confidence every
	// discrepancy must reach for a record to be auto-updated.
	MinDiscrepancyConfidence = 75.0

	// UrgentHighCount is the number of high-priority discrepancies that
	// escalates a record to urgent review.
	UrgentHighCount = 2
)

// Decision is the disposition chosen for one record.
type Decision struct {
	Status       types.Status
	AutoUpdated  bool
	NeedsReview  bool
	UrgentReview bool
}

// Thresholds are the confidence cut points used by Decide.
type Thresholds struct {
	AutoUpdate  float64
	NeedsReview float64
}

// Decide applies the thresholds and discrepancy rules to a confidence score.
// This is pure domain logic; auto-update is checked first and takes
// precedence, so at most one of the three flags is true.
func Decide(th Thresholds, confidence float64, discrepancies []types.Discrepancy) Decision {
	confidence = types.ClampConfidence(confidence)

	d := Decision{Status: status(th, confidence)}
	d.AutoUpdated = shouldAutoUpdate(th, confidence, discrepancies)
	d.UrgentReview = !d.AutoUpdated && needsUrgentReview(th, confidence, discrepancies)
	d.NeedsReview = !d.AutoUpdated && !d.UrgentReview
	return d
}

func status(th Thresholds, confidence float64) types.Status {
	switch {
	case confidence >= th.AutoUpdate:
		return types.StatusValidated
	case confidence >= th.NeedsReview:
		return types.StatusNeedsReview
	default:
		return types.StatusUrgent
	}
}

// shouldAutoUpdate requires all of:
//  1. confidence at or above the auto-update threshold
//  2. no high-priority discrepancy
//  3. every discrepancy at or above MinDiscrepancyConfidence
func shouldAutoUpdate(th Thresholds, confidence float64, discrepancies []types.Discrepancy) bool {
	if confidence < th.AutoUpdate {
		return false
	}
	for _, d := range discrepancies {
		if d.Priority == types.PriorityHigh || d.Confidence < MinDiscrepancyConfidence {
			return false
		}
	}
	return true
}

// needsUrgentReview is true when any of:
//  1. confidence below the needs-review threshold
//  2. a critical discrepancy type (license, NPI, status change)
//  3. at least UrgentHighCount high-priority discrepancies
func needsUrgentReview(th Thresholds, confidence float64, discrepancies []types.Discrepancy) bool {
	if confidence < th.NeedsReview {
		return true
	}
	high := 0
	for _, d := range discrepancies {
		if d.Type.Critical() {
			return true
		}
		if d.Priority == types.PriorityHigh {
			high++
		}
	}
	return high >= UrgentHighCount
}
