// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"math"
	"time"
)

// SourceOutcome is the result of querying one source for one record.
type SourceOutcome struct {
	// Source identifies the source that was queried.
	Source Source `json:"source" yaml:"source"`

	// Success reports whether the source returned usable data for the record.
	Success bool `json:"success" yaml:"success"`

	// Confidence is the source's raw confidence in [0,100]. For failed outcomes
	// it is advisory only (nonzero may signal "reachable but record absent").
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Discrepancies lists mismatches found by the source. Empty when Success is false.
	Discrepancies []Discrepancy `json:"discrepancies,omitempty" yaml:"discrepancies,omitempty"`

	// Data holds source-asserted field values, used for agreement analysis.
	Data map[string]string `json:"data,omitempty" yaml:"data,omitempty"`

	// Error describes why the query failed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// ObservedAt is when the source's data was observed.
	ObservedAt time.Time `json:"observed_at" yaml:"observed_at"`
}

// FailedOutcome builds the synthetic outcome substituted for a source that
// errored, timed out, or panicked.
func FailedOutcome(source Source, msg string, at time.Time) SourceOutcome {
	return SourceOutcome{
		Source:     source,
		Success:    false,
		Confidence: 0,
		Error:      msg,
		ObservedAt: at,
	}
}

// Normalize enforces the outcome invariants: confidences are clamped to
// [0,100], discrepancies of a failed outcome are dropped, and discrepancies
// inherit recordID, the outcome's source and its observation time when unset.
func (o SourceOutcome) Normalize(recordID string) SourceOutcome {
	o.Confidence = ClampConfidence(o.Confidence)
	if !o.Success {
		o.Discrepancies = nil
		return o
	}
	if len(o.Discrepancies) == 0 {
		return o
	}
	ds := make([]Discrepancy, len(o.Discrepancies))
	for i, d := range o.Discrepancies {
		d.Confidence = ClampConfidence(d.Confidence)
		if d.RecordID == "" {
			d.RecordID = recordID
		}
		if d.Source == "" {
			d.Source = o.Source
		}
		if d.DetectedAt.IsZero() {
			d.DetectedAt = o.ObservedAt
		}
		ds[i] = d
	}
	o.Discrepancies = ds
	return o
}

// ClampConfidence bounds v to [0,100]. NaN maps to 0.
func ClampConfidence(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
