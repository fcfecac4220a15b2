// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate combines per-source outcomes into a single confidence
// score. Each successful outcome contributes its raw confidence scaled by the
// source's reliability weight and a freshness factor; each failed outcome
// subtracts a fixed penalty without counting as evidence.
package aggregate

import (
	"time"

	"github.com/pdiddy/provider-verify/pkg/types"
)

// FailurePenalty is multiplied by a failed source's weight and subtracted from
// the weighted sum.
const FailurePenalty = 10.0

// Aggregator computes weighted confidence scores. It holds no per-record
// state and is safe for concurrent use.
type Aggregator struct {
	weights       map[types.Source]float64
	defaultWeight float64
	now           func() time.Time
}

// New returns an Aggregator using the weight table from cfg.
func New(cfg types.ScoringConfig) *Aggregator {
	weights := make(map[types.Source]float64, len(cfg.Weights))
	for s, w := range cfg.Weights {
		weights[s] = w
	}
	def := cfg.DefaultWeight
	if def <= 0 {
		def = types.DefaultScoringConfig().DefaultWeight
	}
	return &Aggregator{weights: weights, defaultWeight: def, now: time.Now}
}

// WithClock returns a copy of a that reads "now" from clock. Tests use it to
// pin freshness.
func (a *Aggregator) WithClock(clock func() time.Time) *Aggregator {
	cp := *a
	cp.now = clock
	return &cp
}

// Weight returns the reliability weight of s, or the default weight when the
// source is missing from the table or its entry is negative.
func (a *Aggregator) Weight(s types.Source) float64 {
	if w, ok := a.weights[s]; ok && w >= 0 {
		return w
	}
	return a.defaultWeight
}

// Freshness maps the age of an observation to a confidence multiplier.
func Freshness(age time.Duration) float64 {
	const day = 24 * time.Hour
	switch {
	case age < day:
		return 1.05
	case age < 7*day:
		return 1.02
	case age < 30*day:
		return 1.00
	case age < 90*day:
		return 0.95
	default:
		return 0.90
	}
}

// freshness returns the multiplier for an observation time. A zero time is
// treated as observed now.
func (a *Aggregator) freshness(observed time.Time) float64 {
	if observed.IsZero() {
		return Freshness(0)
	}
	return Freshness(a.now().Sub(observed))
}

// Aggregate returns the overall confidence in [0,100]. An empty input, or an
// input without any successful outcome, scores 0.
func (a *Aggregator) Aggregate(outcomes []types.SourceOutcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}

	var weighted, total float64
	for _, o := range outcomes {
		w := a.Weight(o.Source)
		if !o.Success {
			weighted -= w * FailurePenalty
			continue
		}
		weighted += w * types.ClampConfidence(o.Confidence) * a.freshness(o.ObservedAt)
		total += w
	}

	if total == 0 {
		return 0
	}
	return types.ClampConfidence(weighted / total)
}

// SourceContribution explains one outcome's part in the aggregate.
type SourceContribution struct {
	Source             types.Source `json:"source" yaml:"source"`
	RawConfidence      float64      `json:"raw_confidence" yaml:"raw_confidence"`
	Weight             float64      `json:"weight" yaml:"weight"`
	FreshnessFactor    float64      `json:"freshness_factor" yaml:"freshness_factor"`
	Success            bool         `json:"success" yaml:"success"`
	DiscrepanciesFound int          `json:"discrepancies_found" yaml:"discrepancies_found"`
	Contribution       float64      `json:"contribution" yaml:"contribution"`
}

// Breakdown is a per-source explanation of an aggregate score.
type Breakdown struct {
	Sources    []SourceContribution `json:"sources" yaml:"sources"`
	FinalScore float64              `json:"final_score" yaml:"final_score"`
}

// Explain reports how each outcome contributed to the aggregate. Failed
// outcomes report a contribution of zero; their penalty shows in FinalScore.
func (a *Aggregator) Explain(outcomes []types.SourceOutcome) Breakdown {
	b := Breakdown{Sources: make([]SourceContribution, 0, len(outcomes))}
	for _, o := range outcomes {
		w := a.Weight(o.Source)
		f := a.freshness(o.ObservedAt)
		c := SourceContribution{
			Source:             o.Source,
			RawConfidence:      types.ClampConfidence(o.Confidence),
			Weight:             w,
			FreshnessFactor:    f,
			Success:            o.Success,
			DiscrepanciesFound: len(o.Discrepancies),
		}
		if o.Success {
			c.Contribution = w * types.ClampConfidence(o.Confidence) * f
		}
		b.Sources = append(b.Sources, c)
	}
	b.FinalScore = a.Aggregate(outcomes)
	return b
}
