// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package insights analyzes the quality trends of a batch of assessment
// results: confidence spread, status mix, discrepancy hot spots and per-source
// reliability, plus a short list of human-readable observations.
package insights

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pdiddy/provider-verify/pkg/types"
)

// ErrNoResults is returned by Analyze when there is nothing to analyze.
var ErrNoResults = errors.New("no results to analyze")

// Confidence bands used for the distribution and the message thresholds.
const (
	HighBand        = 80.0
	MediumBand      = 60.0
	LowAverageAlert = 70.0
	GoodAverage     = 85.0
)

// ConfidenceStats summarizes the confidence values of scored results.
type ConfidenceStats struct {
	Average float64 `json:"average" yaml:"average"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	StdDev  float64 `json:"std_dev" yaml:"std_dev"`
}

// Distribution buckets confidences into high (>=80), medium (60-79.99) and
// low (<60).
type Distribution struct {
	High   int `json:"high" yaml:"high"`
	Medium int `json:"medium" yaml:"medium"`
	Low    int `json:"low" yaml:"low"`
}

// StatusBreakdown counts results per disposition.
type StatusBreakdown struct {
	AutoApproved int `json:"auto_approved" yaml:"auto_approved"`
	NeedsReview  int `json:"needs_review" yaml:"needs_review"`
	Urgent       int `json:"urgent" yaml:"urgent"`
	Errors       int `json:"errors" yaml:"errors"`
}

// TypeCount is one row of the discrepancy-type histogram.
type TypeCount struct {
	Type  types.DiscrepancyType `json:"type" yaml:"type"`
	Count int                   `json:"count" yaml:"count"`
}

// Reliability describes how one source performed over the batch.
type Reliability struct {
	Checks            int     `json:"checks" yaml:"checks"`
	SuccessRate       float64 `json:"success_rate" yaml:"success_rate"`
	AverageConfidence float64 `json:"average_confidence" yaml:"average_confidence"`
}

// Report is the outcome of Analyze.
type Report struct {
	Results            int                          `json:"results" yaml:"results"`
	Confidence         ConfidenceStats              `json:"confidence" yaml:"confidence"`
	Distribution       Distribution                 `json:"distribution" yaml:"distribution"`
	Status             StatusBreakdown              `json:"status" yaml:"status"`
	TotalDiscrepancies int                          `json:"total_discrepancies" yaml:"total_discrepancies"`
	ByType             []TypeCount                  `json:"by_type" yaml:"by_type"`
	ByPriority         map[types.Priority]int       `json:"by_priority" yaml:"by_priority"`
	Sources            map[types.Source]Reliability `json:"sources" yaml:"sources"`
	Messages           []string                     `json:"messages" yaml:"messages"`
}

// Analyze computes a quality report over results. Error results count toward
// the status breakdown and source reliability but not the confidence figures.
func Analyze(results []types.AggregateResult) (Report, error) {
	if len(results) == 0 {
		return Report{}, ErrNoResults
	}

	rep := Report{
		Results:    len(results),
		ByPriority: map[types.Priority]int{},
		Sources:    map[types.Source]Reliability{},
	}

	var confidences []float64
	byType := map[types.DiscrepancyType]int{}
	type tally struct {
		checks, ok int
		sum        float64
	}
	perSource := map[types.Source]*tally{}

	for _, r := range results {
		switch r.Disposition() {
		case types.DispositionAutoAccept:
			rep.Status.AutoApproved++
		case types.DispositionNeedsReview:
			rep.Status.NeedsReview++
		case types.DispositionUrgent:
			rep.Status.Urgent++
		default:
			rep.Status.Errors++
		}
		if r.Status != types.StatusError {
			confidences = append(confidences, r.Confidence)
		}

		for _, d := range r.Discrepancies {
			rep.TotalDiscrepancies++
			byType[d.Type]++
			rep.ByPriority[d.Priority]++
		}

		for _, o := range r.Outcomes {
			t := perSource[o.Source]
			if t == nil {
				t = &tally{}
				perSource[o.Source] = t
			}
			t.checks++
			if o.Success {
				t.ok++
				t.sum += o.Confidence
			}
		}
	}

	rep.Confidence, rep.Distribution = confidenceStats(confidences)

	for typ, n := range byType {
		rep.ByType = append(rep.ByType, TypeCount{Type: typ, Count: n})
	}
	sort.Slice(rep.ByType, func(i, j int) bool {
		if rep.ByType[i].Count != rep.ByType[j].Count {
			return rep.ByType[i].Count > rep.ByType[j].Count
		}
		return rep.ByType[i].Type < rep.ByType[j].Type
	})

	for src, t := range perSource {
		rel := Reliability{Checks: t.checks}
		if t.checks > 0 {
			rel.SuccessRate = float64(t.ok) / float64(t.checks) * 100
		}
		if t.ok > 0 {
			rel.AverageConfidence = t.sum / float64(t.ok)
		}
		rep.Sources[src] = rel
	}

	rep.Messages = messages(rep, confidences)
	return rep, nil
}

func confidenceStats(values []float64) (ConfidenceStats, Distribution) {
	var s ConfidenceStats
	var d Distribution
	if len(values) == 0 {
		return s, d
	}
	s.Min, s.Max = values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		switch {
		case v >= HighBand:
			d.High++
		case v >= MediumBand:
			d.Medium++
		default:
			d.Low++
		}
	}
	n := float64(len(values))
	s.Average = sum / n
	var variance float64
	for _, v := range values {
		variance += (v - s.Average) * (v - s.Average)
	}
	s.StdDev = math.Sqrt(variance / n)
	return s, d
}

func messages(rep Report, confidences []float64) []string {
	var out []string
	if len(confidences) > 0 {
		switch {
		case rep.Confidence.Average < LowAverageAlert:
			out = append(out, "Average confidence is below 70%. Consider reviewing data sources and provider data quality.")
		case rep.Confidence.Average >= GoodAverage:
			out = append(out, "High average confidence indicates good data quality across providers.")
		}
	}
	if len(rep.ByType) > 0 {
		top := rep.ByType[0]
		out = append(out, fmt.Sprintf("Most common discrepancy: %s (%d occurrences)", TypeLabel(top.Type), top.Count))
	}
	if n := rep.ByPriority[types.PriorityHigh]; n > 0 {
		out = append(out, fmt.Sprintf("%d high-priority issues require immediate attention.", n))
	}
	if len(confidences) > 0 {
		rate := float64(rep.Distribution.High) / float64(len(confidences)) * 100
		out = append(out, fmt.Sprintf("Auto-approval rate: %.1f%% of providers can be automatically updated.", rate))
	}
	return out
}

// TypeLabel renders a discrepancy type for display, e.g. "Phone Mismatch".
func TypeLabel(t types.DiscrepancyType) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(t), "_", " "))
}
