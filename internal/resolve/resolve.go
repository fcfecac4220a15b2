// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve deduplicates and prioritizes the discrepancies surfaced by
// all sources for one record.
package resolve

import (
	"sort"

	"github.com/pdiddy/provider-verify/pkg/types"
)

// Resolve merges discrepancies that share a (field, type) key, keeping the
// highest-confidence one (the first seen on ties), and orders the survivors by
// priority (high first) then confidence (highest first). The sort is stable,
// so equal (priority, confidence) pairs keep their first-seen order.
// The input slice is not modified.
func Resolve(discrepancies []types.Discrepancy) []types.Discrepancy {
	deduped := deduplicate(discrepancies)
	sort.SliceStable(deduped, func(i, j int) bool {
		ri, rj := deduped[i].Priority.Rank(), deduped[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return deduped[i].Confidence > deduped[j].Confidence
	})
	return deduped
}

// deduplicate keeps the winning discrepancy per key in first-seen key order.
func deduplicate(discrepancies []types.Discrepancy) []types.Discrepancy {
	seen := make(map[string]int, len(discrepancies)) // key → index in deduped
	deduped := make([]types.Discrepancy, 0, len(discrepancies))

	for _, d := range discrepancies {
		key := d.Key()
		if idx, ok := seen[key]; ok {
			if d.Confidence > deduped[idx].Confidence {
				deduped[idx] = d
			}
			continue
		}
		seen[key] = len(deduped)
		deduped = append(deduped, d)
	}
	return deduped
}

// Impact points charged per discrepancy priority.
var impactPoints = map[types.Priority]int{
	types.PriorityHigh:   20,
	types.PriorityMedium: 10,
	types.PriorityLow:    5,
}

// TypeImpact aggregates impact for one discrepancy type.
type TypeImpact struct {
	Count       int `json:"count" yaml:"count"`
	TotalImpact int `json:"total_impact" yaml:"total_impact"`
}

// ImpactReport summarizes how heavily a set of discrepancies weighs on a record.
type ImpactReport struct {
	TotalImpact int                                  `json:"total_impact" yaml:"total_impact"`
	High        int                                  `json:"high_priority_count" yaml:"high_priority_count"`
	Medium      int                                  `json:"medium_priority_count" yaml:"medium_priority_count"`
	Low         int                                  `json:"low_priority_count" yaml:"low_priority_count"`
	ByType      map[types.DiscrepancyType]TypeImpact `json:"impact_breakdown" yaml:"impact_breakdown"`
}

// Impact scores discrepancies by priority: 20 points for high, 10 for
// medium, 5 for low.
func Impact(discrepancies []types.Discrepancy) ImpactReport {
	r := ImpactReport{ByType: map[types.DiscrepancyType]TypeImpact{}}
	for _, d := range discrepancies {
		points := impactPoints[d.Priority]
		r.TotalImpact += points

		switch d.Priority {
		case types.PriorityHigh:
			r.High++
		case types.PriorityMedium:
			r.Medium++
		case types.PriorityLow:
			r.Low++
		}

		ti := r.ByType[d.Type]
		ti.Count++
		ti.TotalImpact += points
		r.ByType[d.Type] = ti
	}
	return r
}
