// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/provider-verify/pkg/types"
)

var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func testAggregator(weights map[types.Source]float64) *Aggregator {
	cfg := types.DefaultScoringConfig()
	if weights != nil {
		cfg.Weights = weights
	}
	return New(cfg).WithClock(func() time.Time { return testNow })
}

func success(s types.Source, conf float64, age time.Duration) types.SourceOutcome {
	return types.SourceOutcome{Source: s, Success: true, Confidence: conf, ObservedAt: testNow.Add(-age)}
}

func failure(s types.Source) types.SourceOutcome {
	return types.SourceOutcome{Source: s, Success: false, ObservedAt: testNow}
}

func TestFreshness(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		age  time.Duration
		want float64
	}{
		{0, 1.05},
		{23 * time.Hour, 1.05},
		{day, 1.02},
		{6 * day, 1.02},
		{7 * day, 1.00},
		{29 * day, 1.00},
		{30 * day, 0.95},
		{89 * day, 0.95},
		{90 * day, 0.90},
		{400 * day, 0.90},
	}
	for _, tt := range tests {
		t.Run(tt.age.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Freshness(tt.age))
		})
	}
}

func TestAggregateEmpty(t *testing.T) {
	a := testAggregator(nil)
	assert.Equal(t, 0.0, a.Aggregate(nil))
	assert.Equal(t, 0.0, a.Aggregate([]types.SourceOutcome{}))
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		weights  map[types.Source]float64
		outcomes []types.SourceOutcome
		want     float64
	}{
		{
			name:     "single fresh outcome gets freshness bonus",
			weights:  map[types.Source]float64{types.SourceNPIRegistry: 1.0},
			outcomes: []types.SourceOutcome{success(types.SourceNPIRegistry, 90, 0)},
			want:     94.5,
		},
		{
			name: "weighted mean normalizes by contributing weights",
			outcomes: []types.SourceOutcome{
				success(types.SourceNPIRegistry, 90, time.Hour),
				success(types.SourceGooglePlaces, 40, time.Hour),
			},
			want: (0.35*90*1.05 + 0.25*40*1.05) / 0.6,
		},
		{
			name:     "single failed outcome scores zero",
			outcomes: []types.SourceOutcome{failure(types.SourceNPIRegistry)},
			want:     0,
		},
		{
			name: "failure penalizes numerator only",
			outcomes: []types.SourceOutcome{
				success(types.SourceNPIRegistry, 90, 0),
				failure(types.SourceGooglePlaces),
			},
			want: (0.35*90*1.05 - 0.25*10) / 0.35,
		},
		{
			name:     "score clamps at 100",
			outcomes: []types.SourceOutcome{success(types.SourceNPIRegistry, 100, 0)},
			want:     100,
		},
		{
			name:     "out of range raw confidence is clamped first",
			outcomes: []types.SourceOutcome{success(types.SourceGooglePlaces, 150, 10 * 24 * time.Hour)},
			want:     100,
		},
		{
			name: "penalties never push below zero",
			outcomes: []types.SourceOutcome{
				success(types.SourcePDFDocument, 5, 200*24*time.Hour),
				failure(types.SourceNPIRegistry),
				failure(types.SourceGooglePlaces),
			},
			want: 0,
		},
		{
			name:     "unknown source falls back to default weight",
			weights:  map[types.Source]float64{},
			outcomes: []types.SourceOutcome{success(types.Source("fax_directory"), 80, 0)},
			want:     84,
		},
		{
			name:     "old data is discounted",
			outcomes: []types.SourceOutcome{success(types.SourceStateLicense, 80, 120*24*time.Hour)},
			want:     72,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testAggregator(tt.weights)
			assert.InDelta(t, tt.want, a.Aggregate(tt.outcomes), 1e-9)
		})
	}
}

func TestAggregateZeroObservedAtIsFresh(t *testing.T) {
	a := testAggregator(map[types.Source]float64{types.SourceNPIRegistry: 1})
	got := a.Aggregate([]types.SourceOutcome{{Source: types.SourceNPIRegistry, Success: true, Confidence: 50}})
	assert.InDelta(t, 52.5, got, 1e-9)
}

func TestAggregateEqualWeightsIsFreshnessAdjustedMean(t *testing.T) {
	weights := map[types.Source]float64{}
	for _, s := range types.AllSources {
		weights[s] = 0.2
	}
	a := testAggregator(weights)

	day := 24 * time.Hour
	outcomes := []types.SourceOutcome{
		success(types.SourceNPIRegistry, 70, time.Hour),
		success(types.SourceGooglePlaces, 60, 3*day),
		success(types.SourcePracticeWebsite, 50, 10*day),
		success(types.SourceStateLicense, 40, 45*day),
		success(types.SourcePDFDocument, 30, 365*day),
	}
	want := (70*1.05 + 60*1.02 + 50*1.00 + 40*0.95 + 30*0.90) / 5
	assert.InDelta(t, want, a.Aggregate(outcomes), 1e-9)
}

func TestAggregateMonotonicity(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	a := testAggregator(nil)

	for i := 0; i < 500; i++ {
		n := 1 + r.IntN(4)
		outcomes := make([]types.SourceOutcome, 0, n+1)
		for j := 0; j < n; j++ {
			s := types.AllSources[r.IntN(len(types.AllSources))]
			if r.IntN(4) == 0 {
				outcomes = append(outcomes, failure(s))
				continue
			}
			outcomes = append(outcomes, success(s, r.Float64()*100, time.Duration(r.IntN(200*24))*time.Hour))
		}

		before := a.Aggregate(outcomes)
		// A fresh outcome whose raw confidence is at least the current score
		// has an effective confidence at least as large.
		added := success(types.AllSources[r.IntN(len(types.AllSources))], before+r.Float64()*(100-before), 0)
		after := a.Aggregate(append(outcomes, added))

		require.GreaterOrEqual(t, after, before-1e-9, "case %d: %v + %v", i, outcomes, added)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	a := testAggregator(nil)
	outcomes := []types.SourceOutcome{
		success(types.SourceNPIRegistry, 88, 2*time.Hour),
		failure(types.SourcePracticeWebsite),
		success(types.SourceGooglePlaces, 71, 40*24*time.Hour),
	}
	first := a.Aggregate(outcomes)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, a.Aggregate(outcomes))
	}
}

func TestWeight(t *testing.T) {
	a := testAggregator(map[types.Source]float64{types.SourceNPIRegistry: 0.5, types.SourcePDFDocument: -1})
	assert.Equal(t, 0.5, a.Weight(types.SourceNPIRegistry))
	assert.Equal(t, 0.1, a.Weight(types.SourceGooglePlaces))
	assert.Equal(t, 0.1, a.Weight(types.SourcePDFDocument))
}

func TestExplain(t *testing.T) {
	a := testAggregator(nil)
	outcomes := []types.SourceOutcome{
		success(types.SourceNPIRegistry, 90, 0),
		failure(types.SourceGooglePlaces),
	}
	outcomes[0].Discrepancies = []types.Discrepancy{{Field: "phone", Type: types.DiscrepancyPhoneMismatch}}

	b := a.Explain(outcomes)
	require.Len(t, b.Sources, 2)

	assert.Equal(t, types.SourceNPIRegistry, b.Sources[0].Source)
	assert.Equal(t, 0.35, b.Sources[0].Weight)
	assert.Equal(t, 1.05, b.Sources[0].FreshnessFactor)
	assert.Equal(t, 1, b.Sources[0].DiscrepanciesFound)
	assert.InDelta(t, 0.35*90*1.05, b.Sources[0].Contribution, 1e-9)

	assert.False(t, b.Sources[1].Success)
	assert.Equal(t, 0.0, b.Sources[1].Contribution)
	assert.Equal(t, a.Aggregate(outcomes), b.FinalScore)
}

func TestExplainClampsRawConfidence(t *testing.T) {
	a := testAggregator(nil)
	outcomes := []types.SourceOutcome{success(types.SourceNPIRegistry, 140, 0)}

	b := a.Explain(outcomes)
	require.Len(t, b.Sources, 1)
	assert.Equal(t, 100.0, b.Sources[0].RawConfidence)
	assert.InDelta(t, 0.35*100*1.05, b.Sources[0].Contribution, 1e-9)
	assert.Equal(t, a.Aggregate(outcomes), b.FinalScore)
}
