// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package decision

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/provider-verify/pkg/types"
)

var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

var defaultThresholds = Thresholds{AutoUpdate: 80, NeedsReview: 60}

func testEngine(weights map[types.Source]float64) *Engine {
	cfg := types.DefaultScoringConfig()
	if weights != nil {
		cfg.Weights = weights
	}
	return New(cfg).WithClock(func() time.Time { return testNow })
}

func d(typ types.DiscrepancyType, p types.Priority, conf float64) types.Discrepancy {
	return types.Discrepancy{Field: string(typ), Type: typ, Priority: p, Confidence: conf}
}

func flags(dec Decision) int {
	n := 0
	for _, f := range []bool{dec.AutoUpdated, dec.NeedsReview, dec.UrgentReview} {
		if f {
			n++
		}
	}
	return n
}

func TestDecideBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		status     types.Status
		auto       bool
		review     bool
		urgent     bool
	}{
		{"exactly auto threshold", 80, types.StatusValidated, true, false, false},
		{"just under auto threshold", 79.999, types.StatusNeedsReview, false, true, false},
		{"exactly review threshold", 60, types.StatusNeedsReview, false, true, false},
		{"just under review threshold", 59.999, types.StatusUrgent, false, false, true},
		{"zero", 0, types.StatusUrgent, false, false, true},
		{"perfect", 100, types.StatusValidated, true, false, false},
		{"above range is clamped", 140, types.StatusValidated, true, false, false},
		{"below range is clamped", -5, types.StatusUrgent, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(defaultThresholds, tt.confidence, nil)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.auto, got.AutoUpdated, "auto")
			assert.Equal(t, tt.review, got.NeedsReview, "review")
			assert.Equal(t, tt.urgent, got.UrgentReview, "urgent")
		})
	}
}

func TestDecideRules(t *testing.T) {
	tests := []struct {
		name          string
		confidence    float64
		discrepancies []types.Discrepancy
		want          types.Disposition
	}{
		{
			name:          "one high discrepancy blocks auto update at perfect confidence",
			confidence:    100,
			discrepancies: []types.Discrepancy{d(types.DiscrepancyPhoneMismatch, types.PriorityHigh, 99)},
			want:          types.DispositionNeedsReview,
		},
		{
			name:          "low confidence discrepancy blocks auto update",
			confidence:    95,
			discrepancies: []types.Discrepancy{d(types.DiscrepancyHoursMismatch, types.PriorityLow, 74.9)},
			want:          types.DispositionNeedsReview,
		},
		{
			name:          "discrepancy at 75 allows auto update",
			confidence:    95,
			discrepancies: []types.Discrepancy{d(types.DiscrepancyHoursMismatch, types.PriorityLow, 75)},
			want:          types.DispositionAutoAccept,
		},
		{
			name: "two high discrepancies escalate",
			confidence: 85,
			discrepancies: []types.Discrepancy{
				d(types.DiscrepancyPhoneMismatch, types.PriorityHigh, 90),
				d(types.DiscrepancyAddressMismatch, types.PriorityHigh, 90),
			},
			want: types.DispositionUrgent,
		},
		{
			name:          "critical type escalates in review band",
			confidence:    70,
			discrepancies: []types.Discrepancy{d(types.DiscrepancyStatusChange, types.PriorityMedium, 60)},
			want:          types.DispositionUrgent,
		},
		{
			name:          "critical type with high priority escalates",
			confidence:    90,
			discrepancies: []types.Discrepancy{d(types.DiscrepancyNPIInvalid, types.PriorityHigh, 99)},
			want:          types.DispositionUrgent,
		},
		{
			name:          "auto update takes precedence over a qualifying critical discrepancy",
			confidence:    90,
			discrepancies: []types.Discrepancy{d(types.DiscrepancyLicenseIssue, types.PriorityMedium, 90)},
			want:          types.DispositionAutoAccept,
		},
		{
			name:       "low confidence is urgent",
			confidence: 40,
			want:       types.DispositionUrgent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := Decide(defaultThresholds, tt.confidence, tt.discrepancies)
			r := types.AggregateResult{
				Status:       dec.Status,
				AutoUpdated:  dec.AutoUpdated,
				NeedsReview:  dec.NeedsReview,
				UrgentReview: dec.UrgentReview,
			}
			assert.Equal(t, tt.want, r.Disposition())
			assert.Equal(t, 1, flags(dec))
		})
	}
}

func TestDecideExclusivity(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 42))
	priorities := []types.Priority{types.PriorityHigh, types.PriorityMedium, types.PriorityLow}

	for i := 0; i < 5000; i++ {
		n := r.IntN(5)
		ds := make([]types.Discrepancy, n)
		for j := range ds {
			ds[j] = d(
				types.AllDiscrepancyTypes[r.IntN(len(types.AllDiscrepancyTypes))],
				priorities[r.IntN(len(priorities))],
				r.Float64()*100,
			)
		}
		conf := r.Float64()*120 - 10

		dec := Decide(defaultThresholds, conf, ds)
		require.Falsef(t, dec.AutoUpdated && dec.UrgentReview, "case %d: conf=%.2f %v", i, conf, ds)
		require.Equalf(t, 1, flags(dec), "case %d: conf=%.2f %v", i, conf, ds)
	}
}

func TestAssessScenarios(t *testing.T) {
	rec := types.Record{ID: "p-1", Label: "Jane Doe, MD (1234567890)"}

	t.Run("single fresh source auto validates", func(t *testing.T) {
		e := testEngine(map[types.Source]float64{types.SourceNPIRegistry: 1.0})
		res := e.Assess(rec, []types.SourceOutcome{
			{Source: types.SourceNPIRegistry, Success: true, Confidence: 90, ObservedAt: testNow},
		})
		assert.InDelta(t, 94.5, res.Confidence, 1e-9)
		assert.Equal(t, types.StatusValidated, res.Status)
		assert.True(t, res.AutoUpdated)
		assert.False(t, res.NeedsReview)
		assert.False(t, res.UrgentReview)
		assert.Equal(t, 0, res.TotalDiscrepancies)
		assert.Equal(t, testNow, res.ValidatedAt)
		assert.NotEmpty(t, res.ID)
	})

	t.Run("high discrepancy prevents auto update", func(t *testing.T) {
		e := testEngine(nil)
		res := e.Assess(rec, []types.SourceOutcome{
			{Source: types.SourceNPIRegistry, Success: true, Confidence: 90, ObservedAt: testNow},
			{
				Source: types.SourceGooglePlaces, Success: true, Confidence: 40, ObservedAt: testNow,
				Discrepancies: []types.Discrepancy{d(types.DiscrepancyPhoneMismatch, types.PriorityHigh, 95)},
			},
		})
		assert.InDelta(t, (0.35*90*1.05+0.25*40*1.05)/0.6, res.Confidence, 1e-9)
		assert.False(t, res.AutoUpdated)
		assert.True(t, res.NeedsReview)
		require.Len(t, res.Discrepancies, 1)
		assert.Equal(t, "p-1", res.Discrepancies[0].RecordID)
		assert.Equal(t, types.SourceGooglePlaces, res.Discrepancies[0].Source)
		assert.NotEmpty(t, res.Discrepancies[0].ID)
	})

	t.Run("single failed source is urgent", func(t *testing.T) {
		e := testEngine(nil)
		res := e.Assess(rec, []types.SourceOutcome{
			{Source: types.SourceNPIRegistry, Success: false, Confidence: 30, Error: "timeout", ObservedAt: testNow},
		})
		assert.Equal(t, 0.0, res.Confidence)
		assert.Equal(t, types.StatusUrgent, res.Status)
		assert.True(t, res.UrgentReview)
		assert.Equal(t, types.DispositionUrgent, res.Disposition())
	})
}

func TestAssessDropsDiscrepanciesOfFailedOutcomes(t *testing.T) {
	e := testEngine(nil)
	res := e.Assess(types.Record{ID: "p-2"}, []types.SourceOutcome{
		{Source: types.SourceNPIRegistry, Success: true, Confidence: 95, ObservedAt: testNow},
		{
			Source: types.SourcePracticeWebsite, Success: false, ObservedAt: testNow,
			Discrepancies: []types.Discrepancy{d(types.DiscrepancyLicenseIssue, types.PriorityHigh, 99)},
		},
	})
	assert.Empty(t, res.Discrepancies)
	assert.Empty(t, res.Outcomes[1].Discrepancies)
}

func TestAssessAssignsFreshDiscrepancyIDs(t *testing.T) {
	e := testEngine(nil)
	phone := d(types.DiscrepancyPhoneMismatch, types.PriorityMedium, 80)
	phone.ID = "intake-7"
	outcomes := []types.SourceOutcome{{
		Source: types.SourceNPIRegistry, Success: true, Confidence: 90, ObservedAt: testNow,
		Discrepancies: []types.Discrepancy{phone},
	}}

	first := e.Assess(types.Record{ID: "p-4"}, outcomes)
	second := e.Assess(types.Record{ID: "p-4"}, outcomes)
	require.Len(t, first.Discrepancies, 1)
	require.Len(t, second.Discrepancies, 1)

	assert.NotEqual(t, "intake-7", first.Discrepancies[0].ID)
	assert.NotEqual(t, first.Discrepancies[0].ID, second.Discrepancies[0].ID)
	assert.Equal(t, "intake-7", outcomes[0].Discrepancies[0].ID, "caller's outcomes are not mutated")
}

func TestAssessResolvesAcrossSources(t *testing.T) {
	e := testEngine(nil)
	phone := func(conf float64, value string) types.Discrepancy {
		x := d(types.DiscrepancyPhoneMismatch, types.PriorityMedium, conf)
		x.Field = "phone"
		x.ValidatedValue = value
		return x
	}
	res := e.Assess(types.Record{ID: "p-3"}, []types.SourceOutcome{
		{Source: types.SourceNPIRegistry, Success: true, Confidence: 90, ObservedAt: testNow,
			Discrepancies: []types.Discrepancy{phone(80, "617-555-0101")}},
		{Source: types.SourceGooglePlaces, Success: true, Confidence: 90, ObservedAt: testNow,
			Discrepancies: []types.Discrepancy{phone(96, "617-555-0102")}},
	})
	require.Len(t, res.Discrepancies, 1)
	assert.Equal(t, "617-555-0102", res.Discrepancies[0].ValidatedValue)
	assert.Equal(t, 1, res.TotalDiscrepancies)
	assert.True(t, res.AutoUpdated)
}

func TestFailed(t *testing.T) {
	e := testEngine(nil)
	res := e.Failed(types.Record{ID: "p-9"}, nil, errors.New("enrichment exploded"))
	assert.Equal(t, types.StatusError, res.Status)
	assert.Equal(t, "enrichment exploded", res.Error)
	assert.Equal(t, 0, flags(Decision{AutoUpdated: res.AutoUpdated, NeedsReview: res.NeedsReview, UrgentReview: res.UrgentReview}))
	assert.Equal(t, types.DispositionError, res.Disposition())
	assert.Contains(t, res.Summary, "p-9")
}

func TestSummarize(t *testing.T) {
	rec := types.Record{ID: "p-1", Label: "Jane Doe, MD"}
	issues := []types.Discrepancy{
		{Type: types.DiscrepancyPhoneMismatch, Field: "phone", CurrentValue: "1", ValidatedValue: "2"},
		{Type: types.DiscrepancyAddressMismatch, Field: "address", CurrentValue: "a", ValidatedValue: "b"},
		{Type: types.DiscrepancyFaxMismatch, Field: "fax", CurrentValue: "3", ValidatedValue: "4"},
		{Type: types.DiscrepancyHoursMismatch, Field: "hours", CurrentValue: "x", ValidatedValue: "y"},
	}

	s := Summarize(rec, 72.345, Decision{NeedsReview: true}, issues)
	assert.Contains(t, s, "Provider: Jane Doe, MD")
	assert.Contains(t, s, "Confidence: 72.3%")
	assert.Contains(t, s, "needs manual review")
	assert.Contains(t, s, `- phone_mismatch: phone ("1" -> "2")`)
	assert.NotContains(t, s, "hours_mismatch")
	assert.True(t, strings.HasSuffix(s, "... and 1 more issues"))

	assert.Contains(t, Summarize(rec, 90, Decision{AutoUpdated: true}, nil), "No discrepancies detected")
	assert.Contains(t, Summarize(rec, 10, Decision{UrgentReview: true}, nil), "URGENT REVIEW REQUIRED")
}
