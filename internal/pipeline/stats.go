// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "github.com/pdiddy/provider-verify/pkg/types"

// stats accumulates RunStats for one run using running averages.
type stats struct {
	types.RunStats
	scored int
}

func newStats() *stats {
	return &stats{RunStats: types.RunStats{Sources: make(map[types.Source]types.SourceStats)}}
}

func runningAverage(avg float64, x float64, n int) float64 {
	return avg + (x-avg)/float64(n)
}

func (s *stats) add(res types.AggregateResult) {
	s.RecordsAssessed++

	switch res.Disposition() {
	case types.DispositionAutoAccept:
		s.AutoApproved++
	case types.DispositionNeedsReview:
		s.FlaggedForReview++
	case types.DispositionUrgent:
		s.FlaggedUrgent++
	default:
		s.Errors++
	}

	if res.Status != types.StatusError {
		s.scored++
		s.AverageConfidence = runningAverage(s.AverageConfidence, res.Confidence, s.scored)
		s.TotalDiscrepancies += res.TotalDiscrepancies
	}

	for _, o := range res.Outcomes {
		st := s.Sources[o.Source]
		st.Total++
		if o.Success {
			st.Successful++
			st.AverageConfidence = runningAverage(st.AverageConfidence, o.Confidence, st.Successful)
		}
		s.Sources[o.Source] = st
	}
}
