// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/provider-verify/pkg/types"
)

// enrich runs the Enricher over gathered records. It is skipped after a stop
// signal.
func (o *Orchestrator) enrich(ctx context.Context, r *run) error {
	if o.enricher == nil || r.cancelled {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(o.cfg.BatchSize)
	for i := range r.records {
		if !r.gathered[i] {
			continue
		}
		g.Go(func() error {
			if err := o.enrichRecord(ctx, &r.records[i]); err != nil {
				r.failures[i] = err
				o.logger.ErrorContext(ctx, "record enrichment failed",
					"run_id", r.id, "record_id", r.records[i].ID, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) enrichRecord(ctx context.Context, rec *types.Record) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("enrich: panic: %v", p)
		}
	}()
	if err := o.enricher.Enrich(ctx, rec); err != nil {
		return fmt.Errorf("enrich: %w", err)
	}
	return nil
}

// score turns each gathered record into a result.
func (o *Orchestrator) score(ctx context.Context, r *run) error {
	n := len(r.records)
	for i := range r.records {
		if !r.gathered[i] {
			continue
		}
		res := o.scoreRecord(r.records[i], r.outcomes[i], r.failures[i])
		if res.Status == types.StatusError {
			o.logger.ErrorContext(ctx, "record failed",
				"run_id", r.id, "record_id", res.RecordID, "error", res.Error)
		}
		o.metrics.ObserveRecord(string(res.Disposition()), res.Confidence)
		for _, d := range res.Discrepancies {
			o.metrics.IncrementDiscrepancy(string(d.Type), string(d.Priority))
		}
		r.results[i] = &res
		if (i+1)%o.cfg.BatchSize == 0 || i == n-1 {
			r.progress.step(i+1, n, fmt.Sprintf("scored %d of %d records", i+1, n))
		}
	}
	return nil
}

func (o *Orchestrator) scoreRecord(rec types.Record, outcomes []types.SourceOutcome, failure error) (res types.AggregateResult) {
	if failure != nil {
		return o.engine.Failed(rec, outcomes, failure)
	}
	defer func() {
		if p := recover(); p != nil {
			res = o.engine.Failed(rec, outcomes, fmt.Errorf("score: panic: %v", p))
		}
	}()
	return o.assess(rec, outcomes)
}

// act hands every scored record to the Actor. It is skipped after a stop
// signal. Actor errors are counted per record and do not fail the stage.
func (o *Orchestrator) act(ctx context.Context, r *run) error {
	if o.actor == nil || r.cancelled {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(o.cfg.BatchSize)
	for i, res := range r.results {
		if res == nil {
			continue
		}
		g.Go(func() error {
			sum, err := o.actRecord(ctx, r.records[i], *res)
			if err != nil {
				sum.Failed++
				o.logger.ErrorContext(ctx, "action failed",
					"run_id", r.id, "record_id", res.RecordID, "error", err)
			}
			r.actions[i] = sum
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) actRecord(ctx context.Context, rec types.Record, res types.AggregateResult) (sum types.ActionSummary, err error) {
	defer func() {
		if p := recover(); p != nil {
			sum, err = types.ActionSummary{}, fmt.Errorf("act: panic: %v", p)
		}
	}()
	return o.actor.Act(ctx, rec, res)
}

// summarize reduces the results into the report in input order.
func (o *Orchestrator) summarize(_ context.Context, r *run) error {
	rep := r.report
	stats := newStats()
	var confSum float64
	scored := 0

	for i, res := range r.results {
		if res == nil {
			continue
		}
		stats.add(*res)
		rep.Actions.Add(r.actions[i])

		switch res.Disposition() {
		case types.DispositionAutoAccept:
			rep.AutoUpdated++
		case types.DispositionNeedsReview:
			rep.NeedsReview++
		case types.DispositionUrgent:
			rep.Urgent++
		default:
			rep.ErrorCount++
			continue
		}
		scored++
		confSum += res.Confidence
		for _, d := range res.Discrepancies {
			rep.DiscrepancyCounts[d.Type]++
		}
	}

	rep.Validated = rep.AutoUpdated + rep.NeedsReview + rep.Urgent
	if scored > 0 {
		rep.AverageConfidence = confSum / float64(scored)
	}
	rep.Stats = stats.RunStats
	return nil
}

// AssessOne gathers, enriches and scores a single record without batching,
// acting or reporting.
func (o *Orchestrator) AssessOne(ctx context.Context, rec types.Record) types.AggregateResult {
	rec = cloneRecords([]types.Record{rec})[0]
	outcomes := o.gatherRecord(ctx, rec)
	var failure error
	if o.enricher != nil {
		failure = o.enrichRecord(ctx, &rec)
	}
	return o.scoreRecord(rec, outcomes, failure)
}
