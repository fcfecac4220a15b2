// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs batches of records through the assessment stages:
// gather source outcomes, enrich, score, act on the results, and report.
//
// Failures are contained at the narrowest level. A failing source becomes a
// failed outcome, a failing record becomes an ERROR result, and a failing
// stage is recorded in the report and ends the run early with the results
// gathered so far. Run never panics and never fails for data problems.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/provider-verify/internal/decision"
	"github.com/pdiddy/provider-verify/internal/logging"
	"github.com/pdiddy/provider-verify/internal/metrics"
	"github.com/pdiddy/provider-verify/internal/sources"
	"github.com/pdiddy/provider-verify/pkg/types"
)

// ErrNoSources is returned by New when no source is configured.
var ErrNoSources = errors.New("no sources configured")

// Stage names, in execution order.
const (
	StageGather = "gather"
	StageEnrich = "enrich"
	StageScore  = "score"
	StageAct    = "act"
	StageReport = "report"

	// StageComplete is reported once, at 100%, when a run ends.
	StageComplete = "complete"
)

// Enricher may update a record's fields after its outcomes are gathered.
// An error marks that record failed.
type Enricher interface {
	Enrich(ctx context.Context, rec *types.Record) error
}

// Actor acts on one scored record and reports what it did.
type Actor interface {
	Act(ctx context.Context, rec types.Record, res types.AggregateResult) (types.ActionSummary, error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logging.OrDiscard(l) }
}

// WithMetrics sets the metrics sink. Nil disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithEnricher installs the enrich stage collaborator.
func WithEnricher(e Enricher) Option {
	return func(o *Orchestrator) { o.enricher = e }
}

// WithActor installs the act stage collaborator.
func WithActor(a Actor) Option {
	return func(o *Orchestrator) { o.actor = a }
}

// WithClock sets the clock used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) { o.now = clock }
}

// Orchestrator runs batches through the stages. It holds no per-run state
// and is safe for concurrent Runs.
type Orchestrator struct {
	engine   *decision.Engine
	sources  []sources.Source
	cfg      types.PipelineConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
	enricher Enricher
	actor    Actor
	now      func() time.Time
	pause    func(ctx context.Context, d time.Duration)
	assess   func(rec types.Record, outcomes []types.SourceOutcome) types.AggregateResult
}

// New returns an Orchestrator that scores with engine and gathers from srcs.
func New(engine *decision.Engine, srcs []sources.Source, cfg types.PipelineConfig, opts ...Option) (*Orchestrator, error) {
	if engine == nil {
		return nil, errors.New("pipeline: nil decision engine")
	}
	if len(srcs) == 0 {
		return nil, ErrNoSources
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	o := &Orchestrator{
		engine:  engine,
		sources: srcs,
		cfg:     cfg,
		logger:  logging.Discard(),
		now:     time.Now,
		pause:   sleep,
		assess:  engine.Assess,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// run is the state of one Run invocation. Slices are indexed by input
// position; concurrent workers only write their own index.
type run struct {
	id       string
	records  []types.Record
	outcomes [][]types.SourceOutcome
	gathered []bool
	failures []error
	results  []*types.AggregateResult
	actions  []types.ActionSummary

	cancelled bool
	report    *types.BatchReport
	progress  *tracker
}

type stage struct {
	name       string
	start, end float64
	fn         func(ctx context.Context, r *run) error
}

func (o *Orchestrator) stages() []stage {
	return []stage{
		{StageGather, 0, 25, o.gather},
		{StageEnrich, 25, 50, o.enrich},
		{StageScore, 50, 75, o.score},
		{StageAct, 75, 95, o.act},
		{StageReport, 95, 100, o.summarize},
	}
}

// Run processes records and returns the batch report. Records are copied;
// the caller's slice is not modified. progress may be nil.
func (o *Orchestrator) Run(ctx context.Context, records []types.Record, progress ProgressFunc) *types.BatchReport {
	started := o.now()
	n := len(records)
	r := &run{
		id:       uuid.NewString(),
		records:  cloneRecords(records),
		outcomes: make([][]types.SourceOutcome, n),
		gathered: make([]bool, n),
		failures: make([]error, n),
		results:  make([]*types.AggregateResult, n),
		actions:  make([]types.ActionSummary, n),
		progress: newTracker(progress),
		report: &types.BatchReport{
			Total:             n,
			DiscrepancyCounts: make(map[types.DiscrepancyType]int),
			StageTimings:      make(map[string]time.Duration),
			StartedAt:         started,
		},
	}
	r.report.ID = r.id

	log := o.logger.With("run_id", r.id)
	log.InfoContext(ctx, "run started", "records", n, "sources", len(o.sources))

	for _, st := range o.stages() {
		stageStart := time.Now()
		err := runStage(ctx, r, st)
		elapsed := time.Since(stageStart)
		r.report.StageTimings[st.name] = elapsed
		o.metrics.ObserveStage(st.name, elapsed)

		if err != nil {
			r.report.Errors = append(r.report.Errors, types.StageError{
				Stage:   st.name,
				Message: err.Error(),
				Time:    o.now(),
			})
			o.metrics.IncrementStageFailure(st.name)
			log.ErrorContext(ctx, "stage failed", "stage", st.name, "error", err)
			break
		}
		log.InfoContext(ctx, "stage finished", "stage", st.name, "duration", elapsed)
	}

	o.finish(r)
	msg := "run complete"
	switch {
	case r.cancelled:
		msg = "run cancelled"
	case len(r.report.Errors) > 0:
		msg = "run ended after stage failure"
	}
	r.progress.final(msg)
	log.InfoContext(ctx, msg,
		"processed", r.report.Processed,
		"auto_updated", r.report.AutoUpdated,
		"needs_review", r.report.NeedsReview,
		"urgent", r.report.Urgent,
		"errors", r.report.ErrorCount,
		"duration", r.report.Duration,
	)
	return r.report
}

// runStage executes one stage, converting a panic into an error.
func runStage(ctx context.Context, r *run, st stage) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	r.progress.enter(st.name, st.start, st.end)
	r.progress.report(st.name, st.start, "starting "+st.name)
	if err := st.fn(ctx, r); err != nil {
		return err
	}
	r.progress.report(st.name, st.end, st.name+" done")
	return nil
}

// finish fills the parts of the report that do not depend on the report
// stage having succeeded.
func (o *Orchestrator) finish(r *run) {
	rep := r.report
	rep.Cancelled = r.cancelled
	rep.Results = rep.Results[:0]
	for _, res := range r.results {
		if res != nil {
			rep.Results = append(rep.Results, *res)
		}
	}
	rep.Processed = len(rep.Results)
	rep.CompletedAt = o.now()
	rep.Duration = rep.CompletedAt.Sub(rep.StartedAt)
}

func cloneRecords(records []types.Record) []types.Record {
	out := make([]types.Record, len(records))
	for i, rec := range records {
		out[i] = rec
		if rec.Fields != nil {
			out[i].Fields = make(map[string]string, len(rec.Fields))
			for k, v := range rec.Fields {
				out[i].Fields[k] = v
			}
		}
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
