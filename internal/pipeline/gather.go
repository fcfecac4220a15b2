// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/provider-verify/internal/sources"
	"github.com/pdiddy/provider-verify/pkg/types"
)

// gather queries every source for every record, one batch at a time. The
// stop signal is checked between batches; a batch already started runs to
// completion and records of batches never started get no result.
func (o *Orchestrator) gather(ctx context.Context, r *run) error {
	n := len(r.records)
	size := o.cfg.BatchSize
	// Source calls are bounded by SourceTimeout, not by the stop signal.
	callCtx := context.WithoutCancel(ctx)

	for start := 0; start < n; start += size {
		if ctx.Err() != nil {
			r.cancelled = true
			o.logger.WarnContext(ctx, "stop requested, skipping remaining batches",
				"run_id", r.id, "gathered", start, "total", n)
			return nil
		}
		end := min(start+size, n)

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				r.outcomes[i] = o.gatherRecord(callCtx, r.records[i])
				r.gathered[i] = true
				return nil
			})
		}
		_ = g.Wait()

		r.progress.step(end, n, fmt.Sprintf("gathered %d of %d records", end, n))
		if end < n {
			o.pause(ctx, o.cfg.BatchPause)
		}
	}
	if ctx.Err() != nil {
		r.cancelled = true
	}
	return nil
}

// gatherRecord queries all sources for rec concurrently. The returned slice
// is in source order and has one outcome per source.
func (o *Orchestrator) gatherRecord(ctx context.Context, rec types.Record) []types.SourceOutcome {
	out := make([]types.SourceOutcome, len(o.sources))
	var g errgroup.Group
	for j, src := range o.sources {
		g.Go(func() error {
			out[j] = o.query(ctx, src, rec)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// query calls one source with a timeout. Errors, timeouts and panics become
// a failed outcome carrying the message.
func (o *Orchestrator) query(ctx context.Context, src sources.Source, rec types.Record) types.SourceOutcome {
	id := src.ID()
	start := time.Now()

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if o.cfg.SourceTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, o.cfg.SourceTimeout)
	}
	defer cancel()

	type reply struct {
		outcome types.SourceOutcome
		err     error
	}
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- reply{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		oc, err := src.Outcome(callCtx, rec)
		ch <- reply{outcome: oc, err: err}
	}()

	var res reply
	select {
	case res = <-ch:
	case <-callCtx.Done():
		res = reply{err: callCtx.Err()}
	}

	oc := res.outcome
	if res.err != nil {
		msg := res.err.Error()
		if errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			msg = fmt.Sprintf("timed out after %s", o.cfg.SourceTimeout)
		}
		oc = types.FailedOutcome(id, msg, o.now())
		o.logger.WarnContext(ctx, "source failed",
			"record_id", rec.ID, "source", string(id), "error", msg)
	} else {
		oc.Source = id
		if oc.ObservedAt.IsZero() {
			oc.ObservedAt = o.now()
		}
	}
	o.metrics.ObserveSource(string(id), oc.Success, time.Since(start))
	return oc
}
