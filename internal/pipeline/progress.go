// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"log/slog"
	"sync"
)

// ProgressFunc receives progress updates. percent is in [0,100] and never
// decreases within a run. It is called from the goroutine running the stage;
// a panicking ProgressFunc fails that stage.
type ProgressFunc func(stage string, percent float64, message string)

// Progress is one update delivered by ChannelProgress.
type Progress struct {
	Stage   string
	Percent float64
	Message string
}

// ChannelProgress returns a ProgressFunc that sends updates to ch without
// blocking. Updates are dropped when ch is full.
func ChannelProgress(ch chan<- Progress) ProgressFunc {
	return func(stage string, percent float64, message string) {
		select {
		case ch <- Progress{Stage: stage, Percent: percent, Message: message}:
		default:
		}
	}
}

// LogProgress returns a ProgressFunc that logs each update at debug level.
func LogProgress(logger *slog.Logger) ProgressFunc {
	return func(stage string, percent float64, message string) {
		logger.Debug(message, "stage", stage, "percent", percent)
	}
}

// tracker maps stage-relative progress onto the run's fixed partition and
// keeps the reported percentage monotonic.
type tracker struct {
	mu         sync.Mutex
	fn         ProgressFunc
	last       float64
	stage      string
	start, end float64
}

func newTracker(fn ProgressFunc) *tracker {
	return &tracker{fn: fn}
}

func (t *tracker) enter(stage string, start, end float64) {
	t.mu.Lock()
	t.stage, t.start, t.end = stage, start, end
	t.mu.Unlock()
}

func (t *tracker) report(stage string, percent float64, message string) {
	t.mu.Lock()
	percent = max(t.last, min(100, percent))
	t.last = percent
	t.mu.Unlock()
	if t.fn != nil {
		t.fn(stage, percent, message)
	}
}

// step reports done of total units of the current stage.
func (t *tracker) step(done, total int, message string) {
	if total <= 0 {
		return
	}
	t.mu.Lock()
	stage, start, end := t.stage, t.start, t.end
	t.mu.Unlock()
	t.report(stage, start+(end-start)*float64(done)/float64(total), message)
}

// final reports completion. A panicking ProgressFunc is ignored here since no
// stage is left to fail.
func (t *tracker) final(message string) {
	defer func() { _ = recover() }()
	t.report(StageComplete, 100, message)
}
