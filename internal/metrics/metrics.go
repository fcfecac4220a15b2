// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics provides Prometheus instrumentation for assessment runs.
// Every method is safe on a nil *Metrics, so components can take an optional
// metrics handle without checks at each call site.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	// Source query latencies by source and outcome
	SourceLatency *prometheus.HistogramVec

	// Record dispositions
	Dispositions *prometheus.CounterVec

	// Discrepancies after resolution, by type and priority
	Discrepancies *prometheus.CounterVec

	// Aggregated confidence per record
	Confidence prometheus.Histogram

	// Stage wall-clock time
	StageDuration *prometheus.HistogramVec

	// Stage-level failures
	StageFailures *prometheus.CounterVec

	// Actions taken by the act stage
	Actions *prometheus.CounterVec
}

// New creates a Metrics instance registered with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,

		SourceLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "provider_verify_source_duration_seconds",
			Help:    "Duration of source queries by source and outcome",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source", "outcome"}), // outcome: "success", "failure"

		Dispositions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "provider_verify_records_total",
			Help: "Assessed records by disposition",
		}, []string{"disposition"}),

		Discrepancies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "provider_verify_discrepancies_total",
			Help: "Resolved discrepancies by type and priority",
		}, []string{"type", "priority"}),

		Confidence: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "provider_verify_confidence",
			Help:    "Aggregated confidence of scored records",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),

		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "provider_verify_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),

		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "provider_verify_stage_failures_total",
			Help: "Stage-level pipeline failures",
		}, []string{"stage"}),

		Actions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "provider_verify_actions_total",
			Help: "Routing actions by kind",
		}, []string{"action"}),
	}
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveSource records one source query.
func (m *Metrics) ObserveSource(source string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.SourceLatency.WithLabelValues(source, outcome).Observe(d.Seconds())
}

// ObserveRecord records a record's disposition and, unless it errored, its
// confidence.
func (m *Metrics) ObserveRecord(disposition string, confidence float64) {
	if m == nil {
		return
	}
	m.Dispositions.WithLabelValues(disposition).Inc()
	if disposition != "error" {
		m.Confidence.Observe(confidence)
	}
}

// IncrementDiscrepancy counts one resolved discrepancy.
func (m *Metrics) IncrementDiscrepancy(typ, priority string) {
	if m != nil {
		m.Discrepancies.WithLabelValues(typ, priority).Inc()
	}
}

// ObserveStage records a stage's duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// IncrementStageFailure counts a stage-level failure.
func (m *Metrics) IncrementStageFailure(stage string) {
	if m != nil {
		m.StageFailures.WithLabelValues(stage).Inc()
	}
}

// IncrementAction counts a routing action.
func (m *Metrics) IncrementAction(action string) {
	if m != nil {
		m.Actions.WithLabelValues(action).Inc()
	}
}

// WriteTextfile writes every collected metric to path in the Prometheus text
// exposition format, for pickup by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
