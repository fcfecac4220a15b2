// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"time"
)

// ScoringConfig holds the aggregation weights and decision thresholds.
type ScoringConfig struct {
	// AutoUpdateThreshold is the minimum confidence for auto-update (default 80).
	AutoUpdateThreshold float64 `json:"auto_update_threshold" yaml:"auto_update_threshold"`

	// NeedsReviewThreshold is the minimum confidence that avoids urgent review (default 60).
	NeedsReviewThreshold float64 `json:"needs_review_threshold" yaml:"needs_review_threshold"`

	// Weights maps each source to its reliability weight. Weights need not sum to 1.
	Weights map[Source]float64 `json:"weights" yaml:"weights"`

	// DefaultWeight is used for sources missing from Weights (default 0.1).
	DefaultWeight float64 `json:"default_weight" yaml:"default_weight"`
}

// DefaultScoringConfig returns the standard thresholds and source weights.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		AutoUpdateThreshold:  80,
		NeedsReviewThreshold: 60,
		Weights: map[Source]float64{
			SourceNPIRegistry:     0.35,
			SourceGooglePlaces:    0.25,
			SourcePracticeWebsite: 0.20,
			SourceStateLicense:    0.15,
			SourcePDFDocument:     0.05,
		},
		DefaultWeight: 0.1,
	}
}

// Validate checks threshold ordering and weight signs.
func (c ScoringConfig) Validate() error {
	if c.NeedsReviewThreshold < 0 || c.AutoUpdateThreshold > 100 {
		return fmt.Errorf("thresholds must lie in [0,100]")
	}
	if c.NeedsReviewThreshold > c.AutoUpdateThreshold {
		return fmt.Errorf("needs_review_threshold %.1f exceeds auto_update_threshold %.1f",
			c.NeedsReviewThreshold, c.AutoUpdateThreshold)
	}
	if c.DefaultWeight < 0 {
		return fmt.Errorf("default_weight must not be negative")
	}
	for s, w := range c.Weights {
		if !s.Valid() {
			return fmt.Errorf("weight for unknown source %q", s)
		}
		if w < 0 {
			return fmt.Errorf("weight for %s must not be negative", s)
		}
	}
	return nil
}

// PipelineConfig holds batch orchestration settings.
type PipelineConfig struct {
	// BatchSize bounds the number of in-flight records (default 50).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// BatchPause is the delay inserted between batches (default 100ms).
	BatchPause time.Duration `json:"batch_pause" yaml:"batch_pause"`

	// SourceTimeout bounds a single source call (default 30s).
	SourceTimeout time.Duration `json:"source_timeout" yaml:"source_timeout"`
}

// DefaultPipelineConfig returns the standard batch settings.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BatchSize:     50,
		BatchPause:    100 * time.Millisecond,
		SourceTimeout: 30 * time.Second,
	}
}

// Validate checks the batch settings.
func (c PipelineConfig) Validate() error {
	if c.BatchSize <= 0 {
		return errors.New("batch_size must be positive")
	}
	if c.BatchPause < 0 || c.SourceTimeout < 0 {
		return errors.New("batch_pause and source_timeout must not be negative")
	}
	return nil
}

// HTTPConfig holds shared HTTP settings used by network-backed sources.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the number of retries on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// SourcesConfig selects and locates the sources queried in the gather stage.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline"`

	// Enabled lists the sources to query. Empty means every source present in
	// the intake file.
	Enabled []Source `json:"enabled" yaml:"enabled"`

	// Endpoints maps a source to an HTTP base URL. Sources with an endpoint are
	// queried over HTTP instead of from the intake file.
	Endpoints map[Source]string `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`

	// SecretsDir holds per-source API key files (e.g. google_places-api-key).
	SecretsDir string `json:"secrets_dir" yaml:"secrets_dir"`
}

// StoreConfig locates the results database.
type StoreConfig struct {
	// Path is the SQLite database file (default data/results.db).
	Path string `json:"path" yaml:"path"`
}

// LogConfig selects log verbosity and format.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus output.
type MetricsConfig struct {
	// Textfile is a path the run's metrics are written to in text exposition
	// format. Empty disables metrics output.
	Textfile string `json:"textfile" yaml:"textfile"`
}

// Config groups all provider-verify settings.
type Config struct {
	Scoring  ScoringConfig  `json:"scoring" yaml:"scoring"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`
	Sources  SourcesConfig  `json:"sources" yaml:"sources"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	for _, s := range c.Sources.Enabled {
		if !s.Valid() {
			return fmt.Errorf("sources: unknown source %q", s)
		}
	}
	return nil
}
