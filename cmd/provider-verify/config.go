// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/pdiddy/provider-verify/internal/store"
	"github.com/pdiddy/provider-verify/pkg/types"
)

const defaultUserAgent = "provider-verify/0.1"

// setDefaults registers the default value of every scalar config key.
// Source weights are merged onto DefaultScoringConfig in loadConfig instead,
// so a config file can override a single weight.
func setDefaults(v *viper.Viper) {
	scoring := types.DefaultScoringConfig()
	pipe := types.DefaultPipelineConfig()

	v.SetDefault("scoring.auto_update_threshold", scoring.AutoUpdateThreshold)
	v.SetDefault("scoring.needs_review_threshold", scoring.NeedsReviewThreshold)
	v.SetDefault("scoring.default_weight", scoring.DefaultWeight)
	v.SetDefault("pipeline.batch_size", pipe.BatchSize)
	v.SetDefault("pipeline.batch_pause", pipe.BatchPause)
	v.SetDefault("pipeline.source_timeout", pipe.SourceTimeout)
	v.SetDefault("sources.timeout", "20s")
	v.SetDefault("sources.user_agent", defaultUserAgent)
	v.SetDefault("sources.max_retries", 5)
	v.SetDefault("sources.secrets_dir", ".secrets/")
	v.SetDefault("store.path", store.DefaultPath)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// loadConfig builds and validates a Config from v.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var c types.Config

	c.Scoring = types.DefaultScoringConfig()
	c.Scoring.AutoUpdateThreshold = v.GetFloat64("scoring.auto_update_threshold")
	c.Scoring.NeedsReviewThreshold = v.GetFloat64("scoring.needs_review_threshold")
	c.Scoring.DefaultWeight = v.GetFloat64("scoring.default_weight")
	for name := range v.GetStringMap("scoring.weights") {
		src, err := types.ParseSource(name)
		if err != nil {
			return c, fmt.Errorf("scoring.weights: %w", err)
		}
		c.Scoring.Weights[src] = v.GetFloat64("scoring.weights." + name)
	}

	c.Pipeline = types.PipelineConfig{
		BatchSize:     v.GetInt("pipeline.batch_size"),
		BatchPause:    v.GetDuration("pipeline.batch_pause"),
		SourceTimeout: v.GetDuration("pipeline.source_timeout"),
	}

	c.Sources.HTTPConfig = types.HTTPConfig{
		Timeout:    v.GetDuration("sources.timeout"),
		UserAgent:  v.GetString("sources.user_agent"),
		MaxRetries: v.GetInt("sources.max_retries"),
	}
	c.Sources.SecretsDir = v.GetString("sources.secrets_dir")
	for _, name := range v.GetStringSlice("sources.enabled") {
		src, err := types.ParseSource(name)
		if err != nil {
			return c, fmt.Errorf("sources.enabled: %w", err)
		}
		c.Sources.Enabled = append(c.Sources.Enabled, src)
	}
	if eps := v.GetStringMapString("sources.endpoints"); len(eps) > 0 {
		c.Sources.Endpoints = make(map[types.Source]string, len(eps))
		for name, url := range eps {
			src, err := types.ParseSource(name)
			if err != nil {
				return c, fmt.Errorf("sources.endpoints: %w", err)
			}
			c.Sources.Endpoints[src] = url
		}
	}

	c.Store.Path = v.GetString("store.path")
	c.Log = types.LogConfig{Level: v.GetString("log.level"), Format: v.GetString("log.format")}
	c.Metrics.Textfile = v.GetString("metrics.textfile")

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}
