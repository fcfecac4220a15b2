// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/provider-verify/internal/store"
	"github.com/pdiddy/provider-verify/pkg/types"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	if yaml != "" {
		path := filepath.Join(t.TempDir(), "provider-verify.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())
	}
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	c, err := loadConfig(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, types.DefaultScoringConfig(), c.Scoring)
	assert.Equal(t, types.DefaultPipelineConfig(), c.Pipeline)
	assert.Equal(t, store.DefaultPath, c.Store.Path)
	assert.Equal(t, 20*time.Second, c.Sources.Timeout)
	assert.Equal(t, 5, c.Sources.MaxRetries)
	assert.Equal(t, "info", c.Log.Level)
	assert.Empty(t, c.Sources.Enabled)
	assert.Empty(t, c.Metrics.Textfile)
}

func TestLoadConfigFile(t *testing.T) {
	c, err := loadConfig(newViper(t, `
scoring:
  auto_update_threshold: 85
  weights:
    google_places: 0.5
pipeline:
  batch_size: 10
  batch_pause: 250ms
sources:
  enabled: [npi_registry, google_places]
  endpoints:
    npi_registry: http://localhost:8081
store:
  path: /tmp/pv.db
metrics:
  textfile: /tmp/pv.prom
`))
	require.NoError(t, err)

	assert.Equal(t, 85.0, c.Scoring.AutoUpdateThreshold)
	assert.Equal(t, 60.0, c.Scoring.NeedsReviewThreshold)
	assert.Equal(t, 0.5, c.Scoring.Weights[types.SourceGooglePlaces])
	assert.Equal(t, 0.35, c.Scoring.Weights[types.SourceNPIRegistry], "unlisted weights keep their defaults")
	assert.Equal(t, 10, c.Pipeline.BatchSize)
	assert.Equal(t, 250*time.Millisecond, c.Pipeline.BatchPause)
	assert.Equal(t, []types.Source{types.SourceNPIRegistry, types.SourceGooglePlaces}, c.Sources.Enabled)
	assert.Equal(t, "http://localhost:8081", c.Sources.Endpoints[types.SourceNPIRegistry])
	assert.Equal(t, "/tmp/pv.db", c.Store.Path)
	assert.Equal(t, "/tmp/pv.prom", c.Metrics.Textfile)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown weight source", "scoring:\n  weights:\n    yelp: 0.2\n"},
		{"unknown enabled source", "sources:\n  enabled: [yelp]\n"},
		{"inverted thresholds", "scoring:\n  auto_update_threshold: 50\n  needs_review_threshold: 70\n"},
		{"zero batch size", "pipeline:\n  batch_size: 0\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadConfig(newViper(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestPrintReport(t *testing.T) {
	rep := &types.BatchReport{
		ID:                "run-1",
		Total:             3,
		Processed:         3,
		AutoUpdated:       1,
		NeedsReview:       1,
		Urgent:            1,
		AverageConfidence: 72.5,
		DiscrepancyCounts: map[types.DiscrepancyType]int{
			types.DiscrepancyPhoneMismatch: 2,
			types.DiscrepancyLicenseIssue:  1,
		},
		Errors: []types.StageError{{Stage: "act", Message: "store unavailable"}},
	}
	var buf bytes.Buffer
	printReport(&buf, rep)
	out := buf.String()

	assert.Contains(t, out, "Run run-1: 3 of 3 records")
	assert.Contains(t, out, "72.5%")
	assert.Contains(t, out, "Phone Mismatch")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Phone Mismatch")), bytes.Index(buf.Bytes(), []byte("License Issue")))
	assert.Contains(t, out, "stage act failed: store unavailable")
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"x"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "x")
	assert.Empty(t, renderTable(nil, nil, nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestStatusCell(t *testing.T) {
	assert.False(t, shouldColorize(&bytes.Buffer{}))
	assert.Equal(t, "urgent", statusCell(types.StatusUrgent, false))
	assert.Contains(t, statusCell(types.StatusUrgent, true), "urgent")
}
