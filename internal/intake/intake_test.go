// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package intake

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/provider-verify/pkg/types"
)

const sampleBatch = `
name: october directory sweep
records:
  - id: p-1
    label: Jane Doe, MD (1234567890)
    fields:
      phone: 617-555-0100
    outcomes:
      - source: npi_registry
        success: true
        confidence: 92
        observed_at: 2026-10-13T09:00:00Z
      - source: google_places
        success: true
        confidence: 70
        observed_at: 2026-10-01T09:00:00Z
        discrepancies:
          - type: phone_mismatch
            field: phone
            current_value: 617-555-0100
            validated_value: 617-555-0199
            priority: high
            confidence: 88
  - id: p-2
    outcomes:
      - source: pdf_document
        success: false
        error: unreadable scan
`

func writeBatch(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRead(t *testing.T) {
	b, err := Read(writeBatch(t, sampleBatch))
	require.NoError(t, err)

	assert.Equal(t, "october directory sweep", b.Name)
	require.Len(t, b.Entries, 2)

	recs := b.Records()
	assert.Equal(t, "p-1", recs[0].ID)
	assert.Equal(t, "617-555-0100", recs[0].Field("phone"))
	assert.Equal(t, "p-2", recs[1].DisplayName())

	o := b.Entries[0].Outcomes[1]
	assert.Equal(t, types.SourceGooglePlaces, o.Source)
	require.Len(t, o.Discrepancies, 1)
	assert.Equal(t, types.DiscrepancyPhoneMismatch, o.Discrepancies[0].Type)
	assert.Equal(t, types.PriorityHigh, o.Discrepancies[0].Priority)
	assert.Equal(t, time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC), o.ObservedAt.UTC())

	assert.Equal(t, []types.Source{types.SourceNPIRegistry, types.SourceGooglePlaces, types.SourcePDFDocument}, b.Sources())

	idx := b.Outcomes()
	assert.Equal(t, "unreadable scan", idx[types.SourcePDFDocument]["p-2"].Error)
	_, ok := idx[types.SourceNPIRegistry]["p-2"]
	assert.False(t, ok)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"empty", "records: []\n", "no records"},
		{"missing id", "records:\n  - label: x\n", "has no id"},
		{"duplicate id", "records:\n  - id: a\n  - id: a\n", "duplicate record id"},
		{"unknown source", "records:\n  - id: a\n    outcomes:\n      - source: fax_machine\n", "unknown source"},
		{"unknown priority", "records:\n  - id: a\n    outcomes:\n      - source: npi_registry\n        success: true\n        discrepancies:\n          - type: phone_mismatch\n            priority: critical\n", "unknown priority"},
		{"duplicate outcome", "records:\n  - id: a\n    outcomes:\n      - source: npi_registry\n      - source: npi_registry\n", "duplicate outcome"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(writeBatch(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	_, err := Read(writeBatch(t, "records: []\n"))
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = Read(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading batch file")
}

func TestWriteThenRead(t *testing.T) {
	at := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	b := &Batch{
		Name: "roundtrip",
		Entries: []Entry{{
			Record: types.Record{ID: "p-9", Fields: map[string]string{"fax": "555"}},
			Outcomes: []types.SourceOutcome{
				{Source: types.SourceStateLicense, Success: true, Confidence: 81, ObservedAt: at},
			},
		}},
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Write(path, b))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "555", got.Entries[0].Field("fax"))
	assert.Equal(t, 81.0, got.Entries[0].Outcomes[0].Confidence)
	assert.True(t, got.Entries[0].Outcomes[0].ObservedAt.Equal(at))
}

func TestReadSampleBatch(t *testing.T) {
	b, err := Read(filepath.Join("..", "..", "testdata", "sample-batch.yaml"))
	require.NoError(t, err)
	assert.Len(t, b.Records(), 4)
	assert.Equal(t, []types.Source{types.SourceNPIRegistry, types.SourceGooglePlaces, types.SourceStateLicense}, b.Sources())
}
