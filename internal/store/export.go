// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/provider-verify/pkg/types"
)

// Export is the document written by ExportYAML and ExportJSON.
type Export struct {
	GeneratedAt time.Time               `json:"generated_at" yaml:"generated_at"`
	Results     []types.AggregateResult `json:"results" yaml:"results"`
	Tickets     []types.Ticket          `json:"tickets,omitempty" yaml:"tickets,omitempty"`
}

// Format is an export encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension, defaulting to YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// collect gathers the results matching f and the tickets on those records.
func (s *Store) collect(ctx context.Context, f ResultFilter, now time.Time) (*Export, error) {
	results, err := s.ListResults(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	exp := &Export{GeneratedAt: now, Results: results}

	wanted := make(map[string]bool, len(results))
	for _, r := range results {
		wanted[r.ID] = true
	}
	tickets, err := s.Tickets(ctx, TicketFilter{RecordID: f.RecordID})
	if err != nil {
		return nil, err
	}
	for _, t := range tickets {
		if wanted[t.ResultID] {
			exp.Tickets = append(exp.Tickets, t)
		}
	}
	return exp, nil
}

// WriteExport encodes the results matching f to w.
func (s *Store) WriteExport(ctx context.Context, w io.Writer, format Format, f ResultFilter) error {
	exp, err := s.collect(ctx, f, time.Now().UTC())
	if err != nil {
		return err
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(exp); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(exp); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
	return nil
}

// ExportYAML writes the results matching f to path as YAML.
func (s *Store) ExportYAML(ctx context.Context, path string, f ResultFilter) error {
	return s.exportFile(ctx, path, FormatYAML, f)
}

// ExportJSON writes the results matching f to path as JSON.
func (s *Store) ExportJSON(ctx context.Context, path string, f ResultFilter) error {
	return s.exportFile(ctx, path, FormatJSON, f)
}

func (s *Store) exportFile(ctx context.Context, path string, format Format, f ResultFilter) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := s.WriteExport(ctx, file, format, f); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
