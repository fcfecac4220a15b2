// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package intake reads and writes batch files: the records to assess plus any
// source outcomes already obtained for them. A batch file lets an assessment
// be rerun without querying sources again.
package intake

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/provider-verify/pkg/types"
)

// ErrNoRecords is returned when a batch file contains no records.
var ErrNoRecords = errors.New("batch file contains no records")

// Batch is the on-disk representation of one assessment batch.
type Batch struct {
	Name    string    `yaml:"name,omitempty"`
	Created time.Time `yaml:"created,omitempty"`
	Entries []Entry   `yaml:"records"`
}

// Entry is one record together with its pre-obtained source outcomes.
type Entry struct {
	types.Record `yaml:",inline"`
	Outcomes     []types.SourceOutcome `yaml:"outcomes,omitempty"`
}

// Read loads and validates a batch file.
func Read(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing batch file %s: %w", path, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("batch file %s: %w", path, err)
	}
	return &b, nil
}

// Write saves a batch file.
func Write(path string, b *Batch) error {
	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshaling batch file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the batch has records with unique, non-empty IDs and
// at most one outcome per source per record.
func (b *Batch) Validate() error {
	if len(b.Entries) == 0 {
		return ErrNoRecords
	}
	seen := make(map[string]struct{}, len(b.Entries))
	for i, e := range b.Entries {
		if e.ID == "" {
			return fmt.Errorf("record %d has no id", i)
		}
		if _, ok := seen[e.ID]; ok {
			return fmt.Errorf("duplicate record id %q", e.ID)
		}
		seen[e.ID] = struct{}{}

		sources := make(map[types.Source]struct{}, len(e.Outcomes))
		for _, o := range e.Outcomes {
			if _, ok := sources[o.Source]; ok {
				return fmt.Errorf("record %q: duplicate outcome for %s", e.ID, o.Source)
			}
			sources[o.Source] = struct{}{}
		}
	}
	return nil
}

// Records returns the batch's records in file order.
func (b *Batch) Records() []types.Record {
	out := make([]types.Record, len(b.Entries))
	for i, e := range b.Entries {
		out[i] = e.Record
	}
	return out
}

// Outcomes indexes the pre-obtained outcomes by source, then record ID.
func (b *Batch) Outcomes() map[types.Source]map[string]types.SourceOutcome {
	idx := make(map[types.Source]map[string]types.SourceOutcome)
	for _, e := range b.Entries {
		for _, o := range e.Outcomes {
			byRecord, ok := idx[o.Source]
			if !ok {
				byRecord = make(map[string]types.SourceOutcome)
				idx[o.Source] = byRecord
			}
			byRecord[e.ID] = o
		}
	}
	return idx
}

// Sources returns the sources present in the batch, in AllSources order.
func (b *Batch) Sources() []types.Source {
	idx := b.Outcomes()
	var out []types.Source
	for _, s := range types.AllSources {
		if _, ok := idx[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
