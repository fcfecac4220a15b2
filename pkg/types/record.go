// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the provider-verify pipeline:
// records under assessment, per-source outcomes, discrepancies, per-record
// results, batch reports, and configuration.
package types

// Record is a subject record (a healthcare-provider directory entry) under
// assessment. The pipeline treats it as opaque except for ID; Fields may be
// mutated by an enrichment collaborator between stages.
type Record struct {
	// ID is the stable identifier used to correlate outcomes and results.
	ID string `json:"id" yaml:"id"`

	// Label is a human-readable name used in summaries (e.g. "Jane Doe, MD (1234567890)").
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// Fields holds the record's current directory values keyed by field name.
	Fields map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// DisplayName returns Label, falling back to ID.
func (r Record) DisplayName() string {
	if r.Label != "" {
		return r.Label
	}
	return r.ID
}

// Field returns the current value of a field, or "" if unset.
func (r Record) Field(name string) string {
	return r.Fields[name]
}

// SetField assigns a field value, allocating Fields when needed.
func (r *Record) SetField(name, value string) {
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	r.Fields[name] = value
}
