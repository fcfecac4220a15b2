// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// DiscrepancyType categorizes a detected mismatch.
type DiscrepancyType string

const (
	DiscrepancyPhoneMismatch     DiscrepancyType = "phone_mismatch"
	DiscrepancyAddressMismatch   DiscrepancyType = "address_mismatch"
	DiscrepancyNameMismatch      DiscrepancyType = "name_mismatch"
	DiscrepancySpecialtyMismatch DiscrepancyType = "specialty_mismatch"
	DiscrepancyLicenseIssue      DiscrepancyType = "license_issue"
	DiscrepancyNPIInvalid        DiscrepancyType = "npi_invalid"
	DiscrepancyStatusChange      DiscrepancyType = "status_change"
	DiscrepancyEmailInvalid      DiscrepancyType = "email_invalid"
	DiscrepancyFaxMismatch       DiscrepancyType = "fax_mismatch"
	DiscrepancyWebsiteIssue      DiscrepancyType = "website_issue"
	DiscrepancyHoursMismatch     DiscrepancyType = "hours_mismatch"
)

// AllDiscrepancyTypes lists every known discrepancy type.
var AllDiscrepancyTypes = []DiscrepancyType{
	DiscrepancyPhoneMismatch,
	DiscrepancyAddressMismatch,
	DiscrepancyNameMismatch,
	DiscrepancySpecialtyMismatch,
	DiscrepancyLicenseIssue,
	DiscrepancyNPIInvalid,
	DiscrepancyStatusChange,
	DiscrepancyEmailInvalid,
	DiscrepancyFaxMismatch,
	DiscrepancyWebsiteIssue,
	DiscrepancyHoursMismatch,
}

// Valid reports whether t is one of AllDiscrepancyTypes.
func (t DiscrepancyType) Valid() bool {
	for _, known := range AllDiscrepancyTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Critical reports whether t always escalates a record to urgent review.
func (t DiscrepancyType) Critical() bool {
	switch t {
	case DiscrepancyLicenseIssue, DiscrepancyNPIInvalid, DiscrepancyStatusChange:
		return true
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text leaves the
// type unset.
func (t *DiscrepancyType) UnmarshalText(text []byte) error {
	v := DiscrepancyType(text)
	if v != "" && !v.Valid() {
		return fmt.Errorf("unknown discrepancy type %q", string(text))
	}
	*t = v
	return nil
}

// Priority is the urgency assigned to a discrepancy by the detecting source.
// It is never recomputed downstream.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for sorting: high=0, medium=1, low=2. Unknown
// priorities sort after low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text leaves the
// priority unset.
func (p *Priority) UnmarshalText(text []byte) error {
	v := Priority(text)
	if v != "" && v.Rank() > 2 {
		return fmt.Errorf("unknown priority %q", string(text))
	}
	*p = v
	return nil
}

// Resolution is the mutable resolution sub-state of a discrepancy, updated by
// the ticketing workflow after assessment.
type Resolution struct {
	Resolved   bool      `json:"resolved" yaml:"resolved"`
	ResolvedBy string    `json:"resolved_by,omitempty" yaml:"resolved_by,omitempty"`
	Notes      string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	ResolvedAt time.Time `json:"resolved_at,omitempty" yaml:"resolved_at,omitempty"`
}

// Discrepancy records one mismatch between a record's current field value and
// a value asserted by a source.
type Discrepancy struct {
	// ID uniquely identifies the discrepancy; assigned on assessment when empty.
	ID string `json:"id" yaml:"id"`

	// RecordID is the owning record.
	RecordID string `json:"record_id" yaml:"record_id"`

	// Type categorizes the mismatch.
	Type DiscrepancyType `json:"type" yaml:"type"`

	// Field is the record field that disagrees (e.g. "phone").
	Field string `json:"field" yaml:"field"`

	// CurrentValue is the record's value at assessment time.
	CurrentValue string `json:"current_value" yaml:"current_value"`

	// ValidatedValue is the value asserted by the source.
	ValidatedValue string `json:"validated_value" yaml:"validated_value"`

	// Source is the source that detected the mismatch.
	Source Source `json:"source" yaml:"source"`

	// Priority is assigned by the detecting source.
	Priority Priority `json:"priority" yaml:"priority"`

	// Confidence is the source's confidence in ValidatedValue, in [0,100].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// DetectedAt is when the source observed the mismatch.
	DetectedAt time.Time `json:"detected_at" yaml:"detected_at"`

	Resolution Resolution `json:"resolution" yaml:"resolution"`
}

// Key returns the deduplication key (field, type).
func (d Discrepancy) Key() string {
	return d.Field + "\x00" + string(d.Type)
}

// Resolve marks the discrepancy resolved.
func (d *Discrepancy) Resolve(by, notes string, at time.Time) {
	d.Resolution = Resolution{
		Resolved:   true,
		ResolvedBy: by,
		Notes:      notes,
		ResolvedAt: at,
	}
}
