// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Source identifies one external, independently queried information provider.
// The set is closed; ParseSource rejects names outside AllSources.
type Source string

const (
	SourceNPIRegistry     Source = "npi_registry"
	SourceGooglePlaces    Source = "google_places"
	SourcePracticeWebsite Source = "practice_website"
	SourceStateLicense    Source = "state_license"
	SourcePDFDocument     Source = "pdf_document"
)

// AllSources lists every known source in reliability order.
var AllSources = []Source{
	SourceNPIRegistry,
	SourceGooglePlaces,
	SourcePracticeWebsite,
	SourceStateLicense,
	SourcePDFDocument,
}

// Valid reports whether s is one of AllSources.
func (s Source) Valid() bool {
	switch s {
	case SourceNPIRegistry, SourceGooglePlaces, SourcePracticeWebsite,
		SourceStateLicense, SourcePDFDocument:
		return true
	}
	return false
}

func (s Source) String() string { return string(s) }

// UnmarshalText implements encoding.TextUnmarshaler so YAML and JSON inputs
// are validated against the closed set. Empty text leaves the source unset.
func (s *Source) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = ""
		return nil
	}
	parsed, err := ParseSource(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSource converts a source name into a Source.
func ParseSource(name string) (Source, error) {
	s := Source(name)
	if !s.Valid() {
		return "", fmt.Errorf("unknown source %q", name)
	}
	return s, nil
}
