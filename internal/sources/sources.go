// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources provides the adapters the pipeline queries for per-record
// source outcomes. Each Source implementation (intake fixture, HTTP endpoint)
// implements the same interface so the gather stage can fan out without
// knowing where outcomes come from.
package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pdiddy/provider-verify/internal/intake"
	"github.com/pdiddy/provider-verify/internal/secrets"
	"github.com/pdiddy/provider-verify/pkg/types"
)

// Source produces the outcome of one source for one record. Implementations
// must be safe for concurrent use and should honor ctx cancellation.
type Source interface {
	ID() types.Source
	Outcome(ctx context.Context, rec types.Record) (types.SourceOutcome, error)
}

// ErrRecordAbsent is returned when a source has nothing for a record.
var ErrRecordAbsent = errors.New("record absent")

// Fixture serves outcomes obtained in advance, typically from a batch file.
type Fixture struct {
	source   types.Source
	outcomes map[string]types.SourceOutcome
}

// NewFixture returns a Fixture for source backed by outcomes keyed by record ID.
func NewFixture(source types.Source, outcomes map[string]types.SourceOutcome) *Fixture {
	return &Fixture{source: source, outcomes: outcomes}
}

// ID returns the source this fixture serves.
func (f *Fixture) ID() types.Source { return f.source }

// Outcome returns the stored outcome for rec.
func (f *Fixture) Outcome(ctx context.Context, rec types.Record) (types.SourceOutcome, error) {
	if err := ctx.Err(); err != nil {
		return types.SourceOutcome{}, err
	}
	o, ok := f.outcomes[rec.ID]
	if !ok {
		return types.SourceOutcome{}, fmt.Errorf("%s: %w", f.source, ErrRecordAbsent)
	}
	o.Source = f.source
	return o, nil
}

// Build assembles the sources for a run. Sources with a configured endpoint
// are queried over HTTP; the rest are served from the batch file. When
// cfg.Enabled is empty, every source with an endpoint or batch outcomes is
// used. The result is in AllSources order.
func Build(cfg types.SourcesConfig, batch *intake.Batch, logger *slog.Logger) ([]Source, error) {
	keys, err := secrets.Load(cfg.SecretsDir, logger)
	if err != nil {
		return nil, err
	}

	var fixtures map[types.Source]map[string]types.SourceOutcome
	if batch != nil {
		fixtures = batch.Outcomes()
	}

	enabled := make(map[types.Source]bool)
	for _, s := range cfg.Enabled {
		enabled[s] = true
	}

	var out []Source
	for _, s := range types.AllSources {
		base, hasEndpoint := cfg.Endpoints[s]
		outcomes, hasFixture := fixtures[s]
		if len(enabled) > 0 {
			if !enabled[s] {
				continue
			}
		} else if !hasEndpoint && !hasFixture {
			continue
		}

		switch {
		case hasEndpoint && base != "":
			h, err := NewHTTP(s, base, keys.APIKey(s), cfg.HTTPConfig, logger)
			if err != nil {
				return nil, err
			}
			out = append(out, h)
		default:
			out = append(out, NewFixture(s, outcomes))
		}
	}
	return out, nil
}
