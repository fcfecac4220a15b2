// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/provider-verify/internal/httputil"
	"github.com/pdiddy/provider-verify/pkg/types"
)

// defaultHTTPTimeout applies when HTTPConfig.Timeout is unset.
const defaultHTTPTimeout = 20 * time.Second

// HTTP queries a verification service that exposes
// GET {base}/records/{id} returning a JSON SourceOutcome.
type HTTP struct {
	source     types.Source
	base       string
	apiKey     string
	userAgent  string
	maxRetries int
	client     *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewHTTP returns an HTTP source. apiKey may be empty.
func NewHTTP(source types.Source, base, apiKey string, cfg types.HTTPConfig, logger *slog.Logger) (*HTTP, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: invalid endpoint %q", source, base)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTP{
		source:     source,
		base:       strings.TrimRight(base, "/"),
		apiKey:     apiKey,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: timeout},
		logger:     logger.With("source", string(source)),
		now:        time.Now,
	}, nil
}

// ID returns the source this adapter queries.
func (h *HTTP) ID() types.Source { return h.source }

// wireOutcome is the service's response body.
type wireOutcome struct {
	Found         bool                `json:"found"`
	Confidence    float64             `json:"confidence"`
	Discrepancies []types.Discrepancy `json:"discrepancies"`
	Data          map[string]string   `json:"data"`
	Error         string              `json:"error"`
	ObservedAt    time.Time           `json:"observed_at"`
}

// Outcome fetches rec's outcome. A 404 or found=false yields an unsuccessful
// outcome rather than an error, keeping the service's advisory confidence.
func (h *HTTP) Outcome(ctx context.Context, rec types.Record) (types.SourceOutcome, error) {
	endpoint := h.base + "/records/" + url.PathEscape(rec.ID)

	header := http.Header{}
	if h.userAgent != "" {
		header.Set("User-Agent", h.userAgent)
	}
	if h.apiKey != "" {
		header.Set("X-Api-Key", h.apiKey)
	}

	var w wireOutcome
	err := httputil.GetJSON(ctx, h.client, endpoint, header, h.maxRetries, h.logger, &w)
	if errors.Is(err, httputil.ErrNotFound) {
		h.logger.DebugContext(ctx, "record not found", "record_id", rec.ID)
		return types.FailedOutcome(h.source, "record not found", h.now()), nil
	}
	if err != nil {
		return types.SourceOutcome{}, fmt.Errorf("%s: %w", h.source, err)
	}

	observed := w.ObservedAt
	if observed.IsZero() {
		observed = h.now()
	}
	if !w.Found {
		msg := w.Error
		if msg == "" {
			msg = "record not found"
		}
		o := types.FailedOutcome(h.source, msg, observed)
		o.Confidence = w.Confidence
		return o, nil
	}
	return types.SourceOutcome{
		Source:        h.source,
		Success:       true,
		Confidence:    w.Confidence,
		Discrepancies: w.Discrepancies,
		Data:          w.Data,
		ObservedAt:    observed,
	}, nil
}
