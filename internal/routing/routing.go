// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package routing decides and carries out what happens to each assessed
// record: auto-approved records have their high-confidence corrections
// applied, and everything else becomes a review ticket. Urgent records get a
// high-priority ticket and a notification.
package routing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/provider-verify/internal/logging"
	"github.com/pdiddy/provider-verify/internal/metrics"
	"github.com/pdiddy/provider-verify/pkg/types"
)

// AutoApplyConfidence is the minimum discrepancy confidence for its
// validated value to be written back on auto-update.
const AutoApplyConfidence = 85.0

// Kind names a routing action.
type Kind string

const (
	KindAutoUpdate   Kind = "auto_update"
	KindReviewTicket Kind = "review_ticket"
	KindUrgentTicket Kind = "urgent_ticket"
)

// Plan is the action chosen for one result.
type Plan struct {
	Kind    Kind
	Updates []types.FieldUpdate
	Ticket  *types.Ticket
	Notify  bool
}

// Route chooses the action for res. It performs no I/O.
func Route(res types.AggregateResult, now time.Time) Plan {
	switch res.Disposition() {
	case types.DispositionAutoAccept:
		var updates []types.FieldUpdate
		for _, d := range res.Discrepancies {
			if d.Confidence < AutoApplyConfidence {
				continue
			}
			updates = append(updates, types.FieldUpdate{
				RecordID:   res.RecordID,
				ResultID:   res.ID,
				Field:      d.Field,
				OldValue:   d.CurrentValue,
				NewValue:   d.ValidatedValue,
				Source:     d.Source,
				Confidence: d.Confidence,
				AppliedAt:  now,
			})
		}
		return Plan{Kind: KindAutoUpdate, Updates: updates}
	case types.DispositionUrgent:
		return Plan{Kind: KindUrgentTicket, Ticket: newTicket(res, types.PriorityHigh, now), Notify: true}
	default:
		// Errors get a ticket too so a person looks at them.
		return Plan{Kind: KindReviewTicket, Ticket: newTicket(res, types.PriorityMedium, now)}
	}
}

func newTicket(res types.AggregateResult, p types.Priority, now time.Time) *types.Ticket {
	ds := make([]types.Discrepancy, len(res.Discrepancies))
	copy(ds, res.Discrepancies)
	return &types.Ticket{
		ID:            uuid.NewString(),
		RecordID:      res.RecordID,
		ResultID:      res.ID,
		Priority:      p,
		Status:        types.TicketOpen,
		Discrepancies: ds,
		Notes:         []string{fmt.Sprintf("Auto-generated ticket for %s validation", res.Status)},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Store persists the outcome of routing.
type Store interface {
	CreateTicket(ctx context.Context, t types.Ticket) error
	ApplyUpdates(ctx context.Context, updates []types.FieldUpdate) error
}

// Notifier alerts reviewers about an urgent record.
type Notifier interface {
	NotifyUrgent(ctx context.Context, rec types.Record, res types.AggregateResult, ticket types.Ticket) error
}

// LogNotifier delivers urgent notifications as warning log entries.
type LogNotifier struct {
	Logger *slog.Logger
}

// NotifyUrgent logs the alert.
func (n LogNotifier) NotifyUrgent(ctx context.Context, rec types.Record, res types.AggregateResult, ticket types.Ticket) error {
	logging.OrDiscard(n.Logger).WarnContext(ctx, "urgent review required",
		"record_id", rec.ID,
		"provider", rec.DisplayName(),
		"confidence", res.Confidence,
		"ticket_id", ticket.ID,
		"discrepancies", res.TotalDiscrepancies,
	)
	return nil
}

// Dispatcher executes routing plans against a Store. It satisfies the
// pipeline's act stage.
type Dispatcher struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithNotifier sets the urgent notifier. The default logs.
func WithNotifier(n Notifier) Option { return func(d *Dispatcher) { d.notifier = n } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(d *Dispatcher) { d.logger = logging.OrDiscard(l) } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option { return func(d *Dispatcher) { d.metrics = m } }

// WithClock sets the clock used for ticket and update timestamps.
func WithClock(clock func() time.Time) Option { return func(d *Dispatcher) { d.now = clock } }

// NewDispatcher returns a Dispatcher writing to store.
func NewDispatcher(store Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{store: store, logger: logging.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	if d.notifier == nil {
		d.notifier = LogNotifier{Logger: d.logger}
	}
	return d
}

// Act routes one result and reports what was done. A notification failure
// is logged and does not fail the action, since the ticket already exists.
func (d *Dispatcher) Act(ctx context.Context, rec types.Record, res types.AggregateResult) (types.ActionSummary, error) {
	plan := Route(res, d.now())
	sum := types.ActionSummary{Processed: 1}

	switch plan.Kind {
	case KindAutoUpdate:
		if len(plan.Updates) > 0 {
			if err := d.store.ApplyUpdates(ctx, plan.Updates); err != nil {
				return types.ActionSummary{}, fmt.Errorf("applying updates for %s: %w", rec.ID, err)
			}
		}
		sum.AutoUpdated = 1
		sum.FieldUpdates = len(plan.Updates)
		d.logger.DebugContext(ctx, "record auto-updated", "record_id", rec.ID, "fields", len(plan.Updates))

	case KindReviewTicket, KindUrgentTicket:
		if err := d.store.CreateTicket(ctx, *plan.Ticket); err != nil {
			return types.ActionSummary{}, fmt.Errorf("creating ticket for %s: %w", rec.ID, err)
		}
		sum.TicketsCreated = 1
		if plan.Notify {
			sum.UrgentTickets = 1
			if err := d.notifier.NotifyUrgent(ctx, rec, res, *plan.Ticket); err != nil {
				d.logger.ErrorContext(ctx, "urgent notification failed", "record_id", rec.ID, "error", err)
			}
		}
		d.logger.DebugContext(ctx, "ticket created",
			"record_id", rec.ID, "ticket_id", plan.Ticket.ID, "priority", string(plan.Ticket.Priority))
	}

	d.metrics.IncrementAction(string(plan.Kind))
	return sum, nil
}
