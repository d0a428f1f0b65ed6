package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/reachops/outreach-gateway/internal/config"
	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/metrics"
	"github.com/reachops/outreach-gateway/internal/pkg/logger"
	"github.com/reachops/outreach-gateway/internal/service/ingest"
)

// Replay status filter values.
const (
	ReplayStatusAll      = "all"
	ReplayStatusPending  = "pending"
	ReplayStatusReplayed = "replayed"
)

// MaxWindowDays caps the listing window; events older than this are
// reachable only by key.
const MaxWindowDays = 93

const defaultPageSize = 50

// ListFilter selects events for the operator listing endpoints.
type ListFilter struct {
	Provider     string
	From         *time.Time
	To           *time.Time
	Reason       string
	ReplayStatus string
	OrgID        string
	Limit        int
	Offset       int
}

// Controller is the dead-letter and replay surface over the event store.
type Controller struct {
	store     ingest.EventStore
	projector ingest.Projector
	persister *metrics.Persister
	reg       *metrics.Registry
	cfg       config.ReplayConfig
}

// NewController creates a replay controller. The persister is optional; when
// present a metrics snapshot is persisted after every bulk run. A nil
// registry falls back to the process-wide one.
func NewController(store ingest.EventStore, projector ingest.Projector, persister *metrics.Persister, cfg config.ReplayConfig, reg *metrics.Registry) *Controller {
	if reg == nil {
		reg = metrics.Default()
	}
	return &Controller{store: store, projector: projector, persister: persister, reg: reg, cfg: cfg}
}

// List returns dead-lettered or replayed events matching the filter plus the
// total match count. The time window defaults to the last MaxWindowDays and
// never extends beyond it.
func (c *Controller) List(ctx context.Context, f ListFilter) ([]domain.WebhookEvent, int, error) {
	ef, err := c.eventFilter(f)
	if err != nil {
		return nil, 0, err
	}
	return c.store.List(ctx, ef)
}

// Get returns one event with its full payload, including the "_ingestion"
// and "_dead_letter" sub-records.
func (c *Controller) Get(ctx context.Context, provider, eventKey string) (*domain.WebhookEvent, error) {
	return c.store.Get(ctx, provider, eventKey)
}

// ReplayOne re-applies the projection for a single event. On success the
// row moves to "replayed" with replay_count incremented; on failure it is
// re-marked "dead_letter" with the new error and the returned error is a
// *Error carrying the retryable classification.
func (c *Controller) ReplayOne(ctx context.Context, provider, eventKey string) (*domain.WebhookEvent, error) {
	event, err := c.store.Get(ctx, provider, eventKey)
	if err != nil {
		return nil, err
	}
	return c.replayEvent(ctx, event)
}

func (c *Controller) eventFilter(f ListFilter) (ingest.EventFilter, error) {
	statuses, err := statusesFor(f.ReplayStatus)
	if err != nil {
		return ingest.EventFilter{}, err
	}
	from, to := clampWindow(f.From, f.To)
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	return ingest.EventFilter{
		Provider: f.Provider,
		OrgID:    f.OrgID,
		Statuses: statuses,
		Reason:   f.Reason,
		From:     &from,
		To:       &to,
		Limit:    limit,
		Offset:   f.Offset,
	}, nil
}

func statusesFor(s string) ([]domain.WebhookEventStatus, error) {
	switch s {
	case "", ReplayStatusAll:
		return []domain.WebhookEventStatus{domain.EventDeadLetter, domain.EventReplayed}, nil
	case ReplayStatusPending:
		return []domain.WebhookEventStatus{domain.EventDeadLetter}, nil
	case ReplayStatusReplayed:
		return []domain.WebhookEventStatus{domain.EventReplayed}, nil
	default:
		return nil, fmt.Errorf("%w: replay_status %q", ErrInvalidFilter, s)
	}
}

// clampWindow fills window defaults and enforces the MaxWindowDays cap on
// the requested range.
func clampWindow(from, to *time.Time) (time.Time, time.Time) {
	end := time.Now().UTC()
	if to != nil {
		end = to.UTC()
	}
	start := end.AddDate(0, 0, -MaxWindowDays)
	if from != nil && from.After(start) {
		start = from.UTC()
	}
	return start, end
}

// replayEvent applies the projection and finalizes the event row. The event
// is mutated in place so the stored copy and the caller's view agree.
func (c *Controller) replayEvent(ctx context.Context, event *domain.WebhookEvent) (*domain.WebhookEvent, error) {
	outcome := c.projector.Apply(ctx, event)
	now := time.Now().UTC()

	if outcome.Applied {
		status := domain.EventReplayed
		count := event.ReplayCount + 1
		noError := ""
		update := ingest.EventUpdate{
			Status:       &status,
			ReplayCount:  &count,
			LastReplayAt: &now,
			LastError:    &noError,
		}
		if err := c.store.UpdateByKey(ctx, event.ProviderSlug, event.EventKey, update); err != nil {
			return nil, fmt.Errorf("finalize replay %s/%s: %w", event.ProviderSlug, event.EventKey, err)
		}
		c.reg.Incr(metrics.CounterReplaySuccess, map[string]string{"provider": event.ProviderSlug})
		logger.Info("replay.succeeded",
			"provider", event.ProviderSlug, "event_key", event.EventKey, "replay_count", count)
		event.Status = status
		event.ReplayCount = count
		event.LastReplayAt = &now
		event.LastError = ""
		return event, nil
	}

	cause := outcome.Err.Error()
	rec := domain.DeadLetterRecord{Reason: outcome.Reason, Retryable: outcome.Retryable, Error: cause, RecordedAt: now}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}
	event.Payload[domain.PayloadKeyDeadLetter] = rec.AsPayload()
	event.Status = domain.EventDeadLetter
	event.LastError = cause

	status := domain.EventDeadLetter
	update := ingest.EventUpdate{Status: &status, Payload: event.Payload, LastError: &cause}
	if err := c.store.UpdateByKey(ctx, event.ProviderSlug, event.EventKey, update); err != nil {
		return nil, fmt.Errorf("re-mark dead letter %s/%s: %w", event.ProviderSlug, event.EventKey, err)
	}
	c.reg.Incr(metrics.CounterReplayFailure, map[string]string{"provider": event.ProviderSlug})
	logger.Warn("replay.failed",
		"provider", event.ProviderSlug, "event_key", event.EventKey,
		"reason", outcome.Reason, "retryable", outcome.Retryable)
	return event, &Error{
		Provider:  event.ProviderSlug,
		EventKey:  event.EventKey,
		Reason:    outcome.Reason,
		Retryable: outcome.Retryable,
		Err:       outcome.Err,
	}
}
