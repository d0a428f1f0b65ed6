package ingest

import (
	"context"

	"github.com/reachops/outreach-gateway/internal/domain"
)

// Projector applies one stored webhook event to the domain tables. The
// projection engine implements it; the gateway and the replay controller
// consume it and own the resulting event-row transition.
type Projector interface {
	Apply(ctx context.Context, event *domain.WebhookEvent) ProjectionOutcome
}

// ProjectionOutcome reports one projection attempt. When Applied is false,
// Reason carries the dead-letter reason and Retryable whether the failure
// was classified transient.
type ProjectionOutcome struct {
	Applied   bool
	Reason    string
	Retryable bool
	Err       error
}
