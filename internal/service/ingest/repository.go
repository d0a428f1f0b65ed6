package ingest

import (
	"context"
	"time"

	"github.com/reachops/outreach-gateway/internal/domain"
)

// EventStore defines the data access contract for the append-only webhook
// event store. Implementations must be safe for concurrent use; Insert must
// rely on a (provider_slug, event_key) uniqueness constraint so concurrent
// deliveries of the same event serialize on the database.
type EventStore interface {
	// Insert appends a new event. Returns ErrDuplicateEvent when an event
	// with the same (provider_slug, event_key) already exists.
	Insert(ctx context.Context, event *domain.WebhookEvent) error

	// UpdateByKey applies the non-nil fields of u to the event addressed by
	// (provider, eventKey). Returns ErrEventNotFound if no row matches.
	UpdateByKey(ctx context.Context, provider, eventKey string, u EventUpdate) error

	// Get returns a single event. Returns ErrEventNotFound if it doesn't exist.
	Get(ctx context.Context, provider, eventKey string) (*domain.WebhookEvent, error)

	// List returns events matching the filter ordered by created_at DESC,
	// plus the total match count for pagination.
	List(ctx context.Context, f EventFilter) ([]domain.WebhookEvent, int, error)
}

// EventUpdate holds the mutable fields of an event row. Nil fields are not
// applied. Payload replaces the stored payload wholesale when non-nil.
type EventUpdate struct {
	Status       *domain.WebhookEventStatus
	Payload      map[string]any
	LastError    *string
	ReplayCount  *int
	LastReplayAt *time.Time
	ProcessedAt  *time.Time
	OrgID        *string
	CompanyID    *string
}

// EventFilter controls filtering and pagination for event listings.
type EventFilter struct {
	Provider  string
	EventType string
	OrgID     string
	CompanyID string
	Statuses  []domain.WebhookEventStatus
	// Reason matches the "_dead_letter".reason payload sub-field.
	Reason string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// TenantResolver resolves the (org, company) scope of a webhook payload by
// joining its external identifiers against local rows. Resolution is
// best-effort: a miss returns empty ids and a nil error; only real storage
// failures surface as errors.
type TenantResolver interface {
	TenantForCampaign(ctx context.Context, providerID, externalCampaignID string) (orgID, companyID string, err error)
	TenantForPiece(ctx context.Context, providerID, externalPieceID string) (orgID, companyID string, err error)
}
