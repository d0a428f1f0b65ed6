package reconcile

import (
	"context"

	"github.com/reachops/outreach-gateway/internal/domain"
)

// EntitlementStore lists the entitlements a run iterates. Implementations
// exclude soft-deleted and disconnected rows.
type EntitlementStore interface {
	ListActive(ctx context.Context, f EntitlementFilter) ([]domain.Entitlement, error)
}

// EntitlementFilter narrows a run to one provider, org, or company. Empty
// fields match everything.
type EntitlementFilter struct {
	ProviderSlug string
	OrgID        string
	CompanyID    string
}

// OrgStore loads organizations for their provider credentials. Credentials
// are read per run, never cached across runs.
type OrgStore interface {
	Get(ctx context.Context, orgID string) (*domain.Organization, error)
}
