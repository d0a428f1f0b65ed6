package outreach

import (
	"context"

	"github.com/reachops/outreach-gateway/internal/domain"
)

// EntitlementStore resolves which provider serves a capability for a
// company.
type EntitlementStore interface {
	// GetForCapability returns the non-disconnected entitlement for the
	// (org, company, capability) triple, or ErrNoEntitlement.
	GetForCapability(ctx context.Context, orgID, companyID string, capability domain.Capability) (*domain.Entitlement, error)
}

// OrgStore loads organization rows, which carry provider credentials.
type OrgStore interface {
	Get(ctx context.Context, orgID string) (*domain.Organization, error)
}

// CampaignFilter bounds a campaign listing. CompanyID empty means the whole
// organization.
type CampaignFilter struct {
	OrgID     string
	CompanyID string
	Status    string
	Limit     int
	Offset    int
}

// CampaignStore is the service's access to campaign rows. Lookups are
// org-scoped; rows outside the org resolve to ErrCampaignNotFound.
type CampaignStore interface {
	Get(ctx context.Context, orgID, campaignID string) (*domain.Campaign, error)
	List(ctx context.Context, f CampaignFilter) ([]domain.Campaign, int, error)
	Create(ctx context.Context, c *domain.Campaign) error
	Update(ctx context.Context, c *domain.Campaign) error
}

// LeadFilter bounds a lead listing within one campaign.
type LeadFilter struct {
	OrgID      string
	CampaignID string
	Status     string
	Limit      int
	Offset     int
}

// LeadStore is the service's access to campaign lead rows.
type LeadStore interface {
	Get(ctx context.Context, orgID, leadID string) (*domain.CampaignLead, error)
	List(ctx context.Context, f LeadFilter) ([]domain.CampaignLead, int, error)
	Upsert(ctx context.Context, l *domain.CampaignLead) error
	// Delete soft-deletes a lead row.
	Delete(ctx context.Context, leadID string) error
}

// MessageFilter bounds a message listing within one campaign.
type MessageFilter struct {
	OrgID      string
	CampaignID string
	Direction  string
	Limit      int
	Offset     int
}

// MessageStore reads campaign message rows. Messages are write-once from
// the projection side; this service only lists them.
type MessageStore interface {
	List(ctx context.Context, f MessageFilter) ([]domain.CampaignMessage, int, error)
}

// PieceFilter bounds a direct-mail piece listing.
type PieceFilter struct {
	OrgID     string
	CompanyID string
	PieceType string
	Status    string
	Limit     int
	Offset    int
}

// PieceStore is the service's access to direct-mail piece rows.
type PieceStore interface {
	Get(ctx context.Context, orgID, pieceID string) (*domain.DirectMailPiece, error)
	List(ctx context.Context, f PieceFilter) ([]domain.DirectMailPiece, int, error)
	Upsert(ctx context.Context, p *domain.DirectMailPiece) error
}

// InboxStore is the service's access to sender inbox rows.
type InboxStore interface {
	Get(ctx context.Context, orgID, inboxID string) (*domain.Inbox, error)
	Upsert(ctx context.Context, i *domain.Inbox) error
}
