package projection

import (
	"context"

	"github.com/reachops/outreach-gateway/internal/domain"
)

// CampaignStore is the projection's access to campaign rows. The
// reconciliation runner shares it.
type CampaignStore interface {
	// GetByExternalID resolves a campaign by its provider identifiers.
	// Returns ErrCampaignNotFound if no live row matches.
	GetByExternalID(ctx context.Context, providerID, externalCampaignID string) (*domain.Campaign, error)

	// Create inserts a new campaign row, assigning an id when empty.
	Create(ctx context.Context, c *domain.Campaign) error

	// Update writes the mutable projection fields (name, status,
	// raw_payload, message sync state, updated_at) of an existing row.
	Update(ctx context.Context, c *domain.Campaign) error
}

// LeadStore is the projection's access to campaign lead rows.
type LeadStore interface {
	// GetByExternalID resolves a lead within a campaign. Returns
	// ErrLeadNotFound if no live row matches.
	GetByExternalID(ctx context.Context, campaignID, providerID, externalLeadID string) (*domain.CampaignLead, error)

	// Upsert inserts or replaces a lead keyed by
	// (campaign, provider, external_lead_id), last write wins.
	Upsert(ctx context.Context, l *domain.CampaignLead) error
}

// MessageStore is the projection's access to campaign message rows.
type MessageStore interface {
	// GetByExternalID resolves a message within a campaign. Returns
	// ErrMessageNotFound if no live row matches. The reconciliation runner
	// uses it to tell creates from updates.
	GetByExternalID(ctx context.Context, campaignID, providerID, externalMessageID string) (*domain.CampaignMessage, error)

	// Upsert inserts or replaces a message keyed by
	// (campaign, provider, external_message_id), last write wins.
	Upsert(ctx context.Context, m *domain.CampaignMessage) error
}

// PieceStore is the projection's access to direct-mail piece rows.
type PieceStore interface {
	// GetByExternalID resolves a piece by its provider identifiers.
	// Returns ErrPieceNotFound if no live row matches.
	GetByExternalID(ctx context.Context, providerID, externalPieceID string) (*domain.DirectMailPiece, error)

	// Upsert inserts or replaces a piece keyed by
	// (provider, external_piece_id).
	Upsert(ctx context.Context, p *domain.DirectMailPiece) error
}
