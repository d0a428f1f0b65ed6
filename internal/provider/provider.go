// Package provider defines the capability surfaces the outreach providers
// expose to the core, the error envelope their failures travel in, and the
// registry that binds provider slugs to adapter constructors.
//
// Adapters are stateless: each is constructed from tenant credentials per
// request and never writes local state.
package provider

import (
	"context"
	"time"
)

// Credentials carries the tenant-scoped material an adapter is built from.
// InstanceURL is only set for providers with per-tenant deployments.
type Credentials struct {
	APIKey      string
	InstanceURL string
}

// Campaign is a provider's view of a campaign. Status is the raw provider
// vocabulary; callers normalize.
type Campaign struct {
	ExternalID string
	Name       string
	Status     string
	Raw        map[string]interface{}
}

// Lead is a provider's view of a campaign lead.
type Lead struct {
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
	Status     string
	Raw        map[string]interface{}
}

// Message is a provider's view of a sequenced or conversational message.
type Message struct {
	ExternalID     string
	LeadExternalID string
	Direction      string
	Subject        string
	Body           string
	StepNumber     int
	SentAt         *time.Time
	Raw            map[string]interface{}
}

// SequenceStep is one step of a campaign sequence.
type SequenceStep struct {
	StepNumber int
	Subject    string
	Body       string
	DelayDays  int
	Raw        map[string]interface{}
}

// NewLead is the input shape for adding leads to a campaign.
type NewLead struct {
	Email     string
	FirstName string
	LastName  string
	Fields    map[string]interface{}
}

// Inbox is a provider's view of a sending account.
type Inbox struct {
	ExternalID    string
	Email         string
	Status        string
	WarmupEnabled bool
	Raw           map[string]interface{}
}

// Piece is a direct-mail provider's view of a mail piece.
type Piece struct {
	ExternalID string
	Type       string
	Status     string
	SendDate   *time.Time
	Raw        map[string]interface{}
}

// PieceRequest is the input for creating a direct-mail piece. Params pass
// through to the provider untouched (addresses, artwork, mail class).
// Idempotency material travels either as an Idempotency-Key header or an
// idempotency_key query parameter; supplying both is a contract violation
// the adapter rejects before any HTTP call.
type PieceRequest struct {
	Type              string
	Params            map[string]interface{}
	IdempotencyHeader string
	IdempotencyQuery  string
}

// EmailSequencer is the capability surface of email outreach providers.
type EmailSequencer interface {
	ListCampaigns(ctx context.Context, clientID string, limit int) ([]Campaign, error)
	CreateCampaign(ctx context.Context, name, clientID string) (*Campaign, error)
	UpdateCampaignStatus(ctx context.Context, campaignID, status string) error
	GetSequence(ctx context.Context, campaignID string) ([]SequenceStep, error)
	SaveSequence(ctx context.Context, campaignID string, steps []SequenceStep) error
	ListLeads(ctx context.Context, campaignID string, limit int) ([]Lead, error)
	AddLeads(ctx context.Context, campaignID string, leads []NewLead) (int, error)
	RemoveLead(ctx context.Context, campaignID, leadID string) error
	UpdateLeadCategory(ctx context.Context, campaignID, leadID, category string) error
	CampaignAnalytics(ctx context.Context, campaignID string) (map[string]interface{}, error)
	ListInboxes(ctx context.Context, limit int) ([]Inbox, error)
	SetWarmup(ctx context.Context, accountID string, enabled bool) error
}

// LinkedInOutreach is the capability surface of LinkedIn outreach providers.
type LinkedInOutreach interface {
	ListCampaigns(ctx context.Context, limit int) ([]Campaign, error)
	UpdateCampaignStatus(ctx context.Context, campaignID, status string) error
	ListLeads(ctx context.Context, campaignID string, limit int) ([]Lead, error)
	ListConversations(ctx context.Context, campaignID string, limit int) ([]Message, error)
}

// DirectMail is the capability surface of direct-mail providers.
type DirectMail interface {
	CreatePiece(ctx context.Context, req PieceRequest) (*Piece, error)
	ListPieces(ctx context.Context, pieceType string, limit int) ([]Piece, error)
	GetPiece(ctx context.Context, pieceType, pieceID string) (*Piece, error)
	CancelPiece(ctx context.Context, pieceType, pieceID string) error
}
