package domain

import "time"

// MessageDirection classifies a campaign message relative to the tenant.
type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
	DirectionUnknown  MessageDirection = "unknown"
)

// CampaignMessage is one message exchanged within a campaign, unique per
// (campaign, provider, external_message_id). The lead link is optional:
// some providers emit message events before the lead is known locally.
type CampaignMessage struct {
	ID                    string           `json:"id" db:"id"`
	OrgID                 string           `json:"org_id" db:"org_id"`
	CompanyID             string           `json:"company_id" db:"company_id"`
	CompanyCampaignID     string           `json:"company_campaign_id" db:"company_campaign_id"`
	CompanyCampaignLeadID *string          `json:"company_campaign_lead_id,omitempty" db:"company_campaign_lead_id"`
	ProviderID            string           `json:"provider_id" db:"provider_id"`
	ExternalMessageID     string           `json:"external_message_id" db:"external_message_id"`
	Direction             MessageDirection `json:"direction" db:"direction"`
	SequenceStepNumber    *int             `json:"sequence_step_number,omitempty" db:"sequence_step_number"`
	Subject               string           `json:"subject,omitempty" db:"subject"`
	Body                  string           `json:"body,omitempty" db:"body"`
	SentAt                *time.Time       `json:"sent_at,omitempty" db:"sent_at"`
	RawPayload            map[string]any   `json:"raw_payload,omitempty" db:"raw_payload"`
	CreatedAt             time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at" db:"updated_at"`
	DeletedAt             *time.Time       `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Inbox is a sender account attached to an outreach provider.
type Inbox struct {
	ID                string     `json:"id" db:"id"`
	OrgID             string     `json:"org_id" db:"org_id"`
	CompanyID         string     `json:"company_id" db:"company_id"`
	ProviderID        string     `json:"provider_id" db:"provider_id"`
	ExternalAccountID string     `json:"external_account_id" db:"external_account_id"`
	Email             string     `json:"email" db:"email"`
	Status            string     `json:"status" db:"status"`
	WarmupEnabled     bool       `json:"warmup_enabled" db:"warmup_enabled"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}
