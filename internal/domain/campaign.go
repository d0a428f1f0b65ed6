package domain

import "time"

// CampaignStatus enumerates the canonical lifecycle states of a campaign.
// Provider-specific vocabularies are mapped onto this enum by
// NormalizeCampaignStatus.
type CampaignStatus string

const (
	CampaignDrafted   CampaignStatus = "DRAFTED"
	CampaignActive    CampaignStatus = "ACTIVE"
	CampaignPaused    CampaignStatus = "PAUSED"
	CampaignStopped   CampaignStatus = "STOPPED"
	CampaignCompleted CampaignStatus = "COMPLETED"
)

// MessageSyncStatus records the outcome of the most recent message
// reconciliation pass for a campaign.
type MessageSyncStatus string

const (
	MessageSyncSuccess     MessageSyncStatus = "success"
	MessageSyncPartial     MessageSyncStatus = "partial_error"
	MessageSyncSkippedHook MessageSyncStatus = "skipped_webhook_only"
)

// Campaign is the local projection of a provider campaign.
// (provider_id, external_campaign_id) is unique among live rows.
type Campaign struct {
	ID                   string            `json:"id" db:"id"`
	OrgID                string            `json:"org_id" db:"org_id"`
	CompanyID            string            `json:"company_id" db:"company_id"`
	ProviderID           string            `json:"provider_id" db:"provider_id"`
	ExternalCampaignID   string            `json:"external_campaign_id" db:"external_campaign_id"`
	Name                 string            `json:"name" db:"name"`
	Status               CampaignStatus    `json:"status" db:"status"`
	CreatedByUserID      *string           `json:"created_by_user_id,omitempty" db:"created_by_user_id"`
	RawPayload           map[string]any    `json:"raw_payload,omitempty" db:"raw_payload"`
	MessageSyncStatus    MessageSyncStatus `json:"message_sync_status,omitempty" db:"message_sync_status"`
	LastMessageSyncError string            `json:"last_message_sync_error,omitempty" db:"last_message_sync_error"`
	CreatedAt            time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at" db:"updated_at"`
	DeletedAt            *time.Time        `json:"deleted_at,omitempty" db:"deleted_at"`
}

// LeadStatus enumerates normalized lead states across providers.
type LeadStatus string

const (
	LeadActive        LeadStatus = "active"
	LeadContacted     LeadStatus = "contacted"
	LeadReplied       LeadStatus = "replied"
	LeadInterested    LeadStatus = "interested"
	LeadNotInterested LeadStatus = "not_interested"
	LeadBounced       LeadStatus = "bounced"
	LeadUnsubscribed  LeadStatus = "unsubscribed"
	LeadPaused        LeadStatus = "paused"
	LeadPending       LeadStatus = "pending"
	LeadUnknown       LeadStatus = "unknown"
)

// CampaignLead is one recipient inside a campaign, unique per
// (campaign, provider, external_lead_id).
type CampaignLead struct {
	ID                string         `json:"id" db:"id"`
	OrgID             string         `json:"org_id" db:"org_id"`
	CompanyID         string         `json:"company_id" db:"company_id"`
	CompanyCampaignID string         `json:"company_campaign_id" db:"company_campaign_id"`
	ProviderID        string         `json:"provider_id" db:"provider_id"`
	ExternalLeadID    string         `json:"external_lead_id" db:"external_lead_id"`
	Email             string         `json:"email" db:"email"`
	FirstName         string         `json:"first_name,omitempty" db:"first_name"`
	LastName          string         `json:"last_name,omitempty" db:"last_name"`
	Status            LeadStatus     `json:"status" db:"status"`
	RawPayload        map[string]any `json:"raw_payload,omitempty" db:"raw_payload"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
	DeletedAt         *time.Time     `json:"deleted_at,omitempty" db:"deleted_at"`
}
