package domain

import (
	"strings"
	"time"
)

// Capability is a coarse feature area a tenant can be entitled to.
// A provider fulfils exactly one capability.
type Capability string

const (
	CapabilityEmailOutreach    Capability = "email_outreach"
	CapabilityLinkedInOutreach Capability = "linkedin_outreach"
	CapabilityDirectMail       Capability = "direct_mail"
)

// Provider slugs for the vendors wired into the gateway.
const (
	ProviderSmartlead  = "smartlead"
	ProviderEmailBison = "emailbison"
	ProviderHeyReach   = "heyreach"
	ProviderLob        = "lob"
)

// ProviderConfig holds tenant-scoped credentials for one provider.
// Credentials live on the organization, never per-user, and are read
// per-request rather than cached.
type ProviderConfig struct {
	APIKey      string `json:"api_key"`
	InstanceURL string `json:"instance_url,omitempty"`
}

// Organization owns every other entity. Soft-deletable.
type Organization struct {
	ID              string                    `json:"id" db:"id"`
	Slug            string                    `json:"slug" db:"slug"`
	Name            string                    `json:"name" db:"name"`
	ProviderConfigs map[string]ProviderConfig `json:"provider_configs" db:"provider_configs"`
	CreatedAt       time.Time                 `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at" db:"updated_at"`
	DeletedAt       *time.Time                `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Company is a tenant sub-division owned by one organization. Every
// downstream row carries both org_id and company_id and they must agree.
type Company struct {
	ID        string     `json:"id" db:"id"`
	OrgID     string     `json:"org_id" db:"org_id"`
	Name      string     `json:"name" db:"name"`
	Status    string     `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// EntitlementStatus tracks the wiring state of a company/capability pair.
type EntitlementStatus string

const (
	EntitlementEntitled     EntitlementStatus = "entitled"
	EntitlementConnected    EntitlementStatus = "connected"
	EntitlementDisconnected EntitlementStatus = "disconnected"
)

// Entitlement wires one company to one provider for one capability.
// At most one entitlement exists per (company, capability); the provider
// choice for a capability is decided here, never per request.
type Entitlement struct {
	ID             string            `json:"id" db:"id"`
	OrgID          string            `json:"org_id" db:"org_id"`
	CompanyID      string            `json:"company_id" db:"company_id"`
	CapabilityID   Capability        `json:"capability_id" db:"capability_id"`
	ProviderID     string            `json:"provider_id" db:"provider_id"`
	ProviderSlug   string            `json:"provider_slug" db:"provider_slug"`
	Status         EntitlementStatus `json:"status" db:"status"`
	ProviderConfig map[string]any    `json:"provider_config" db:"provider_config"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
	DeletedAt      *time.Time        `json:"deleted_at,omitempty" db:"deleted_at"`
}

// ProviderIDForSlug derives the stable provider row id for a slug
// ("smartlead" -> "prov_smartlead"). Provider rows are seeded, not
// user-created, so the mapping is fixed.
func ProviderIDForSlug(slug string) string {
	return "prov_" + slug
}

// SlugForProviderID is the inverse of ProviderIDForSlug.
func SlugForProviderID(providerID string) string {
	return strings.TrimPrefix(providerID, "prov_")
}

// CapabilityForProvider returns the capability a provider slug fulfils.
// The second return is false for unknown slugs.
func CapabilityForProvider(slug string) (Capability, bool) {
	switch slug {
	case ProviderSmartlead, ProviderEmailBison:
		return CapabilityEmailOutreach, true
	case ProviderHeyReach:
		return CapabilityLinkedInOutreach, true
	case ProviderLob:
		return CapabilityDirectMail, true
	default:
		return "", false
	}
}
