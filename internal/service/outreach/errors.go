package outreach

import (
	"errors"
	"fmt"

	"github.com/reachops/outreach-gateway/internal/domain"
)

var (
	// ErrValidation marks caller input failures. Mapped to 400.
	ErrValidation = errors.New("validation failed")

	// ErrCampaignNotFound covers both genuinely missing campaigns and
	// cross-tenant probes. Mapped to 404.
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrLeadNotFound     = errors.New("lead not found")
	ErrPieceNotFound    = errors.New("piece not found")
	ErrInboxNotFound    = errors.New("inbox not found")

	// ErrNoEntitlement is returned when the company has no active
	// entitlement for the capability. Mapped to 400.
	ErrNoEntitlement = errors.New("no active entitlement for capability")

	// ErrNoCredentials is returned when the organization has no credentials
	// configured for the entitled provider. Mapped to 400.
	ErrNoCredentials = errors.New("provider credentials not configured")
)

// NotImplementedError is returned when the entitled provider is not wired
// for the capability an operation needs. Mapped to 501 with the capability
// and provider named in the body.
type NotImplementedError struct {
	Capability domain.Capability
	Provider   string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("provider %s does not implement %s", e.Provider, e.Capability)
}
