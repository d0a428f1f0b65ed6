package outreach

import (
	"context"
	"fmt"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/metrics"
	"github.com/reachops/outreach-gateway/internal/pkg/logger"
	"github.com/reachops/outreach-gateway/internal/provider"
	"github.com/reachops/outreach-gateway/internal/scope"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Stores groups the persistence surfaces the service writes through.
type Stores struct {
	Entitlements EntitlementStore
	Orgs         OrgStore
	Campaigns    CampaignStore
	Leads        LeadStore
	Messages     MessageStore
	Pieces       PieceStore
	Inboxes      InboxStore
}

// Service executes the domain operations behind the /api/v1 surface.
type Service struct {
	stores    Stores
	providers *provider.Registry
	reg       *metrics.Registry
}

// NewService wires the domain write service. A nil registry falls back to
// the process-wide one.
func NewService(stores Stores, providers *provider.Registry, reg *metrics.Registry) *Service {
	if reg == nil {
		reg = metrics.Default()
	}
	return &Service{stores: stores, providers: providers, reg: reg}
}

// tenant resolves the entitlement and per-request credentials for one
// capability within an already-resolved company scope.
func (s *Service) tenant(ctx context.Context, sc scope.Scope, capability domain.Capability) (*domain.Entitlement, provider.Credentials, error) {
	if sc.CompanyID == nil {
		return nil, provider.Credentials{}, scope.ErrCompanyRequired
	}
	ent, err := s.stores.Entitlements.GetForCapability(ctx, sc.OrgID, *sc.CompanyID, capability)
	if err != nil {
		return nil, provider.Credentials{}, err
	}
	creds, err := s.credentials(ctx, sc.OrgID, ent.ProviderSlug)
	if err != nil {
		return nil, provider.Credentials{}, err
	}
	return ent, creds, nil
}

// credentials loads the org's provider credentials. Read per request,
// never cached.
func (s *Service) credentials(ctx context.Context, orgID, slug string) (provider.Credentials, error) {
	org, err := s.stores.Orgs.Get(ctx, orgID)
	if err != nil {
		return provider.Credentials{}, fmt.Errorf("load org %s: %w", orgID, err)
	}
	cfg, ok := org.ProviderConfigs[slug]
	if !ok || cfg.APIKey == "" {
		return provider.Credentials{}, fmt.Errorf("%w: %s", ErrNoCredentials, slug)
	}
	return provider.Credentials{APIKey: cfg.APIKey, InstanceURL: cfg.InstanceURL}, nil
}

// campaignInScope loads a campaign and enforces tenant isolation: rows
// outside the caller's org or company resolve to ErrCampaignNotFound.
func (s *Service) campaignInScope(ctx context.Context, sc scope.Scope, campaignID string) (*domain.Campaign, error) {
	c, err := s.stores.Campaigns.Get(ctx, sc.OrgID, campaignID)
	if err != nil {
		return nil, err
	}
	if sc.CompanyID != nil && c.CompanyID != *sc.CompanyID {
		return nil, ErrCampaignNotFound
	}
	return c, nil
}

// sequencerFor builds the email adapter serving a campaign row. Campaigns
// on non-email providers cannot take sequencer operations.
func (s *Service) sequencerFor(ctx context.Context, orgID string, c *domain.Campaign) (provider.EmailSequencer, string, error) {
	slug := domain.SlugForProviderID(c.ProviderID)
	capability, ok := domain.CapabilityForProvider(slug)
	if !ok || capability != domain.CapabilityEmailOutreach {
		return nil, slug, &NotImplementedError{Capability: domain.CapabilityEmailOutreach, Provider: slug}
	}
	creds, err := s.credentials(ctx, orgID, slug)
	if err != nil {
		return nil, slug, err
	}
	seq, ok := s.providers.EmailSequencer(slug, creds)
	if !ok {
		return nil, slug, &NotImplementedError{Capability: domain.CapabilityEmailOutreach, Provider: slug}
	}
	return seq, slug, nil
}

// dispatched counts an adapter call; providerFailure counts and logs its
// failure, passing the envelope through untouched.
func (s *Service) dispatched(slug, operation string) {
	s.reg.Incr(metrics.CounterProviderDispatch, map[string]string{"provider": slug, "operation": operation})
}

func (s *Service) providerFailure(slug, operation string, err error) error {
	category := string(provider.CategoryUnknown)
	if pe, ok := provider.AsError(err); ok {
		category = string(pe.Category)
	}
	s.reg.Incr(metrics.CounterProviderError, map[string]string{
		"provider":  slug,
		"operation": operation,
		"category":  category,
	})
	logger.Warn("provider.call_failed", "provider", slug, "operation", operation, "category", category, "error", err.Error())
	return err
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
