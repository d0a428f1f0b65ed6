package outreach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/pkg/logger"
	"github.com/reachops/outreach-gateway/internal/provider"
	"github.com/reachops/outreach-gateway/internal/scope"
)

// CreateCampaignInput creates a campaign on the company's entitled email
// provider.
type CreateCampaignInput struct {
	CompanyID string
	Name      string
}

// CreateCampaign provisions the campaign at the provider, then persists the
// local row. The provider's identifier is authoritative.
func (s *Service) CreateCampaign(ctx context.Context, auth scope.AuthContext, in CreateCampaignInput) (*domain.Campaign, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: in.CompanyID}, false)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}

	ent, creds, err := s.tenant(ctx, sc, domain.CapabilityEmailOutreach)
	if err != nil {
		return nil, err
	}
	seq, ok := s.providers.EmailSequencer(ent.ProviderSlug, creds)
	if !ok {
		return nil, &NotImplementedError{Capability: domain.CapabilityEmailOutreach, Provider: ent.ProviderSlug}
	}

	clientID := domain.PayloadString(ent.ProviderConfig, ent.ProviderSlug+"_client_id", "client_id")
	s.dispatched(ent.ProviderSlug, "create_campaign")
	pc, err := seq.CreateCampaign(ctx, in.Name, clientID)
	if err != nil {
		return nil, s.providerFailure(ent.ProviderSlug, "create_campaign", err)
	}

	now := time.Now().UTC()
	userID := auth.UserID
	c := &domain.Campaign{
		OrgID:              sc.OrgID,
		CompanyID:          *sc.CompanyID,
		ProviderID:         ent.ProviderID,
		ExternalCampaignID: pc.ExternalID,
		Name:               in.Name,
		Status:             domain.NormalizeCampaignStatus(pc.Status),
		CreatedByUserID:    &userID,
		RawPayload:         pc.Raw,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if pc.Name != "" {
		c.Name = pc.Name
	}
	if err := s.stores.Campaigns.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("persist campaign: %w", err)
	}
	logger.Info("campaign.created", "provider", ent.ProviderSlug, "campaign_id", c.ID, "external_id", c.ExternalCampaignID)
	return c, nil
}

// ListCampaignsInput bounds a local campaign listing. Org admins may list
// across companies with AllCompanies.
type ListCampaignsInput struct {
	CompanyID    string
	AllCompanies bool
	Status       string
	Limit        int
	Offset       int
}

// ListCampaigns serves from the local projection tables.
func (s *Service) ListCampaigns(ctx context.Context, auth scope.AuthContext, in ListCampaignsInput) ([]domain.Campaign, int, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: in.CompanyID, AllCompanies: in.AllCompanies}, true)
	if err != nil {
		return nil, 0, err
	}
	limit, offset := clampPage(in.Limit, in.Offset)
	// Stored statuses are the uppercase canonical enum.
	f := CampaignFilter{OrgID: sc.OrgID, Status: strings.ToUpper(strings.TrimSpace(in.Status)), Limit: limit, Offset: offset}
	if sc.CompanyID != nil {
		f.CompanyID = *sc.CompanyID
	}
	return s.stores.Campaigns.List(ctx, f)
}

// GetCampaign loads one campaign within the caller's scope.
func (s *Service) GetCampaign(ctx context.Context, auth scope.AuthContext, companyID, campaignID string) (*domain.Campaign, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: companyID}, true)
	if err != nil {
		return nil, err
	}
	return s.campaignInScope(ctx, sc, campaignID)
}

// Statuses a caller may set. Lifecycle states the provider owns (DRAFTED,
// COMPLETED) are not settable.
var settableCampaignStatuses = map[string]bool{
	"active":  true,
	"paused":  true,
	"stopped": true,
}

// UpdateCampaignStatusInput changes a campaign's lifecycle state at the
// provider and locally.
type UpdateCampaignStatusInput struct {
	CompanyID  string
	CampaignID string
	Status     string
}

// UpdateCampaignStatus dispatches the transition to the provider owning the
// campaign, then converges the local row.
func (s *Service) UpdateCampaignStatus(ctx context.Context, auth scope.AuthContext, in UpdateCampaignStatusInput) (*domain.Campaign, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: in.CompanyID}, true)
	if err != nil {
		return nil, err
	}
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if !settableCampaignStatuses[status] {
		return nil, fmt.Errorf("%w: status must be active, paused, or stopped", ErrValidation)
	}

	c, err := s.campaignInScope(ctx, sc, in.CampaignID)
	if err != nil {
		return nil, err
	}

	slug := domain.SlugForProviderID(c.ProviderID)
	capability, _ := domain.CapabilityForProvider(slug)
	creds, err := s.credentials(ctx, sc.OrgID, slug)
	if err != nil {
		return nil, err
	}

	s.dispatched(slug, "update_campaign_status")
	switch capability {
	case domain.CapabilityEmailOutreach:
		seq, ok := s.providers.EmailSequencer(slug, creds)
		if !ok {
			return nil, &NotImplementedError{Capability: capability, Provider: slug}
		}
		err = seq.UpdateCampaignStatus(ctx, c.ExternalCampaignID, status)
	case domain.CapabilityLinkedInOutreach:
		lnk, ok := s.providers.LinkedIn(slug, creds)
		if !ok {
			return nil, &NotImplementedError{Capability: capability, Provider: slug}
		}
		err = lnk.UpdateCampaignStatus(ctx, c.ExternalCampaignID, status)
	default:
		return nil, &NotImplementedError{Capability: capability, Provider: slug}
	}
	if err != nil {
		return nil, s.providerFailure(slug, "update_campaign_status", err)
	}

	c.Status = domain.NormalizeCampaignStatus(status)
	c.UpdatedAt = time.Now().UTC()
	if err := s.stores.Campaigns.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("persist campaign status: %w", err)
	}
	logger.Info("campaign.status_updated", "provider", slug, "campaign_id", c.ID, "status", string(c.Status))
	return c, nil
}

// CampaignAnalytics proxies the provider's analytics for one campaign.
// Point-in-time, nothing persisted.
func (s *Service) CampaignAnalytics(ctx context.Context, auth scope.AuthContext, companyID, campaignID string) (map[string]interface{}, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: companyID}, true)
	if err != nil {
		return nil, err
	}
	c, err := s.campaignInScope(ctx, sc, campaignID)
	if err != nil {
		return nil, err
	}
	seq, slug, err := s.sequencerFor(ctx, sc.OrgID, c)
	if err != nil {
		return nil, err
	}

	s.dispatched(slug, "campaign_analytics")
	stats, err := seq.CampaignAnalytics(ctx, c.ExternalCampaignID)
	if err != nil {
		return nil, s.providerFailure(slug, "campaign_analytics", err)
	}
	return stats, nil
}

// GetSequence reads a campaign's sequence from the provider. Sequences
// live at the provider only; there is no local table for them.
func (s *Service) GetSequence(ctx context.Context, auth scope.AuthContext, companyID, campaignID string) ([]provider.SequenceStep, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: companyID}, true)
	if err != nil {
		return nil, err
	}
	c, err := s.campaignInScope(ctx, sc, campaignID)
	if err != nil {
		return nil, err
	}
	seq, slug, err := s.sequencerFor(ctx, sc.OrgID, c)
	if err != nil {
		return nil, err
	}

	s.dispatched(slug, "get_sequence")
	steps, err := seq.GetSequence(ctx, c.ExternalCampaignID)
	if err != nil {
		return nil, s.providerFailure(slug, "get_sequence", err)
	}
	return steps, nil
}

// SaveSequenceInput replaces a campaign's sequence at the provider.
type SaveSequenceInput struct {
	CompanyID  string
	CampaignID string
	Steps      []provider.SequenceStep
}

// SaveSequence validates and writes the full sequence.
func (s *Service) SaveSequence(ctx context.Context, auth scope.AuthContext, in SaveSequenceInput) error {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: in.CompanyID}, true)
	if err != nil {
		return err
	}
	if len(in.Steps) == 0 {
		return fmt.Errorf("%w: at least one step required", ErrValidation)
	}
	for i, step := range in.Steps {
		if step.StepNumber < 1 {
			return fmt.Errorf("%w: step %d: step_number must be >= 1", ErrValidation, i)
		}
	}

	c, err := s.campaignInScope(ctx, sc, in.CampaignID)
	if err != nil {
		return err
	}
	seq, slug, err := s.sequencerFor(ctx, sc.OrgID, c)
	if err != nil {
		return err
	}

	s.dispatched(slug, "save_sequence")
	if err := seq.SaveSequence(ctx, c.ExternalCampaignID, in.Steps); err != nil {
		return s.providerFailure(slug, "save_sequence", err)
	}
	logger.Info("campaign.sequence_saved", "provider", slug, "campaign_id", c.ID, "steps", len(in.Steps))
	return nil
}
