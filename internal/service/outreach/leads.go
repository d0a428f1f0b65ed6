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

// NewLead is one recipient to add to a campaign.
type NewLead struct {
	Email     string
	FirstName string
	LastName  string
	Fields    map[string]interface{}
}

// AddLeadsInput adds recipients to an email campaign.
type AddLeadsInput struct {
	CompanyID  string
	CampaignID string
	Leads      []NewLead
}

// AddLeads pushes the batch to the provider, then seeds local rows keyed by
// email. Webhooks and reconciliation refine them with provider lead ids
// later.
func (s *Service) AddLeads(ctx context.Context, auth scope.AuthContext, in AddLeadsInput) (int, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: in.CompanyID}, false)
	if err != nil {
		return 0, err
	}
	if len(in.Leads) == 0 {
		return 0, fmt.Errorf("%w: at least one lead required", ErrValidation)
	}
	batch := make([]provider.NewLead, 0, len(in.Leads))
	for i, l := range in.Leads {
		email := strings.TrimSpace(strings.ToLower(l.Email))
		if email == "" || !strings.Contains(email, "@") {
			return 0, fmt.Errorf("%w: lead %d: valid email required", ErrValidation, i)
		}
		batch = append(batch, provider.NewLead{
			Email:     email,
			FirstName: l.FirstName,
			LastName:  l.LastName,
			Fields:    l.Fields,
		})
	}

	c, err := s.campaignInScope(ctx, sc, in.CampaignID)
	if err != nil {
		return 0, err
	}
	seq, slug, err := s.sequencerFor(ctx, sc.OrgID, c)
	if err != nil {
		return 0, err
	}

	s.dispatched(slug, "add_leads")
	added, err := seq.AddLeads(ctx, c.ExternalCampaignID, batch)
	if err != nil {
		return 0, s.providerFailure(slug, "add_leads", err)
	}

	// The add call returns a count, not per-lead ids, so the seed rows key
	// on email until an event or sweep supplies the provider id.
	now := time.Now().UTC()
	for _, l := range batch {
		row := &domain.CampaignLead{
			OrgID:             c.OrgID,
			CompanyID:         c.CompanyID,
			CompanyCampaignID: c.ID,
			ProviderID:        c.ProviderID,
			ExternalLeadID:    l.Email,
			Email:             l.Email,
			FirstName:         l.FirstName,
			LastName:          l.LastName,
			Status:            domain.LeadPending,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.stores.Leads.Upsert(ctx, row); err != nil {
			return added, fmt.Errorf("persist lead %s: %w", l.Email, err)
		}
	}

	logger.Info("leads.added", "provider", slug, "campaign_id", c.ID, "count", added)
	return added, nil
}

// RemoveLeadInput removes one lead from its campaign.
type RemoveLeadInput struct {
	CompanyID  string
	CampaignID string
	LeadID     string
}

// RemoveLead removes the lead at the provider, then soft-deletes the local
// row.
func (s *Service) RemoveLead(ctx context.Context, auth scope.AuthContext, in RemoveLeadInput) error {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: in.CompanyID}, false)
	if err != nil {
		return err
	}
	c, err := s.campaignInScope(ctx, sc, in.CampaignID)
	if err != nil {
		return err
	}
	lead, err := s.stores.Leads.Get(ctx, sc.OrgID, in.LeadID)
	if err != nil {
		return err
	}
	if lead.CompanyCampaignID != c.ID {
		return ErrLeadNotFound
	}

	seq, slug, err := s.sequencerFor(ctx, sc.OrgID, c)
	if err != nil {
		return err
	}

	s.dispatched(slug, "remove_lead")
	if err := seq.RemoveLead(ctx, c.ExternalCampaignID, lead.ExternalLeadID); err != nil {
		return s.providerFailure(slug, "remove_lead", err)
	}
	if err := s.stores.Leads.Delete(ctx, lead.ID); err != nil {
		return fmt.Errorf("delete lead %s: %w", lead.ID, err)
	}
	logger.Info("lead.removed", "provider", slug, "campaign_id", c.ID, "lead_id", lead.ID)
	return nil
}

// UpdateLeadCategoryInput reclassifies one lead at the provider
// ("interested", "not_interested", ...).
type UpdateLeadCategoryInput struct {
	CompanyID  string
	CampaignID string
	LeadID     string
	Category   string
}

// UpdateLeadCategory dispatches the reclassification, then converges the
// local status through the normalizer.
func (s *Service) UpdateLeadCategory(ctx context.Context, auth scope.AuthContext, in UpdateLeadCategoryInput) (*domain.CampaignLead, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: in.CompanyID}, false)
	if err != nil {
		return nil, err
	}
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if category == "" {
		return nil, fmt.Errorf("%w: category required", ErrValidation)
	}

	c, err := s.campaignInScope(ctx, sc, in.CampaignID)
	if err != nil {
		return nil, err
	}
	lead, err := s.stores.Leads.Get(ctx, sc.OrgID, in.LeadID)
	if err != nil {
		return nil, err
	}
	if lead.CompanyCampaignID != c.ID {
		return nil, ErrLeadNotFound
	}

	seq, slug, err := s.sequencerFor(ctx, sc.OrgID, c)
	if err != nil {
		return nil, err
	}

	s.dispatched(slug, "update_lead_category")
	if err := seq.UpdateLeadCategory(ctx, c.ExternalCampaignID, lead.ExternalLeadID, category); err != nil {
		return nil, s.providerFailure(slug, "update_lead_category", err)
	}

	lead.Status = domain.NormalizeLeadStatus(category)
	lead.UpdatedAt = time.Now().UTC()
	if err := s.stores.Leads.Upsert(ctx, lead); err != nil {
		return nil, fmt.Errorf("persist lead: %w", err)
	}
	return lead, nil
}

// ListLeadsInput bounds a local lead listing within one campaign.
type ListLeadsInput struct {
	CompanyID  string
	CampaignID string
	Status     string
	Limit      int
	Offset     int
}

// ListLeads serves from the local projection tables.
func (s *Service) ListLeads(ctx context.Context, auth scope.AuthContext, in ListLeadsInput) ([]domain.CampaignLead, int, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: in.CompanyID}, true)
	if err != nil {
		return nil, 0, err
	}
	c, err := s.campaignInScope(ctx, sc, in.CampaignID)
	if err != nil {
		return nil, 0, err
	}
	limit, offset := clampPage(in.Limit, in.Offset)
	return s.stores.Leads.List(ctx, LeadFilter{
		OrgID:      sc.OrgID,
		CampaignID: c.ID,
		Status:     in.Status,
		Limit:      limit,
		Offset:     offset,
	})
}
