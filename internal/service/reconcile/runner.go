package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/metrics"
	"github.com/reachops/outreach-gateway/internal/pkg/logger"
	"github.com/reachops/outreach-gateway/internal/provider"
	"github.com/reachops/outreach-gateway/internal/service/projection"
)

// Default listing bounds when the request omits them.
const (
	defaultCampaignLimit = 50
	defaultLeadLimit     = 100
	defaultMessageLimit  = 100
)

// Message sync modes. Providers without a message read surface are
// webhook_only regardless of configuration.
const (
	SyncWebhookOnly    = "webhook_only"
	SyncPullBestEffort = "pull_best_effort"
)

// Params bounds one reconciliation run. Empty selector fields match
// everything; zero limits fall back to the defaults. DryRun is decided by
// the caller (the HTTP layer defaults omitted bodies to true).
type Params struct {
	ProviderSlug  string
	OrgID         string
	CompanyID     string
	DryRun        bool
	CampaignLimit int
	LeadLimit     int
	MessageLimit  int
}

// ProviderStats accumulates one provider's counts across companies.
type ProviderStats struct {
	CompaniesScanned int      `json:"companies_scanned"`
	CampaignsScanned int      `json:"campaigns_scanned"`
	CampaignsCreated int      `json:"campaigns_created"`
	CampaignsUpdated int      `json:"campaigns_updated"`
	LeadsScanned     int      `json:"leads_scanned"`
	LeadsCreated     int      `json:"leads_created"`
	LeadsUpdated     int      `json:"leads_updated"`
	MessagesScanned  int      `json:"messages_scanned"`
	MessagesCreated  int      `json:"messages_created"`
	MessagesUpdated  int      `json:"messages_updated"`
	Errors           []string `json:"errors"`
}

func (s *ProviderStats) addError(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}

// Report is the outcome of one run, keyed by provider slug.
type Report struct {
	DryRun     bool                      `json:"dry_run"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
	Providers  map[string]*ProviderStats `json:"providers"`
}

func (r *Report) stats(slug string) *ProviderStats {
	if r.Providers[slug] == nil {
		r.Providers[slug] = &ProviderStats{Errors: []string{}}
	}
	return r.Providers[slug]
}

// Stores groups the local-row access the runner reconciles against. The
// campaign, lead, and message interfaces are shared with the projection
// engine so both write through the same contract.
type Stores struct {
	Entitlements EntitlementStore
	Orgs         OrgStore
	Campaigns    projection.CampaignStore
	Leads        projection.LeadStore
	Messages     projection.MessageStore
}

// Runner polls provider read endpoints and converges local rows.
type Runner struct {
	stores    Stores
	providers *provider.Registry
	syncModes map[string]string
	reg       *metrics.Registry
}

// NewRunner wires the reconciliation runner. syncModes maps provider slugs
// to webhook_only or pull_best_effort; absent slugs are webhook_only. A nil
// registry falls back to the process-wide one.
func NewRunner(stores Stores, providers *provider.Registry, syncModes map[string]string, reg *metrics.Registry) *Runner {
	if reg == nil {
		reg = metrics.Default()
	}
	if syncModes == nil {
		syncModes = map[string]string{}
	}
	return &Runner{stores: stores, providers: providers, syncModes: syncModes, reg: reg}
}

// Run executes one reconciliation sweep over the eligible entitlements.
// Provider and row-level failures are recorded in the per-provider stats
// and never abort the sweep; the returned error covers entitlement listing
// only.
func (r *Runner) Run(ctx context.Context, p Params) (*Report, error) {
	if p.CampaignLimit <= 0 {
		p.CampaignLimit = defaultCampaignLimit
	}
	if p.LeadLimit <= 0 {
		p.LeadLimit = defaultLeadLimit
	}
	if p.MessageLimit <= 0 {
		p.MessageLimit = defaultMessageLimit
	}

	ents, err := r.stores.Entitlements.ListActive(ctx, EntitlementFilter{
		ProviderSlug: p.ProviderSlug,
		OrgID:        p.OrgID,
		CompanyID:    p.CompanyID,
	})
	if err != nil {
		return nil, fmt.Errorf("list entitlements: %w", err)
	}

	report := &Report{DryRun: p.DryRun, StartedAt: time.Now().UTC(), Providers: map[string]*ProviderStats{}}
	for i := range ents {
		r.reconcileEntitlement(ctx, &ents[i], p, report)
	}
	report.FinishedAt = time.Now().UTC()

	logger.Info("reconcile.completed",
		"dry_run", p.DryRun,
		"providers", len(report.Providers),
		"entitlements", len(ents),
		"duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds())
	return report, nil
}

// reconcileEntitlement handles one (org, company, provider) triple.
func (r *Runner) reconcileEntitlement(ctx context.Context, ent *domain.Entitlement, p Params, report *Report) {
	capability, ok := domain.CapabilityForProvider(ent.ProviderSlug)
	if !ok || capability == domain.CapabilityDirectMail {
		// Direct mail has no campaign read surface; pieces converge through
		// webhooks and replay.
		return
	}
	stats := report.stats(ent.ProviderSlug)
	stats.CompaniesScanned++

	org, err := r.stores.Orgs.Get(ctx, ent.OrgID)
	if err != nil {
		r.recordError(stats, ent.ProviderSlug, "load org %s: %v", ent.OrgID, err)
		return
	}
	cfg, ok := org.ProviderConfigs[ent.ProviderSlug]
	if !ok || cfg.APIKey == "" {
		r.recordError(stats, ent.ProviderSlug, "org %s has no %s credentials", ent.OrgID, ent.ProviderSlug)
		return
	}
	creds := provider.Credentials{APIKey: cfg.APIKey, InstanceURL: cfg.InstanceURL}

	var listCampaigns func(context.Context, int) ([]provider.Campaign, error)
	var listLeads func(context.Context, string, int) ([]provider.Lead, error)
	var listMessages func(context.Context, string, int) ([]provider.Message, error)

	switch capability {
	case domain.CapabilityEmailOutreach:
		seq, ok := r.providers.EmailSequencer(ent.ProviderSlug, creds)
		if !ok {
			r.recordError(stats, ent.ProviderSlug, "provider %s not registered", ent.ProviderSlug)
			return
		}
		clientID := domain.PayloadString(ent.ProviderConfig, ent.ProviderSlug+"_client_id", "client_id")
		listCampaigns = func(ctx context.Context, limit int) ([]provider.Campaign, error) {
			return seq.ListCampaigns(ctx, clientID, limit)
		}
		listLeads = seq.ListLeads
	case domain.CapabilityLinkedInOutreach:
		lnk, ok := r.providers.LinkedIn(ent.ProviderSlug, creds)
		if !ok {
			r.recordError(stats, ent.ProviderSlug, "provider %s not registered", ent.ProviderSlug)
			return
		}
		listCampaigns = lnk.ListCampaigns
		listLeads = lnk.ListLeads
		if r.syncMode(ent.ProviderSlug) == SyncPullBestEffort {
			listMessages = lnk.ListConversations
		}
	}

	campaigns, err := listCampaigns(ctx, p.CampaignLimit)
	if err != nil {
		r.recordError(stats, ent.ProviderSlug, "list campaigns (company %s): %v", ent.CompanyID, err)
		return
	}
	for i := range campaigns {
		r.reconcileCampaign(ctx, ent, &campaigns[i], listLeads, listMessages, p, stats)
	}
}

// reconcileCampaign diffs one provider campaign against the local row, then
// converges its leads and messages within the run limits.
func (r *Runner) reconcileCampaign(
	ctx context.Context,
	ent *domain.Entitlement,
	pc *provider.Campaign,
	listLeads func(context.Context, string, int) ([]provider.Lead, error),
	listMessages func(context.Context, string, int) ([]provider.Message, error),
	p Params,
	stats *ProviderStats,
) {
	stats.CampaignsScanned++
	providerID := domain.ProviderIDForSlug(ent.ProviderSlug)
	now := time.Now().UTC()

	local, err := r.stores.Campaigns.GetByExternalID(ctx, providerID, pc.ExternalID)
	dirty := false
	switch {
	case err == nil:
		status := domain.NormalizeCampaignStatus(pc.Status)
		if (pc.Name != "" && local.Name != pc.Name) || local.Status != status {
			stats.CampaignsUpdated++
			if pc.Name != "" {
				local.Name = pc.Name
			}
			local.Status = status
			local.RawPayload = pc.Raw
			dirty = true
		}
	case errors.Is(err, projection.ErrCampaignNotFound):
		stats.CampaignsCreated++
		local = &domain.Campaign{
			OrgID:              ent.OrgID,
			CompanyID:          ent.CompanyID,
			ProviderID:         providerID,
			ExternalCampaignID: pc.ExternalID,
			Name:               pc.Name,
			Status:             domain.NormalizeCampaignStatus(pc.Status),
			RawPayload:         pc.Raw,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if p.DryRun {
			// Without a local row there is nothing to join leads against;
			// everything the provider returns would be created.
			r.countCampaignContents(ctx, ent, pc, listLeads, listMessages, p, stats)
			return
		}
		if err := r.stores.Campaigns.Create(ctx, local); err != nil {
			r.recordError(stats, ent.ProviderSlug, "create campaign %s: %v", pc.ExternalID, err)
			return
		}
	default:
		r.recordError(stats, ent.ProviderSlug, "resolve campaign %s: %v", pc.ExternalID, err)
		return
	}

	r.reconcileLeads(ctx, ent, pc, local, listLeads, p, stats)

	syncStatus, syncErr := r.reconcileMessages(ctx, ent, pc, local, listMessages, p, stats)
	if local.MessageSyncStatus != syncStatus || local.LastMessageSyncError != syncErr {
		local.MessageSyncStatus = syncStatus
		local.LastMessageSyncError = syncErr
		dirty = true
	}

	if dirty && !p.DryRun {
		local.UpdatedAt = now
		if err := r.stores.Campaigns.Update(ctx, local); err != nil {
			r.recordError(stats, ent.ProviderSlug, "update campaign %s: %v", pc.ExternalID, err)
		}
	}
}

// countCampaignContents tallies what a dry-run create would pull in. All
// listed rows count as creates because the campaign itself does not exist.
func (r *Runner) countCampaignContents(
	ctx context.Context,
	ent *domain.Entitlement,
	pc *provider.Campaign,
	listLeads func(context.Context, string, int) ([]provider.Lead, error),
	listMessages func(context.Context, string, int) ([]provider.Message, error),
	p Params,
	stats *ProviderStats,
) {
	leads, err := listLeads(ctx, pc.ExternalID, p.LeadLimit)
	if err != nil {
		r.recordError(stats, ent.ProviderSlug, "list leads for %s: %v", pc.ExternalID, err)
	} else {
		stats.LeadsScanned += len(leads)
		stats.LeadsCreated += len(leads)
	}
	if listMessages == nil {
		return
	}
	messages, err := listMessages(ctx, pc.ExternalID, p.MessageLimit)
	if err != nil {
		r.recordError(stats, ent.ProviderSlug, "list messages for %s: %v", pc.ExternalID, err)
		return
	}
	stats.MessagesScanned += len(messages)
	stats.MessagesCreated += len(messages)
}

func (r *Runner) reconcileLeads(
	ctx context.Context,
	ent *domain.Entitlement,
	pc *provider.Campaign,
	local *domain.Campaign,
	listLeads func(context.Context, string, int) ([]provider.Lead, error),
	p Params,
	stats *ProviderStats,
) {
	leads, err := listLeads(ctx, pc.ExternalID, p.LeadLimit)
	if err != nil {
		r.recordError(stats, ent.ProviderSlug, "list leads for %s: %v", pc.ExternalID, err)
		return
	}
	providerID := domain.ProviderIDForSlug(ent.ProviderSlug)
	now := time.Now().UTC()

	for i := range leads {
		pl := &leads[i]
		stats.LeadsScanned++
		if pl.ExternalID == "" {
			pl.ExternalID = pl.Email
		}
		if pl.ExternalID == "" {
			r.recordError(stats, ent.ProviderSlug, "campaign %s: lead without id or email", pc.ExternalID)
			continue
		}

		existing, err := r.stores.Leads.GetByExternalID(ctx, local.ID, providerID, pl.ExternalID)
		switch {
		case errors.Is(err, projection.ErrLeadNotFound):
			stats.LeadsCreated++
			if p.DryRun {
				continue
			}
			row := &domain.CampaignLead{
				OrgID:             ent.OrgID,
				CompanyID:         ent.CompanyID,
				CompanyCampaignID: local.ID,
				ProviderID:        providerID,
				ExternalLeadID:    pl.ExternalID,
				Email:             pl.Email,
				FirstName:         pl.FirstName,
				LastName:          pl.LastName,
				Status:            domain.NormalizeLeadStatus(pl.Status),
				RawPayload:        pl.Raw,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := r.stores.Leads.Upsert(ctx, row); err != nil {
				r.recordError(stats, ent.ProviderSlug, "upsert lead %s: %v", pl.ExternalID, err)
			}
		case err != nil:
			r.recordError(stats, ent.ProviderSlug, "resolve lead %s: %v", pl.ExternalID, err)
		default:
			status := domain.NormalizeLeadStatus(pl.Status)
			changed := existing.Status != status ||
				(pl.Email != "" && existing.Email != pl.Email) ||
				(pl.FirstName != "" && existing.FirstName != pl.FirstName) ||
				(pl.LastName != "" && existing.LastName != pl.LastName)
			if !changed {
				continue
			}
			stats.LeadsUpdated++
			if p.DryRun {
				continue
			}
			existing.Status = status
			if pl.Email != "" {
				existing.Email = pl.Email
			}
			if pl.FirstName != "" {
				existing.FirstName = pl.FirstName
			}
			if pl.LastName != "" {
				existing.LastName = pl.LastName
			}
			existing.RawPayload = pl.Raw
			existing.UpdatedAt = now
			if err := r.stores.Leads.Upsert(ctx, existing); err != nil {
				r.recordError(stats, ent.ProviderSlug, "upsert lead %s: %v", pl.ExternalID, err)
			}
		}
	}
}

// reconcileMessages converges messages for one campaign and reports the
// message_sync_status to stamp on it. Upserts are per message, not
// transactional across the campaign, so partial progress stays visible.
func (r *Runner) reconcileMessages(
	ctx context.Context,
	ent *domain.Entitlement,
	pc *provider.Campaign,
	local *domain.Campaign,
	listMessages func(context.Context, string, int) ([]provider.Message, error),
	p Params,
	stats *ProviderStats,
) (domain.MessageSyncStatus, string) {
	if listMessages == nil {
		return domain.MessageSyncSkippedHook, ""
	}

	messages, err := listMessages(ctx, pc.ExternalID, p.MessageLimit)
	if err != nil {
		r.recordError(stats, ent.ProviderSlug, "list messages for %s: %v", pc.ExternalID, err)
		return domain.MessageSyncPartial, syncErrorDetail(err)
	}

	providerID := domain.ProviderIDForSlug(ent.ProviderSlug)
	now := time.Now().UTC()
	var lastErr error

	for i := range messages {
		pm := &messages[i]
		stats.MessagesScanned++
		if pm.ExternalID == "" {
			continue
		}

		existing, err := r.stores.Messages.GetByExternalID(ctx, local.ID, providerID, pm.ExternalID)
		switch {
		case errors.Is(err, projection.ErrMessageNotFound):
			stats.MessagesCreated++
			if p.DryRun {
				continue
			}
			row := &domain.CampaignMessage{
				OrgID:             ent.OrgID,
				CompanyID:         ent.CompanyID,
				CompanyCampaignID: local.ID,
				ProviderID:        providerID,
				ExternalMessageID: pm.ExternalID,
				Direction:         domain.NormalizeMessageDirection(pm.Direction),
				Subject:           pm.Subject,
				Body:              pm.Body,
				SentAt:            pm.SentAt,
				RawPayload:        pm.Raw,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if pm.StepNumber >= 1 {
				step := pm.StepNumber
				row.SequenceStepNumber = &step
			}
			if err := r.stores.Messages.Upsert(ctx, row); err != nil {
				r.recordError(stats, ent.ProviderSlug, "upsert message %s: %v", pm.ExternalID, err)
				lastErr = err
			}
		case err != nil:
			r.recordError(stats, ent.ProviderSlug, "resolve message %s: %v", pm.ExternalID, err)
			lastErr = err
		default:
			direction := domain.NormalizeMessageDirection(pm.Direction)
			changed := existing.Direction != direction ||
				(pm.Subject != "" && existing.Subject != pm.Subject) ||
				(pm.Body != "" && existing.Body != pm.Body)
			if !changed {
				continue
			}
			stats.MessagesUpdated++
			if p.DryRun {
				continue
			}
			existing.Direction = direction
			if pm.Subject != "" {
				existing.Subject = pm.Subject
			}
			if pm.Body != "" {
				existing.Body = pm.Body
			}
			existing.RawPayload = pm.Raw
			existing.UpdatedAt = now
			if err := r.stores.Messages.Upsert(ctx, existing); err != nil {
				r.recordError(stats, ent.ProviderSlug, "upsert message %s: %v", pm.ExternalID, err)
				lastErr = err
			}
		}
	}

	if lastErr != nil {
		return domain.MessageSyncPartial, syncErrorDetail(lastErr)
	}
	return domain.MessageSyncSuccess, ""
}

func (r *Runner) syncMode(slug string) string {
	if mode, ok := r.syncModes[slug]; ok && mode != "" {
		return mode
	}
	return SyncWebhookOnly
}

// recordError appends to the stats error list, logs, and counts the
// failure.
func (r *Runner) recordError(stats *ProviderStats, slug, format string, args ...any) {
	stats.addError(format, args...)
	logger.Warn("reconcile.error", "provider", slug, "error", fmt.Sprintf(format, args...))
	r.reg.Incr(metrics.CounterReconcileError, map[string]string{"provider": slug})
}

// syncErrorDetail renders a message-sync failure with its category so the
// campaign row records whether a retry can help.
func syncErrorDetail(err error) string {
	if pe, ok := provider.AsError(err); ok {
		return fmt.Sprintf("%s: %s", pe.Category, pe.Message)
	}
	category, _ := projection.Classify(err)
	return fmt.Sprintf("%s: %v", category, err)
}
