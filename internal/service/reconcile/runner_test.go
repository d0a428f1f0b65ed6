package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/metrics"
	"github.com/reachops/outreach-gateway/internal/provider"
	"github.com/reachops/outreach-gateway/internal/service/projection"
	"github.com/reachops/outreach-gateway/internal/service/reconcile"
)

type memEntitlements struct {
	rows      []domain.Entitlement
	gotFilter reconcile.EntitlementFilter
	calls     int
	err       error
}

func (m *memEntitlements) ListActive(_ context.Context, f reconcile.EntitlementFilter) ([]domain.Entitlement, error) {
	m.calls++
	m.gotFilter = f
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Entitlement
	for _, e := range m.rows {
		if f.ProviderSlug != "" && e.ProviderSlug != f.ProviderSlug {
			continue
		}
		if f.OrgID != "" && e.OrgID != f.OrgID {
			continue
		}
		if f.CompanyID != "" && e.CompanyID != f.CompanyID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type memOrgs struct {
	rows map[string]*domain.Organization
}

func (m *memOrgs) Get(_ context.Context, orgID string) (*domain.Organization, error) {
	o, ok := m.rows[orgID]
	if !ok {
		return nil, errors.New("org not found")
	}
	return o, nil
}

type memCampaigns struct {
	mu      sync.Mutex
	rows    map[string]*domain.Campaign
	seq     int
	updates int
}

func newMemCampaigns() *memCampaigns {
	return &memCampaigns{rows: make(map[string]*domain.Campaign)}
}

func campaignKey(providerID, externalID string) string { return providerID + "/" + externalID }

func (m *memCampaigns) GetByExternalID(_ context.Context, providerID, externalID string) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[campaignKey(providerID, externalID)]
	if !ok {
		return nil, projection.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCampaigns) Create(_ context.Context, c *domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		m.seq++
		c.ID = fmt.Sprintf("camp-%d", m.seq)
	}
	cp := *c
	m.rows[campaignKey(c.ProviderID, c.ExternalCampaignID)] = &cp
	return nil
}

func (m *memCampaigns) Update(_ context.Context, c *domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	cp := *c
	m.rows[campaignKey(c.ProviderID, c.ExternalCampaignID)] = &cp
	return nil
}

type memLeads struct {
	mu   sync.Mutex
	rows map[string]*domain.CampaignLead
}

func newMemLeads() *memLeads { return &memLeads{rows: make(map[string]*domain.CampaignLead)} }

func leadKey(campaignID, providerID, externalID string) string {
	return campaignID + "/" + providerID + "/" + externalID
}

func (m *memLeads) GetByExternalID(_ context.Context, campaignID, providerID, externalID string) (*domain.CampaignLead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[leadKey(campaignID, providerID, externalID)]
	if !ok {
		return nil, projection.ErrLeadNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memLeads) Upsert(_ context.Context, l *domain.CampaignLead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.rows[leadKey(l.CompanyCampaignID, l.ProviderID, l.ExternalLeadID)] = &cp
	return nil
}

type memMessages struct {
	mu   sync.Mutex
	rows map[string]*domain.CampaignMessage
}

func newMemMessages() *memMessages {
	return &memMessages{rows: make(map[string]*domain.CampaignMessage)}
}

func (m *memMessages) GetByExternalID(_ context.Context, campaignID, providerID, externalID string) (*domain.CampaignMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.rows[leadKey(campaignID, providerID, externalID)]
	if !ok {
		return nil, projection.ErrMessageNotFound
	}
	cp := *msg
	return &cp, nil
}

func (m *memMessages) Upsert(_ context.Context, msg *domain.CampaignMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.rows[leadKey(msg.CompanyCampaignID, msg.ProviderID, msg.ExternalMessageID)] = &cp
	return nil
}

// fakeSequencer scripts the two email read surfaces the runner uses. The
// embedded interface panics on anything else, which is the point.
type fakeSequencer struct {
	provider.EmailSequencer

	campaigns   []provider.Campaign
	leads       map[string][]provider.Lead
	listErr     error
	gotClientID string
}

func (f *fakeSequencer) ListCampaigns(_ context.Context, clientID string, _ int) ([]provider.Campaign, error) {
	f.gotClientID = clientID
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.campaigns, nil
}

func (f *fakeSequencer) ListLeads(_ context.Context, campaignID string, _ int) ([]provider.Lead, error) {
	return f.leads[campaignID], nil
}

type fakeLinkedIn struct {
	campaigns     []provider.Campaign
	leads         map[string][]provider.Lead
	conversations map[string][]provider.Message
	convErr       error
	convCalls     int
}

func (f *fakeLinkedIn) ListCampaigns(_ context.Context, _ int) ([]provider.Campaign, error) {
	return f.campaigns, nil
}

func (f *fakeLinkedIn) UpdateCampaignStatus(context.Context, string, string) error { return nil }

func (f *fakeLinkedIn) ListLeads(_ context.Context, campaignID string, _ int) ([]provider.Lead, error) {
	return f.leads[campaignID], nil
}

func (f *fakeLinkedIn) ListConversations(_ context.Context, campaignID string, _ int) ([]provider.Message, error) {
	f.convCalls++
	if f.convErr != nil {
		return nil, f.convErr
	}
	return f.conversations[campaignID], nil
}

type runnerFixture struct {
	ents      *memEntitlements
	orgs      *memOrgs
	campaigns *memCampaigns
	leads     *memLeads
	messages  *memMessages
	registry  *provider.Registry
	reg       *metrics.Registry
}

func newRunnerFixture() *runnerFixture {
	return &runnerFixture{
		ents:      &memEntitlements{},
		orgs:      &memOrgs{rows: make(map[string]*domain.Organization)},
		campaigns: newMemCampaigns(),
		leads:     newMemLeads(),
		messages:  newMemMessages(),
		registry:  provider.NewRegistry(),
		reg:       metrics.NewRegistry(),
	}
}

func (f *runnerFixture) runner(syncModes map[string]string) *reconcile.Runner {
	return reconcile.NewRunner(reconcile.Stores{
		Entitlements: f.ents,
		Orgs:         f.orgs,
		Campaigns:    f.campaigns,
		Leads:        f.leads,
		Messages:     f.messages,
	}, f.registry, syncModes, f.reg)
}

func (f *runnerFixture) ensureOrg() *domain.Organization {
	org := f.orgs.rows["org-1"]
	if org == nil {
		org = &domain.Organization{
			ID:              "org-1",
			Slug:            "acme",
			Name:            "Acme",
			ProviderConfigs: map[string]domain.ProviderConfig{},
		}
		f.orgs.rows["org-1"] = org
	}
	return org
}

func (f *runnerFixture) seedEntitlement(slug string, cfg map[string]any) {
	capability, _ := domain.CapabilityForProvider(slug)
	f.ents.rows = append(f.ents.rows, domain.Entitlement{
		ID:             "ent-" + slug,
		OrgID:          "org-1",
		CompanyID:      "co-1",
		CapabilityID:   capability,
		ProviderID:     domain.ProviderIDForSlug(slug),
		ProviderSlug:   slug,
		Status:         domain.EntitlementConnected,
		ProviderConfig: cfg,
	})
	f.ensureOrg()
}

func (f *runnerFixture) seedTenant(slug string, cfg map[string]any) {
	f.seedEntitlement(slug, cfg)
	f.ensureOrg().ProviderConfigs[slug] = domain.ProviderConfig{APIKey: "sk-" + slug}
}

func reconcileErrors(reg *metrics.Registry, slug string) int {
	key := metrics.Key(metrics.CounterReconcileError, map[string]string{"provider": slug})
	return reg.Snapshot()[key]
}

func TestRunDryRunCountsWithoutWriting(t *testing.T) {
	fx := newRunnerFixture()
	fx.seedTenant("smartlead", map[string]any{"smartlead_client_id": "client-77"})

	if err := fx.campaigns.Create(context.Background(), &domain.Campaign{
		OrgID:              "org-1",
		CompanyID:          "co-1",
		ProviderID:         "prov_smartlead",
		ExternalCampaignID: "sl-0",
		Name:               "Old Name",
		Status:             domain.CampaignActive,
		MessageSyncStatus:  domain.MessageSyncSkippedHook,
	}); err != nil {
		t.Fatalf("seed campaign: %v", err)
	}

	seq := &fakeSequencer{
		campaigns: []provider.Campaign{
			{ExternalID: "sl-0", Name: "Renamed", Status: "running"},
			{ExternalID: "sl-1", Name: "Spring Launch", Status: "running"},
		},
		leads: map[string][]provider.Lead{
			"sl-1": {{ExternalID: "ld-1", Email: "ada@example.com", Status: "in_sequence"}},
		},
	}
	fx.registry.RegisterEmailSequencer("smartlead", func(provider.Credentials) provider.EmailSequencer { return seq })

	report, err := fx.runner(nil).Run(context.Background(), reconcile.Params{DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.DryRun {
		t.Fatalf("report.DryRun = false, want true")
	}
	stats := report.Providers["smartlead"]
	if stats == nil {
		t.Fatalf("no smartlead stats in report")
	}
	if stats.CompaniesScanned != 1 || stats.CampaignsScanned != 2 {
		t.Fatalf("scanned companies=%d campaigns=%d, want 1/2", stats.CompaniesScanned, stats.CampaignsScanned)
	}
	if stats.CampaignsCreated != 1 || stats.CampaignsUpdated != 1 {
		t.Fatalf("campaigns created=%d updated=%d, want 1/1", stats.CampaignsCreated, stats.CampaignsUpdated)
	}
	if stats.LeadsScanned != 1 || stats.LeadsCreated != 1 {
		t.Fatalf("leads scanned=%d created=%d, want 1/1", stats.LeadsScanned, stats.LeadsCreated)
	}
	if seq.gotClientID != "client-77" {
		t.Fatalf("client id = %q, want client-77", seq.gotClientID)
	}

	if len(fx.campaigns.rows) != 1 {
		t.Fatalf("dry run wrote campaigns: %d rows", len(fx.campaigns.rows))
	}
	existing, err := fx.campaigns.GetByExternalID(context.Background(), "prov_smartlead", "sl-0")
	if err != nil {
		t.Fatalf("GetByExternalID: %v", err)
	}
	if existing.Name != "Old Name" || fx.campaigns.updates != 0 {
		t.Fatalf("dry run mutated a campaign row: name=%q updates=%d", existing.Name, fx.campaigns.updates)
	}
	if len(fx.leads.rows) != 0 {
		t.Fatalf("dry run wrote leads: %d rows", len(fx.leads.rows))
	}
}

func TestRunCreatesCampaignAndLeads(t *testing.T) {
	fx := newRunnerFixture()
	fx.seedTenant("smartlead", map[string]any{"smartlead_client_id": "client-77"})

	seq := &fakeSequencer{
		campaigns: []provider.Campaign{{ExternalID: "sl-1", Name: "Spring Launch", Status: "running"}},
		leads: map[string][]provider.Lead{
			"sl-1": {{ExternalID: "ld-1", Email: "ada@example.com", FirstName: "Ada", Status: "in_sequence"}},
		},
	}
	var gotCreds provider.Credentials
	fx.registry.RegisterEmailSequencer("smartlead", func(c provider.Credentials) provider.EmailSequencer {
		gotCreds = c
		return seq
	})

	report, err := fx.runner(nil).Run(context.Background(), reconcile.Params{DryRun: false})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotCreds.APIKey != "sk-smartlead" {
		t.Fatalf("adapter built with key %q, want sk-smartlead", gotCreds.APIKey)
	}

	c, err := fx.campaigns.GetByExternalID(context.Background(), "prov_smartlead", "sl-1")
	if err != nil {
		t.Fatalf("campaign not created: %v", err)
	}
	if c.OrgID != "org-1" || c.CompanyID != "co-1" {
		t.Fatalf("campaign tenant = %s/%s, want org-1/co-1", c.OrgID, c.CompanyID)
	}
	if c.Status != domain.CampaignActive {
		t.Fatalf("status = %s, want ACTIVE", c.Status)
	}
	if c.MessageSyncStatus != domain.MessageSyncSkippedHook {
		t.Fatalf("message_sync_status = %s, want skipped_webhook_only", c.MessageSyncStatus)
	}

	l, err := fx.leads.GetByExternalID(context.Background(), c.ID, "prov_smartlead", "ld-1")
	if err != nil {
		t.Fatalf("lead not created: %v", err)
	}
	if l.Status != domain.LeadActive || l.Email != "ada@example.com" || l.FirstName != "Ada" {
		t.Fatalf("lead row = %+v", l)
	}

	stats := report.Providers["smartlead"]
	if stats.CampaignsCreated != 1 || stats.LeadsCreated != 1 || len(stats.Errors) != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestRunUpdatesChangedCampaignOnly(t *testing.T) {
	fx := newRunnerFixture()
	fx.seedTenant("smartlead", nil)

	seed := []domain.Campaign{
		{ProviderID: "prov_smartlead", ExternalCampaignID: "sl-1", Name: "Old Name", Status: domain.CampaignActive, MessageSyncStatus: domain.MessageSyncSkippedHook},
		{ProviderID: "prov_smartlead", ExternalCampaignID: "sl-2", Name: "Steady", Status: domain.CampaignActive, MessageSyncStatus: domain.MessageSyncSkippedHook},
	}
	for i := range seed {
		seed[i].OrgID, seed[i].CompanyID = "org-1", "co-1"
		if err := fx.campaigns.Create(context.Background(), &seed[i]); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	seq := &fakeSequencer{campaigns: []provider.Campaign{
		{ExternalID: "sl-1", Name: "New Name", Status: "paused"},
		{ExternalID: "sl-2", Name: "Steady", Status: "active"},
	}}
	fx.registry.RegisterEmailSequencer("smartlead", func(provider.Credentials) provider.EmailSequencer { return seq })

	report, err := fx.runner(nil).Run(context.Background(), reconcile.Params{DryRun: false})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := report.Providers["smartlead"]
	if stats.CampaignsUpdated != 1 || stats.CampaignsCreated != 0 {
		t.Fatalf("campaigns updated=%d created=%d, want 1/0", stats.CampaignsUpdated, stats.CampaignsCreated)
	}
	if fx.campaigns.updates != 1 {
		t.Fatalf("store updates = %d, want 1 (unchanged campaign must not be written)", fx.campaigns.updates)
	}

	c, _ := fx.campaigns.GetByExternalID(context.Background(), "prov_smartlead", "sl-1")
	if c.Name != "New Name" || c.Status != domain.CampaignPaused {
		t.Fatalf("changed campaign not converged: name=%q status=%s", c.Name, c.Status)
	}
}

func TestRunPullBestEffortSyncsMessages(t *testing.T) {
	fx := newRunnerFixture()
	fx.seedTenant("heyreach", nil)

	lnk := &fakeLinkedIn{
		campaigns: []provider.Campaign{{ExternalID: "hr-1", Name: "LinkedIn Push", Status: "active"}},
		leads: map[string][]provider.Lead{
			"hr-1": {{ExternalID: "ld-9", Email: "grace@example.com", Status: "replied"}},
		},
		conversations: map[string][]provider.Message{
			"hr-1": {
				{ExternalID: "msg-1", Direction: "outbound", Subject: "Hello", Body: "First touch", StepNumber: 1},
				{ExternalID: "msg-2", Direction: "reply", Body: "Interested!"},
			},
		},
	}
	fx.registry.RegisterLinkedIn("heyreach", func(provider.Credentials) provider.LinkedInOutreach { return lnk })

	modes := map[string]string{"heyreach": reconcile.SyncPullBestEffort}
	report, err := fx.runner(modes).Run(context.Background(), reconcile.Params{DryRun: false})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := report.Providers["heyreach"]
	if stats.MessagesScanned != 2 || stats.MessagesCreated != 2 {
		t.Fatalf("messages scanned=%d created=%d, want 2/2", stats.MessagesScanned, stats.MessagesCreated)
	}

	c, err := fx.campaigns.GetByExternalID(context.Background(), "prov_heyreach", "hr-1")
	if err != nil {
		t.Fatalf("campaign not created: %v", err)
	}
	if c.MessageSyncStatus != domain.MessageSyncSuccess {
		t.Fatalf("message_sync_status = %s, want success", c.MessageSyncStatus)
	}

	outbound, err := fx.messages.GetByExternalID(context.Background(), c.ID, "prov_heyreach", "msg-1")
	if err != nil {
		t.Fatalf("outbound message missing: %v", err)
	}
	if outbound.Direction != domain.DirectionOutbound || outbound.SequenceStepNumber == nil || *outbound.SequenceStepNumber != 1 {
		t.Fatalf("outbound row = %+v", outbound)
	}
	inbound, err := fx.messages.GetByExternalID(context.Background(), c.ID, "prov_heyreach", "msg-2")
	if err != nil {
		t.Fatalf("inbound message missing: %v", err)
	}
	if inbound.Direction != domain.DirectionInbound {
		t.Fatalf("direction = %s, want inbound", inbound.Direction)
	}
}

func TestRunWebhookOnlySkipsMessages(t *testing.T) {
	fx := newRunnerFixture()
	fx.seedTenant("heyreach", nil)

	lnk := &fakeLinkedIn{
		campaigns: []provider.Campaign{{ExternalID: "hr-1", Name: "LinkedIn Push", Status: "active"}},
		conversations: map[string][]provider.Message{
			"hr-1": {{ExternalID: "msg-1", Direction: "outbound"}},
		},
	}
	fx.registry.RegisterLinkedIn("heyreach", func(provider.Credentials) provider.LinkedInOutreach { return lnk })

	report, err := fx.runner(nil).Run(context.Background(), reconcile.Params{DryRun: false})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if lnk.convCalls != 0 {
		t.Fatalf("webhook_only mode listed conversations %d times", lnk.convCalls)
	}
	if report.Providers["heyreach"].MessagesScanned != 0 {
		t.Fatalf("messages scanned in webhook_only mode")
	}
	c, _ := fx.campaigns.GetByExternalID(context.Background(), "prov_heyreach", "hr-1")
	if c.MessageSyncStatus != domain.MessageSyncSkippedHook {
		t.Fatalf("message_sync_status = %s, want skipped_webhook_only", c.MessageSyncStatus)
	}
}

func TestRunPartialMessageSyncRecordsError(t *testing.T) {
	fx := newRunnerFixture()
	fx.seedTenant("heyreach", nil)

	lnk := &fakeLinkedIn{
		campaigns: []provider.Campaign{{ExternalID: "hr-1", Name: "LinkedIn Push", Status: "active"}},
		convErr:   provider.StatusError("heyreach", "list_conversations", 503, []byte("upstream down")),
	}
	fx.registry.RegisterLinkedIn("heyreach", func(provider.Credentials) provider.LinkedInOutreach { return lnk })

	modes := map[string]string{"heyreach": reconcile.SyncPullBestEffort}
	report, err := fx.runner(modes).Run(context.Background(), reconcile.Params{DryRun: false})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	c, err := fx.campaigns.GetByExternalID(context.Background(), "prov_heyreach", "hr-1")
	if err != nil {
		t.Fatalf("campaign not created: %v", err)
	}
	if c.MessageSyncStatus != domain.MessageSyncPartial {
		t.Fatalf("message_sync_status = %s, want partial_error", c.MessageSyncStatus)
	}
	if !strings.HasPrefix(c.LastMessageSyncError, "transient: ") {
		t.Fatalf("last_message_sync_error = %q, want transient category prefix", c.LastMessageSyncError)
	}
	if len(report.Providers["heyreach"].Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one", report.Providers["heyreach"].Errors)
	}
	if n := reconcileErrors(fx.reg, "heyreach"); n != 1 {
		t.Fatalf("reconcile.error = %d, want 1", n)
	}
}

func TestRunMissingCredentials(t *testing.T) {
	fx := newRunnerFixture()
	fx.seedEntitlement("heyreach", nil)

	factoryCalled := false
	fx.registry.RegisterLinkedIn("heyreach", func(provider.Credentials) provider.LinkedInOutreach {
		factoryCalled = true
		return &fakeLinkedIn{}
	})

	report, err := fx.runner(nil).Run(context.Background(), reconcile.Params{DryRun: false})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if factoryCalled {
		t.Fatalf("adapter built without credentials")
	}
	stats := report.Providers["heyreach"]
	if stats.CompaniesScanned != 1 || len(stats.Errors) != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if !strings.Contains(stats.Errors[0], "credentials") {
		t.Fatalf("error = %q, want credentials mention", stats.Errors[0])
	}
	if n := reconcileErrors(fx.reg, "heyreach"); n != 1 {
		t.Fatalf("reconcile.error = %d, want 1", n)
	}
}

func TestRunListCampaignsFailure(t *testing.T) {
	fx := newRunnerFixture()
	fx.seedTenant("smartlead", nil)

	seq := &fakeSequencer{listErr: provider.StatusError("smartlead", "list_campaigns", 401, []byte("bad key"))}
	fx.registry.RegisterEmailSequencer("smartlead", func(provider.Credentials) provider.EmailSequencer { return seq })

	report, err := fx.runner(nil).Run(context.Background(), reconcile.Params{DryRun: false})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	stats := report.Providers["smartlead"]
	if stats.CampaignsScanned != 0 {
		t.Fatalf("campaigns scanned = %d after list failure", stats.CampaignsScanned)
	}
	if len(stats.Errors) != 1 || !strings.Contains(stats.Errors[0], "list campaigns") {
		t.Fatalf("errors = %v", stats.Errors)
	}
	if n := reconcileErrors(fx.reg, "smartlead"); n != 1 {
		t.Fatalf("reconcile.error = %d, want 1", n)
	}
}

func TestRunSkipsDirectMail(t *testing.T) {
	fx := newRunnerFixture()
	fx.seedTenant("lob", nil)

	report, err := fx.runner(nil).Run(context.Background(), reconcile.Params{DryRun: false})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Providers) != 0 {
		t.Fatalf("direct-mail entitlement produced stats: %+v", report.Providers)
	}
}

func TestRunFiltersEntitlements(t *testing.T) {
	fx := newRunnerFixture()
	_, err := fx.runner(nil).Run(context.Background(), reconcile.Params{
		ProviderSlug: "smartlead",
		OrgID:        "org-1",
		CompanyID:    "co-1",
		DryRun:       true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := reconcile.EntitlementFilter{ProviderSlug: "smartlead", OrgID: "org-1", CompanyID: "co-1"}
	if fx.ents.gotFilter != want {
		t.Fatalf("filter = %+v, want %+v", fx.ents.gotFilter, want)
	}
}

func TestRunEntitlementListError(t *testing.T) {
	fx := newRunnerFixture()
	fx.ents.err = errors.New("db down")
	_, err := fx.runner(nil).Run(context.Background(), reconcile.Params{})
	if err == nil || !strings.Contains(err.Error(), "list entitlements") {
		t.Fatalf("err = %v, want list entitlements failure", err)
	}
}
