package outreach_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/metrics"
	"github.com/reachops/outreach-gateway/internal/provider"
	"github.com/reachops/outreach-gateway/internal/scope"
	"github.com/reachops/outreach-gateway/internal/service/outreach"
)

type memEntitlements struct {
	rows []domain.Entitlement
}

func (m *memEntitlements) GetForCapability(_ context.Context, orgID, companyID string, capability domain.Capability) (*domain.Entitlement, error) {
	for i := range m.rows {
		e := &m.rows[i]
		if e.OrgID == orgID && e.CompanyID == companyID && e.CapabilityID == capability && e.Status != domain.EntitlementDisconnected {
			cp := *e
			return &cp, nil
		}
	}
	return nil, outreach.ErrNoEntitlement
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
	mu   sync.Mutex
	rows map[string]*domain.Campaign
	seq  int
}

func newMemCampaigns() *memCampaigns {
	return &memCampaigns{rows: make(map[string]*domain.Campaign)}
}

func (m *memCampaigns) Get(_ context.Context, orgID, campaignID string) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[campaignID]
	if !ok || c.OrgID != orgID {
		return nil, outreach.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCampaigns) List(_ context.Context, f outreach.CampaignFilter) ([]domain.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.rows {
		if c.OrgID != f.OrgID {
			continue
		}
		if f.CompanyID != "" && c.CompanyID != f.CompanyID {
			continue
		}
		if f.Status != "" && string(c.Status) != f.Status {
			continue
		}
		out = append(out, *c)
	}
	total := len(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m *memCampaigns) Create(_ context.Context, c *domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		m.seq++
		c.ID = fmt.Sprintf("camp-%d", m.seq)
	}
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *memCampaigns) Update(_ context.Context, c *domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

type memLeads struct {
	mu   sync.Mutex
	rows map[string]*domain.CampaignLead
	seq  int
}

func newMemLeads() *memLeads { return &memLeads{rows: make(map[string]*domain.CampaignLead)} }

func (m *memLeads) Get(_ context.Context, orgID, leadID string) (*domain.CampaignLead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[leadID]
	if !ok || l.OrgID != orgID {
		return nil, outreach.ErrLeadNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memLeads) List(_ context.Context, f outreach.LeadFilter) ([]domain.CampaignLead, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CampaignLead
	for _, l := range m.rows {
		if l.OrgID != f.OrgID || l.CompanyCampaignID != f.CampaignID {
			continue
		}
		if f.Status != "" && string(l.Status) != f.Status {
			continue
		}
		out = append(out, *l)
	}
	total := len(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m *memLeads) Upsert(_ context.Context, l *domain.CampaignLead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == "" {
		for _, existing := range m.rows {
			if existing.CompanyCampaignID == l.CompanyCampaignID &&
				existing.ProviderID == l.ProviderID &&
				existing.ExternalLeadID == l.ExternalLeadID {
				l.ID = existing.ID
				break
			}
		}
	}
	if l.ID == "" {
		m.seq++
		l.ID = fmt.Sprintf("lead-%d", m.seq)
	}
	cp := *l
	m.rows[l.ID] = &cp
	return nil
}

func (m *memLeads) Delete(_ context.Context, leadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[leadID]; !ok {
		return outreach.ErrLeadNotFound
	}
	delete(m.rows, leadID)
	return nil
}

type memMessages struct {
	rows []domain.CampaignMessage
}

func (m *memMessages) List(_ context.Context, f outreach.MessageFilter) ([]domain.CampaignMessage, int, error) {
	var out []domain.CampaignMessage
	for _, msg := range m.rows {
		if msg.OrgID != f.OrgID || msg.CompanyCampaignID != f.CampaignID {
			continue
		}
		if f.Direction != "" && string(msg.Direction) != f.Direction {
			continue
		}
		out = append(out, msg)
	}
	total := len(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

type memPieces struct {
	mu   sync.Mutex
	rows map[string]*domain.DirectMailPiece
	seq  int
}

func newMemPieces() *memPieces { return &memPieces{rows: make(map[string]*domain.DirectMailPiece)} }

func (m *memPieces) Get(_ context.Context, orgID, pieceID string) (*domain.DirectMailPiece, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[pieceID]
	if !ok || p.OrgID != orgID {
		return nil, outreach.ErrPieceNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPieces) List(_ context.Context, f outreach.PieceFilter) ([]domain.DirectMailPiece, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DirectMailPiece
	for _, p := range m.rows {
		if p.OrgID != f.OrgID {
			continue
		}
		if f.CompanyID != "" && p.CompanyID != f.CompanyID {
			continue
		}
		if f.PieceType != "" && string(p.PieceType) != f.PieceType {
			continue
		}
		if f.Status != "" && string(p.Status) != f.Status {
			continue
		}
		out = append(out, *p)
	}
	total := len(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m *memPieces) Upsert(_ context.Context, p *domain.DirectMailPiece) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		m.seq++
		p.ID = fmt.Sprintf("piece-%d", m.seq)
	}
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

type memInboxes struct {
	mu   sync.Mutex
	rows map[string]*domain.Inbox
	seq  int
}

func newMemInboxes() *memInboxes { return &memInboxes{rows: make(map[string]*domain.Inbox)} }

func (m *memInboxes) Get(_ context.Context, orgID, inboxID string) (*domain.Inbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.rows[inboxID]
	if !ok || i.OrgID != orgID {
		return nil, outreach.ErrInboxNotFound
	}
	cp := *i
	return &cp, nil
}

func (m *memInboxes) Upsert(_ context.Context, i *domain.Inbox) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i.ID == "" {
		for _, existing := range m.rows {
			if existing.ProviderID == i.ProviderID && existing.ExternalAccountID == i.ExternalAccountID {
				i.ID = existing.ID
				break
			}
		}
	}
	if i.ID == "" {
		m.seq++
		i.ID = fmt.Sprintf("inbox-%d", m.seq)
	}
	cp := *i
	m.rows[i.ID] = &cp
	return nil
}

// scriptedSequencer records calls and returns scripted values for every
// email capability method.
type scriptedSequencer struct {
	createErr     error
	created       *provider.Campaign
	statusCalls   []string
	sequence      []provider.SequenceStep
	savedSequence []provider.SequenceStep
	addLeadsErr   error
	addedBatch    []provider.NewLead
	removedLeads  []string
	categories    map[string]string
	analytics     map[string]interface{}
	inboxes       []provider.Inbox
	warmupCalls   map[string]bool
	gotClientID   string
}

func newScriptedSequencer() *scriptedSequencer {
	return &scriptedSequencer{
		categories:  make(map[string]string),
		warmupCalls: make(map[string]bool),
	}
}

func (f *scriptedSequencer) ListCampaigns(context.Context, string, int) ([]provider.Campaign, error) {
	return nil, nil
}

func (f *scriptedSequencer) CreateCampaign(_ context.Context, name, clientID string) (*provider.Campaign, error) {
	f.gotClientID = clientID
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.created != nil {
		return f.created, nil
	}
	return &provider.Campaign{ExternalID: "ext-" + name, Name: name, Status: "drafted"}, nil
}

func (f *scriptedSequencer) UpdateCampaignStatus(_ context.Context, campaignID, status string) error {
	f.statusCalls = append(f.statusCalls, campaignID+":"+status)
	return nil
}

func (f *scriptedSequencer) GetSequence(context.Context, string) ([]provider.SequenceStep, error) {
	return f.sequence, nil
}

func (f *scriptedSequencer) SaveSequence(_ context.Context, _ string, steps []provider.SequenceStep) error {
	f.savedSequence = steps
	return nil
}

func (f *scriptedSequencer) ListLeads(context.Context, string, int) ([]provider.Lead, error) {
	return nil, nil
}

func (f *scriptedSequencer) AddLeads(_ context.Context, _ string, leads []provider.NewLead) (int, error) {
	if f.addLeadsErr != nil {
		return 0, f.addLeadsErr
	}
	f.addedBatch = leads
	return len(leads), nil
}

func (f *scriptedSequencer) RemoveLead(_ context.Context, _ string, leadID string) error {
	f.removedLeads = append(f.removedLeads, leadID)
	return nil
}

func (f *scriptedSequencer) UpdateLeadCategory(_ context.Context, _ string, leadID, category string) error {
	f.categories[leadID] = category
	return nil
}

func (f *scriptedSequencer) CampaignAnalytics(context.Context, string) (map[string]interface{}, error) {
	return f.analytics, nil
}

func (f *scriptedSequencer) ListInboxes(context.Context, int) ([]provider.Inbox, error) {
	return f.inboxes, nil
}

func (f *scriptedSequencer) SetWarmup(_ context.Context, accountID string, enabled bool) error {
	f.warmupCalls[accountID] = enabled
	return nil
}

type scriptedLinkedIn struct {
	statusCalls []string
}

func (f *scriptedLinkedIn) ListCampaigns(context.Context, int) ([]provider.Campaign, error) {
	return nil, nil
}

func (f *scriptedLinkedIn) UpdateCampaignStatus(_ context.Context, campaignID, status string) error {
	f.statusCalls = append(f.statusCalls, campaignID+":"+status)
	return nil
}

func (f *scriptedLinkedIn) ListLeads(context.Context, string, int) ([]provider.Lead, error) {
	return nil, nil
}

func (f *scriptedLinkedIn) ListConversations(context.Context, string, int) ([]provider.Message, error) {
	return nil, nil
}

type scriptedDirectMail struct {
	createErr  error
	gotRequest provider.PieceRequest
	piece      *provider.Piece
	canceled   []string
	remote     *provider.Piece
}

func (f *scriptedDirectMail) CreatePiece(_ context.Context, req provider.PieceRequest) (*provider.Piece, error) {
	f.gotRequest = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.piece != nil {
		return f.piece, nil
	}
	return &provider.Piece{ExternalID: "psc_123", Type: req.Type, Status: "created"}, nil
}

func (f *scriptedDirectMail) ListPieces(context.Context, string, int) ([]provider.Piece, error) {
	return nil, nil
}

func (f *scriptedDirectMail) GetPiece(_ context.Context, _, pieceID string) (*provider.Piece, error) {
	if f.remote != nil {
		return f.remote, nil
	}
	return &provider.Piece{ExternalID: pieceID, Status: "delivered"}, nil
}

func (f *scriptedDirectMail) CancelPiece(_ context.Context, _, pieceID string) error {
	f.canceled = append(f.canceled, pieceID)
	return nil
}

type serviceFixture struct {
	ents      *memEntitlements
	orgs      *memOrgs
	campaigns *memCampaigns
	leads     *memLeads
	messages  *memMessages
	pieces    *memPieces
	inboxes   *memInboxes
	registry  *provider.Registry
	reg       *metrics.Registry
	svc       *outreach.Service
}

func newServiceFixture() *serviceFixture {
	fx := &serviceFixture{
		ents:      &memEntitlements{},
		orgs:      &memOrgs{rows: make(map[string]*domain.Organization)},
		campaigns: newMemCampaigns(),
		leads:     newMemLeads(),
		messages:  &memMessages{},
		pieces:    newMemPieces(),
		inboxes:   newMemInboxes(),
		registry:  provider.NewRegistry(),
		reg:       metrics.NewRegistry(),
	}
	fx.orgs.rows["org-1"] = &domain.Organization{
		ID:   "org-1",
		Slug: "acme",
		Name: "Acme",
		ProviderConfigs: map[string]domain.ProviderConfig{
			"smartlead": {APIKey: "sk-smartlead"},
			"heyreach":  {APIKey: "sk-heyreach"},
			"lob":       {APIKey: "sk-lob"},
		},
	}
	fx.svc = outreach.NewService(outreach.Stores{
		Entitlements: fx.ents,
		Orgs:         fx.orgs,
		Campaigns:    fx.campaigns,
		Leads:        fx.leads,
		Messages:     fx.messages,
		Pieces:       fx.pieces,
		Inboxes:      fx.inboxes,
	}, fx.registry, fx.reg)
	return fx
}

func (f *serviceFixture) entitle(slug string, cfg map[string]any) {
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
}

func (f *serviceFixture) seedCampaign(slug, companyID string) *domain.Campaign {
	c := &domain.Campaign{
		OrgID:              "org-1",
		CompanyID:          companyID,
		ProviderID:         domain.ProviderIDForSlug(slug),
		ExternalCampaignID: "ext-1",
		Name:               "Seeded",
		Status:             domain.CampaignActive,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}
	_ = f.campaigns.Create(context.Background(), c)
	return c
}

func companyAuth() scope.AuthContext {
	companyID := "co-1"
	return scope.AuthContext{OrgID: "org-1", UserID: "user-1", Role: scope.RoleCompanyAdmin, CompanyID: &companyID}
}

func orgAdminAuth() scope.AuthContext {
	return scope.AuthContext{OrgID: "org-1", UserID: "admin-1", Role: scope.RoleOrgAdmin}
}

func counterValue(reg *metrics.Registry, name string, labels map[string]string) int {
	return reg.Snapshot()[metrics.Key(name, labels)]
}
