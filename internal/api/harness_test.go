package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/reachops/outreach-gateway/internal/api"
	"github.com/reachops/outreach-gateway/internal/config"
	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/metrics"
	"github.com/reachops/outreach-gateway/internal/provider"
	"github.com/reachops/outreach-gateway/internal/scope"
	"github.com/reachops/outreach-gateway/internal/service/ingest"
	"github.com/reachops/outreach-gateway/internal/service/outreach"
	"github.com/reachops/outreach-gateway/internal/service/reconcile"
	"github.com/reachops/outreach-gateway/internal/service/replay"
)

// Bearer tokens the test authenticator accepts.
const (
	tokenSuperAdmin = "tok-super"
	tokenOrgAdmin   = "tok-org-admin"
	tokenMember     = "tok-member"
)

// testAuth resolves fixed bearer tokens to AuthContexts.
type testAuth struct {
	identities map[string]scope.AuthContext
}

func newTestAuth() *testAuth {
	memberCompany := "co-1"
	return &testAuth{identities: map[string]scope.AuthContext{
		tokenSuperAdmin: {OrgID: "org-1", UserID: "root-1", Role: scope.RoleOrgAdmin, SuperAdmin: true},
		tokenOrgAdmin:   {OrgID: "org-1", UserID: "admin-1", Role: scope.RoleOrgAdmin},
		tokenMember:     {OrgID: "org-1", UserID: "user-1", Role: scope.RoleCompanyMember, CompanyID: &memberCompany},
	}}
}

func (a *testAuth) Authenticate(r *http.Request) (scope.AuthContext, error) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	auth, ok := a.identities[token]
	if !ok {
		return scope.AuthContext{}, errors.New("unknown token")
	}
	return auth, nil
}

// memEventStore is an in-memory event store.
type memEventStore struct {
	mu     sync.Mutex
	events map[string]*domain.WebhookEvent
	order  []string
}

func newMemEventStore() *memEventStore {
	return &memEventStore{events: make(map[string]*domain.WebhookEvent)}
}

func storeKey(provider, eventKey string) string { return provider + "|" + eventKey }

func (m *memEventStore) Insert(_ context.Context, e *domain.WebhookEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := storeKey(e.ProviderSlug, e.EventKey)
	if _, ok := m.events[k]; ok {
		return ingest.ErrDuplicateEvent
	}
	cp := *e
	m.events[k] = &cp
	m.order = append(m.order, k)
	return nil
}

func (m *memEventStore) UpdateByKey(_ context.Context, provider, eventKey string, u ingest.EventUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[storeKey(provider, eventKey)]
	if !ok {
		return ingest.ErrEventNotFound
	}
	if u.Status != nil {
		e.Status = *u.Status
	}
	if u.Payload != nil {
		e.Payload = u.Payload
	}
	if u.LastError != nil {
		e.LastError = *u.LastError
	}
	if u.ReplayCount != nil {
		e.ReplayCount = *u.ReplayCount
	}
	if u.LastReplayAt != nil {
		e.LastReplayAt = u.LastReplayAt
	}
	if u.ProcessedAt != nil {
		e.ProcessedAt = u.ProcessedAt
	}
	if u.OrgID != nil {
		e.OrgID = u.OrgID
	}
	if u.CompanyID != nil {
		e.CompanyID = u.CompanyID
	}
	return nil
}

func (m *memEventStore) Get(_ context.Context, provider, eventKey string) (*domain.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[storeKey(provider, eventKey)]
	if !ok {
		return nil, ingest.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEventStore) List(_ context.Context, f ingest.EventFilter) ([]domain.WebhookEvent, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.WebhookEvent
	for _, k := range m.order {
		e := m.events[k]
		if f.Provider != "" && e.ProviderSlug != f.Provider {
			continue
		}
		if f.EventType != "" && e.EventType != f.EventType {
			continue
		}
		if len(f.Statuses) > 0 {
			match := false
			for _, s := range f.Statuses {
				if e.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if f.Reason != "" {
			rec, ok := domain.DeadLetterOf(e.Payload)
			if !ok || rec.Reason != f.Reason {
				continue
			}
		}
		out = append(out, *e)
	}
	total := len(out)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			out = nil
		} else {
			out = out[f.Offset:]
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m *memEventStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// staticTenants resolves every hint to one fixed tenant.
type staticTenants struct {
	orgID     string
	companyID string
}

func (s staticTenants) TenantForCampaign(context.Context, string, string) (string, string, error) {
	return s.orgID, s.companyID, nil
}

func (s staticTenants) TenantForPiece(context.Context, string, string) (string, string, error) {
	return s.orgID, s.companyID, nil
}

// seqProjector consumes a queue of scripted outcomes, one per Apply call.
// An empty queue means success, so a dead-lettered event replays cleanly
// unless the test scripts another failure.
type seqProjector struct {
	mu       sync.Mutex
	outcomes []ingest.ProjectionOutcome
	applied  int
}

func (p *seqProjector) push(o ingest.ProjectionOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = append(p.outcomes, o)
}

func (p *seqProjector) Apply(context.Context, *domain.WebhookEvent) ingest.ProjectionOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applied++
	if len(p.outcomes) == 0 {
		return ingest.ProjectionOutcome{Applied: true}
	}
	o := p.outcomes[0]
	p.outcomes = p.outcomes[1:]
	return o
}

func (p *seqProjector) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.applied
}

// memSnapshots is an in-memory metrics.SnapshotStore.
type memSnapshots struct {
	mu   sync.Mutex
	rows []domain.MetricsSnapshot
}

func (m *memSnapshots) InsertSnapshot(_ context.Context, snap *domain.MetricsSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *snap)
	return nil
}

func (m *memSnapshots) ListSnapshots(_ context.Context, source string, limit, offset int) ([]domain.MetricsSnapshot, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MetricsSnapshot
	for i := len(m.rows) - 1; i >= 0; i-- {
		if source != "" && m.rows[i].Source != source {
			continue
		}
		out = append(out, m.rows[i])
	}
	total := len(out)
	if offset > 0 {
		if offset >= len(out) {
			out = nil
		} else {
			out = out[offset:]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

// memReconcileEnts lists fixed entitlement rows for reconciliation runs.
type memReconcileEnts struct {
	rows []domain.Entitlement
}

func (m *memReconcileEnts) ListActive(_ context.Context, f reconcile.EntitlementFilter) ([]domain.Entitlement, error) {
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

// fakeLock is a DistLock that reports a scripted acquisition result.
type fakeLock struct {
	mu       sync.Mutex
	held     bool
	acquired int
	released int
}

func (l *fakeLock) Acquire(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquired++
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLock) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released++
	l.held = false
	return nil
}

// Minimal in-memory stores for the /api/v1 routes.

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
	return out, len(out), nil
}

func (m *memLeads) Upsert(_ context.Context, l *domain.CampaignLead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	return out, len(out), nil
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
		out = append(out, *p)
	}
	return out, len(out), nil
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
		m.seq++
		i.ID = fmt.Sprintf("inbox-%d", m.seq)
	}
	cp := *i
	m.rows[i.ID] = &cp
	return nil
}

// fakeSequencer answers every email capability call with canned values.
type fakeSequencer struct {
	mu          sync.Mutex
	sequence    []provider.SequenceStep
	saved       []provider.SequenceStep
	statusCalls []string
	analytics   map[string]interface{}
	inboxes     []provider.Inbox
}

func (f *fakeSequencer) ListCampaigns(context.Context, string, int) ([]provider.Campaign, error) {
	return nil, nil
}

func (f *fakeSequencer) CreateCampaign(_ context.Context, name, _ string) (*provider.Campaign, error) {
	return &provider.Campaign{ExternalID: "ext-" + name, Name: name, Status: "drafted"}, nil
}

func (f *fakeSequencer) UpdateCampaignStatus(_ context.Context, campaignID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, campaignID+":"+status)
	return nil
}

func (f *fakeSequencer) GetSequence(context.Context, string) ([]provider.SequenceStep, error) {
	return f.sequence, nil
}

func (f *fakeSequencer) SaveSequence(_ context.Context, _ string, steps []provider.SequenceStep) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = steps
	return nil
}

func (f *fakeSequencer) ListLeads(context.Context, string, int) ([]provider.Lead, error) {
	return nil, nil
}

func (f *fakeSequencer) AddLeads(_ context.Context, _ string, leads []provider.NewLead) (int, error) {
	return len(leads), nil
}

func (f *fakeSequencer) RemoveLead(context.Context, string, string) error { return nil }

func (f *fakeSequencer) UpdateLeadCategory(context.Context, string, string, string) error {
	return nil
}

func (f *fakeSequencer) CampaignAnalytics(context.Context, string) (map[string]interface{}, error) {
	return f.analytics, nil
}

func (f *fakeSequencer) ListInboxes(context.Context, int) ([]provider.Inbox, error) {
	return f.inboxes, nil
}

func (f *fakeSequencer) SetWarmup(context.Context, string, bool) error { return nil }

// fakeDirectMail answers direct-mail capability calls.
type fakeDirectMail struct {
	mu         sync.Mutex
	gotRequest provider.PieceRequest
	canceled   []string
}

func (f *fakeDirectMail) CreatePiece(_ context.Context, req provider.PieceRequest) (*provider.Piece, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotRequest = req
	return &provider.Piece{ExternalID: "psc_123", Type: req.Type, Status: "created"}, nil
}

func (f *fakeDirectMail) ListPieces(context.Context, string, int) ([]provider.Piece, error) {
	return nil, nil
}

func (f *fakeDirectMail) GetPiece(_ context.Context, _, pieceID string) (*provider.Piece, error) {
	return &provider.Piece{ExternalID: pieceID, Status: "delivered"}, nil
}

func (f *fakeDirectMail) CancelPiece(_ context.Context, _, pieceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, pieceID)
	return nil
}

// fixtureOpts tunes the wiring of one test server.
type fixtureOpts struct {
	gateway         ingest.Config
	replay          config.ReplayConfig
	schedulerSecret string
	lockHeld        bool
}

// fixture wires a full server over in-memory stores and scripted adapters.
type fixture struct {
	router    http.Handler
	store     *memEventStore
	projector *seqProjector
	reg       *metrics.Registry
	snapshots *memSnapshots
	gateway   *ingest.Gateway
	campaigns *memCampaigns
	leads     *memLeads
	pieces    *memPieces
	inboxes   *memInboxes
	ents      *memEntitlements
	recEnts   *memReconcileEnts
	sequencer *fakeSequencer
	mailer    *fakeDirectMail
	lock      *fakeLock
}

func newFixture(opts fixtureOpts) *fixture {
	fx := &fixture{
		store:     newMemEventStore(),
		projector: &seqProjector{},
		reg:       metrics.NewRegistry(),
		snapshots: &memSnapshots{},
		campaigns: newMemCampaigns(),
		leads:     newMemLeads(),
		pieces:    newMemPieces(),
		inboxes:   newMemInboxes(),
		ents:      &memEntitlements{},
		recEnts:   &memReconcileEnts{},
		sequencer: &fakeSequencer{},
		mailer:    &fakeDirectMail{},
		lock:      &fakeLock{held: opts.lockHeld},
	}

	fx.gateway = ingest.NewGateway(opts.gateway, fx.store,
		staticTenants{orgID: "org-1", companyID: "co-1"}, fx.projector, fx.reg)

	persister := metrics.NewPersister(fx.reg, fx.snapshots, nil, metrics.SLOThresholds{
		SignatureReject: -1, DeadLetter: -1, ProjectionFailure: -1, ReplayFailure: -1, DuplicateIgnore: -1,
	})
	controller := replay.NewController(fx.store, fx.projector, persister, opts.replay, fx.reg)

	orgs := &memOrgs{rows: map[string]*domain.Organization{
		"org-1": {
			ID:   "org-1",
			Slug: "acme",
			Name: "Acme",
			ProviderConfigs: map[string]domain.ProviderConfig{
				"smartlead": {APIKey: "sk-smartlead"},
				"heyreach":  {APIKey: "sk-heyreach"},
				"lob":       {APIKey: "sk-lob"},
			},
		},
	}}

	registry := provider.NewRegistry()
	registry.RegisterEmailSequencer(domain.ProviderSmartlead, func(provider.Credentials) provider.EmailSequencer {
		return fx.sequencer
	})
	registry.RegisterDirectMail(domain.ProviderLob, func(provider.Credentials) provider.DirectMail {
		return fx.mailer
	})

	outreachSvc := outreach.NewService(outreach.Stores{
		Entitlements: fx.ents,
		Orgs:         orgs,
		Campaigns:    fx.campaigns,
		Leads:        fx.leads,
		Messages:     &memMessages{},
		Pieces:       fx.pieces,
		Inboxes:      fx.inboxes,
	}, registry, fx.reg)

	runner := reconcile.NewRunner(reconcile.Stores{
		Entitlements: fx.recEnts,
		Orgs:         orgs,
	}, registry, nil, fx.reg)

	server := api.NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0}, api.Deps{
		Gateway:         fx.gateway,
		Events:          fx.store,
		Replay:          controller,
		Reconciler:      runner,
		Scheduled:       reconcile.NewScheduledRunner(runner, fx.lock),
		Outreach:        outreachSvc,
		Persister:       persister,
		Snapshots:       fx.snapshots,
		Auth:            newTestAuth(),
		SchedulerSecret: opts.schedulerSecret,
	})
	fx.router = server.Handler()
	return fx
}

// entitle wires one (capability, provider) entitlement for co-1.
func (f *fixture) entitle(slug string) {
	capability, _ := domain.CapabilityForProvider(slug)
	f.ents.rows = append(f.ents.rows, domain.Entitlement{
		ID:           "ent-" + slug,
		OrgID:        "org-1",
		CompanyID:    "co-1",
		CapabilityID: capability,
		ProviderID:   domain.ProviderIDForSlug(slug),
		ProviderSlug: slug,
		Status:       domain.EntitlementConnected,
	})
}

// do issues one request against the in-process router.
func (f *fixture) do(t *testing.T, method, path, token string, body interface{}, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// decodeMap parses a JSON object response body.
func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}
