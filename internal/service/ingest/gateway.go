package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/metrics"
	"github.com/reachops/outreach-gateway/internal/pkg/logger"
)

// Response statuses returned to providers. Always paired with HTTP 200 so
// well-behaved providers stop retrying once the event is stored.
const (
	StatusProcessed          = "processed"
	StatusAccepted           = "accepted"
	StatusDuplicateIgnored   = "duplicate_ignored"
	StatusDeadLetterRecorded = "dead_letter_recorded"
)

// Background projection for unsigned-origin providers gets its own bounded
// deadline, detached from the already-answered request.
const asyncProjectTimeout = 30 * time.Second

// Config carries the per-provider trust settings the gateway needs.
type Config struct {
	SmartleadSecret     string
	HeyReachSecret      string
	LobSecret           string
	LobSignatureMode    string
	LobTolerance        time.Duration
	LobSchemaVersions   []string
	EmailBisonPathToken string
	EmailBisonOrigins   []string
}

// Delivery is one raw webhook request handed over by the HTTP layer.
type Delivery struct {
	Provider  string
	Body      []byte
	Header    http.Header
	PathToken string
	RequestID string
}

// Result is the gateway's answer for a delivery that reached the store.
// Status becomes the "status" field of the response body.
type Result struct {
	HTTPStatus int
	Status     string
	EventKey   string
	Reason     string
}

// Gateway ingests provider webhooks: trust verification, event keying,
// tenant resolution, payload enrichment, append, projection.
type Gateway struct {
	store     EventStore
	tenants   TenantResolver
	projector Projector
	reg       *metrics.Registry

	smartlead  HMACPolicy
	heyreach   HMACPolicy
	lob        LobPolicy
	emailbison OriginPolicy

	schemaVersions []string

	// wg tracks detached projection goroutines so shutdown and tests can
	// wait for them to settle.
	wg sync.WaitGroup
}

// NewGateway creates a webhook gateway. A nil registry falls back to the
// process-wide one.
func NewGateway(cfg Config, store EventStore, tenants TenantResolver, projector Projector, reg *metrics.Registry) *Gateway {
	if reg == nil {
		reg = metrics.Default()
	}
	return &Gateway{
		store:     store,
		tenants:   tenants,
		projector: projector,
		reg:       reg,
		smartlead: NewHMACPolicy(domain.ProviderSmartlead, cfg.SmartleadSecret),
		heyreach:  NewHMACPolicy(domain.ProviderHeyReach, cfg.HeyReachSecret),
		lob: LobPolicy{
			Secret:    cfg.LobSecret,
			Mode:      cfg.LobSignatureMode,
			Tolerance: cfg.LobTolerance,
		},
		emailbison: OriginPolicy{
			PathToken:      cfg.EmailBisonPathToken,
			AllowedOrigins: cfg.EmailBisonOrigins,
		},
		schemaVersions: cfg.LobSchemaVersions,
	}
}

// Wait blocks until all detached projection goroutines have finished.
func (g *Gateway) Wait() { g.wg.Wait() }

// Ingest runs one delivery through the full pipeline. A *TrustError return
// means the delivery was rejected before touching the store.
func (g *Gateway) Ingest(ctx context.Context, d Delivery) (*Result, error) {
	syncProject, trust, err := g.verify(d)
	if err != nil {
		return nil, err
	}

	g.reg.Incr(metrics.CounterWebhookReceived, map[string]string{"provider": d.Provider})

	if !trust.OK {
		counter := metrics.CounterSignatureRejected
		if trust.Mode == TrustModeUnsignedOrigin {
			counter = metrics.CounterAuthRejected
		}
		g.reg.Incr(counter, map[string]string{"provider": d.Provider, "reason": trust.Reason})
		logger.Warn("webhook.trust_rejected",
			"provider", d.Provider, "reason", trust.Reason, "request_id", d.RequestID)
		return nil, trustError(d.Provider, trust)
	}
	if trust.Mode == LobModePermissiveAudit && trust.Verification != verificationVerified {
		g.reg.Incr(metrics.CounterSignatureAudited, map[string]string{"provider": d.Provider, "reason": trust.Verification})
		logger.Warn("webhook.signature.audited",
			"provider", d.Provider, "reason", trust.Verification, "request_id", d.RequestID)
	}

	payload, parseErr := parsePayload(d.Body)
	eventType := domain.PayloadString(payload, "event", "event_type", "type")
	if eventType == "" {
		eventType = "unknown"
	}
	key := EventKey(d.Provider, payload, d.Body)
	orgID, companyID := g.resolveTenant(ctx, d.Provider, payload)

	now := time.Now().UTC()
	record := domain.IngestionRecord{
		TrustMode:    trust.Mode,
		Verification: trust.Verification,
		ReceivedAt:   now,
		OriginHost:   originHost(d.Header),
		RequestID:    d.RequestID,
		Headers:      selectedHeaders(d.Header),
		RawBody:      string(d.Body),
	}
	payload[domain.PayloadKeyIngestion] = record.AsPayload()

	// Deliveries that can never project are still stored first, then
	// dead-lettered, so operators can inspect and replay them.
	deadReason, deadCause := "", ""
	if parseErr != "" {
		deadReason, deadCause = domain.DeadLetterMalformedPayload, parseErr
	} else if d.Provider == domain.ProviderLob {
		if detail := g.validateLobSchema(payload); detail != "" {
			payload[domain.PayloadKeySchemaValidation] = domain.SchemaValidationRecord{
				Status:    "failed",
				Detail:    detail,
				CheckedAt: now,
			}.AsPayload()
			deadReason, deadCause = detail, "schema validation failed: "+detail
		}
	}

	event := &domain.WebhookEvent{
		ID:           uuid.New().String(),
		ProviderSlug: d.Provider,
		EventKey:     key,
		EventType:    eventType,
		Status:       domain.EventProcessed,
		Payload:      payload,
		CreatedAt:    now,
	}
	if !syncProject {
		event.Status = domain.EventAccepted
	}
	if orgID != "" {
		event.OrgID = &orgID
	}
	if companyID != "" {
		event.CompanyID = &companyID
	}

	if err := g.store.Insert(ctx, event); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			g.reg.Incr(metrics.CounterDuplicateIgnored, map[string]string{"provider": d.Provider})
			logger.Info("webhook.duplicate_ignored",
				"provider", d.Provider, "event_key", key, "request_id", d.RequestID)
			return &Result{HTTPStatus: http.StatusOK, Status: StatusDuplicateIgnored, EventKey: key}, nil
		}
		return nil, fmt.Errorf("insert webhook event: %w", err)
	}

	if deadReason != "" {
		if err := g.markDeadLetter(ctx, event, deadReason, false, deadCause); err != nil {
			logger.Error("webhook.dead_letter_update_failed",
				"provider", d.Provider, "event_key", key, "error", err)
		}
		return &Result{HTTPStatus: http.StatusOK, Status: StatusDeadLetterRecorded, EventKey: key, Reason: deadReason}, nil
	}

	if syncProject {
		return g.project(ctx, event), nil
	}

	g.reg.Incr(metrics.CounterWebhookAccepted, map[string]string{"provider": d.Provider})
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), asyncProjectTimeout)
		defer cancel()
		g.project(ctx, event)
	}()
	return &Result{HTTPStatus: http.StatusOK, Status: StatusAccepted, EventKey: key}, nil
}

// verify routes the delivery to its provider's trust policy. Signed
// providers project synchronously, unsigned-origin ones asynchronously.
func (g *Gateway) verify(d Delivery) (syncProject bool, trust TrustResult, err error) {
	switch d.Provider {
	case domain.ProviderSmartlead:
		return true, g.smartlead.Verify(d.Body, d.Header), nil
	case domain.ProviderHeyReach:
		return true, g.heyreach.Verify(d.Body, d.Header), nil
	case domain.ProviderLob:
		return true, g.lob.Verify(d.Body, d.Header), nil
	case domain.ProviderEmailBison:
		return false, g.emailbison.Verify(d.PathToken, d.Header), nil
	default:
		return false, TrustResult{}, ErrUnknownProvider
	}
}

// project applies the event inline and finalizes its row: processed on
// success, dead_letter with an embedded record on failure.
func (g *Gateway) project(ctx context.Context, event *domain.WebhookEvent) *Result {
	outcome := g.projector.Apply(ctx, event)
	if outcome.Applied {
		now := time.Now().UTC()
		status := domain.EventProcessed
		if err := g.store.UpdateByKey(ctx, event.ProviderSlug, event.EventKey, EventUpdate{Status: &status, ProcessedAt: &now}); err != nil {
			logger.Error("webhook.finalize_failed",
				"provider", event.ProviderSlug, "event_key", event.EventKey, "error", err)
		}
		g.reg.Incr(metrics.CounterWebhookProcessed, map[string]string{"provider": event.ProviderSlug})
		return &Result{HTTPStatus: http.StatusOK, Status: StatusProcessed, EventKey: event.EventKey}
	}

	cause := ""
	if outcome.Err != nil {
		cause = outcome.Err.Error()
	}
	if err := g.markDeadLetter(ctx, event, outcome.Reason, outcome.Retryable, cause); err != nil {
		logger.Error("webhook.dead_letter_update_failed",
			"provider", event.ProviderSlug, "event_key", event.EventKey, "error", err)
	}
	return &Result{HTTPStatus: http.StatusOK, Status: StatusDeadLetterRecorded, EventKey: event.EventKey, Reason: outcome.Reason}
}

// markDeadLetter flips the stored event to dead_letter and embeds the
// "_dead_letter" record. The event is mutated in place so the stored copy
// and the caller's view agree.
func (g *Gateway) markDeadLetter(ctx context.Context, event *domain.WebhookEvent, reason string, retryable bool, cause string) error {
	rec := domain.DeadLetterRecord{Reason: reason, Retryable: retryable, Error: cause, RecordedAt: time.Now().UTC()}
	event.Payload[domain.PayloadKeyDeadLetter] = rec.AsPayload()
	event.Status = domain.EventDeadLetter
	event.LastError = cause

	status := domain.EventDeadLetter
	update := EventUpdate{Status: &status, Payload: event.Payload, LastError: &cause}
	if err := g.store.UpdateByKey(ctx, event.ProviderSlug, event.EventKey, update); err != nil {
		return err
	}
	g.reg.Incr(metrics.CounterDeadLetter, map[string]string{"provider": event.ProviderSlug, "reason": reasonLabel(reason)})
	logger.Warn("webhook.dead_letter",
		"provider", event.ProviderSlug, "event_key", event.EventKey, "reason", reason)
	return nil
}

// resolveTenant joins payload hints against local rows, best-effort. For
// direct mail the hint is the resource id; for sequencers the campaign id.
func (g *Gateway) resolveTenant(ctx context.Context, provider string, payload map[string]any) (string, string) {
	providerID := domain.ProviderIDForSlug(provider)

	if campaignExt := domain.PayloadString(payload, "campaign_id", "campaign_external_id"); campaignExt != "" {
		orgID, companyID, err := g.tenants.TenantForCampaign(ctx, providerID, campaignExt)
		if err != nil {
			logger.Warn("webhook.tenant_resolve_failed", "provider", provider, "error", err)
		} else if orgID != "" {
			return orgID, companyID
		}
	}

	if provider == domain.ProviderLob {
		pieceExt := domain.PayloadString(payload, "piece_id", "piece_external_id")
		if pieceExt == "" {
			pieceExt = domain.PayloadString(domain.PayloadMap(payload, "resource"), "id")
		}
		if pieceExt != "" {
			orgID, companyID, err := g.tenants.TenantForPiece(ctx, providerID, pieceExt)
			if err != nil {
				logger.Warn("webhook.tenant_resolve_failed", "provider", provider, "error", err)
			} else if orgID != "" {
				return orgID, companyID
			}
		}
	}
	return "", ""
}

// validateLobSchema checks the structural contract of a direct-mail
// payload: a supported schema version when one is declared, then the
// required id, type, date_created and resource.id fields. The returned
// detail is empty when valid.
func (g *Gateway) validateLobSchema(payload map[string]any) string {
	if v := domain.PayloadString(payload, "schema_version", "version"); v != "" && !g.schemaVersionSupported(v) {
		return domain.DeadLetterVersionUnsupported + ":" + v
	}
	var missing []string
	if domain.PayloadString(payload, "id") == "" {
		missing = append(missing, "id")
	}
	if domain.PayloadString(payload, "type", "event_type") == "" {
		missing = append(missing, "type")
	}
	if domain.PayloadString(payload, "date_created") == "" {
		missing = append(missing, "date_created")
	}
	if domain.PayloadString(domain.PayloadMap(payload, "resource"), "id") == "" {
		missing = append(missing, "resource.id")
	}
	if len(missing) > 0 {
		return domain.DeadLetterSchemaInvalid + ":" + strings.Join(missing, ",")
	}
	return ""
}

func (g *Gateway) schemaVersionSupported(v string) bool {
	for _, s := range g.schemaVersions {
		if strings.EqualFold(strings.TrimSpace(s), v) {
			return true
		}
	}
	return false
}

// parsePayload decodes the raw body. Malformed bodies come back as a stub
// map plus the parse error, so they still enter the event store.
func parsePayload(body []byte) (map[string]any, string) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return map[string]any{"parse_error": err.Error()}, err.Error()
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, ""
}

// ingestionHeaders are the request headers copied into the "_ingestion"
// record for later trust audits.
var ingestionHeaders = []string{
	"Content-Type",
	"User-Agent",
	"Origin",
	"Referer",
	"X-Forwarded-Host",
	"X-Forwarded-For",
}

func selectedHeaders(h http.Header) map[string]string {
	out := make(map[string]string)
	for _, name := range ingestionHeaders {
		if v := h.Get(name); v != "" {
			out[name] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// reasonLabel trims the ":detail" suffix off qualified dead-letter reasons
// so metric label cardinality stays bounded.
func reasonLabel(reason string) string {
	if i := strings.IndexByte(reason, ':'); i > 0 {
		return reason[:i]
	}
	return reason
}
