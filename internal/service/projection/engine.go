package projection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/metrics"
	"github.com/reachops/outreach-gateway/internal/pkg/logger"
	"github.com/reachops/outreach-gateway/internal/service/ingest"
)

// Engine applies webhook events to the domain tables. It implements the
// ingest.Projector contract consumed by the gateway and the replay
// controller; the event-row transition stays with the caller.
type Engine struct {
	campaigns CampaignStore
	leads     LeadStore
	messages  MessageStore
	pieces    PieceStore
	reg       *metrics.Registry
}

// NewEngine creates a projection engine. A nil registry falls back to the
// process-wide one.
func NewEngine(campaigns CampaignStore, leads LeadStore, messages MessageStore, pieces PieceStore, reg *metrics.Registry) *Engine {
	if reg == nil {
		reg = metrics.Default()
	}
	return &Engine{campaigns: campaigns, leads: leads, messages: messages, pieces: pieces, reg: reg}
}

// Apply projects one event and reports the outcome. Failures carry the
// dead-letter reason and whether the classification was transient.
func (e *Engine) Apply(ctx context.Context, event *domain.WebhookEvent) ingest.ProjectionOutcome {
	err := e.apply(ctx, event)
	if err == nil {
		e.reg.Incr(metrics.CounterProjectionApplied, map[string]string{"provider": event.ProviderSlug})
		return ingest.ProjectionOutcome{Applied: true}
	}

	reason := domain.DeadLetterProjectionFailure
	if errors.Is(err, ErrUnresolvedTenant) {
		reason = domain.DeadLetterProjectionUnresolved
	}
	category, retryable := Classify(err)
	e.reg.Incr(metrics.CounterProjectionFailure, map[string]string{
		"provider": event.ProviderSlug,
		"category": string(category),
	})
	logger.Warn("projection.failed",
		"provider", event.ProviderSlug,
		"event_key", event.EventKey,
		"event_type", event.EventType,
		"category", string(category),
		"error", err)
	return ingest.ProjectionOutcome{Reason: reason, Retryable: retryable, Err: err}
}

func (e *Engine) apply(ctx context.Context, event *domain.WebhookEvent) error {
	switch eventFamily(event.EventType) {
	case familyPiece:
		return e.applyPiece(ctx, event)
	case familyLead:
		return e.applyLead(ctx, event)
	case familyMessage:
		return e.applyMessage(ctx, event)
	default:
		return e.applyCampaign(ctx, event)
	}
}

const (
	familyCampaign = "campaign"
	familyLead     = "lead"
	familyMessage  = "message"
	familyPiece    = "piece"
)

// eventFamily routes an event type onto a projection family. Campaign is
// the default; anything mentioning a piece is direct mail, lead beats
// message so "lead_replied" updates the lead.
func eventFamily(eventType string) string {
	t := strings.ToLower(eventType)
	switch {
	case strings.Contains(t, "piece"):
		return familyPiece
	case strings.Contains(t, "lead"):
		return familyLead
	case strings.Contains(t, "reply"), strings.Contains(t, "message"), strings.Contains(t, "sent"):
		return familyMessage
	default:
		return familyCampaign
	}
}

func (e *Engine) applyCampaign(ctx context.Context, event *domain.WebhookEvent) error {
	externalID := domain.PayloadString(event.Payload, "campaign_id", "campaign_external_id")
	if externalID == "" {
		return fmt.Errorf("campaign event %s: missing campaign_id", event.EventKey)
	}
	c, err := e.campaigns.GetByExternalID(ctx, domain.ProviderIDForSlug(event.ProviderSlug), externalID)
	if err != nil {
		return fmt.Errorf("resolve campaign %s: %w", externalID, err)
	}

	if raw := domain.PayloadString(event.Payload, "status", "campaign_status"); raw != "" {
		c.Status = domain.NormalizeCampaignStatus(raw)
	}
	c.RawPayload = event.Payload
	c.UpdatedAt = time.Now().UTC()
	if err := e.campaigns.Update(ctx, c); err != nil {
		return fmt.Errorf("update campaign %s: %w", c.ID, err)
	}
	return nil
}

func (e *Engine) applyLead(ctx context.Context, event *domain.WebhookEvent) error {
	campaignExt := domain.PayloadString(event.Payload, "campaign_id", "campaign_external_id")
	if campaignExt == "" {
		return fmt.Errorf("lead event %s: missing campaign_id", event.EventKey)
	}
	leadExt := domain.PayloadString(event.Payload, "lead_id", "external_lead_id", "lead_external_id")
	if leadExt == "" {
		leadExt = domain.PayloadString(event.Payload, "lead_email", "email")
	}
	if leadExt == "" {
		return fmt.Errorf("lead event %s: missing lead identifier", event.EventKey)
	}

	providerID := domain.ProviderIDForSlug(event.ProviderSlug)
	c, err := e.campaigns.GetByExternalID(ctx, providerID, campaignExt)
	if err != nil {
		return fmt.Errorf("resolve campaign %s: %w", campaignExt, err)
	}

	now := time.Now().UTC()
	lead, err := e.leads.GetByExternalID(ctx, c.ID, providerID, leadExt)
	switch {
	case err == nil:
	case errors.Is(err, ErrLeadNotFound):
		lead = &domain.CampaignLead{
			OrgID:             c.OrgID,
			CompanyID:         c.CompanyID,
			CompanyCampaignID: c.ID,
			ProviderID:        providerID,
			ExternalLeadID:    leadExt,
			Status:            domain.LeadUnknown,
			CreatedAt:         now,
		}
	default:
		return fmt.Errorf("resolve lead %s: %w", leadExt, err)
	}

	if raw := domain.PayloadString(event.Payload, "lead_status", "status"); raw != "" {
		lead.Status = domain.NormalizeLeadStatus(raw)
	}
	if email := domain.PayloadString(event.Payload, "lead_email", "email"); email != "" {
		lead.Email = email
	}
	if first := domain.PayloadString(event.Payload, "first_name", "lead_first_name"); first != "" {
		lead.FirstName = first
	}
	if last := domain.PayloadString(event.Payload, "last_name", "lead_last_name"); last != "" {
		lead.LastName = last
	}
	lead.RawPayload = event.Payload
	lead.UpdatedAt = now
	if err := e.leads.Upsert(ctx, lead); err != nil {
		return fmt.Errorf("upsert lead %s: %w", leadExt, err)
	}
	return nil
}

func (e *Engine) applyMessage(ctx context.Context, event *domain.WebhookEvent) error {
	campaignExt := domain.PayloadString(event.Payload, "campaign_id", "campaign_external_id")
	if campaignExt == "" {
		return fmt.Errorf("message event %s: missing campaign_id", event.EventKey)
	}
	msgExt := domain.PayloadString(event.Payload, "message_id", "external_message_id", "email_message_id")
	if msgExt == "" {
		return fmt.Errorf("message event %s: missing message_id", event.EventKey)
	}

	providerID := domain.ProviderIDForSlug(event.ProviderSlug)
	c, err := e.campaigns.GetByExternalID(ctx, providerID, campaignExt)
	if err != nil {
		return fmt.Errorf("resolve campaign %s: %w", campaignExt, err)
	}

	now := time.Now().UTC()
	m := &domain.CampaignMessage{
		OrgID:             c.OrgID,
		CompanyID:         c.CompanyID,
		CompanyCampaignID: c.ID,
		ProviderID:        providerID,
		ExternalMessageID: msgExt,
		Direction:         domain.DirectionFromEventType(event.EventType),
		Subject:           domain.PayloadString(event.Payload, "subject"),
		Body:              domain.PayloadString(event.Payload, "body", "message_body", "text"),
		RawPayload:        event.Payload,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if step, ok := domain.PayloadInt(event.Payload, "sequence_step_number", "sequence_number", "step"); ok && step >= 1 {
		m.SequenceStepNumber = &step
	}
	if ts := domain.PayloadString(event.Payload, "sent_at", "time_sent"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			sentAt := parsed.UTC()
			m.SentAt = &sentAt
		}
	}
	if err := e.messages.Upsert(ctx, m); err != nil {
		return fmt.Errorf("upsert message %s: %w", msgExt, err)
	}
	return nil
}

func (e *Engine) applyPiece(ctx context.Context, event *domain.WebhookEvent) error {
	pieceExt := domain.PayloadString(event.Payload, "piece_id", "piece_external_id")
	if pieceExt == "" {
		pieceExt = domain.PayloadString(domain.PayloadMap(event.Payload, "resource"), "id")
	}
	if pieceExt == "" {
		return fmt.Errorf("piece event %s: missing resource id", event.EventKey)
	}

	providerID := domain.ProviderIDForSlug(event.ProviderSlug)
	now := time.Now().UTC()
	piece, err := e.pieces.GetByExternalID(ctx, providerID, pieceExt)
	switch {
	case err == nil:
	case errors.Is(err, ErrPieceNotFound):
		// Piece events for rows we never created only apply when the
		// gateway resolved the tenant; otherwise the event is unresolvable.
		if event.OrgID == nil || event.CompanyID == nil {
			return fmt.Errorf("piece %s: %w", pieceExt, ErrUnresolvedTenant)
		}
		piece = &domain.DirectMailPiece{
			OrgID:           *event.OrgID,
			CompanyID:       *event.CompanyID,
			ProviderID:      providerID,
			ExternalPieceID: pieceExt,
			Status:          domain.PieceUnknown,
			CreatedAt:       now,
		}
	default:
		return fmt.Errorf("resolve piece %s: %w", pieceExt, err)
	}

	if status, ok := domain.PieceStatusForEventType(event.EventType); ok {
		piece.Status = status
	} else if raw := domain.PayloadString(event.Payload, "status"); raw != "" {
		piece.Status = domain.NormalizePieceStatus(raw)
	}
	piece.RawPayload = event.Payload
	piece.UpdatedAt = now
	if err := e.pieces.Upsert(ctx, piece); err != nil {
		return fmt.Errorf("upsert piece %s: %w", pieceExt, err)
	}
	return nil
}
