package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/service/outreach"
	"github.com/reachops/outreach-gateway/internal/service/projection"
)

// MessageRepo serves the message stores of the projection engine, the
// reconciliation runner, and the outreach listing from
// company_campaign_messages.
type MessageRepo struct{ db *sql.DB }

// NewMessageRepo creates a Postgres-backed campaign message repository.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

const messageColumns = `id, org_id, company_id, company_campaign_id,
       company_campaign_lead_id, provider_id, external_message_id, direction,
       sequence_step_number, subject, body, sent_at, raw_payload,
       created_at, updated_at`

func (r *MessageRepo) GetByExternalID(ctx context.Context, campaignID, providerID, externalMessageID string) (*domain.CampaignMessage, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM company_campaign_messages
		WHERE company_campaign_id = $1 AND provider_id = $2 AND external_message_id = $3
		  AND deleted_at IS NULL
	`, campaignID, providerID, externalMessageID)

	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, projection.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message by external id: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) List(ctx context.Context, f outreach.MessageFilter) ([]domain.CampaignMessage, int, error) {
	where := " WHERE org_id = $1 AND company_campaign_id = $2 AND deleted_at IS NULL"
	args := []interface{}{f.OrgID, f.CampaignID}
	if f.Direction != "" {
		args = append(args, f.Direction)
		where += fmt.Sprintf(" AND direction = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM company_campaign_messages"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf("SELECT %s FROM company_campaign_messages%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		messageColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []domain.CampaignMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, *m)
	}
	return out, total, nil
}

// Upsert inserts or replaces a message keyed by
// (campaign, provider, external_message_id) among live rows, last write wins.
func (r *MessageRepo) Upsert(ctx context.Context, m *domain.CampaignMessage) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO company_campaign_messages
			(id, org_id, company_id, company_campaign_id, company_campaign_lead_id,
			 provider_id, external_message_id, direction, sequence_step_number,
			 subject, body, sent_at, raw_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (company_campaign_id, provider_id, external_message_id)
			WHERE deleted_at IS NULL
		DO UPDATE SET
			company_campaign_lead_id = EXCLUDED.company_campaign_lead_id,
			direction = EXCLUDED.direction,
			sequence_step_number = EXCLUDED.sequence_step_number,
			subject = EXCLUDED.subject,
			body = EXCLUDED.body,
			sent_at = EXCLUDED.sent_at,
			raw_payload = EXCLUDED.raw_payload,
			updated_at = EXCLUDED.updated_at
	`, m.ID, m.OrgID, m.CompanyID, m.CompanyCampaignID, m.CompanyCampaignLeadID,
		m.ProviderID, m.ExternalMessageID, m.Direction, m.SequenceStepNumber,
		m.Subject, m.Body, m.SentAt, jsonArg(m.RawPayload), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	return nil
}

func scanMessage(row rowScanner) (*domain.CampaignMessage, error) {
	m := &domain.CampaignMessage{}
	var raw []byte
	if err := row.Scan(
		&m.ID, &m.OrgID, &m.CompanyID, &m.CompanyCampaignID,
		&m.CompanyCampaignLeadID, &m.ProviderID, &m.ExternalMessageID,
		&m.Direction, &m.SequenceStepNumber, &m.Subject, &m.Body, &m.SentAt,
		&raw, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.RawPayload = jsonMap(raw)
	return m, nil
}
