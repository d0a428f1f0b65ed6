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

// LeadRepo serves the lead stores of the projection engine, the
// reconciliation runner, and the outreach service from company_campaign_leads.
type LeadRepo struct{ db *sql.DB }

// NewLeadRepo creates a Postgres-backed campaign lead repository.
func NewLeadRepo(db *sql.DB) *LeadRepo { return &LeadRepo{db: db} }

const leadColumns = `id, org_id, company_id, company_campaign_id, provider_id,
       external_lead_id, email, first_name, last_name, status, raw_payload,
       created_at, updated_at`

func (r *LeadRepo) GetByExternalID(ctx context.Context, campaignID, providerID, externalLeadID string) (*domain.CampaignLead, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+leadColumns+`
		FROM company_campaign_leads
		WHERE company_campaign_id = $1 AND provider_id = $2 AND external_lead_id = $3
		  AND deleted_at IS NULL
	`, campaignID, providerID, externalLeadID)

	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, projection.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead by external id: %w", err)
	}
	return l, nil
}

func (r *LeadRepo) Get(ctx context.Context, orgID, leadID string) (*domain.CampaignLead, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+leadColumns+`
		FROM company_campaign_leads
		WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL
	`, leadID, orgID)

	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, outreach.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

func (r *LeadRepo) List(ctx context.Context, f outreach.LeadFilter) ([]domain.CampaignLead, int, error) {
	where := " WHERE org_id = $1 AND company_campaign_id = $2 AND deleted_at IS NULL"
	args := []interface{}{f.OrgID, f.CampaignID}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM company_campaign_leads"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf("SELECT %s FROM company_campaign_leads%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		leadColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []domain.CampaignLead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, *l)
	}
	return out, total, nil
}

// Upsert inserts or replaces a lead keyed by
// (campaign, provider, external_lead_id) among live rows, last write wins.
func (r *LeadRepo) Upsert(ctx context.Context, l *domain.CampaignLead) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO company_campaign_leads
			(id, org_id, company_id, company_campaign_id, provider_id,
			 external_lead_id, email, first_name, last_name, status,
			 raw_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (company_campaign_id, provider_id, external_lead_id)
			WHERE deleted_at IS NULL
		DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			status = EXCLUDED.status,
			raw_payload = EXCLUDED.raw_payload,
			updated_at = EXCLUDED.updated_at
	`, l.ID, l.OrgID, l.CompanyID, l.CompanyCampaignID, l.ProviderID,
		l.ExternalLeadID, l.Email, l.FirstName, l.LastName, l.Status,
		jsonArg(l.RawPayload), l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert lead: %w", err)
	}
	return nil
}

// Delete soft-deletes a lead row.
func (r *LeadRepo) Delete(ctx context.Context, leadID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE company_campaign_leads SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, leadID)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrLeadNotFound
	}
	return nil
}

func scanLead(row rowScanner) (*domain.CampaignLead, error) {
	l := &domain.CampaignLead{}
	var raw []byte
	if err := row.Scan(
		&l.ID, &l.OrgID, &l.CompanyID, &l.CompanyCampaignID, &l.ProviderID,
		&l.ExternalLeadID, &l.Email, &l.FirstName, &l.LastName, &l.Status,
		&raw, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	l.RawPayload = jsonMap(raw)
	return l, nil
}
