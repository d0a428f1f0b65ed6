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

// CampaignRepo serves the campaign stores of the projection engine, the
// reconciliation runner, and the outreach service from company_campaigns.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

const campaignColumns = `id, org_id, company_id, provider_id, external_campaign_id,
       name, status, created_by_user_id, raw_payload, message_sync_status,
       last_message_sync_error, created_at, updated_at`

func (r *CampaignRepo) GetByExternalID(ctx context.Context, providerID, externalCampaignID string) (*domain.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+campaignColumns+`
		FROM company_campaigns
		WHERE provider_id = $1 AND external_campaign_id = $2 AND deleted_at IS NULL
	`, providerID, externalCampaignID)

	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, projection.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign by external id: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) Get(ctx context.Context, orgID, campaignID string) (*domain.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+campaignColumns+`
		FROM company_campaigns
		WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL
	`, campaignID, orgID)

	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, outreach.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) List(ctx context.Context, f outreach.CampaignFilter) ([]domain.Campaign, int, error) {
	where := " WHERE org_id = $1 AND deleted_at IS NULL"
	args := []interface{}{f.OrgID}
	if f.CompanyID != "" {
		args = append(args, f.CompanyID)
		where += fmt.Sprintf(" AND company_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM company_campaigns"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf("SELECT %s FROM company_campaigns%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		campaignColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, total, nil
}

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO company_campaigns
			(id, org_id, company_id, provider_id, external_campaign_id, name,
			 status, created_by_user_id, raw_payload, message_sync_status,
			 last_message_sync_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, c.ID, c.OrgID, c.CompanyID, c.ProviderID, c.ExternalCampaignID, c.Name,
		c.Status, c.CreatedByUserID, jsonArg(c.RawPayload), c.MessageSyncStatus,
		c.LastMessageSyncError, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

// Update writes the mutable projection fields of an existing campaign row.
func (r *CampaignRepo) Update(ctx context.Context, c *domain.Campaign) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE company_campaigns
		SET name = $1, status = $2, raw_payload = $3, message_sync_status = $4,
		    last_message_sync_error = $5, updated_at = NOW()
		WHERE id = $6 AND deleted_at IS NULL
	`, c.Name, c.Status, jsonArg(c.RawPayload), c.MessageSyncStatus,
		c.LastMessageSyncError, c.ID)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return projection.ErrCampaignNotFound
	}
	return nil
}

func scanCampaign(row rowScanner) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	var raw []byte
	if err := row.Scan(
		&c.ID, &c.OrgID, &c.CompanyID, &c.ProviderID, &c.ExternalCampaignID,
		&c.Name, &c.Status, &c.CreatedByUserID, &raw, &c.MessageSyncStatus,
		&c.LastMessageSyncError, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.RawPayload = jsonMap(raw)
	return c, nil
}
