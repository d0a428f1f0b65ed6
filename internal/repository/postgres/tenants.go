package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// TenantRepo implements ingest.TenantResolver by joining a delivery's
// external identifiers against the projection tables. Resolution is
// best-effort: a miss returns empty ids with a nil error.
type TenantRepo struct{ db *sql.DB }

// NewTenantRepo creates a Postgres-backed tenant resolver.
func NewTenantRepo(db *sql.DB) *TenantRepo { return &TenantRepo{db: db} }

func (r *TenantRepo) TenantForCampaign(ctx context.Context, providerID, externalCampaignID string) (string, string, error) {
	var orgID, companyID string
	err := r.db.QueryRowContext(ctx, `
		SELECT org_id, company_id
		FROM company_campaigns
		WHERE provider_id = $1 AND external_campaign_id = $2 AND deleted_at IS NULL
	`, providerID, externalCampaignID).Scan(&orgID, &companyID)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("resolve campaign tenant: %w", err)
	}
	return orgID, companyID, nil
}

func (r *TenantRepo) TenantForPiece(ctx context.Context, providerID, externalPieceID string) (string, string, error) {
	var orgID, companyID string
	err := r.db.QueryRowContext(ctx, `
		SELECT org_id, company_id
		FROM direct_mail_pieces
		WHERE provider_id = $1 AND external_piece_id = $2 AND deleted_at IS NULL
	`, providerID, externalPieceID).Scan(&orgID, &companyID)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("resolve piece tenant: %w", err)
	}
	return orgID, companyID, nil
}
