package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/service/outreach"
)

// InboxRepo serves the outreach service's inbox store from the inboxes table.
type InboxRepo struct{ db *sql.DB }

// NewInboxRepo creates a Postgres-backed sender inbox repository.
func NewInboxRepo(db *sql.DB) *InboxRepo { return &InboxRepo{db: db} }

const inboxColumns = `id, org_id, company_id, provider_id, external_account_id,
       email, status, warmup_enabled, created_at, updated_at`

func (r *InboxRepo) Get(ctx context.Context, orgID, inboxID string) (*domain.Inbox, error) {
	i := &domain.Inbox{}
	err := r.db.QueryRowContext(ctx, `
		SELECT `+inboxColumns+`
		FROM inboxes
		WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL
	`, inboxID, orgID).Scan(
		&i.ID, &i.OrgID, &i.CompanyID, &i.ProviderID, &i.ExternalAccountID,
		&i.Email, &i.Status, &i.WarmupEnabled, &i.CreatedAt, &i.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, outreach.ErrInboxNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get inbox: %w", err)
	}
	return i, nil
}

// Upsert inserts or replaces an inbox keyed by
// (provider, external_account_id) among live rows.
func (r *InboxRepo) Upsert(ctx context.Context, i *domain.Inbox) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	if i.UpdatedAt.IsZero() {
		i.UpdatedAt = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO inboxes
			(id, org_id, company_id, provider_id, external_account_id, email,
			 status, warmup_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (provider_id, external_account_id) WHERE deleted_at IS NULL
		DO UPDATE SET
			email = EXCLUDED.email,
			status = EXCLUDED.status,
			warmup_enabled = EXCLUDED.warmup_enabled,
			updated_at = EXCLUDED.updated_at
	`, i.ID, i.OrgID, i.CompanyID, i.ProviderID, i.ExternalAccountID, i.Email,
		i.Status, i.WarmupEnabled, i.CreatedAt, i.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert inbox: %w", err)
	}
	return nil
}
