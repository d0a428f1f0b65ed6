package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/reachops/outreach-gateway/internal/domain"
)

// OrgRepo loads organization rows for the services that need tenant
// credentials. Organizations are provisioned out of band, so the repository
// is read-only.
type OrgRepo struct{ db *sql.DB }

// NewOrgRepo creates a Postgres-backed organization repository.
func NewOrgRepo(db *sql.DB) *OrgRepo { return &OrgRepo{db: db} }

func (r *OrgRepo) Get(ctx context.Context, orgID string) (*domain.Organization, error) {
	org := &domain.Organization{}
	var configs []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, slug, name, provider_configs, created_at, updated_at
		FROM organizations
		WHERE id = $1 AND deleted_at IS NULL
	`, orgID).Scan(&org.ID, &org.Slug, &org.Name, &configs, &org.CreatedAt, &org.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("organization %s not found", orgID)
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}

	if len(configs) > 0 {
		if err := json.Unmarshal(configs, &org.ProviderConfigs); err != nil {
			return nil, fmt.Errorf("decode provider configs: %w", err)
		}
	}
	return org, nil
}
