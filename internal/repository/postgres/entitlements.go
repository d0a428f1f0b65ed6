package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/service/outreach"
	"github.com/reachops/outreach-gateway/internal/service/reconcile"
)

// EntitlementRepo serves the entitlement stores of the reconciliation runner
// and the outreach service. Entitlement rows are seeded by provisioning, so
// the repository is read-only.
type EntitlementRepo struct{ db *sql.DB }

// NewEntitlementRepo creates a Postgres-backed entitlement repository.
func NewEntitlementRepo(db *sql.DB) *EntitlementRepo { return &EntitlementRepo{db: db} }

const entitlementColumns = `id, org_id, company_id, capability_id, provider_id,
       provider_slug, status, provider_config, created_at, updated_at`

// ListActive returns non-disconnected entitlements matching the filter,
// ordered by org then company so sweeps touch each tenant's rows together.
func (r *EntitlementRepo) ListActive(ctx context.Context, f reconcile.EntitlementFilter) ([]domain.Entitlement, error) {
	q := `
		SELECT ` + entitlementColumns + `
		FROM entitlements
		WHERE deleted_at IS NULL AND status != $1`
	args := []interface{}{domain.EntitlementDisconnected}
	if f.ProviderSlug != "" {
		args = append(args, f.ProviderSlug)
		q += fmt.Sprintf(" AND provider_slug = $%d", len(args))
	}
	if f.OrgID != "" {
		args = append(args, f.OrgID)
		q += fmt.Sprintf(" AND org_id = $%d", len(args))
	}
	if f.CompanyID != "" {
		args = append(args, f.CompanyID)
		q += fmt.Sprintf(" AND company_id = $%d", len(args))
	}
	q += " ORDER BY org_id, company_id, provider_slug"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list entitlements: %w", err)
	}
	defer rows.Close()

	var out []domain.Entitlement
	for rows.Next() {
		ent, err := scanEntitlement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entitlement: %w", err)
		}
		out = append(out, *ent)
	}
	return out, nil
}

// GetForCapability returns the non-disconnected entitlement wiring the
// (org, company, capability) triple to its provider.
func (r *EntitlementRepo) GetForCapability(ctx context.Context, orgID, companyID string, capability domain.Capability) (*domain.Entitlement, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+entitlementColumns+`
		FROM entitlements
		WHERE org_id = $1 AND company_id = $2 AND capability_id = $3
		  AND deleted_at IS NULL AND status != $4
	`, orgID, companyID, capability, domain.EntitlementDisconnected)

	ent, err := scanEntitlement(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", outreach.ErrNoEntitlement, capability)
	}
	if err != nil {
		return nil, fmt.Errorf("get entitlement: %w", err)
	}
	return ent, nil
}

func scanEntitlement(row rowScanner) (*domain.Entitlement, error) {
	ent := &domain.Entitlement{}
	var cfg []byte
	if err := row.Scan(
		&ent.ID, &ent.OrgID, &ent.CompanyID, &ent.CapabilityID, &ent.ProviderID,
		&ent.ProviderSlug, &ent.Status, &cfg, &ent.CreatedAt, &ent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ent.ProviderConfig = jsonMap(cfg)
	return ent, nil
}
