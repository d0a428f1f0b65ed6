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

// PieceRepo serves the direct-mail piece stores of the projection engine and
// the outreach service from direct_mail_pieces.
type PieceRepo struct{ db *sql.DB }

// NewPieceRepo creates a Postgres-backed direct-mail piece repository.
func NewPieceRepo(db *sql.DB) *PieceRepo { return &PieceRepo{db: db} }

const pieceColumns = `id, org_id, company_id, provider_id, external_piece_id,
       piece_type, status, send_date, metadata, raw_payload, created_at, updated_at`

func (r *PieceRepo) GetByExternalID(ctx context.Context, providerID, externalPieceID string) (*domain.DirectMailPiece, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+pieceColumns+`
		FROM direct_mail_pieces
		WHERE provider_id = $1 AND external_piece_id = $2 AND deleted_at IS NULL
	`, providerID, externalPieceID)

	p, err := scanPiece(row)
	if err == sql.ErrNoRows {
		return nil, projection.ErrPieceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get piece by external id: %w", err)
	}
	return p, nil
}

func (r *PieceRepo) Get(ctx context.Context, orgID, pieceID string) (*domain.DirectMailPiece, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+pieceColumns+`
		FROM direct_mail_pieces
		WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL
	`, pieceID, orgID)

	p, err := scanPiece(row)
	if err == sql.ErrNoRows {
		return nil, outreach.ErrPieceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get piece: %w", err)
	}
	return p, nil
}

func (r *PieceRepo) List(ctx context.Context, f outreach.PieceFilter) ([]domain.DirectMailPiece, int, error) {
	where := " WHERE org_id = $1 AND deleted_at IS NULL"
	args := []interface{}{f.OrgID}
	if f.CompanyID != "" {
		args = append(args, f.CompanyID)
		where += fmt.Sprintf(" AND company_id = $%d", len(args))
	}
	if f.PieceType != "" {
		args = append(args, f.PieceType)
		where += fmt.Sprintf(" AND piece_type = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM direct_mail_pieces"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pieces: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf("SELECT %s FROM direct_mail_pieces%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		pieceColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list pieces: %w", err)
	}
	defer rows.Close()

	var out []domain.DirectMailPiece
	for rows.Next() {
		p, err := scanPiece(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan piece: %w", err)
		}
		out = append(out, *p)
	}
	return out, total, nil
}

// Upsert inserts or replaces a piece keyed by (provider, external_piece_id)
// among live rows. The piece type is fixed at creation; status, send date,
// and payloads follow the latest write.
func (r *PieceRepo) Upsert(ctx context.Context, p *domain.DirectMailPiece) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO direct_mail_pieces
			(id, org_id, company_id, provider_id, external_piece_id, piece_type,
			 status, send_date, metadata, raw_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (provider_id, external_piece_id) WHERE deleted_at IS NULL
		DO UPDATE SET
			status = EXCLUDED.status,
			send_date = EXCLUDED.send_date,
			metadata = EXCLUDED.metadata,
			raw_payload = EXCLUDED.raw_payload,
			updated_at = EXCLUDED.updated_at
	`, p.ID, p.OrgID, p.CompanyID, p.ProviderID, p.ExternalPieceID, p.PieceType,
		p.Status, p.SendDate, jsonArg(p.Metadata), jsonArg(p.RawPayload),
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert piece: %w", err)
	}
	return nil
}

func scanPiece(row rowScanner) (*domain.DirectMailPiece, error) {
	p := &domain.DirectMailPiece{}
	var metadata, raw []byte
	if err := row.Scan(
		&p.ID, &p.OrgID, &p.CompanyID, &p.ProviderID, &p.ExternalPieceID,
		&p.PieceType, &p.Status, &p.SendDate, &metadata, &raw,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Metadata = jsonMap(metadata)
	p.RawPayload = jsonMap(raw)
	return p, nil
}
