package outreach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/pkg/logger"
	"github.com/reachops/outreach-gateway/internal/provider"
	"github.com/reachops/outreach-gateway/internal/scope"
)

var pieceTypes = map[string]domain.PieceType{
	"postcard":    domain.PiecePostcard,
	"letter":      domain.PieceLetter,
	"self_mailer": domain.PieceSelfMailer,
	"check":       domain.PieceCheck,
}

// pieceInScope loads a piece and enforces tenant isolation.
func (s *Service) pieceInScope(ctx context.Context, sc scope.Scope, pieceID string) (*domain.DirectMailPiece, error) {
	p, err := s.stores.Pieces.Get(ctx, sc.OrgID, pieceID)
	if err != nil {
		return nil, err
	}
	if sc.CompanyID != nil && p.CompanyID != *sc.CompanyID {
		return nil, ErrPieceNotFound
	}
	return p, nil
}

// directMailFor builds the direct-mail adapter for a provider slug.
func (s *Service) directMailFor(ctx context.Context, orgID, slug string) (provider.DirectMail, error) {
	creds, err := s.credentials(ctx, orgID, slug)
	if err != nil {
		return nil, err
	}
	dm, ok := s.providers.DirectMail(slug, creds)
	if !ok {
		return nil, &NotImplementedError{Capability: domain.CapabilityDirectMail, Provider: slug}
	}
	return dm, nil
}

// CreatePieceInput creates a mail piece at the company's direct-mail
// provider. Params pass through untouched; idempotency material travels as
// either the header or the query form, never both.
type CreatePieceInput struct {
	CompanyID         string
	Type              string
	Params            map[string]interface{}
	IdempotencyHeader string
	IdempotencyQuery  string
}

// CreatePiece provisions the piece at the provider, then persists the local
// row. Delivery progress arrives later through webhooks.
func (s *Service) CreatePiece(ctx context.Context, auth scope.AuthContext, in CreatePieceInput) (*domain.DirectMailPiece, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: in.CompanyID}, false)
	if err != nil {
		return nil, err
	}
	pt, ok := pieceTypes[strings.ToLower(strings.TrimSpace(in.Type))]
	if !ok {
		return nil, fmt.Errorf("%w: type must be postcard, letter, self_mailer, or check", ErrValidation)
	}

	ent, creds, err := s.tenant(ctx, sc, domain.CapabilityDirectMail)
	if err != nil {
		return nil, err
	}
	dm, ok := s.providers.DirectMail(ent.ProviderSlug, creds)
	if !ok {
		return nil, &NotImplementedError{Capability: domain.CapabilityDirectMail, Provider: ent.ProviderSlug}
	}

	s.dispatched(ent.ProviderSlug, "create_piece")
	piece, err := dm.CreatePiece(ctx, provider.PieceRequest{
		Type:              string(pt),
		Params:            in.Params,
		IdempotencyHeader: in.IdempotencyHeader,
		IdempotencyQuery:  in.IdempotencyQuery,
	})
	if err != nil {
		return nil, s.providerFailure(ent.ProviderSlug, "create_piece", err)
	}

	now := time.Now().UTC()
	row := &domain.DirectMailPiece{
		OrgID:           sc.OrgID,
		CompanyID:       *sc.CompanyID,
		ProviderID:      ent.ProviderID,
		ExternalPieceID: piece.ExternalID,
		PieceType:       pt,
		Status:          domain.NormalizePieceStatus(piece.Status),
		SendDate:        piece.SendDate,
		RawPayload:      piece.Raw,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if md, ok := in.Params["metadata"].(map[string]interface{}); ok {
		row.Metadata = md
	}
	if err := s.stores.Pieces.Upsert(ctx, row); err != nil {
		return nil, fmt.Errorf("persist piece: %w", err)
	}
	logger.Info("piece.created", "provider", ent.ProviderSlug, "piece_id", row.ID, "external_id", row.ExternalPieceID, "type", string(pt))
	return row, nil
}

// CancelPiece cancels the piece at the provider, then marks the local row.
func (s *Service) CancelPiece(ctx context.Context, auth scope.AuthContext, companyID, pieceID string) (*domain.DirectMailPiece, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: companyID}, false)
	if err != nil {
		return nil, err
	}
	p, err := s.pieceInScope(ctx, sc, pieceID)
	if err != nil {
		return nil, err
	}

	slug := domain.SlugForProviderID(p.ProviderID)
	dm, err := s.directMailFor(ctx, sc.OrgID, slug)
	if err != nil {
		return nil, err
	}

	s.dispatched(slug, "cancel_piece")
	if err := dm.CancelPiece(ctx, string(p.PieceType), p.ExternalPieceID); err != nil {
		return nil, s.providerFailure(slug, "cancel_piece", err)
	}

	p.Status = domain.PieceCanceled
	p.UpdatedAt = time.Now().UTC()
	if err := s.stores.Pieces.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("persist piece: %w", err)
	}
	logger.Info("piece.canceled", "provider", slug, "piece_id", p.ID)
	return p, nil
}

// GetPiece loads one piece within the caller's scope.
func (s *Service) GetPiece(ctx context.Context, auth scope.AuthContext, companyID, pieceID string) (*domain.DirectMailPiece, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: companyID}, true)
	if err != nil {
		return nil, err
	}
	return s.pieceInScope(ctx, sc, pieceID)
}

// RefreshPiece pulls the provider's current view of one piece and converges
// the local row. Direct mail has no campaign read surface, so this is the
// on-demand counterpart to the reconciliation sweep.
func (s *Service) RefreshPiece(ctx context.Context, auth scope.AuthContext, companyID, pieceID string) (*domain.DirectMailPiece, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: companyID}, false)
	if err != nil {
		return nil, err
	}
	p, err := s.pieceInScope(ctx, sc, pieceID)
	if err != nil {
		return nil, err
	}

	slug := domain.SlugForProviderID(p.ProviderID)
	dm, err := s.directMailFor(ctx, sc.OrgID, slug)
	if err != nil {
		return nil, err
	}

	s.dispatched(slug, "get_piece")
	remote, err := dm.GetPiece(ctx, string(p.PieceType), p.ExternalPieceID)
	if err != nil {
		return nil, s.providerFailure(slug, "get_piece", err)
	}

	p.Status = domain.NormalizePieceStatus(remote.Status)
	if remote.SendDate != nil {
		p.SendDate = remote.SendDate
	}
	p.RawPayload = remote.Raw
	p.UpdatedAt = time.Now().UTC()
	if err := s.stores.Pieces.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("persist piece: %w", err)
	}
	logger.Info("piece.refreshed", "provider", slug, "piece_id", p.ID, "status", string(p.Status))
	return p, nil
}

// ListPiecesInput bounds a local piece listing.
type ListPiecesInput struct {
	CompanyID    string
	AllCompanies bool
	Type         string
	Status       string
	Limit        int
	Offset       int
}

// ListPieces serves from the local projection tables.
func (s *Service) ListPieces(ctx context.Context, auth scope.AuthContext, in ListPiecesInput) ([]domain.DirectMailPiece, int, error) {
	sc, err := scope.Resolve(auth, scope.Request{CompanyID: in.CompanyID, AllCompanies: in.AllCompanies}, true)
	if err != nil {
		return nil, 0, err
	}
	limit, offset := clampPage(in.Limit, in.Offset)
	f := PieceFilter{OrgID: sc.OrgID, PieceType: in.Type, Status: in.Status, Limit: limit, Offset: offset}
	if sc.CompanyID != nil {
		f.CompanyID = *sc.CompanyID
	}
	return s.stores.Pieces.List(ctx, f)
}
