package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reachops/outreach-gateway/internal/service/outreach"
)

// CreatePiece handles POST /api/v1/pieces. Callers may pass an idempotency
// key as the Idempotency-Key header or an idempotency_key query param; the
// service rejects a mismatch between the two.
func (h *Handlers) CreatePiece(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CompanyID string                 `json:"company_id"`
		Type      string                 `json:"type"`
		Params    map[string]interface{} `json:"params"`
	}
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	piece, err := h.outreach.CreatePiece(r.Context(), authFrom(r.Context()), outreach.CreatePieceInput{
		CompanyID:         input.CompanyID,
		Type:              input.Type,
		Params:            input.Params,
		IdempotencyHeader: r.Header.Get("Idempotency-Key"),
		IdempotencyQuery:  r.URL.Query().Get("idempotency_key"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, piece)
}

// ListPieces handles GET /api/v1/pieces.
func (h *Handlers) ListPieces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ParsePagination(r, 50, 200)
	pieces, total, err := h.outreach.ListPieces(r.Context(), authFrom(r.Context()), outreach.ListPiecesInput{
		CompanyID:    q.Get("company_id"),
		AllCompanies: q.Get("all_companies") == "true",
		Type:         q.Get("type"),
		Status:       q.Get("status"),
		Limit:        params.Limit,
		Offset:       params.Offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, NewPaginatedResponse(pieces, params, total))
}

// GetPiece handles GET /api/v1/pieces/{pieceID}.
func (h *Handlers) GetPiece(w http.ResponseWriter, r *http.Request) {
	piece, err := h.outreach.GetPiece(r.Context(), authFrom(r.Context()),
		r.URL.Query().Get("company_id"), chi.URLParam(r, "pieceID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, piece)
}

// CancelPiece handles POST /api/v1/pieces/{pieceID}/cancel.
func (h *Handlers) CancelPiece(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CompanyID string `json:"company_id"`
	}
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	piece, err := h.outreach.CancelPiece(r.Context(), authFrom(r.Context()),
		input.CompanyID, chi.URLParam(r, "pieceID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, piece)
}

// RefreshPiece handles POST /api/v1/pieces/{pieceID}/refresh: re-pulls the
// provider's view of the piece and persists any status drift.
func (h *Handlers) RefreshPiece(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CompanyID string `json:"company_id"`
	}
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	piece, err := h.outreach.RefreshPiece(r.Context(), authFrom(r.Context()),
		input.CompanyID, chi.URLParam(r, "pieceID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, piece)
}
