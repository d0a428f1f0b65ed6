package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reachops/outreach-gateway/internal/service/outreach"
)

// SyncInboxes handles POST /api/v1/inboxes/sync: pulls the provider's
// inbox list for the company and upserts local rows.
func (h *Handlers) SyncInboxes(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CompanyID string `json:"company_id"`
		Limit     int    `json:"limit"`
	}
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	synced, err := h.outreach.SyncInboxes(r.Context(), authFrom(r.Context()), outreach.SyncInboxesInput{
		CompanyID: input.CompanyID,
		Limit:     input.Limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"synced": synced})
}

// SetWarmup handles POST /api/v1/inboxes/{inboxID}/warmup.
func (h *Handlers) SetWarmup(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CompanyID string `json:"company_id"`
		Enabled   *bool  `json:"enabled"`
	}
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Enabled == nil {
		respondError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	inbox, err := h.outreach.SetWarmup(r.Context(), authFrom(r.Context()), outreach.SetWarmupInput{
		CompanyID: input.CompanyID,
		InboxID:   chi.URLParam(r, "inboxID"),
		Enabled:   *input.Enabled,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inbox)
}
