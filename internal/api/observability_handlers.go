package api

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ListMetricsSnapshots handles GET /super-admin/observability/metrics-snapshots.
func (h *Handlers) ListMetricsSnapshots(w http.ResponseWriter, r *http.Request) {
	params := ParsePagination(r, 20, 200)
	snapshots, total, err := h.snapshots.ListSnapshots(
		r.Context(), r.URL.Query().Get("source"), params.Limit, params.Offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, NewPaginatedResponse(snapshots, params, total))
}

// FlushMetricsSnapshot handles POST /super-admin/observability/metrics-snapshots/flush.
// Persists the live counter registry as a snapshot row. Counters reset
// after the flush unless the body opts out, so each snapshot is a window.
func (h *Handlers) FlushMetricsSnapshot(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Source string `json:"source"`
		Reset  *bool  `json:"reset"`
	}
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	source := input.Source
	if source == "" {
		source = "manual_flush"
	}
	reset := true
	if input.Reset != nil {
		reset = *input.Reset
	}

	snapshot, err := h.persister.PersistSnapshot(
		r.Context(), source, middleware.GetReqID(r.Context()), reset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}
