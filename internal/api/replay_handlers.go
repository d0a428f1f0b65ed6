package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/service/ingest"
	"github.com/reachops/outreach-gateway/internal/service/replay"
)

// defaultReplayProvider backs the dead-letter routes that predate the
// provider-qualified replay ones; their callers historically only dealt
// in direct-mail events.
const defaultReplayProvider = domain.ProviderLob

// ListEvents handles GET /webhooks/events: the raw event store listing
// across all statuses, for platform operators.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ParsePagination(r, 50, 500)

	from, err := parseTimeParam(q.Get("from_ts"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid from_ts")
		return
	}
	to, err := parseTimeParam(q.Get("to_ts"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid to_ts")
		return
	}

	var statuses []domain.WebhookEventStatus
	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, domain.WebhookEventStatus(s))
			}
		}
	}

	events, total, err := h.events.List(r.Context(), ingest.EventFilter{
		Provider:  q.Get("provider"),
		EventType: q.Get("event_type"),
		OrgID:     q.Get("org_id"),
		CompanyID: q.Get("company_id"),
		Statuses:  statuses,
		Reason:    q.Get("reason"),
		From:      from,
		To:        to,
		Limit:     params.Limit,
		Offset:    params.Offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, NewPaginatedResponse(events, params, total))
}

// ListDeadLetters handles GET /webhooks/dead-letters.
func (h *Handlers) ListDeadLetters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ParsePagination(r, 50, 500)

	from, err := parseTimeParam(q.Get("from_ts"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid from_ts")
		return
	}
	to, err := parseTimeParam(q.Get("to_ts"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid to_ts")
		return
	}

	events, total, err := h.replay.List(r.Context(), replay.ListFilter{
		Provider:     q.Get("provider"),
		From:         from,
		To:           to,
		Reason:       q.Get("reason"),
		ReplayStatus: q.Get("replay_status"),
		OrgID:        q.Get("org_id"),
		Limit:        params.Limit,
		Offset:       params.Offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, NewPaginatedResponse(events, params, total))
}

// GetDeadLetter handles GET /webhooks/dead-letters/{eventKey}, returning
// the full stored event including its payload sub-records.
func (h *Handlers) GetDeadLetter(w http.ResponseWriter, r *http.Request) {
	providerSlug := r.URL.Query().Get("provider")
	if providerSlug == "" {
		providerSlug = defaultReplayProvider
	}
	event, err := h.replay.Get(r.Context(), providerSlug, chi.URLParam(r, "eventKey"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// ReplayDeadLetter handles POST /webhooks/dead-letters/replay.
func (h *Handlers) ReplayDeadLetter(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Provider string `json:"provider"`
		EventKey string `json:"event_key"`
	}
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.EventKey == "" {
		respondError(w, http.StatusBadRequest, "event_key is required")
		return
	}
	if input.Provider == "" {
		input.Provider = defaultReplayProvider
	}
	h.replayOne(w, r, input.Provider, input.EventKey)
}

// ReplayEvent handles POST /webhooks/replay/{provider}/{eventKey}.
func (h *Handlers) ReplayEvent(w http.ResponseWriter, r *http.Request) {
	h.replayOne(w, r, chi.URLParam(r, "provider"), chi.URLParam(r, "eventKey"))
}

func (h *Handlers) replayOne(w http.ResponseWriter, r *http.Request, providerSlug, eventKey string) {
	event, err := h.replay.ReplayOne(r.Context(), providerSlug, eventKey)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "replayed",
		"event":  event,
	})
}

// BulkReplay handles POST /webhooks/replay-bulk: replay an explicit list
// of event keys for one provider.
func (h *Handlers) BulkReplay(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Provider  string   `json:"provider"`
		EventKeys []string `json:"event_keys"`
	}
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := h.replay.BulkReplay(r.Context(), replay.BulkRequest{
		Provider:  input.Provider,
		Keys:      input.EventKeys,
		RequestID: middleware.GetReqID(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// QueryReplay handles POST /webhooks/replay-query: replay everything a
// dead-letter filter matches, capped by the configured per-run maximum.
func (h *Handlers) QueryReplay(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Provider     string `json:"provider"`
		FromTS       string `json:"from_ts"`
		ToTS         string `json:"to_ts"`
		Reason       string `json:"reason"`
		ReplayStatus string `json:"replay_status"`
		OrgID        string `json:"org_id"`
		Limit        int    `json:"limit"`
	}
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	from, err := parseTimeParam(input.FromTS)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid from_ts")
		return
	}
	to, err := parseTimeParam(input.ToTS)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid to_ts")
		return
	}

	report, err := h.replay.BulkReplay(r.Context(), replay.BulkRequest{
		Provider: input.Provider,
		Query: &replay.ListFilter{
			Provider:     input.Provider,
			From:         from,
			To:           to,
			Reason:       input.Reason,
			ReplayStatus: input.ReplayStatus,
			OrgID:        input.OrgID,
			Limit:        input.Limit,
		},
		RequestID: middleware.GetReqID(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// parseTimeParam accepts RFC3339 or unix seconds. Empty means unset.
func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		t := time.Unix(secs, 0).UTC()
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
