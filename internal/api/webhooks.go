package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/service/ingest"
)

// maxWebhookBody caps provider payloads at 1 MiB.
const maxWebhookBody = 1 << 20

type webhookResponse struct {
	Status   string `json:"status"`
	EventKey string `json:"event_key,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// IngestWebhook returns the ingest handler for one provider route. Trust
// verification happens inside the gateway; this handler only carries the
// raw body, headers, and the optional {token} path segment across.
func (h *Handlers) IngestWebhook(providerSlug string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
		if err != nil {
			respondError(w, http.StatusBadRequest, "unreadable request body")
			return
		}
		if len(body) > maxWebhookBody {
			respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}

		res, err := h.gateway.Ingest(r.Context(), ingest.Delivery{
			Provider:  providerSlug,
			Body:      body,
			Header:    r.Header,
			PathToken: chi.URLParam(r, "token"),
			RequestID: middleware.GetReqID(r.Context()),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, res.HTTPStatus, webhookResponse{
			Status:   res.Status,
			EventKey: res.EventKey,
			Reason:   res.Reason,
		})
	}
}

// RejectBareUnsignedPath answers the tokenless emailbison route. The path
// token is part of that provider's trust contract, so a POST without one
// is rejected before the gateway ever sees it, configured or not.
func (h *Handlers) RejectBareUnsignedPath(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusUnauthorized, map[string]interface{}{
		"type":     "webhook_auth_failed",
		"provider": domain.ProviderEmailBison,
		"reason":   ingest.ReasonInvalidPathToken,
	})
}
