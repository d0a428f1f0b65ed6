package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/reachops/outreach-gateway/internal/pkg/logger"
	"github.com/reachops/outreach-gateway/internal/provider"
	"github.com/reachops/outreach-gateway/internal/scope"
	"github.com/reachops/outreach-gateway/internal/service/ingest"
	"github.com/reachops/outreach-gateway/internal/service/outreach"
	"github.com/reachops/outreach-gateway/internal/service/replay"
)

// writeError translates service errors into the wire error model. Typed
// errors carry their own envelope; sentinel errors map to plain statuses.
// Anything unrecognized is logged with the request id and surfaced as an
// opaque 500 so internals never leak to clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		trustErr  *ingest.TrustError
		notImpl   *outreach.NotImplementedError
		provErr   *provider.Error
		replayErr *replay.Error
	)

	switch {
	case errors.As(err, &trustErr):
		respondJSON(w, trustErr.HTTPStatus, map[string]interface{}{
			"type":     trustErr.Type,
			"provider": trustErr.Provider,
			"reason":   trustErr.Reason,
		})

	case errors.As(err, &notImpl):
		respondJSON(w, http.StatusNotImplemented, map[string]interface{}{
			"type":       "provider_not_implemented",
			"capability": notImpl.Capability,
			"provider":   notImpl.Provider,
		})

	case errors.As(err, &provErr):
		respondJSON(w, provErr.HTTPStatus(), map[string]interface{}{
			"type":      "provider_error",
			"provider":  provErr.Provider,
			"operation": provErr.Operation,
			"category":  provErr.Category,
			"retryable": provErr.Retryable(),
			"message":   provErr.Message,
		})

	case errors.As(err, &replayErr):
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"type":      "webhook_replay_failed",
			"provider":  replayErr.Provider,
			"event_key": replayErr.EventKey,
			"reason":    replayErr.Reason,
			"retryable": replayErr.Retryable,
		})

	case errors.Is(err, scope.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")

	case errors.Is(err, outreach.ErrCampaignNotFound),
		errors.Is(err, outreach.ErrLeadNotFound),
		errors.Is(err, outreach.ErrPieceNotFound),
		errors.Is(err, outreach.ErrInboxNotFound),
		errors.Is(err, ingest.ErrEventNotFound),
		errors.Is(err, ingest.ErrUnknownProvider):
		respondError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, scope.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden")

	case errors.Is(err, scope.ErrCompanyRequired),
		errors.Is(err, scope.ErrAmbiguousScope),
		errors.Is(err, outreach.ErrValidation),
		errors.Is(err, outreach.ErrNoEntitlement),
		errors.Is(err, outreach.ErrNoCredentials),
		errors.Is(err, replay.ErrTooManyEvents),
		errors.Is(err, replay.ErrInvalidFilter),
		errors.Is(err, replay.ErrEmptyRequest):
		respondError(w, http.StatusBadRequest, err.Error())

	default:
		logger.Error("http.internal_error",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err.Error(),
		)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
