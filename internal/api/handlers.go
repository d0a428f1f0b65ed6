package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/reachops/outreach-gateway/internal/metrics"
	"github.com/reachops/outreach-gateway/internal/service/ingest"
	"github.com/reachops/outreach-gateway/internal/service/outreach"
	"github.com/reachops/outreach-gateway/internal/service/reconcile"
	"github.com/reachops/outreach-gateway/internal/service/replay"
)

// Deps bundles the services the HTTP layer fronts. Auth may be nil, in
// which case every authenticated route answers 401.
type Deps struct {
	Gateway    *ingest.Gateway
	Events     ingest.EventStore
	Replay     *replay.Controller
	Reconciler *reconcile.Runner
	Scheduled  *reconcile.ScheduledRunner
	Outreach   *outreach.Service
	Persister  *metrics.Persister
	Snapshots  metrics.SnapshotStore
	Auth       Authenticator

	// SchedulerSecret guards POST /internal/reconciliation/run-scheduled.
	// Empty means the endpoint is not configured and answers 503.
	SchedulerSecret string
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	gateway         *ingest.Gateway
	events          ingest.EventStore
	replay          *replay.Controller
	reconciler      *reconcile.Runner
	scheduled       *reconcile.ScheduledRunner
	outreach        *outreach.Service
	persister       *metrics.Persister
	snapshots       metrics.SnapshotStore
	auth            Authenticator
	schedulerSecret string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		gateway:         deps.Gateway,
		events:          deps.Events,
		replay:          deps.Replay,
		reconciler:      deps.Reconciler,
		scheduled:       deps.Scheduled,
		outreach:        deps.Outreach,
		persister:       deps.Persister,
		snapshots:       deps.Snapshots,
		auth:            deps.Auth,
		schedulerSecret: deps.SchedulerSecret,
	}
}

// HealthCheck handles the health check endpoint.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeBody decodes a JSON request body into dst. An empty body is not an
// error; callers that require fields validate them afterwards.
func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
