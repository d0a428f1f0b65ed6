package api

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/reachops/outreach-gateway/internal/service/reconcile"
)

// reconcileInput mirrors reconcile.Params with a tri-state dry_run so the
// manual endpoint can default to a read-only pass.
type reconcileInput struct {
	ProviderSlug  string `json:"provider_slug"`
	OrgID         string `json:"org_id"`
	CompanyID     string `json:"company_id"`
	DryRun        *bool  `json:"dry_run"`
	CampaignLimit int    `json:"campaign_limit"`
	LeadLimit     int    `json:"lead_limit"`
	MessageLimit  int    `json:"message_limit"`
}

func (in reconcileInput) params(defaultDryRun bool) reconcile.Params {
	dryRun := defaultDryRun
	if in.DryRun != nil {
		dryRun = *in.DryRun
	}
	return reconcile.Params{
		ProviderSlug:  in.ProviderSlug,
		OrgID:         in.OrgID,
		CompanyID:     in.CompanyID,
		DryRun:        dryRun,
		CampaignLimit: in.CampaignLimit,
		LeadLimit:     in.LeadLimit,
		MessageLimit:  in.MessageLimit,
	}
}

// RunReconciliation handles POST /internal/reconciliation/campaigns-leads.
// Dry-run is the default; writes happen only when the body asks for them.
func (h *Handlers) RunReconciliation(w http.ResponseWriter, r *http.Request) {
	var input reconcileInput
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	report, err := h.reconciler.Run(r.Context(), input.params(true))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// RunScheduledReconciliation handles POST /internal/reconciliation/run-scheduled.
// The caller is a machine scheduler carrying a shared secret, not a bearer.
// The scheduled runner always writes and skips when another run holds the
// cluster lock.
func (h *Handlers) RunScheduledReconciliation(w http.ResponseWriter, r *http.Request) {
	if h.schedulerSecret == "" {
		respondError(w, http.StatusServiceUnavailable, "scheduler secret not configured")
		return
	}
	secret := r.Header.Get("X-Internal-Scheduler-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.schedulerSecret)) != 1 {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var input reconcileInput
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	report, err := h.scheduled.Run(r.Context(), input.params(false))
	if errors.Is(err, reconcile.ErrAlreadyRunning) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "skipped_already_running"})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "completed",
		"report": report,
	})
}
