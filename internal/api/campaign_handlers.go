package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reachops/outreach-gateway/internal/provider"
	"github.com/reachops/outreach-gateway/internal/service/outreach"
)

// sequenceStepDTO is the wire form of a sequence step.
type sequenceStepDTO struct {
	StepNumber int                    `json:"step_number"`
	Subject    string                 `json:"subject,omitempty"`
	Body       string                 `json:"body,omitempty"`
	DelayDays  int                    `json:"delay_days"`
	Raw        map[string]interface{} `json:"raw,omitempty"`
}

func sequenceStepsOut(steps []provider.SequenceStep) []sequenceStepDTO {
	out := make([]sequenceStepDTO, 0, len(steps))
	for _, s := range steps {
		out = append(out, sequenceStepDTO{
			StepNumber: s.StepNumber,
			Subject:    s.Subject,
			Body:       s.Body,
			DelayDays:  s.DelayDays,
			Raw:        s.Raw,
		})
	}
	return out
}

func sequenceStepsIn(steps []sequenceStepDTO) []provider.SequenceStep {
	out := make([]provider.SequenceStep, 0, len(steps))
	for _, s := range steps {
		out = append(out, provider.SequenceStep{
			StepNumber: s.StepNumber,
			Subject:    s.Subject,
			Body:       s.Body,
			DelayDays:  s.DelayDays,
			Raw:        s.Raw,
		})
	}
	return out
}

// CreateCampaign handles POST /api/v1/campaigns.
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CompanyID string `json:"company_id"`
		Name      string `json:"name"`
	}
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	campaign, err := h.outreach.CreateCampaign(r.Context(), authFrom(r.Context()), outreach.CreateCampaignInput{
		CompanyID: input.CompanyID,
		Name:      input.Name,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, campaign)
}

// ListCampaigns handles GET /api/v1/campaigns.
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ParsePagination(r, 50, 200)
	campaigns, total, err := h.outreach.ListCampaigns(r.Context(), authFrom(r.Context()), outreach.ListCampaignsInput{
		CompanyID:    q.Get("company_id"),
		AllCompanies: q.Get("all_companies") == "true",
		Status:       q.Get("status"),
		Limit:        params.Limit,
		Offset:       params.Offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, NewPaginatedResponse(campaigns, params, total))
}

// GetCampaign handles GET /api/v1/campaigns/{campaignID}.
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.outreach.GetCampaign(r.Context(), authFrom(r.Context()),
		r.URL.Query().Get("company_id"), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, campaign)
}

// UpdateCampaignStatus handles PATCH /api/v1/campaigns/{campaignID}/status.
func (h *Handlers) UpdateCampaignStatus(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CompanyID string `json:"company_id"`
		Status    string `json:"status"`
	}
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	campaign, err := h.outreach.UpdateCampaignStatus(r.Context(), authFrom(r.Context()), outreach.UpdateCampaignStatusInput{
		CompanyID:  input.CompanyID,
		CampaignID: chi.URLParam(r, "campaignID"),
		Status:     input.Status,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, campaign)
}

// CampaignAnalytics handles GET /api/v1/campaigns/{campaignID}/analytics.
// The response shape is whatever the provider reports, passed through.
func (h *Handlers) CampaignAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.outreach.CampaignAnalytics(r.Context(), authFrom(r.Context()),
		r.URL.Query().Get("company_id"), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, analytics)
}

// GetSequence handles GET /api/v1/campaigns/{campaignID}/sequence.
func (h *Handlers) GetSequence(w http.ResponseWriter, r *http.Request) {
	steps, err := h.outreach.GetSequence(r.Context(), authFrom(r.Context()),
		r.URL.Query().Get("company_id"), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"steps": sequenceStepsOut(steps)})
}

// SaveSequence handles PUT /api/v1/campaigns/{campaignID}/sequence.
func (h *Handlers) SaveSequence(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CompanyID string            `json:"company_id"`
		Steps     []sequenceStepDTO `json:"steps"`
	}
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := h.outreach.SaveSequence(r.Context(), authFrom(r.Context()), outreach.SaveSequenceInput{
		CompanyID:  input.CompanyID,
		CampaignID: chi.URLParam(r, "campaignID"),
		Steps:      sequenceStepsIn(input.Steps),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "saved",
		"steps":  len(input.Steps),
	})
}
