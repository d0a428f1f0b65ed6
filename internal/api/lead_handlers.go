package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reachops/outreach-gateway/internal/service/outreach"
)

type leadDTO struct {
	Email     string                 `json:"email"`
	FirstName string                 `json:"first_name,omitempty"`
	LastName  string                 `json:"last_name,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// AddLeads handles POST /api/v1/campaigns/{campaignID}/leads.
func (h *Handlers) AddLeads(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CompanyID string    `json:"company_id"`
		Leads     []leadDTO `json:"leads"`
	}
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	leads := make([]outreach.NewLead, 0, len(input.Leads))
	for _, l := range input.Leads {
		leads = append(leads, outreach.NewLead{
			Email:     l.Email,
			FirstName: l.FirstName,
			LastName:  l.LastName,
			Fields:    l.Fields,
		})
	}

	added, err := h.outreach.AddLeads(r.Context(), authFrom(r.Context()), outreach.AddLeadsInput{
		CompanyID:  input.CompanyID,
		CampaignID: chi.URLParam(r, "campaignID"),
		Leads:      leads,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"added": added})
}

// ListLeads handles GET /api/v1/campaigns/{campaignID}/leads.
func (h *Handlers) ListLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ParsePagination(r, 50, 500)
	leads, total, err := h.outreach.ListLeads(r.Context(), authFrom(r.Context()), outreach.ListLeadsInput{
		CompanyID:  q.Get("company_id"),
		CampaignID: chi.URLParam(r, "campaignID"),
		Status:     q.Get("status"),
		Limit:      params.Limit,
		Offset:     params.Offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, NewPaginatedResponse(leads, params, total))
}

// RemoveLead handles DELETE /api/v1/campaigns/{campaignID}/leads/{leadID}.
func (h *Handlers) RemoveLead(w http.ResponseWriter, r *http.Request) {
	err := h.outreach.RemoveLead(r.Context(), authFrom(r.Context()), outreach.RemoveLeadInput{
		CompanyID:  r.URL.Query().Get("company_id"),
		CampaignID: chi.URLParam(r, "campaignID"),
		LeadID:     chi.URLParam(r, "leadID"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// UpdateLeadCategory handles PATCH /api/v1/campaigns/{campaignID}/leads/{leadID}/category.
func (h *Handlers) UpdateLeadCategory(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CompanyID string `json:"company_id"`
		Category  string `json:"category"`
	}
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	lead, err := h.outreach.UpdateLeadCategory(r.Context(), authFrom(r.Context()), outreach.UpdateLeadCategoryInput{
		CompanyID:  input.CompanyID,
		CampaignID: chi.URLParam(r, "campaignID"),
		LeadID:     chi.URLParam(r, "leadID"),
		Category:   input.Category,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// ListMessages handles GET /api/v1/campaigns/{campaignID}/messages.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ParsePagination(r, 50, 500)
	messages, total, err := h.outreach.ListMessages(r.Context(), authFrom(r.Context()), outreach.ListMessagesInput{
		CompanyID:  q.Get("company_id"),
		CampaignID: chi.URLParam(r, "campaignID"),
		Direction:  q.Get("direction"),
		Limit:      params.Limit,
		Offset:     params.Offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, NewPaginatedResponse(messages, params, total))
}
