// Package emailbison implements the email outreach adapter for EmailBison.
// Deployments are per-tenant, so the base URL comes from the tenant's
// provider config. Auth is a bearer token; responses wrap payloads in a
// {"data": ...} envelope.
package emailbison

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/pkg/httpretry"
	"github.com/reachops/outreach-gateway/internal/provider"
)

const slug = domain.ProviderEmailBison

// Client is an EmailBison API client bound to one tenant's deployment.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates an EmailBison client for the tenant's instance URL.
func NewClient(apiKey, instanceURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(instanceURL, "/"),
		apiKey:  apiKey,
		httpClient: httpretry.NewRetryClientWithBackoff(&http.Client{
			Timeout: timeout,
		}, 2, 250*time.Millisecond, 2*time.Second),
	}
}

// SetHTTPClient replaces the underlying HTTP client (tests).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

func (c *Client) doRequest(ctx context.Context, operation, method, path string, params url.Values, payload interface{}) ([]byte, error) {
	if c.baseURL == "" {
		return nil, provider.ContractError(slug, operation, "instance_url not configured for tenant")
	}

	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, provider.ContractError(slug, operation, fmt.Sprintf("encoding request body: %v", err))
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, provider.ContractError(slug, operation, fmt.Sprintf("building request: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.TransportError(slug, operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.TransportError(slug, operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, provider.StatusError(slug, operation, resp.StatusCode, body)
	}
	return body, nil
}

// ListCampaigns lists campaigns. EmailBison has no client scoping, so
// clientID is ignored.
func (c *Client) ListCampaigns(ctx context.Context, clientID string, limit int) ([]provider.Campaign, error) {
	const op = "list_campaigns"
	params := url.Values{}
	if limit > 0 {
		params.Set("per_page", fmt.Sprintf("%d", limit))
	}

	body, err := c.doRequest(ctx, op, http.MethodGet, "/api/campaigns", params, nil)
	if err != nil {
		return nil, err
	}

	items, err := provider.DecodeList(body, "data")
	if err != nil {
		return nil, provider.MalformedError(slug, op, err)
	}

	campaigns := make([]provider.Campaign, 0, len(items))
	for _, m := range items {
		campaigns = append(campaigns, campaignFromMap(m))
	}
	return campaigns, nil
}

// CreateCampaign creates a campaign.
func (c *Client) CreateCampaign(ctx context.Context, name, clientID string) (*provider.Campaign, error) {
	const op = "create_campaign"
	body, err := c.doRequest(ctx, op, http.MethodPost, "/api/campaigns", nil,
		map[string]interface{}{"name": name})
	if err != nil {
		return nil, err
	}

	m, err := provider.DecodeObject(body, "data")
	if err != nil {
		return nil, provider.MalformedError(slug, op, err)
	}
	campaign := campaignFromMap(m)
	if campaign.ExternalID == "" {
		return nil, provider.MalformedError(slug, op, fmt.Errorf("response missing campaign id"))
	}
	return &campaign, nil
}

// UpdateCampaignStatus maps the canonical status to EmailBison's action
// endpoints. Statuses with no action are a contract violation.
func (c *Client) UpdateCampaignStatus(ctx context.Context, campaignID, status string) error {
	const op = "update_campaign_status"
	var action string
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "ACTIVE":
		action = "resume"
	case "PAUSED":
		action = "pause"
	case "STOPPED":
		action = "stop"
	default:
		return provider.ContractError(slug, op, fmt.Sprintf("status %q has no EmailBison action", status))
	}

	_, err := c.doRequest(ctx, op, http.MethodPost,
		fmt.Sprintf("/api/campaigns/%s/%s", url.PathEscape(campaignID), action), nil, nil)
	return err
}

// GetSequence fetches the campaign's sequence steps.
func (c *Client) GetSequence(ctx context.Context, campaignID string) ([]provider.SequenceStep, error) {
	const op = "get_sequence"
	body, err := c.doRequest(ctx, op, http.MethodGet,
		fmt.Sprintf("/api/campaigns/%s/sequence-steps", url.PathEscape(campaignID)), nil, nil)
	if err != nil {
		return nil, err
	}

	items, err := provider.DecodeList(body, "data")
	if err != nil {
		return nil, provider.MalformedError(slug, op, err)
	}

	steps := make([]provider.SequenceStep, 0, len(items))
	for _, m := range items {
		step := provider.SequenceStep{
			Subject: domain.PayloadString(m, "email_subject", "subject"),
			Body:    domain.PayloadString(m, "email_body", "body"),
			Raw:     m,
		}
		if n, ok := domain.PayloadInt(m, "order", "step_number"); ok {
			step.StepNumber = n
		}
		if d, ok := domain.PayloadInt(m, "wait_in_days", "delay_in_days"); ok {
			step.DelayDays = d
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// SaveSequence replaces the campaign's sequence steps.
func (c *Client) SaveSequence(ctx context.Context, campaignID string, steps []provider.SequenceStep) error {
	const op = "save_sequence"
	payload := make([]map[string]interface{}, 0, len(steps))
	for _, s := range steps {
		payload = append(payload, map[string]interface{}{
			"order":         s.StepNumber,
			"email_subject": s.Subject,
			"email_body":    s.Body,
			"wait_in_days":  s.DelayDays,
		})
	}

	_, err := c.doRequest(ctx, op, http.MethodPost,
		fmt.Sprintf("/api/campaigns/%s/sequence-steps", url.PathEscape(campaignID)),
		nil, map[string]interface{}{"steps": payload})
	return err
}

// ListLeads lists campaign leads up to limit.
func (c *Client) ListLeads(ctx context.Context, campaignID string, limit int) ([]provider.Lead, error) {
	const op = "list_leads"
	params := url.Values{}
	if limit > 0 {
		params.Set("per_page", fmt.Sprintf("%d", limit))
	}

	body, err := c.doRequest(ctx, op, http.MethodGet,
		fmt.Sprintf("/api/campaigns/%s/leads", url.PathEscape(campaignID)), params, nil)
	if err != nil {
		return nil, err
	}

	items, err := provider.DecodeList(body, "data")
	if err != nil {
		return nil, provider.MalformedError(slug, op, err)
	}

	leads := make([]provider.Lead, 0, len(items))
	for _, m := range items {
		leads = append(leads, provider.Lead{
			ExternalID: domain.PayloadString(m, "id", "lead_id"),
			Email:      domain.PayloadString(m, "email"),
			FirstName:  domain.PayloadString(m, "first_name"),
			LastName:   domain.PayloadString(m, "last_name"),
			Status:     domain.PayloadString(m, "status", "interest_status"),
			Raw:        m,
		})
	}
	return leads, nil
}

// AddLeads adds leads to a campaign and returns the accepted count.
func (c *Client) AddLeads(ctx context.Context, campaignID string, leads []provider.NewLead) (int, error) {
	const op = "add_leads"
	payload := make([]map[string]interface{}, 0, len(leads))
	for _, l := range leads {
		entry := map[string]interface{}{
			"email":      l.Email,
			"first_name": l.FirstName,
			"last_name":  l.LastName,
		}
		for k, v := range l.Fields {
			entry[k] = v
		}
		payload = append(payload, entry)
	}

	body, err := c.doRequest(ctx, op, http.MethodPost,
		fmt.Sprintf("/api/campaigns/%s/leads", url.PathEscape(campaignID)),
		nil, map[string]interface{}{"leads": payload})
	if err != nil {
		return 0, err
	}

	m, err := provider.DecodeObject(body, "data")
	if err != nil {
		return 0, provider.MalformedError(slug, op, err)
	}
	if n, ok := domain.PayloadInt(m, "created_count", "created", "count"); ok {
		return n, nil
	}
	return len(leads), nil
}

// RemoveLead removes one lead from a campaign.
func (c *Client) RemoveLead(ctx context.Context, campaignID, leadID string) error {
	const op = "remove_lead"
	_, err := c.doRequest(ctx, op, http.MethodDelete,
		fmt.Sprintf("/api/campaigns/%s/leads/%s", url.PathEscape(campaignID), url.PathEscape(leadID)), nil, nil)
	return err
}

// UpdateLeadCategory sets the lead's interest status.
func (c *Client) UpdateLeadCategory(ctx context.Context, campaignID, leadID, category string) error {
	const op = "update_lead_category"
	_, err := c.doRequest(ctx, op, http.MethodPost,
		fmt.Sprintf("/api/campaigns/%s/leads/%s/interest", url.PathEscape(campaignID), url.PathEscape(leadID)),
		nil, map[string]interface{}{"interest_status": category})
	return err
}

// CampaignAnalytics fetches point-in-time campaign stats.
func (c *Client) CampaignAnalytics(ctx context.Context, campaignID string) (map[string]interface{}, error) {
	const op = "campaign_analytics"
	body, err := c.doRequest(ctx, op, http.MethodGet,
		fmt.Sprintf("/api/campaigns/%s/stats", url.PathEscape(campaignID)), nil, nil)
	if err != nil {
		return nil, err
	}

	m, err := provider.DecodeObject(body, "data")
	if err != nil {
		return nil, provider.MalformedError(slug, op, err)
	}
	return m, nil
}

// ListInboxes lists sender email accounts.
func (c *Client) ListInboxes(ctx context.Context, limit int) ([]provider.Inbox, error) {
	const op = "list_inboxes"
	params := url.Values{}
	if limit > 0 {
		params.Set("per_page", fmt.Sprintf("%d", limit))
	}

	body, err := c.doRequest(ctx, op, http.MethodGet, "/api/sender-emails", params, nil)
	if err != nil {
		return nil, err
	}

	items, err := provider.DecodeList(body, "data")
	if err != nil {
		return nil, provider.MalformedError(slug, op, err)
	}

	inboxes := make([]provider.Inbox, 0, len(items))
	for _, m := range items {
		inbox := provider.Inbox{
			ExternalID: domain.PayloadString(m, "id"),
			Email:      domain.PayloadString(m, "email", "sender_email"),
			Status:     domain.PayloadString(m, "status"),
			Raw:        m,
		}
		if w, ok := m["warmup_enabled"].(bool); ok {
			inbox.WarmupEnabled = w
		}
		inboxes = append(inboxes, inbox)
	}
	return inboxes, nil
}

// SetWarmup toggles warmup for a sender account.
func (c *Client) SetWarmup(ctx context.Context, accountID string, enabled bool) error {
	const op = "set_warmup"
	_, err := c.doRequest(ctx, op, http.MethodPost,
		fmt.Sprintf("/api/sender-emails/%s/warmup", url.PathEscape(accountID)),
		nil, map[string]interface{}{"enabled": enabled})
	return err
}

func campaignFromMap(m map[string]interface{}) provider.Campaign {
	return provider.Campaign{
		ExternalID: domain.PayloadString(m, "id", "campaign_id"),
		Name:       domain.PayloadString(m, "name"),
		Status:     domain.PayloadString(m, "status"),
		Raw:        m,
	}
}
