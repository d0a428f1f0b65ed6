// Package smartlead implements the email outreach adapter for Smartlead.
// Auth is an api_key query parameter on every call.
package smartlead

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

const slug = domain.ProviderSmartlead

// Client is a Smartlead API client bound to one tenant's key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a Smartlead client.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
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
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	fullURL := c.baseURL + path + "?" + params.Encode()

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
	req.Header.Set("Content-Type", "application/json")

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

// ListCampaigns lists campaigns, optionally scoped to a Smartlead client id.
func (c *Client) ListCampaigns(ctx context.Context, clientID string, limit int) ([]provider.Campaign, error) {
	const op = "list_campaigns"
	params := url.Values{}
	if clientID != "" {
		params.Set("client_id", clientID)
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	body, err := c.doRequest(ctx, op, http.MethodGet, "/campaigns", params, nil)
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
	payload := map[string]interface{}{"name": name}
	if clientID != "" {
		payload["client_id"] = clientID
	}

	body, err := c.doRequest(ctx, op, http.MethodPost, "/campaigns/create", nil, payload)
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
	if campaign.Name == "" {
		campaign.Name = name
	}
	return &campaign, nil
}

// UpdateCampaignStatus changes a campaign's run state. Canonical ACTIVE maps
// to Smartlead's START action.
func (c *Client) UpdateCampaignStatus(ctx context.Context, campaignID, status string) error {
	const op = "update_campaign_status"
	smartleadStatus := strings.ToUpper(strings.TrimSpace(status))
	if smartleadStatus == "ACTIVE" {
		smartleadStatus = "START"
	}

	_, err := c.doRequest(ctx, op, http.MethodPost,
		fmt.Sprintf("/campaigns/%s/status", url.PathEscape(campaignID)),
		nil, map[string]interface{}{"status": smartleadStatus})
	return err
}

// GetSequence fetches the campaign's sequence steps.
func (c *Client) GetSequence(ctx context.Context, campaignID string) ([]provider.SequenceStep, error) {
	const op = "get_sequence"
	body, err := c.doRequest(ctx, op, http.MethodGet,
		fmt.Sprintf("/campaigns/%s/sequences", url.PathEscape(campaignID)), nil, nil)
	if err != nil {
		return nil, err
	}

	items, err := provider.DecodeList(body, "data", "sequences")
	if err != nil {
		return nil, provider.MalformedError(slug, op, err)
	}

	steps := make([]provider.SequenceStep, 0, len(items))
	for _, m := range items {
		step := provider.SequenceStep{
			Subject: domain.PayloadString(m, "subject", "email_subject"),
			Body:    domain.PayloadString(m, "email_body", "body"),
			Raw:     m,
		}
		if n, ok := domain.PayloadInt(m, "seq_number", "step_number"); ok {
			step.StepNumber = n
		}
		if d, ok := domain.PayloadInt(m, "seq_delay_details", "delay_in_days"); ok {
			step.DelayDays = d
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// SaveSequence replaces the campaign's sequence steps.
func (c *Client) SaveSequence(ctx context.Context, campaignID string, steps []provider.SequenceStep) error {
	const op = "save_sequence"
	sequences := make([]map[string]interface{}, 0, len(steps))
	for _, s := range steps {
		sequences = append(sequences, map[string]interface{}{
			"seq_number":    s.StepNumber,
			"subject":       s.Subject,
			"email_body":    s.Body,
			"delay_in_days": s.DelayDays,
		})
	}

	_, err := c.doRequest(ctx, op, http.MethodPost,
		fmt.Sprintf("/campaigns/%s/sequences", url.PathEscape(campaignID)),
		nil, map[string]interface{}{"sequences": sequences})
	return err
}

// ListLeads lists campaign leads up to limit.
func (c *Client) ListLeads(ctx context.Context, campaignID string, limit int) ([]provider.Lead, error) {
	const op = "list_leads"
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	body, err := c.doRequest(ctx, op, http.MethodGet,
		fmt.Sprintf("/campaigns/%s/leads", url.PathEscape(campaignID)), params, nil)
	if err != nil {
		return nil, err
	}

	items, err := provider.DecodeList(body, "data")
	if err != nil {
		return nil, provider.MalformedError(slug, op, err)
	}

	leads := make([]provider.Lead, 0, len(items))
	for _, m := range items {
		leads = append(leads, leadFromMap(m))
	}
	return leads, nil
}

// AddLeads adds leads to a campaign and returns the accepted count.
func (c *Client) AddLeads(ctx context.Context, campaignID string, leads []provider.NewLead) (int, error) {
	const op = "add_leads"
	leadList := make([]map[string]interface{}, 0, len(leads))
	for _, l := range leads {
		entry := map[string]interface{}{
			"email":      l.Email,
			"first_name": l.FirstName,
			"last_name":  l.LastName,
		}
		for k, v := range l.Fields {
			entry[k] = v
		}
		leadList = append(leadList, entry)
	}

	body, err := c.doRequest(ctx, op, http.MethodPost,
		fmt.Sprintf("/campaigns/%s/leads", url.PathEscape(campaignID)),
		nil, map[string]interface{}{"lead_list": leadList})
	if err != nil {
		return 0, err
	}

	m, err := provider.DecodeObject(body, "data")
	if err != nil {
		return 0, provider.MalformedError(slug, op, err)
	}
	if n, ok := domain.PayloadInt(m, "upload_count", "uploaded_count", "total_leads"); ok {
		return n, nil
	}
	return len(leads), nil
}

// RemoveLead removes one lead from a campaign.
func (c *Client) RemoveLead(ctx context.Context, campaignID, leadID string) error {
	const op = "remove_lead"
	_, err := c.doRequest(ctx, op, http.MethodDelete,
		fmt.Sprintf("/campaigns/%s/leads/%s", url.PathEscape(campaignID), url.PathEscape(leadID)), nil, nil)
	return err
}

// UpdateLeadCategory sets the lead's reply category.
func (c *Client) UpdateLeadCategory(ctx context.Context, campaignID, leadID, category string) error {
	const op = "update_lead_category"
	_, err := c.doRequest(ctx, op, http.MethodPost,
		fmt.Sprintf("/campaigns/%s/leads/%s/category", url.PathEscape(campaignID), url.PathEscape(leadID)),
		nil, map[string]interface{}{"category": category})
	return err
}

// CampaignAnalytics fetches point-in-time campaign analytics.
func (c *Client) CampaignAnalytics(ctx context.Context, campaignID string) (map[string]interface{}, error) {
	const op = "campaign_analytics"
	body, err := c.doRequest(ctx, op, http.MethodGet,
		fmt.Sprintf("/campaigns/%s/analytics", url.PathEscape(campaignID)), nil, nil)
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
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	body, err := c.doRequest(ctx, op, http.MethodGet, "/email-accounts", params, nil)
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
			Email:      domain.PayloadString(m, "from_email", "email"),
			Status:     domain.PayloadString(m, "status", "account_status"),
			Raw:        m,
		}
		if w := domain.PayloadMap(m, "warmup_details"); w != nil {
			inbox.WarmupEnabled = strings.EqualFold(domain.PayloadString(w, "status"), "active")
		}
		inboxes = append(inboxes, inbox)
	}
	return inboxes, nil
}

// SetWarmup toggles warmup for a sender account.
func (c *Client) SetWarmup(ctx context.Context, accountID string, enabled bool) error {
	const op = "set_warmup"
	_, err := c.doRequest(ctx, op, http.MethodPost,
		fmt.Sprintf("/email-accounts/%s/warmup", url.PathEscape(accountID)),
		nil, map[string]interface{}{"warmup_enabled": enabled})
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

func leadFromMap(m map[string]interface{}) provider.Lead {
	// Smartlead nests the contact under "lead"; status lives on the wrapper.
	contact := m
	if nested := domain.PayloadMap(m, "lead"); nested != nil {
		contact = nested
	}
	return provider.Lead{
		ExternalID: domain.PayloadString(contact, "id", "lead_id"),
		Email:      domain.PayloadString(contact, "email"),
		FirstName:  domain.PayloadString(contact, "first_name"),
		LastName:   domain.PayloadString(contact, "last_name"),
		Status:     domain.PayloadString(m, "status", "lead_category"),
		Raw:        m,
	}
}
