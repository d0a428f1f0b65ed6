// Package heyreach implements the LinkedIn outreach adapter for HeyReach.
// Auth is an X-API-KEY header. Deployments diverge on URL scheme, so list
// calls walk a fixed ordered set of candidate paths and accept the first
// non-404.
package heyreach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/pkg/httpretry"
	"github.com/reachops/outreach-gateway/internal/provider"
)

const slug = domain.ProviderHeyReach

// Candidate paths per operation, in priority order. Older deployments only
// serve the /api/v1 scheme.
var (
	listCampaignPaths = []string{"/api/public/campaign/GetAll", "/api/v1/campaign/list"}
	listLeadPaths     = []string{"/api/public/campaign/GetLeadsFromCampaign", "/api/v1/campaign/leads"}
)

// Client is a HeyReach API client bound to one tenant's key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a HeyReach client.
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

// doPost sends one JSON POST and returns the raw body. A 404 comes back as
// a typed status error so callers can fall through to the next candidate
// path.
func (c *Client) doPost(ctx context.Context, operation, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, provider.ContractError(slug, operation, fmt.Sprintf("encoding request body: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, provider.ContractError(slug, operation, fmt.Sprintf("building request: %v", err))
	}
	req.Header.Set("X-API-KEY", c.apiKey)
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

// doPostCandidates walks the candidate paths and returns the first non-404
// outcome.
func (c *Client) doPostCandidates(ctx context.Context, operation string, paths []string, payload interface{}) ([]byte, error) {
	var lastErr error
	for _, path := range paths {
		body, err := c.doPost(ctx, operation, path, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if pe, ok := provider.AsError(err); ok && pe.StatusCode == http.StatusNotFound {
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// ListCampaigns lists campaigns.
func (c *Client) ListCampaigns(ctx context.Context, limit int) ([]provider.Campaign, error) {
	const op = "list_campaigns"
	if limit <= 0 {
		limit = 100
	}

	body, err := c.doPostCandidates(ctx, op, listCampaignPaths,
		map[string]interface{}{"offset": 0, "limit": limit})
	if err != nil {
		return nil, err
	}

	items, err := provider.DecodeList(body, "items", "data")
	if err != nil {
		return nil, provider.MalformedError(slug, op, err)
	}

	campaigns := make([]provider.Campaign, 0, len(items))
	for _, m := range items {
		campaigns = append(campaigns, provider.Campaign{
			ExternalID: domain.PayloadString(m, "id", "campaign_id"),
			Name:       domain.PayloadString(m, "name"),
			Status:     domain.PayloadString(m, "status", "campaign_status"),
			Raw:        m,
		})
	}
	return campaigns, nil
}

// UpdateCampaignStatus pauses or resumes a campaign. HeyReach exposes no
// other transitions.
func (c *Client) UpdateCampaignStatus(ctx context.Context, campaignID, status string) error {
	const op = "update_campaign_status"
	id, err := numericID(campaignID)
	if err != nil {
		return provider.ContractError(slug, op, err.Error())
	}

	var action string
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "ACTIVE":
		action = "Resume"
	case "PAUSED":
		action = "Pause"
	default:
		return provider.ContractError(slug, op, fmt.Sprintf("status %q has no HeyReach action", status))
	}

	_, err = c.doPost(ctx, op, fmt.Sprintf("/api/public/campaign/%s?campaignId=%d", action, id), map[string]interface{}{})
	return err
}

// ListLeads lists leads enrolled in a campaign.
func (c *Client) ListLeads(ctx context.Context, campaignID string, limit int) ([]provider.Lead, error) {
	const op = "list_leads"
	id, err := numericID(campaignID)
	if err != nil {
		return nil, provider.ContractError(slug, op, err.Error())
	}
	if limit <= 0 {
		limit = 100
	}

	body, err := c.doPostCandidates(ctx, op, listLeadPaths,
		map[string]interface{}{"campaignId": id, "offset": 0, "limit": limit})
	if err != nil {
		return nil, err
	}

	items, err := provider.DecodeList(body, "items", "data")
	if err != nil {
		return nil, provider.MalformedError(slug, op, err)
	}

	leads := make([]provider.Lead, 0, len(items))
	for _, m := range items {
		contact := m
		if nested := domain.PayloadMap(m, "lead", "contact"); nested != nil {
			contact = nested
		}
		leads = append(leads, provider.Lead{
			ExternalID: domain.PayloadString(contact, "id", "profile_id", "linkedin_id"),
			Email:      domain.PayloadString(contact, "email", "email_address"),
			FirstName:  domain.PayloadString(contact, "first_name"),
			LastName:   domain.PayloadString(contact, "last_name"),
			Status:     domain.PayloadString(m, "status", "lead_status"),
			Raw:        m,
		})
	}
	return leads, nil
}

// ListConversations lists campaign conversations as messages. The last
// message of each conversation carries the reply signal reconciliation
// cares about.
func (c *Client) ListConversations(ctx context.Context, campaignID string, limit int) ([]provider.Message, error) {
	const op = "list_conversations"
	id, err := numericID(campaignID)
	if err != nil {
		return nil, provider.ContractError(slug, op, err.Error())
	}
	if limit <= 0 {
		limit = 100
	}

	body, err := c.doPost(ctx, op, "/api/public/inbox/GetConversationsV2", map[string]interface{}{
		"filters": map[string]interface{}{"campaignIds": []int64{id}},
		"offset":  0,
		"limit":   limit,
	})
	if err != nil {
		return nil, err
	}

	items, err := provider.DecodeList(body, "items", "data")
	if err != nil {
		return nil, provider.MalformedError(slug, op, err)
	}

	messages := make([]provider.Message, 0, len(items))
	for _, m := range items {
		msg := provider.Message{
			ExternalID:     domain.PayloadString(m, "id", "conversation_id"),
			LeadExternalID: leadIDFromConversation(m),
			Body:           domain.PayloadString(m, "last_message_text", "lastMessageText"),
			Direction:      directionFromSender(domain.PayloadString(m, "last_message_sender", "lastMessageSender")),
			Raw:            m,
		}
		if ts := domain.PayloadString(m, "last_message_at", "lastMessageAt"); ts != "" {
			if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
				msg.SentAt = &parsed
			}
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func leadIDFromConversation(m map[string]interface{}) string {
	if profile := domain.PayloadMap(m, "correspondent_profile", "correspondentProfile"); profile != nil {
		return domain.PayloadString(profile, "id", "profile_id", "linkedin_id")
	}
	return domain.PayloadString(m, "lead_id")
}

// directionFromSender maps HeyReach's sender markers onto message
// direction: the correspondent's messages are inbound, ours outbound.
func directionFromSender(sender string) string {
	switch strings.ToLower(strings.TrimSpace(sender)) {
	case "correspondent", "lead", "them":
		return "inbound"
	case "me", "account", "us":
		return "outbound"
	default:
		return ""
	}
}

func numericID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("campaign id %q is not numeric", raw)
	}
	return id, nil
}
