// Package lob implements the direct-mail adapter for Lob. Auth is HTTP
// basic with the API key as username. Piece creation accepts idempotency
// material as either an Idempotency-Key header or an idempotency_key query
// parameter; the two are mutually exclusive.
package lob

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

const slug = domain.ProviderLob

// resourcePaths maps piece types to Lob's plural resource paths.
var resourcePaths = map[string]string{
	string(domain.PiecePostcard):   "/postcards",
	string(domain.PieceLetter):     "/letters",
	string(domain.PieceSelfMailer): "/self_mailers",
	string(domain.PieceCheck):      "/checks",
}

// Client is a Lob API client bound to one tenant's key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a Lob client.
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

func (c *Client) doRequest(ctx context.Context, operation, method, path string, params url.Values, payload interface{}, headers map[string]string) ([]byte, error) {
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
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

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

func resourcePath(operation, pieceType string) (string, error) {
	path, ok := resourcePaths[strings.ToLower(strings.TrimSpace(pieceType))]
	if !ok {
		return "", provider.ContractError(slug, operation, fmt.Sprintf("unsupported piece type %q", pieceType))
	}
	return path, nil
}

// CreatePiece creates a mail piece. Idempotency material travels as either
// the Idempotency-Key header or the idempotency_key query parameter;
// supplying both fails terminal before any HTTP call.
func (c *Client) CreatePiece(ctx context.Context, req provider.PieceRequest) (*provider.Piece, error) {
	const op = "create_piece"
	if req.IdempotencyHeader != "" && req.IdempotencyQuery != "" {
		return nil, provider.ContractError(slug, op,
			"idempotency material supplied as both header and query parameter; the two are mutually exclusive")
	}

	path, err := resourcePath(op, req.Type)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	if req.IdempotencyQuery != "" {
		params.Set("idempotency_key", req.IdempotencyQuery)
	}
	var headers map[string]string
	if req.IdempotencyHeader != "" {
		headers = map[string]string{"Idempotency-Key": req.IdempotencyHeader}
	}

	body, err := c.doRequest(ctx, op, http.MethodPost, path, params, req.Params, headers)
	if err != nil {
		return nil, err
	}

	m, err := provider.DecodeObject(body, "data")
	if err != nil {
		return nil, provider.MalformedError(slug, op, err)
	}
	piece := pieceFromMap(m, req.Type)
	if piece.ExternalID == "" {
		return nil, provider.MalformedError(slug, op, fmt.Errorf("response missing piece id"))
	}
	return &piece, nil
}

// ListPieces lists pieces of one type.
func (c *Client) ListPieces(ctx context.Context, pieceType string, limit int) ([]provider.Piece, error) {
	const op = "list_pieces"
	path, err := resourcePath(op, pieceType)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	body, err := c.doRequest(ctx, op, http.MethodGet, path, params, nil, nil)
	if err != nil {
		return nil, err
	}

	items, err := provider.DecodeList(body, "data")
	if err != nil {
		return nil, provider.MalformedError(slug, op, err)
	}

	pieces := make([]provider.Piece, 0, len(items))
	for _, m := range items {
		pieces = append(pieces, pieceFromMap(m, pieceType))
	}
	return pieces, nil
}

// GetPiece fetches one piece.
func (c *Client) GetPiece(ctx context.Context, pieceType, pieceID string) (*provider.Piece, error) {
	const op = "get_piece"
	path, err := resourcePath(op, pieceType)
	if err != nil {
		return nil, err
	}

	body, err := c.doRequest(ctx, op, http.MethodGet, path+"/"+url.PathEscape(pieceID), nil, nil, nil)
	if err != nil {
		return nil, err
	}

	m, err := provider.DecodeObject(body, "data")
	if err != nil {
		return nil, provider.MalformedError(slug, op, err)
	}
	piece := pieceFromMap(m, pieceType)
	return &piece, nil
}

// CancelPiece cancels a piece that has not yet entered production.
func (c *Client) CancelPiece(ctx context.Context, pieceType, pieceID string) error {
	const op = "cancel_piece"
	path, err := resourcePath(op, pieceType)
	if err != nil {
		return err
	}

	_, err = c.doRequest(ctx, op, http.MethodDelete, path+"/"+url.PathEscape(pieceID), nil, nil, nil)
	return err
}

func pieceFromMap(m map[string]interface{}, pieceType string) provider.Piece {
	piece := provider.Piece{
		ExternalID: domain.PayloadString(m, "id"),
		Type:       strings.ToLower(strings.TrimSpace(domain.PayloadString(m, "object"))),
		Status:     domain.PayloadString(m, "status"),
		Raw:        m,
	}
	if piece.Type == "" {
		piece.Type = strings.ToLower(strings.TrimSpace(pieceType))
	}
	if ts := domain.PayloadString(m, "send_date", "expected_delivery_date"); ts != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, ts); err == nil {
				piece.SendDate = &parsed
				break
			}
		}
	}
	return piece
}
