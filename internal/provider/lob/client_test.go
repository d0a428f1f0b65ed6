package lob

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/reachops/outreach-gateway/internal/provider"
)

func newTestServerClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test_key", srv.URL, 5*time.Second)
}

func TestCreatePieceWithHeaderIdempotency(t *testing.T) {
	var gotPath, gotHeader, gotQuery, gotUser string
	client := newTestServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("Idempotency-Key")
		gotQuery = r.URL.Query().Get("idempotency_key")
		gotUser, _, _ = r.BasicAuth()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "psc_abc123", "object": "postcard", "date_created": "2026-08-01T00:00:00Z",
			"send_date": "2026-08-03",
		})
	})

	piece, err := client.CreatePiece(context.Background(), provider.PieceRequest{
		Type:              "postcard",
		Params:            map[string]interface{}{"to": "adr_1", "front": "tmpl_1"},
		IdempotencyHeader: "order-778",
	})
	if err != nil {
		t.Fatalf("CreatePiece: %v", err)
	}

	if gotPath != "/postcards" {
		t.Errorf("path = %q, want /postcards", gotPath)
	}
	if gotHeader != "order-778" {
		t.Errorf("Idempotency-Key = %q, want order-778", gotHeader)
	}
	if gotQuery != "" {
		t.Errorf("idempotency_key query = %q, want empty", gotQuery)
	}
	if gotUser != "test_key" {
		t.Errorf("basic auth user = %q, want test_key", gotUser)
	}
	if piece.ExternalID != "psc_abc123" || piece.Type != "postcard" {
		t.Errorf("piece = %+v", piece)
	}
	if piece.SendDate == nil || piece.SendDate.Format("2006-01-02") != "2026-08-03" {
		t.Errorf("send date = %v", piece.SendDate)
	}
}

func TestCreatePieceWithQueryIdempotency(t *testing.T) {
	var gotHeader, gotQuery string
	client := newTestServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("Idempotency-Key")
		gotQuery = r.URL.Query().Get("idempotency_key")
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "ltr_1", "object": "letter"})
	})

	_, err := client.CreatePiece(context.Background(), provider.PieceRequest{
		Type:             "letter",
		Params:           map[string]interface{}{"to": "adr_1"},
		IdempotencyQuery: "order-779",
	})
	if err != nil {
		t.Fatalf("CreatePiece: %v", err)
	}
	if gotQuery != "order-779" {
		t.Errorf("idempotency_key query = %q, want order-779", gotQuery)
	}
	if gotHeader != "" {
		t.Errorf("Idempotency-Key header = %q, want empty", gotHeader)
	}
}

func TestCreatePieceRejectsBothIdempotencyForms(t *testing.T) {
	client := newTestServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no HTTP call expected when both idempotency forms are supplied")
	})

	_, err := client.CreatePiece(context.Background(), provider.PieceRequest{
		Type:              "postcard",
		Params:            map[string]interface{}{"to": "adr_1"},
		IdempotencyHeader: "key-a",
		IdempotencyQuery:  "key-b",
	})
	pe, ok := provider.AsError(err)
	if !ok {
		t.Fatalf("expected provider error, got %v", err)
	}
	if pe.Category != provider.CategoryTerminal {
		t.Errorf("category = %s, want terminal", pe.Category)
	}
	if pe.Retryable() {
		t.Error("contract violation must not be retryable")
	}
}

func TestCreatePieceRejectsUnknownType(t *testing.T) {
	client := newTestServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no HTTP call expected for an unknown piece type")
	})

	_, err := client.CreatePiece(context.Background(), provider.PieceRequest{
		Type:   "billboard",
		Params: map[string]interface{}{},
	})
	pe, ok := provider.AsError(err)
	if !ok || pe.Category != provider.CategoryTerminal {
		t.Fatalf("expected terminal provider error, got %v", err)
	}
}

func TestListPiecesUnwrapsDataEnvelope(t *testing.T) {
	client := newTestServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/letters" {
			t.Errorf("path = %q, want /letters", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": "ltr_1", "object": "letter", "send_date": "2026-08-10"},
				{"id": "ltr_2", "object": "letter"},
			},
			"object": "list",
			"count":  2,
		})
	})

	pieces, err := client.ListPieces(context.Background(), "letter", 10)
	if err != nil {
		t.Fatalf("ListPieces: %v", err)
	}
	if len(pieces) != 2 || pieces[0].ExternalID != "ltr_1" {
		t.Errorf("pieces = %+v", pieces)
	}
}

func TestGetAndCancelPiece(t *testing.T) {
	var methods, paths []string
	client := newTestServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "psc_9", "object": "postcard"})
	})

	ctx := context.Background()
	if _, err := client.GetPiece(ctx, "postcard", "psc_9"); err != nil {
		t.Fatalf("GetPiece: %v", err)
	}
	if err := client.CancelPiece(ctx, "postcard", "psc_9"); err != nil {
		t.Fatalf("CancelPiece: %v", err)
	}

	if methods[0] != http.MethodGet || paths[0] != "/postcards/psc_9" {
		t.Errorf("get call = %s %s", methods[0], paths[0])
	}
	if methods[1] != http.MethodDelete || paths[1] != "/postcards/psc_9" {
		t.Errorf("cancel call = %s %s", methods[1], paths[1])
	}
}

func TestInvalidKeyClassifiesTerminal(t *testing.T) {
	client := newTestServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	})

	_, err := client.GetPiece(context.Background(), "postcard", "psc_1")
	pe, ok := provider.AsError(err)
	if !ok {
		t.Fatalf("expected provider error, got %v", err)
	}
	if pe.Category != provider.CategoryTerminal || pe.HTTPStatus() != http.StatusBadGateway {
		t.Errorf("envelope = %+v", pe)
	}
}
