package api_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/metrics"
	"github.com/reachops/outreach-gateway/internal/service/ingest"
)

func TestWebhookSmartleadProcessed(t *testing.T) {
	fx := newFixture(fixtureOpts{})

	body := `{"event_id":"evt-1","event":"email_sent","campaign_id":"123"}`
	rec := fx.do(t, http.MethodPost, "/webhooks/smartlead", "", body, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decodeMap(t, rec)
	if res["status"] != "processed" || res["event_key"] != "evt-1" {
		t.Fatalf("unexpected response: %v", res)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response missing X-Request-ID header")
	}

	ev, err := fx.store.Get(context.Background(), domain.ProviderSmartlead, "evt-1")
	if err != nil {
		t.Fatalf("stored event: %v", err)
	}
	if ev.Status != domain.EventProcessed {
		t.Fatalf("expected processed row, got %s", ev.Status)
	}
	if ev.OrgID == nil || *ev.OrgID != "org-1" {
		t.Fatalf("tenant not resolved: %v", ev.OrgID)
	}
}

func TestWebhookDuplicateIgnored(t *testing.T) {
	fx := newFixture(fixtureOpts{})

	body := `{"event_id":"evt-dup","event":"email_sent","campaign_id":"123"}`
	first := fx.do(t, http.MethodPost, "/webhooks/smartlead", "", body, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first delivery: %d", first.Code)
	}
	second := fx.do(t, http.MethodPost, "/webhooks/smartlead", "", body, nil)
	if second.Code != http.StatusOK {
		t.Fatalf("second delivery: %d", second.Code)
	}

	res := decodeMap(t, second)
	if res["status"] != "duplicate_ignored" {
		t.Fatalf("expected duplicate_ignored, got %v", res)
	}
	if fx.store.count() != 1 {
		t.Fatalf("expected one stored row, got %d", fx.store.count())
	}
	if fx.projector.calls() != 1 {
		t.Fatalf("projection ran %d times, want 1", fx.projector.calls())
	}
}

func TestWebhookSmartleadSignature(t *testing.T) {
	secret := "secret123"
	fx := newFixture(fixtureOpts{gateway: ingest.Config{SmartleadSecret: secret}})
	body := `{"event_id":"evt-sig","event":"email_sent","campaign_id":"123"}`

	// Unsigned deliveries never reach the store.
	rec := fx.do(t, http.MethodPost, "/webhooks/smartlead", "", body, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decodeMap(t, rec)
	if res["type"] != "webhook_auth_failed" || res["provider"] != "smartlead" || res["reason"] != ingest.ReasonMissingSignature {
		t.Fatalf("unexpected rejection body: %v", res)
	}
	if fx.store.count() != 0 {
		t.Fatal("rejected delivery reached the store")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	header := http.Header{"X-Smartlead-Signature": []string{hex.EncodeToString(mac.Sum(nil))}}
	rec = fx.do(t, http.MethodPost, "/webhooks/smartlead", "", body, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("signed delivery: %d: %s", rec.Code, rec.Body.String())
	}
	if decodeMap(t, rec)["status"] != "processed" {
		t.Fatalf("signed delivery not processed: %s", rec.Body.String())
	}
}

func TestWebhookLobEnforceRejectsUnsigned(t *testing.T) {
	fx := newFixture(fixtureOpts{gateway: ingest.Config{
		LobSecret:        "lobsecret",
		LobSignatureMode: ingest.LobModeEnforce,
	}})

	rec := fx.do(t, http.MethodPost, "/webhooks/lob", "", `{"id":"evt_1"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decodeMap(t, rec)
	if res["provider"] != "lob" || res["reason"] != ingest.ReasonMissingSignature {
		t.Fatalf("unexpected rejection body: %v", res)
	}
	if fx.store.count() != 0 {
		t.Fatal("rejected delivery reached the store")
	}
	rejected := metrics.Key(metrics.CounterSignatureRejected, map[string]string{"provider": "lob", "reason": "missing_signature"})
	if fx.reg.Snapshot()[rejected] != 1 {
		t.Error("signature rejected counter not incremented")
	}
}

func TestWebhookEmailBisonTokenRoute(t *testing.T) {
	fx := newFixture(fixtureOpts{gateway: ingest.Config{EmailBisonPathToken: "tok-1"}})

	body := `{"event_id":"eb-1","event":"lead_replied","campaign_id":"77"}`
	rec := fx.do(t, http.MethodPost, "/webhooks/emailbison/tok-1", "", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if decodeMap(t, rec)["status"] != "accepted" {
		t.Fatalf("expected accepted, got %s", rec.Body.String())
	}

	fx.gateway.Wait()
	ev, err := fx.store.Get(context.Background(), domain.ProviderEmailBison, "eb-1")
	if err != nil {
		t.Fatalf("stored event: %v", err)
	}
	if ev.Status != domain.EventProcessed {
		t.Fatalf("background projection did not finalize: %s", ev.Status)
	}

	rec = fx.do(t, http.MethodPost, "/webhooks/emailbison/wrong", "", body, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", rec.Code)
	}
	if decodeMap(t, rec)["reason"] != ingest.ReasonInvalidPathToken {
		t.Fatalf("unexpected rejection body: %s", rec.Body.String())
	}
}

func TestWebhookEmailBisonBarePathRejected(t *testing.T) {
	// No token configured: the bare path still rejects, the gateway is
	// never consulted.
	fx := newFixture(fixtureOpts{})

	rec := fx.do(t, http.MethodPost, "/webhooks/emailbison", "", `{"event_id":"eb-2"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decodeMap(t, rec)
	if res["type"] != "webhook_auth_failed" || res["provider"] != "emailbison" || res["reason"] != ingest.ReasonInvalidPathToken {
		t.Fatalf("unexpected rejection body: %v", res)
	}
	if fx.store.count() != 0 {
		t.Fatal("bare-path delivery reached the store")
	}
}

func TestWebhookMalformedPayloadDeadLetters(t *testing.T) {
	fx := newFixture(fixtureOpts{})

	rec := fx.do(t, http.MethodPost, "/webhooks/smartlead", "", `{not json`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decodeMap(t, rec)
	if res["status"] != "dead_letter_recorded" || res["reason"] != domain.DeadLetterMalformedPayload {
		t.Fatalf("unexpected response: %v", res)
	}
	if fx.projector.calls() != 0 {
		t.Fatal("malformed payload should not be projected")
	}
}

func TestWebhookPayloadTooLarge(t *testing.T) {
	fx := newFixture(fixtureOpts{})

	oversized := bytes.Repeat([]byte("a"), 1<<20+1)
	rec := fx.do(t, http.MethodPost, "/webhooks/smartlead", "", oversized, nil)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	if fx.store.count() != 0 {
		t.Fatal("oversized delivery reached the store")
	}
}

func TestRequestIDPropagation(t *testing.T) {
	fx := newFixture(fixtureOpts{})
	body := `{"event_id":"evt-rid","event":"email_sent","campaign_id":"1"}`

	rec := fx.do(t, http.MethodPost, "/webhooks/smartlead", "", body, http.Header{
		"X-Request-Id": []string{"rid-123"},
	})
	if got := rec.Header().Get("X-Request-ID"); got != "rid-123" {
		t.Fatalf("X-Request-ID not echoed: %q", got)
	}

	rec = fx.do(t, http.MethodPost, "/webhooks/smartlead", "", `{"event_id":"evt-rid2"}`, http.Header{
		"X-Correlation-Id": []string{"cid-456"},
	})
	if got := rec.Header().Get("X-Request-ID"); got != "cid-456" {
		t.Fatalf("X-Correlation-ID not promoted: %q", got)
	}

	rec = fx.do(t, http.MethodPost, "/webhooks/smartlead", "", `{"event_id":"evt-rid3"}`, nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("no request id generated")
	}
}

func TestHealthEndpoint(t *testing.T) {
	fx := newFixture(fixtureOpts{})
	rec := fx.do(t, http.MethodGet, "/health", "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decodeMap(t, rec)["status"] != "healthy" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
