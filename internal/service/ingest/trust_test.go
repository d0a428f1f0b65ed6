package ingest_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/reachops/outreach-gateway/internal/service/ingest"
)

func sign(secret, data string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func lobHeaders(secret string, ts time.Time, body []byte) http.Header {
	stamp := strconv.FormatInt(ts.Unix(), 10)
	h := http.Header{}
	h.Set("Lob-Signature-Timestamp", stamp)
	h.Set("Lob-Signature", sign(secret, stamp+"."+string(body)))
	return h
}

func TestHMACPolicyNoSecretAccepts(t *testing.T) {
	p := ingest.NewHMACPolicy("smartlead", "")
	res := p.Verify([]byte(`{}`), http.Header{})
	if !res.OK {
		t.Fatalf("expected accept without secret, got %+v", res)
	}
}

func TestHMACPolicyMissingSignature(t *testing.T) {
	p := ingest.NewHMACPolicy("smartlead", "secret123")
	res := p.Verify([]byte(`{}`), http.Header{})
	if res.OK || res.Reason != ingest.ReasonMissingSignature {
		t.Fatalf("expected missing_signature, got %+v", res)
	}
	if res.HTTPStatus != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.HTTPStatus)
	}
}

func TestHMACPolicyVerifies(t *testing.T) {
	body := []byte(`{"event":"x"}`)
	p := ingest.NewHMACPolicy("smartlead", "secret123")

	h := http.Header{}
	h.Set("X-Smartlead-Signature", sign("secret123", string(body)))
	if res := p.Verify(body, h); !res.OK || res.Verification != "verified" {
		t.Fatalf("expected verified, got %+v", res)
	}

	h.Set("X-Smartlead-Signature", sign("wrong-secret", string(body)))
	if res := p.Verify(body, h); res.OK || res.Reason != ingest.ReasonInvalidSignature {
		t.Fatalf("expected invalid_signature, got %+v", res)
	}
}

func TestLobEnforceVerifies(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	p := ingest.LobPolicy{Secret: "lobsecret", Mode: ingest.LobModeEnforce, Tolerance: 5 * time.Minute}
	res := p.Verify(body, lobHeaders("lobsecret", time.Now(), body))
	if !res.OK || res.Verification != "verified" {
		t.Fatalf("expected verified, got %+v", res)
	}
}

func TestLobEnforceRejections(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	p := ingest.LobPolicy{Secret: "lobsecret", Mode: ingest.LobModeEnforce, Tolerance: 5 * time.Minute}

	if res := p.Verify(body, http.Header{}); res.Reason != ingest.ReasonMissingSignature {
		t.Errorf("no headers: got %q", res.Reason)
	}

	noTS := http.Header{}
	noTS.Set("Lob-Signature", "deadbeef")
	if res := p.Verify(body, noTS); res.Reason != ingest.ReasonMissingTimestamp {
		t.Errorf("no timestamp: got %q", res.Reason)
	}

	badTS := http.Header{}
	badTS.Set("Lob-Signature", "deadbeef")
	badTS.Set("Lob-Signature-Timestamp", "yesterday")
	if res := p.Verify(body, badTS); res.Reason != ingest.ReasonInvalidTimestamp {
		t.Errorf("bad timestamp: got %q", res.Reason)
	}

	stale := lobHeaders("lobsecret", time.Now().Add(-10*time.Minute), body)
	if res := p.Verify(body, stale); res.Reason != ingest.ReasonStaleTimestamp {
		t.Errorf("stale timestamp: got %q", res.Reason)
	}

	wrongKey := lobHeaders("other-secret", time.Now(), body)
	if res := p.Verify(body, wrongKey); res.Reason != ingest.ReasonInvalidSignature {
		t.Errorf("wrong secret: got %q", res.Reason)
	}
}

func TestLobEnforceMissingSecretIs503(t *testing.T) {
	p := ingest.LobPolicy{Mode: ingest.LobModeEnforce, Tolerance: 5 * time.Minute}
	res := p.Verify([]byte(`{}`), http.Header{})
	if res.OK || res.Reason != ingest.ReasonSecretNotConfigured {
		t.Fatalf("expected secret_not_configured, got %+v", res)
	}
	if res.HTTPStatus != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.HTTPStatus)
	}
}

func TestLobPermissiveAuditAcceptsFailures(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	p := ingest.LobPolicy{Secret: "lobsecret", Mode: ingest.LobModePermissiveAudit, Tolerance: 5 * time.Minute}
	res := p.Verify(body, http.Header{})
	if !res.OK {
		t.Fatalf("permissive mode rejected the delivery: %+v", res)
	}
	if res.Verification != ingest.ReasonMissingSignature {
		t.Fatalf("expected audited reason, got %q", res.Verification)
	}
}

func TestOriginPolicyPathToken(t *testing.T) {
	p := ingest.OriginPolicy{PathToken: "tok-1"}
	if res := p.Verify("tok-1", http.Header{}); !res.OK {
		t.Fatalf("valid token rejected: %+v", res)
	}
	res := p.Verify("tok-2", http.Header{})
	if res.OK || res.Reason != ingest.ReasonInvalidPathToken {
		t.Fatalf("expected invalid_path_token, got %+v", res)
	}
	if res.HTTPStatus != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.HTTPStatus)
	}
}

func TestOriginPolicyAllowlist(t *testing.T) {
	p := ingest.OriginPolicy{PathToken: "tok-1", AllowedOrigins: []string{"emailbison.com", "https://app.other.io"}}

	h := http.Header{}
	h.Set("Origin", "https://tenant7.emailbison.com")
	if res := p.Verify("tok-1", h); !res.OK {
		t.Fatalf("subdomain origin rejected: %+v", res)
	}

	h = http.Header{}
	h.Set("Referer", "https://app.other.io/settings/webhooks")
	if res := p.Verify("tok-1", h); !res.OK {
		t.Fatalf("referer origin rejected: %+v", res)
	}

	h = http.Header{}
	h.Set("X-Forwarded-Host", "emailbison.com:443")
	if res := p.Verify("tok-1", h); !res.OK {
		t.Fatalf("forwarded host rejected: %+v", res)
	}

	h = http.Header{}
	h.Set("Origin", "https://evil.example.com")
	if res := p.Verify("tok-1", h); res.OK || res.Reason != ingest.ReasonOriginNotAllowed {
		t.Fatalf("expected origin_not_allowed, got %+v", res)
	}

	if res := p.Verify("tok-1", http.Header{}); res.OK {
		t.Fatalf("missing origin accepted: %+v", res)
	}
}

func TestOriginPolicyUnconfiguredSkips(t *testing.T) {
	p := ingest.OriginPolicy{}
	res := p.Verify("anything", http.Header{})
	if !res.OK || res.Verification != "skipped_not_configured" {
		t.Fatalf("expected skipped_not_configured, got %+v", res)
	}
}
