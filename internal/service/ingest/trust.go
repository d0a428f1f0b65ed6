package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Verification failure reasons. Each becomes a metric label and, for
// rejected deliveries, the structured reason in the response body.
const (
	ReasonMissingSignature    = "missing_signature"
	ReasonMissingTimestamp    = "missing_timestamp"
	ReasonInvalidTimestamp    = "invalid_timestamp"
	ReasonStaleTimestamp      = "stale_timestamp"
	ReasonInvalidSignature    = "invalid_signature"
	ReasonSecretNotConfigured = "secret_not_configured"
	ReasonInvalidPathToken    = "invalid_path_token"
	ReasonOriginNotAllowed    = "origin_not_allowed"
)

// Signature modes for the replay-window policy.
const (
	LobModePermissiveAudit = "permissive_audit"
	LobModeEnforce         = "enforce"
)

// Trust modes recorded in the "_ingestion" payload sub-record. The
// replay-window policy records its configured signature mode instead.
const (
	TrustModeHMAC           = "hmac"
	TrustModeUnsignedOrigin = "unsigned_origin"
)

// Verification outcomes recorded when no failure reason applies.
const (
	verificationVerified             = "verified"
	verificationSkippedNoSecret      = "skipped_no_secret"
	verificationSkippedNotConfigured = "skipped_not_configured"
)

// TrustResult is the outcome of one trust-policy check. For accepted
// deliveries Mode and Verification feed the "_ingestion" record; for
// rejected ones Reason and HTTPStatus shape the error response.
type TrustResult struct {
	OK           bool
	Mode         string
	Verification string
	Reason       string
	HTTPStatus   int
}

func trustOK(mode, verification string) TrustResult {
	return TrustResult{OK: true, Mode: mode, Verification: verification}
}

func trustReject(mode, reason string, status int) TrustResult {
	return TrustResult{Mode: mode, Verification: reason, Reason: reason, HTTPStatus: status}
}

// TrustError is a delivery rejected by its trust policy, before touching
// the event store.
type TrustError struct {
	HTTPStatus int
	Type       string
	Provider   string
	Reason     string
}

func (e *TrustError) Error() string {
	return fmt.Sprintf("webhook trust rejected for %s: %s", e.Provider, e.Reason)
}

func trustError(provider string, res TrustResult) *TrustError {
	typ := "webhook_auth_failed"
	if res.HTTPStatus == http.StatusServiceUnavailable {
		typ = "webhook_config_error"
	}
	return &TrustError{HTTPStatus: res.HTTPStatus, Type: typ, Provider: provider, Reason: res.Reason}
}

// HMACPolicy verifies hex(HMAC-SHA256(secret, raw_body)) carried in a
// provider-specific signature header. An unset secret disables
// verification (deployment choice).
type HMACPolicy struct {
	Provider string
	Secret   string
	Header   string
}

// NewHMACPolicy builds the policy for a provider slug. The signature
// header is X-<Provider>-Signature.
func NewHMACPolicy(provider, secret string) HMACPolicy {
	return HMACPolicy{
		Provider: provider,
		Secret:   secret,
		Header:   "X-" + strings.ToUpper(provider[:1]) + provider[1:] + "-Signature",
	}
}

// Verify checks the delivery signature against the raw body.
func (p HMACPolicy) Verify(body []byte, header http.Header) TrustResult {
	if p.Secret == "" {
		return trustOK(TrustModeHMAC, verificationSkippedNoSecret)
	}
	sig := strings.TrimSpace(header.Get(p.Header))
	if sig == "" {
		return trustReject(TrustModeHMAC, ReasonMissingSignature, http.StatusUnauthorized)
	}
	expected := signHex([]byte(p.Secret), body)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(sig))) {
		return trustReject(TrustModeHMAC, ReasonInvalidSignature, http.StatusUnauthorized)
	}
	return trustOK(TrustModeHMAC, verificationVerified)
}

// Replay-window signature headers.
const (
	lobSignatureHeader = "Lob-Signature"
	lobTimestampHeader = "Lob-Signature-Timestamp"
)

// LobPolicy verifies the replay-window signing scheme: Lob-Signature
// carries hex(HMAC-SHA256(secret, "<timestamp>.<raw_body>")) where the
// timestamp is Lob-Signature-Timestamp in unix seconds and must fall
// within the tolerance window. enforce rejects failures; permissive_audit
// reports the reason for auditing and accepts the delivery.
type LobPolicy struct {
	Secret    string
	Mode      string
	Tolerance time.Duration
}

// Verify checks one delivery. In permissive_audit mode the returned result
// is OK with Verification carrying the failure reason.
func (p LobPolicy) Verify(body []byte, header http.Header) TrustResult {
	reason := p.check(body, header)
	if reason == "" {
		return trustOK(p.Mode, verificationVerified)
	}
	if p.Mode == LobModeEnforce {
		status := http.StatusUnauthorized
		if reason == ReasonSecretNotConfigured {
			status = http.StatusServiceUnavailable
		}
		return trustReject(p.Mode, reason, status)
	}
	return trustOK(p.Mode, reason)
}

func (p LobPolicy) check(body []byte, header http.Header) string {
	if p.Secret == "" {
		return ReasonSecretNotConfigured
	}
	sig := strings.TrimSpace(header.Get(lobSignatureHeader))
	if sig == "" {
		return ReasonMissingSignature
	}
	ts := strings.TrimSpace(header.Get(lobTimestampHeader))
	if ts == "" {
		return ReasonMissingTimestamp
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ReasonInvalidTimestamp
	}
	drift := time.Since(time.Unix(unix, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > p.Tolerance {
		return ReasonStaleTimestamp
	}
	expected := signHex([]byte(p.Secret), []byte(ts+"."+string(body)))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(sig))) {
		return ReasonInvalidSignature
	}
	return ""
}

// OriginPolicy establishes trust for unsigned providers: a secret URL path
// token compared in constant time plus an Origin/Referer/X-Forwarded-Host
// allowlist (exact host or subdomain suffix). Unset pieces of the policy
// are skipped, mirroring the optional HMAC secret.
type OriginPolicy struct {
	PathToken      string
	AllowedOrigins []string
}

// Verify checks the {token} path segment and the presented origin host.
func (p OriginPolicy) Verify(pathToken string, header http.Header) TrustResult {
	if p.PathToken != "" {
		if subtle.ConstantTimeCompare([]byte(pathToken), []byte(p.PathToken)) != 1 {
			return trustReject(TrustModeUnsignedOrigin, ReasonInvalidPathToken, http.StatusUnauthorized)
		}
	}
	if len(p.AllowedOrigins) > 0 {
		host := originHost(header)
		if host == "" || !p.hostAllowed(host) {
			return trustReject(TrustModeUnsignedOrigin, ReasonOriginNotAllowed, http.StatusUnauthorized)
		}
	}
	if p.PathToken == "" && len(p.AllowedOrigins) == 0 {
		return trustOK(TrustModeUnsignedOrigin, verificationSkippedNotConfigured)
	}
	return trustOK(TrustModeUnsignedOrigin, verificationVerified)
}

// hostAllowed reports whether host matches an allowlist entry exactly or
// as a subdomain of it. Entries may be bare hosts or full URLs.
func (p OriginPolicy) hostAllowed(host string) bool {
	for _, allowed := range p.AllowedOrigins {
		a := strings.ToLower(strings.TrimSpace(allowed))
		if strings.Contains(a, "://") {
			if u, err := url.Parse(a); err == nil && u.Hostname() != "" {
				a = strings.ToLower(u.Hostname())
			}
		}
		if a == "" {
			continue
		}
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}

// originHost extracts the origin host a delivery presents, preferring
// Origin, then Referer, then X-Forwarded-Host.
func originHost(header http.Header) string {
	if o := strings.TrimSpace(header.Get("Origin")); o != "" {
		if u, err := url.Parse(o); err == nil && u.Hostname() != "" {
			return strings.ToLower(u.Hostname())
		}
		return strings.ToLower(stripPort(o))
	}
	if r := strings.TrimSpace(header.Get("Referer")); r != "" {
		if u, err := url.Parse(r); err == nil && u.Hostname() != "" {
			return strings.ToLower(u.Hostname())
		}
	}
	if fh := strings.TrimSpace(header.Get("X-Forwarded-Host")); fh != "" {
		first := strings.TrimSpace(strings.Split(fh, ",")[0])
		return strings.ToLower(stripPort(first))
	}
	return ""
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func signHex(secret, data []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
