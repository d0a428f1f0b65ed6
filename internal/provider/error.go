package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Category classifies a provider failure for retry and HTTP-mapping
// decisions.
type Category string

const (
	// CategoryTransient covers connectivity failures and provider-side
	// throttling or outage statuses. Safe to retry.
	CategoryTransient Category = "transient"
	// CategoryTerminal covers invalid credentials, missing endpoints,
	// malformed responses, and contract violations. Retrying cannot help.
	CategoryTerminal Category = "terminal"
	// CategoryUnknown covers everything else. Not retried by default.
	CategoryUnknown Category = "unknown"
)

// Error is the envelope every adapter failure travels in. Routes that
// dispatch to a provider surface failures in this shape only.
type Error struct {
	Provider   string
	Operation  string
	Category   Category
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s failed (%s, status %d): %s", e.Provider, e.Operation, e.Category, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s failed (%s): %s", e.Provider, e.Operation, e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the caller may re-submit. Only transient
// failures qualify.
func (e *Error) Retryable() bool { return e.Category == CategoryTransient }

// HTTPStatus maps the category to the external status code:
// transient → 503, terminal and unknown → 502.
func (e *Error) HTTPStatus() int {
	if e.Category == CategoryTransient {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

// ClassifyStatus assigns a category to a provider HTTP status code.
// 429/500/502/503/504 are transient; 401/403/404 are terminal; the rest
// are unknown.
func ClassifyStatus(status int) Category {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return CategoryTransient
	case http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound:
		return CategoryTerminal
	default:
		return CategoryUnknown
	}
}

// StatusError wraps a non-2xx provider response.
func StatusError(providerSlug, operation string, status int, body []byte) *Error {
	msg := string(body)
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return &Error{
		Provider:   providerSlug,
		Operation:  operation,
		Category:   ClassifyStatus(status),
		StatusCode: status,
		Message:    msg,
	}
}

// TransportError wraps a connectivity failure (DNS, dial, timeout). Always
// transient.
func TransportError(providerSlug, operation string, err error) *Error {
	return &Error{
		Provider:  providerSlug,
		Operation: operation,
		Category:  CategoryTransient,
		Message:   err.Error(),
		Err:       err,
	}
}

// MalformedError wraps a response the adapter could not decode. Always
// terminal.
func MalformedError(providerSlug, operation string, err error) *Error {
	return &Error{
		Provider:  providerSlug,
		Operation: operation,
		Category:  CategoryTerminal,
		Message:   fmt.Sprintf("malformed response: %v", err),
		Err:       err,
	}
}

// ContractError wraps a caller mistake detected before any HTTP call, such
// as supplying both idempotency forms. Always terminal.
func ContractError(providerSlug, operation, message string) *Error {
	return &Error{
		Provider:  providerSlug,
		Operation: operation,
		Category:  CategoryTerminal,
		Message:   message,
	}
}

// AsError extracts a provider Error from an error chain.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
