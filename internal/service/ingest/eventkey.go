package ingest

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/reachops/outreach-gateway/internal/domain"
)

// EventKey derives the deterministic store key for a delivery. Preference
// order: the provider-supplied event_id/id, then (direct mail only) the
// <provider>:<resource_id>:<type>:<date_created> composite, then a SHA-256
// of the raw body. A provider retry of the same delivery always keys
// identically, so it collapses onto one stored row.
func EventKey(provider string, payload map[string]any, rawBody []byte) string {
	if id := domain.PayloadString(payload, "event_id", "id"); id != "" {
		return id
	}
	if provider == domain.ProviderLob {
		resourceID := domain.PayloadString(domain.PayloadMap(payload, "resource"), "id")
		eventType := domain.PayloadString(payload, "type", "event_type")
		dateCreated := domain.PayloadString(payload, "date_created")
		if resourceID != "" && eventType != "" && dateCreated != "" {
			return provider + ":" + resourceID + ":" + eventType + ":" + dateCreated
		}
	}
	sum := sha256.Sum256(rawBody)
	return hex.EncodeToString(sum[:])
}
