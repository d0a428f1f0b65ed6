package domain

import "time"

// WebhookEventStatus enumerates the lifecycle of a stored webhook event.
type WebhookEventStatus string

const (
	// EventAccepted: stored, projection deferred to a background task.
	EventAccepted WebhookEventStatus = "accepted"
	// EventProcessed: stored and projected successfully.
	EventProcessed WebhookEventStatus = "processed"
	// EventReplayed: a dead-lettered event that was replayed to success.
	EventReplayed WebhookEventStatus = "replayed"
	// EventFailed: projection failed but the failure was not dead-lettered.
	EventFailed WebhookEventStatus = "failed"
	// EventDeadLetter: projection failed terminally; kept for operators.
	EventDeadLetter WebhookEventStatus = "dead_letter"
)

// Reserved payload sub-record keys. The gateway owns "_ingestion", the
// projection engine owns "_dead_letter" and "_schema_validation"; provider
// payload fields never collide with the underscore prefix.
const (
	PayloadKeyIngestion        = "_ingestion"
	PayloadKeyDeadLetter       = "_dead_letter"
	PayloadKeySchemaValidation = "_schema_validation"
)

// Dead-letter reasons recorded by the gateway and the projection engine.
const (
	DeadLetterProjectionFailure    = "projection_failure"
	DeadLetterProjectionUnresolved = "projection_unresolved"
	DeadLetterMalformedPayload     = "malformed_payload"
	DeadLetterSchemaInvalid        = "schema_invalid"
	DeadLetterVersionUnsupported   = "version_unsupported"
)

// WebhookEvent is one row of the append-only event store.
// (provider_slug, event_key) is unique and guarded by the storage layer;
// callers treat a key collision as an idempotent accept.
type WebhookEvent struct {
	ID           string             `json:"id" db:"id"`
	ProviderSlug string             `json:"provider_slug" db:"provider_slug"`
	EventKey     string             `json:"event_key" db:"event_key"`
	EventType    string             `json:"event_type" db:"event_type"`
	Status       WebhookEventStatus `json:"status" db:"status"`
	Payload      map[string]any     `json:"payload" db:"payload"`
	ReplayCount  int                `json:"replay_count" db:"replay_count"`
	LastReplayAt *time.Time         `json:"last_replay_at,omitempty" db:"last_replay_at"`
	LastError    string             `json:"last_error,omitempty" db:"last_error"`
	OrgID        *string            `json:"org_id,omitempty" db:"org_id"`
	CompanyID    *string            `json:"company_id,omitempty" db:"company_id"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
	ProcessedAt  *time.Time         `json:"processed_at,omitempty" db:"processed_at"`
}

// DeadLetterRecord is the "_dead_letter" payload sub-record.
type DeadLetterRecord struct {
	Reason     string    `json:"reason"`
	Retryable  bool      `json:"retryable"`
	Error      string    `json:"error"`
	RecordedAt time.Time `json:"recorded_at"`
}

// AsPayload renders the record in the map shape stored under "_dead_letter".
// Timestamps serialize as RFC3339Nano so DeadLetterOf can read them back.
func (r DeadLetterRecord) AsPayload() map[string]any {
	return map[string]any{
		"reason":      r.Reason,
		"retryable":   r.Retryable,
		"error":       r.Error,
		"recorded_at": r.RecordedAt.UTC().Format(time.RFC3339Nano),
	}
}

// IngestionRecord is the "_ingestion" payload sub-record stamped by the
// gateway so operators can reconstruct the trust decision later.
type IngestionRecord struct {
	TrustMode    string            `json:"trust_mode"`
	Verification string            `json:"verification"`
	ReceivedAt   time.Time         `json:"received_at"`
	OriginHost   string            `json:"origin_host,omitempty"`
	RequestID    string            `json:"request_id,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	RawBody      string            `json:"raw_body,omitempty"`
}

// AsPayload renders the record in the map shape stored under "_ingestion".
func (r IngestionRecord) AsPayload() map[string]any {
	m := map[string]any{
		"trust_mode":   r.TrustMode,
		"verification": r.Verification,
		"received_at":  r.ReceivedAt.UTC().Format(time.RFC3339Nano),
	}
	if r.OriginHost != "" {
		m["origin_host"] = r.OriginHost
	}
	if r.RequestID != "" {
		m["request_id"] = r.RequestID
	}
	if len(r.Headers) > 0 {
		headers := make(map[string]any, len(r.Headers))
		for k, v := range r.Headers {
			headers[k] = v
		}
		m["headers"] = headers
	}
	if r.RawBody != "" {
		m["raw_body"] = r.RawBody
	}
	return m
}

// SchemaValidationRecord is the "_schema_validation" payload sub-record
// written when a provider payload fails structural validation.
type SchemaValidationRecord struct {
	Status    string    `json:"status"`
	Detail    string    `json:"detail"`
	CheckedAt time.Time `json:"checked_at"`
}

// AsPayload renders the record in the map shape stored under
// "_schema_validation".
func (r SchemaValidationRecord) AsPayload() map[string]any {
	return map[string]any{
		"status":     r.Status,
		"detail":     r.Detail,
		"checked_at": r.CheckedAt.UTC().Format(time.RFC3339Nano),
	}
}

// DeadLetterOf extracts the "_dead_letter" sub-record from an event payload.
// The second return is false when the event was never dead-lettered.
func DeadLetterOf(payload map[string]any) (DeadLetterRecord, bool) {
	raw, ok := payload[PayloadKeyDeadLetter].(map[string]any)
	if !ok {
		return DeadLetterRecord{}, false
	}
	rec := DeadLetterRecord{}
	if v, ok := raw["reason"].(string); ok {
		rec.Reason = v
	}
	if v, ok := raw["retryable"].(bool); ok {
		rec.Retryable = v
	}
	if v, ok := raw["error"].(string); ok {
		rec.Error = v
	}
	if v, ok := raw["recorded_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			rec.RecordedAt = ts
		}
	}
	return rec, true
}
