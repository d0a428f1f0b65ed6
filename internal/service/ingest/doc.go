// Package ingest is the webhook boundary of the gateway. It verifies each
// delivery against its provider's trust policy, derives a deterministic
// event key, enriches the payload with an ingestion record, and appends the
// event to the store exactly once per (provider, event_key). Signed
// providers are projected synchronously inside the request; unsigned-origin
// providers are accepted and projected on a background goroutine.
package ingest
