// Package projection applies stored webhook events to the domain tables.
// Events route by type onto the campaign, lead, message, or piece family;
// writes are last-write-wins upserts keyed by the provider's external
// identifiers. Failures are classified by message so callers can decide
// between dead-lettering and backoff.
package projection
