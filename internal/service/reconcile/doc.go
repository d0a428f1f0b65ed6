// Package reconcile converges local campaign, lead, and message rows with
// provider state by polling their read endpoints. It is the safety net for
// webhook gaps: anything a missed event left stale is picked up on the next
// sweep.
//
// A run walks the eligible (org, company, provider) entitlements, lists
// provider campaigns scoped by the tenant identifier where the provider
// requires one, diffs name and normalized status against local rows, and
// upserts leads and (for pull-capable providers) messages within the
// configured limits. dry_run reports what would change without writing.
// Scheduled sweeps single-flight behind a distributed lock.
package reconcile
