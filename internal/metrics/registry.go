// Package metrics holds the in-process reliability counters for the
// gateway: a mutex-guarded map keyed by counter name plus sorted labels,
// snapshot persistence to the metrics_snapshots table, optional push to an
// external sink, and SLO threshold checks run after every persist.
package metrics

import (
	"sort"
	"strings"
	"sync"
)

// Counter names incremented across the ingest/projection/replay pipeline.
// Labels carry the provider slug and, where useful, a reason.
const (
	CounterWebhookReceived   = "webhook.received"
	CounterWebhookAccepted   = "webhook.accepted"
	CounterWebhookProcessed  = "webhook.processed"
	CounterSignatureRejected = "webhook.signature.rejected"
	CounterSignatureAudited  = "webhook.signature.audited"
	CounterAuthRejected      = "webhook.auth.rejected"
	CounterDuplicateIgnored  = "webhook.duplicate_ignored"
	CounterDeadLetter        = "webhook.dead_letter"
	CounterProjectionApplied = "projection.applied"
	CounterProjectionFailure = "projection.failure"
	CounterReplaySuccess     = "replay.success"
	CounterReplayFailure     = "replay.failure"
	CounterReconcileError    = "reconcile.error"
	CounterProviderDispatch  = "provider.dispatch"
	CounterProviderError     = "provider.error"
	CounterSLOExceeded       = "slo.threshold_exceeded"
)

// Registry is a process-wide counter map. All mutations and snapshot reads
// go through one mutex.
type Registry struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewRegistry creates an empty counter registry.
func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]int)}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Key builds the storage key for a counter: "<name>|k1=v1,k2=v2" with label
// keys sorted, or the bare name when there are no labels.
func Key(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('|')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	return b.String()
}

// Incr increments a counter by one.
func (r *Registry) Incr(name string, labels map[string]string) {
	r.Add(name, labels, 1)
}

// Add increments a counter by n.
func (r *Registry) Add(name string, labels map[string]string, n int) {
	key := Key(name, labels)
	r.mu.Lock()
	r.counters[key] += n
	r.mu.Unlock()
}

// Snapshot returns a copy of all counters.
func (r *Registry) Snapshot() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.counters))
	for k, v := range r.counters {
		out[k] = v
	}
	return out
}

// Reset clears all counters.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.counters = make(map[string]int)
	r.mu.Unlock()
}

// ParseKey splits a counter key back into name and labels. Malformed label
// fragments are skipped.
func ParseKey(key string) (string, map[string]string) {
	name, rest, found := strings.Cut(key, "|")
	if !found || rest == "" {
		return name, nil
	}
	labels := make(map[string]string)
	for _, pair := range strings.Split(rest, ",") {
		if k, v, ok := strings.Cut(pair, "="); ok {
			labels[k] = v
		}
	}
	return name, labels
}

// Incr increments a counter on the default registry.
func Incr(name string, labels map[string]string) { defaultRegistry.Incr(name, labels) }

// Snapshot copies the default registry's counters.
func Snapshot() map[string]int { return defaultRegistry.Snapshot() }

// Reset clears the default registry.
func Reset() { defaultRegistry.Reset() }
