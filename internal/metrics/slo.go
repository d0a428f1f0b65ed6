package metrics

import (
	"fmt"

	"github.com/reachops/outreach-gateway/internal/pkg/logger"
)

// sloProvider scopes SLO rate computation. The reliability targets cover the
// direct-mail pipeline; other providers are observed but not gated.
const sloProvider = "lob"

// SLOThresholds holds the per-rate ceilings checked after every snapshot
// persist. Rates are failures over received deliveries (replay failures over
// replay attempts). A negative threshold disables its check.
type SLOThresholds struct {
	SignatureReject   float64
	DeadLetter        float64
	ProjectionFailure float64
	ReplayFailure     float64
	DuplicateIgnore   float64
}

type sloRate struct {
	metric      string
	threshold   float64
	numerator   string
	denominator string
}

// CheckSLOs computes the reliability rates from a persisted snapshot and
// increments slo.threshold_exceeded on the registry for every rate above
// its threshold. A zero denominator yields a zero rate.
func CheckSLOs(reg *Registry, counters map[string]int, t SLOThresholds) {
	rates := []sloRate{
		{"signature_reject_rate", t.SignatureReject, CounterSignatureRejected, CounterWebhookReceived},
		{"dead_letter_rate", t.DeadLetter, CounterDeadLetter, CounterWebhookReceived},
		{"projection_failure_rate", t.ProjectionFailure, CounterProjectionFailure, CounterWebhookReceived},
		{"replay_failure_rate", t.ReplayFailure, CounterReplayFailure, ""},
		{"duplicate_ignore_rate", t.DuplicateIgnore, CounterDuplicateIgnored, CounterWebhookReceived},
	}

	for _, r := range rates {
		if r.threshold < 0 {
			continue
		}
		num := sumForProvider(counters, r.numerator, sloProvider)
		var den int
		if r.denominator == "" {
			// Replay rate is failures over total replay attempts.
			den = num + sumForProvider(counters, CounterReplaySuccess, sloProvider)
		} else {
			den = sumForProvider(counters, r.denominator, sloProvider)
		}
		if den == 0 {
			continue
		}
		rate := float64(num) / float64(den)
		if rate > r.threshold {
			reg.Incr(CounterSLOExceeded, map[string]string{"metric": r.metric, "provider": sloProvider})
			logger.Warn("slo.threshold_exceeded",
				"metric", r.metric,
				"provider", sloProvider,
				"rate", fmt.Sprintf("%.4f", rate),
				"threshold", fmt.Sprintf("%.4f", r.threshold),
			)
		}
	}
}

// sumForProvider totals every counter with the given name whose provider
// label matches. Counters without a provider label are excluded.
func sumForProvider(counters map[string]int, name, provider string) int {
	total := 0
	for key, v := range counters {
		n, labels := ParseKey(key)
		if n != name {
			continue
		}
		if labels["provider"] == provider {
			total += v
		}
	}
	return total
}
