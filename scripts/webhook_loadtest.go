//go:build ignore
// +build ignore

// Webhook Ingest Load Test - Validates gateway throughput and dedupe under load
//
// Test Scenarios:
// 1. Sustained Ingest Test - Post signed webhooks at a target rate
// 2. Duplicate Storm Test - Resend a fraction of events and verify idempotent acks
// 3. Spike Test - Multiply the send rate for a short burst
//
// The script targets a running gateway. Events carry fresh UUIDs, so unknown
// campaigns dead-letter rather than project; any 2xx ack counts as accepted
// transport. Dedupe is validated by comparing injected duplicates against
// duplicate_ignored acks.
//
// Usage:
//
//	go run scripts/webhook_loadtest.go \
//	  --target="http://localhost:8080" \
//	  --secret="$SMARTLEAD_WEBHOOK_SECRET" \
//	  --events=50000 \
//	  --workers=8 \
//	  --duplicate-pct=10
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// LoadTestConfig defines the test configuration
type LoadTestConfig struct {
	TargetURL    string
	Secret       string
	TestType     string // all, sustained, duplicates, spike
	TotalEvents  int64
	Workers      int
	DuplicatePct int     // percentage of events resent with a reused event_id
	RatePerSec   float64 // 0 = unthrottled
	SpikeFactor  float64
	Timeout      time.Duration
}

// DefaultLoadConfig returns sensible defaults for gateway testing
func DefaultLoadConfig() *LoadTestConfig {
	return &LoadTestConfig{
		TargetURL:    "http://localhost:8080",
		TestType:     "all",
		TotalEvents:  50_000,
		Workers:      8,
		DuplicatePct: 10,
		RatePerSec:   0,
		SpikeFactor:  5.0,
		Timeout:      10 * time.Second,
	}
}

// =============================================================================
// METRICS COLLECTION
// =============================================================================

// LoadTestMetrics holds all collected metrics
type LoadTestMetrics struct {
	StartTime time.Time
	EndTime   time.Time

	Attempted      int64
	Accepted       int64 // any 2xx ack
	Duplicates     int64 // acks with status duplicate_ignored
	DeadLetters    int64 // acks with status dead_letter_recorded
	Rejected       int64 // non-2xx responses
	TransportError int64

	DuplicatesSent int64 // events intentionally resent

	mu        sync.Mutex
	latencies []time.Duration
}

func (m *LoadTestMetrics) recordLatency(d time.Duration) {
	m.mu.Lock()
	m.latencies = append(m.latencies, d)
	m.mu.Unlock()
}

func (m *LoadTestMetrics) percentile(p float64) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

// =============================================================================
// EVENT GENERATION
// =============================================================================

type generatedEvent struct {
	eventID string
	body    []byte
}

// newSmartleadEvent builds one signed-provider payload. Campaign and lead ids
// are synthetic, so projection dead-letters; transport and dedupe behavior is
// what this script measures.
func newSmartleadEvent(rng *rand.Rand) generatedEvent {
	eventID := uuid.New().String()
	payload := map[string]interface{}{
		"event_id":    eventID,
		"event_type":  "EMAIL_SENT",
		"campaign_id": fmt.Sprintf("loadtest-camp-%d", rng.Intn(100)),
		"lead_email":  fmt.Sprintf("lead%d@loadtest.invalid", rng.Intn(100000)),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	body, _ := json.Marshal(payload)
	return generatedEvent{eventID: eventID, body: body}
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// =============================================================================
// WORKERS
// =============================================================================

type ackBody struct {
	Status string `json:"status"`
}

func postEvent(client *http.Client, cfg *LoadTestConfig, m *LoadTestMetrics, ev generatedEvent) {
	req, err := http.NewRequest(http.MethodPost, cfg.TargetURL+"/webhooks/smartlead", bytes.NewReader(ev.body))
	if err != nil {
		atomic.AddInt64(&m.TransportError, 1)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Secret != "" {
		req.Header.Set("X-Smartlead-Signature", sign(cfg.Secret, ev.body))
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		atomic.AddInt64(&m.TransportError, 1)
		return
	}
	m.recordLatency(time.Since(start))

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		atomic.AddInt64(&m.Rejected, 1)
		return
	}
	atomic.AddInt64(&m.Accepted, 1)

	var ack ackBody
	if err := json.Unmarshal(raw, &ack); err == nil {
		switch ack.Status {
		case "duplicate_ignored":
			atomic.AddInt64(&m.Duplicates, 1)
		case "dead_letter_recorded":
			atomic.AddInt64(&m.DeadLetters, 1)
		}
	}
}

func runLoad(cfg *LoadTestConfig, m *LoadTestMetrics, total int64, rate float64) {
	client := &http.Client{Timeout: cfg.Timeout}

	var interval time.Duration
	if rate > 0 {
		interval = time.Duration(float64(time.Second) / rate * float64(cfg.Workers))
	}

	var wg sync.WaitGroup
	var issued int64

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			var recent []generatedEvent

			for {
				n := atomic.AddInt64(&issued, 1)
				if n > total {
					return
				}
				atomic.AddInt64(&m.Attempted, 1)

				var ev generatedEvent
				if cfg.DuplicatePct > 0 && len(recent) > 0 && rng.Intn(100) < cfg.DuplicatePct {
					ev = recent[rng.Intn(len(recent))]
					atomic.AddInt64(&m.DuplicatesSent, 1)
				} else {
					ev = newSmartleadEvent(rng)
					recent = append(recent, ev)
					if len(recent) > 256 {
						recent = recent[1:]
					}
				}

				postEvent(client, cfg, m, ev)

				if interval > 0 {
					time.Sleep(interval)
				}
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()
}

// =============================================================================
// REPORTING
// =============================================================================

func printSummary(name string, m *LoadTestMetrics) {
	elapsed := m.EndTime.Sub(m.StartTime)
	rate := float64(m.Attempted) / elapsed.Seconds()

	fmt.Printf("\n========== %s ==========\n", name)
	fmt.Printf("Duration:          %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Attempted:         %d (%.0f/s)\n", m.Attempted, rate)
	fmt.Printf("Accepted (2xx):    %d\n", m.Accepted)
	fmt.Printf("  duplicate_ignored:    %d (sent %d duplicates)\n", m.Duplicates, m.DuplicatesSent)
	fmt.Printf("  dead_letter_recorded: %d\n", m.DeadLetters)
	fmt.Printf("Rejected (non-2xx): %d\n", m.Rejected)
	fmt.Printf("Transport errors:   %d\n", m.TransportError)
	fmt.Printf("Latency p50: %s  p99: %s\n", m.percentile(0.50).Round(time.Microsecond), m.percentile(0.99).Round(time.Microsecond))

	// First delivery of a resent key can race its duplicate; allow 1% slack.
	if m.DuplicatesSent > 0 {
		slack := m.DuplicatesSent / 100
		if m.Duplicates+slack < m.DuplicatesSent {
			fmt.Printf("RESULT: FAIL (dedupe acks %d < duplicates sent %d)\n", m.Duplicates, m.DuplicatesSent)
			return
		}
	}
	if m.Rejected > 0 || m.TransportError > 0 {
		fmt.Printf("RESULT: FAIL (rejections or transport errors)\n")
		return
	}
	fmt.Printf("RESULT: PASS\n")
}

// =============================================================================
// MAIN
// =============================================================================

func main() {
	cfg := DefaultLoadConfig()
	flag.StringVar(&cfg.TargetURL, "target", cfg.TargetURL, "gateway base URL")
	flag.StringVar(&cfg.Secret, "secret", os.Getenv("SMARTLEAD_WEBHOOK_SECRET"), "smartlead webhook secret")
	flag.StringVar(&cfg.TestType, "test", cfg.TestType, "all, sustained, duplicates, spike")
	flag.Int64Var(&cfg.TotalEvents, "events", cfg.TotalEvents, "total events per scenario")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent senders")
	flag.IntVar(&cfg.DuplicatePct, "duplicate-pct", cfg.DuplicatePct, "percent of sends that reuse a recent event_id")
	flag.Float64Var(&cfg.RatePerSec, "rate", cfg.RatePerSec, "target events/second (0 = unthrottled)")
	flag.Float64Var(&cfg.SpikeFactor, "spike-factor", cfg.SpikeFactor, "rate multiplier for the spike scenario")
	flag.Parse()

	if cfg.Secret == "" {
		log.Println("WARNING: no webhook secret; unsigned posts will be rejected unless the gateway runs without one")
	}

	run := func(name string, total int64, rate float64, dupPct int) {
		scenario := *cfg
		scenario.DuplicatePct = dupPct
		m := &LoadTestMetrics{StartTime: time.Now()}
		runLoad(&scenario, m, total, rate)
		m.EndTime = time.Now()
		printSummary(name, m)
	}

	switch cfg.TestType {
	case "sustained":
		run("SUSTAINED INGEST", cfg.TotalEvents, cfg.RatePerSec, 0)
	case "duplicates":
		run("DUPLICATE STORM", cfg.TotalEvents, cfg.RatePerSec, cfg.DuplicatePct)
	case "spike":
		run("SPIKE", cfg.TotalEvents, cfg.RatePerSec*cfg.SpikeFactor, 0)
	case "all":
		run("SUSTAINED INGEST", cfg.TotalEvents, cfg.RatePerSec, 0)
		run("DUPLICATE STORM", cfg.TotalEvents, cfg.RatePerSec, cfg.DuplicatePct)
		run("SPIKE", cfg.TotalEvents/5, cfg.RatePerSec*cfg.SpikeFactor, 0)
	default:
		log.Fatalf("unknown test type %q", cfg.TestType)
	}
}
