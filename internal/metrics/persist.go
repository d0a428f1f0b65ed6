package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/pkg/httpretry"
	"github.com/reachops/outreach-gateway/internal/pkg/logger"
)

// SnapshotStore persists counter snapshots. Implemented by
// repository/postgres.
type SnapshotStore interface {
	// InsertSnapshot writes one snapshot row.
	InsertSnapshot(ctx context.Context, snap *domain.MetricsSnapshot) error

	// ListSnapshots returns snapshots ordered by created_at DESC, optionally
	// filtered by source.
	ListSnapshots(ctx context.Context, source string, limit, offset int) ([]domain.MetricsSnapshot, int, error)
}

// Exporter pushes a persisted snapshot to an external sink. Export failures
// never fail the persist.
type Exporter struct {
	url         string
	bearerToken string
	timeout     time.Duration
	httpClient  httpretry.HTTPDoer
}

// NewExporter creates a sink exporter. An empty url disables export.
func NewExporter(url, bearerToken string, timeout time.Duration) *Exporter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Exporter{
		url:         url,
		bearerToken: bearerToken,
		timeout:     timeout,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient replaces the underlying HTTP client (tests).
func (e *Exporter) SetHTTPClient(client httpretry.HTTPDoer) { e.httpClient = client }

// Enabled reports whether a sink URL is configured.
func (e *Exporter) Enabled() bool { return e != nil && e.url != "" }

// Export POSTs {source, request_id, counters} to the sink with the bearer
// token. The call carries its own bounded timeout.
func (e *Exporter) Export(ctx context.Context, snap *domain.MetricsSnapshot) error {
	body, err := json.Marshal(map[string]interface{}{
		"source":     snap.Source,
		"request_id": snap.RequestID,
		"counters":   snap.Counters,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build export request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+e.bearerToken)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("export sink returned status %d", resp.StatusCode)
	}
	return nil
}

// Persister snapshots the registry into the metrics_snapshots table,
// optionally exports to the sink, and runs the SLO checks.
type Persister struct {
	reg        *Registry
	store      SnapshotStore
	exporter   *Exporter
	thresholds SLOThresholds
}

// NewPersister creates a snapshot persister. exporter may be nil.
func NewPersister(reg *Registry, store SnapshotStore, exporter *Exporter, thresholds SLOThresholds) *Persister {
	return &Persister{reg: reg, store: store, exporter: exporter, thresholds: thresholds}
}

// PersistSnapshot writes the current counters as one snapshot row. When
// resetAfter is set the registry is cleared after a successful write. SLO
// checks run on the persisted counters; export failures are logged only.
func (p *Persister) PersistSnapshot(ctx context.Context, source, requestID string, resetAfter bool) (*domain.MetricsSnapshot, error) {
	snap := &domain.MetricsSnapshot{
		ID:        uuid.New().String(),
		Source:    source,
		RequestID: requestID,
		Counters:  p.reg.Snapshot(),
		CreatedAt: time.Now().UTC(),
	}

	if err := p.store.InsertSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}
	if resetAfter {
		p.reg.Reset()
	}

	if p.exporter.Enabled() {
		if err := p.exporter.Export(ctx, snap); err != nil {
			logger.Warn("metrics.export_failed", "source", source, "error", err.Error())
		}
	}

	CheckSLOs(p.reg, snap.Counters, p.thresholds)
	return snap, nil
}
