package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/reachops/outreach-gateway/internal/pkg/logger"
)

// Result statuses reported per unit of a bulk run.
const (
	unitReplayed = "replayed"
	unitFailed   = "failed"
)

// duplicateRequestKeyNote marks redundant occurrences of an event key
// within a single bulk request.
const duplicateRequestKeyNote = "duplicate_request_key_ignored"

// BulkRequest selects the events of one bulk run. Explicit Keys win over
// Query when both are set; Keys require Provider.
type BulkRequest struct {
	Provider  string
	Keys      []string
	Query     *ListFilter
	RequestID string
}

// Result reports one unit of a bulk run.
type Result struct {
	Provider  string `json:"provider"`
	EventKey  string `json:"event_key"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// BulkReport summarizes a completed bulk run.
type BulkReport struct {
	Total      int      `json:"total"`
	Replayed   int      `json:"replayed"`
	Failed     int      `json:"failed"`
	Duplicates int      `json:"duplicates"`
	Batches    int      `json:"batches"`
	Results    []Result `json:"results"`
}

type unit struct {
	provider string
	key      string
}

// BulkReplay resolves the requested events and replays them batch by batch
// through the bounded worker pool. Per-unit failures are reported in the
// results, never aborting the run; the returned error covers request
// validation and context cancellation only.
func (c *Controller) BulkReplay(ctx context.Context, req BulkRequest) (*BulkReport, error) {
	units, err := c.resolveUnits(ctx, req)
	if err != nil {
		return nil, err
	}
	if max := c.cfg.MaxEventsPerRun; max > 0 && len(units) > max {
		return nil, fmt.Errorf("%w: %d events, limit %d", ErrTooManyEvents, len(units), max)
	}

	report := &BulkReport{Total: len(units)}
	seen := make(map[string]bool, len(units))
	batchSize := c.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(units)
	}
	sleep := c.cfg.Sleep()

	for start := 0; start < len(units); start += batchSize {
		end := start + batchSize
		if end > len(units) {
			end = len(units)
		}

		results := c.replayBatch(ctx, units[start:end], seen)
		report.Batches++
		sawTransient, clean := false, true
		for _, r := range results {
			report.Results = append(report.Results, r)
			switch {
			case r.Error == duplicateRequestKeyNote:
				report.Duplicates++
			case r.Status == unitReplayed:
				report.Replayed++
			default:
				report.Failed++
				clean = false
				if r.Retryable {
					sawTransient = true
				}
			}
		}

		if end == len(units) {
			break
		}
		sleep = c.nextSleep(sleep, sawTransient, clean)
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		case <-time.After(sleep):
		}
	}

	c.persistRunSnapshot(ctx, req.RequestID)
	logger.Info("replay.bulk_completed",
		"total", report.Total, "replayed", report.Replayed, "failed", report.Failed,
		"duplicates", report.Duplicates, "batches", report.Batches)
	return report, nil
}

// resolveUnits expands the request into the ordered unit list. A query
// selects pending dead letters by default and is capped one past the run
// limit so oversized selections are rejected rather than silently truncated.
func (c *Controller) resolveUnits(ctx context.Context, req BulkRequest) ([]unit, error) {
	if len(req.Keys) > 0 {
		if req.Provider == "" {
			return nil, fmt.Errorf("%w: provider required with explicit keys", ErrInvalidFilter)
		}
		units := make([]unit, 0, len(req.Keys))
		for _, key := range req.Keys {
			units = append(units, unit{provider: req.Provider, key: key})
		}
		return units, nil
	}
	if req.Query == nil {
		return nil, ErrEmptyRequest
	}

	q := *req.Query
	if q.Provider == "" {
		q.Provider = req.Provider
	}
	if q.ReplayStatus == "" {
		q.ReplayStatus = ReplayStatusPending
	}
	if max := c.cfg.MaxEventsPerRun; max > 0 && (q.Limit <= 0 || q.Limit > max+1) {
		q.Limit = max + 1
	}
	ef, err := c.eventFilter(q)
	if err != nil {
		return nil, err
	}
	events, _, err := c.store.List(ctx, ef)
	if err != nil {
		return nil, fmt.Errorf("resolve bulk query: %w", err)
	}
	units := make([]unit, 0, len(events))
	for _, e := range events {
		units = append(units, unit{provider: e.ProviderSlug, key: e.EventKey})
	}
	return units, nil
}

// replayBatch runs one slice of units through the worker pool. The
// semaphore caps in-flight projections; a new unit is not dispatched until
// a slot frees. Each goroutine writes its own result index.
func (c *Controller) replayBatch(ctx context.Context, units []unit, seen map[string]bool) []Result {
	results := make([]Result, len(units))
	sem := make(chan struct{}, c.inflightCap())
	var wg sync.WaitGroup

	for i, u := range units {
		dedupe := u.provider + "/" + u.key
		if seen[dedupe] {
			results[i] = Result{Provider: u.provider, EventKey: u.key, Status: unitReplayed, Error: duplicateRequestKeyNote}
			continue
		}
		seen[dedupe] = true

		sem <- struct{}{}
		wg.Add(1)
		go func(i int, u unit) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = c.replayUnit(ctx, u)
		}(i, u)
	}
	wg.Wait()
	return results
}

func (c *Controller) replayUnit(ctx context.Context, u unit) Result {
	event, err := c.store.Get(ctx, u.provider, u.key)
	if err != nil {
		return Result{Provider: u.provider, EventKey: u.key, Status: unitFailed, Error: err.Error()}
	}
	if _, err := c.replayEvent(ctx, event); err != nil {
		res := Result{Provider: u.provider, EventKey: u.key, Status: unitFailed, Error: err.Error()}
		var re *Error
		if errors.As(err, &re) {
			res.Retryable = re.Retryable
		}
		return res
	}
	return Result{Provider: u.provider, EventKey: u.key, Status: unitReplayed}
}

// inflightCap is the worker-pool bound. queue_size caps in-flight units;
// max_concurrent_workers tightens it when smaller.
func (c *Controller) inflightCap() int {
	n := c.cfg.QueueSize
	if c.cfg.MaxConcurrentWorkers > 0 && (n <= 0 || c.cfg.MaxConcurrentWorkers < n) {
		n = c.cfg.MaxConcurrentWorkers
	}
	if n <= 0 {
		n = 1
	}
	return n
}

// nextSleep adapts the inter-batch pause. A transient failure widens it up
// to max_sleep_ms, a clean batch narrows it down to sleep_ms, a batch with
// only terminal failures leaves it unchanged.
func (c *Controller) nextSleep(current time.Duration, sawTransient, clean bool) time.Duration {
	mult := c.cfg.BackoffMultiplier
	if mult <= 1 {
		return current
	}
	switch {
	case sawTransient:
		current = time.Duration(float64(current) * mult)
		if ceil := c.cfg.MaxSleep(); ceil > 0 && current > ceil {
			current = ceil
		}
	case clean:
		current = time.Duration(float64(current) / mult)
		if floor := c.cfg.Sleep(); current < floor {
			current = floor
		}
	}
	return current
}

// persistRunSnapshot records the counter state after a bulk run. Storage or
// export failures are logged, never surfaced to the operator.
func (c *Controller) persistRunSnapshot(ctx context.Context, requestID string) {
	if c.persister == nil {
		return
	}
	if _, err := c.persister.PersistSnapshot(ctx, "bulk_replay", requestID, false); err != nil {
		logger.Warn("replay.snapshot_persist_failed", "error", err)
	}
}
