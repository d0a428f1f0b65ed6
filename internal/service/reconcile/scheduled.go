package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/reachops/outreach-gateway/internal/pkg/distlock"
	"github.com/reachops/outreach-gateway/internal/pkg/logger"
)

// LockKey names the distributed lock scheduled sweeps contend on. One
// sweep runs cluster-wide at a time.
const LockKey = "reconciliation:scheduled"

// ErrAlreadyRunning reports that another replica holds the sweep lock.
var ErrAlreadyRunning = errors.New("reconciliation already running")

// ScheduledRunner single-flights full reconciliation sweeps behind a
// distributed lock. Manual runs bypass it and call the Runner directly.
type ScheduledRunner struct {
	runner *Runner
	lock   distlock.DistLock
}

// NewScheduledRunner wraps a runner with the sweep lock.
func NewScheduledRunner(runner *Runner, lock distlock.DistLock) *ScheduledRunner {
	return &ScheduledRunner{runner: runner, lock: lock}
}

// Run acquires the sweep lock and executes one full run. Returns
// ErrAlreadyRunning without touching any provider when the lock is held
// elsewhere. Scheduled sweeps always write; dry runs are a manual-trigger
// concern.
func (s *ScheduledRunner) Run(ctx context.Context, p Params) (*Report, error) {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire reconciliation lock: %w", err)
	}
	if !acquired {
		logger.Info("reconcile.skipped_already_running")
		return nil, ErrAlreadyRunning
	}
	// The lock backends self-expire (Redis TTL, PG session scope), so a
	// failed release only delays the next sweep.
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			logger.Warn("reconcile.lock_release_failed", "error", err.Error())
		}
	}()

	p.DryRun = false
	return s.runner.Run(ctx, p)
}
