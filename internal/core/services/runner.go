package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/knowara/kbsync/internal/core/domain"
	"github.com/knowara/kbsync/internal/core/ports/driven"
	"github.com/knowara/kbsync/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.Runner = (*Runner)(nil)

// runLockName is the lock taken around a scheduler pass.
const runLockName = "sync-run"

// Runner drives one scheduler pass: select stale sources, sync them one
// at a time, fold the results into a summary. Sources are processed
// strictly sequentially so no two writers ever touch the same chunk-id
// set. A pass has no overall deadline; it runs to completion unless the
// context is cancelled.
type Runner struct {
	sources driven.SourceStore
	syncer  driving.Syncer
	lock    driven.RunLock // optional
	logger  *slog.Logger

	staleAfter time.Duration
	lockTTL    time.Duration
}

// RunnerConfig holds dependencies for Runner.
type RunnerConfig struct {
	Sources driven.SourceStore
	Syncer  driving.Syncer
	Lock    driven.RunLock // Optional: overlap guard for external periodic triggers
	Logger  *slog.Logger

	StaleAfter time.Duration // Age past which a source is re-synced (default: 24h)
	LockTTL    time.Duration // TTL for the run lock (default: 30m)
}

// NewRunner creates a new Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	staleAfter := cfg.StaleAfter
	if staleAfter == 0 {
		staleAfter = domain.DefaultStaleAfter
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 30 * time.Minute
	}

	return &Runner{
		sources:    cfg.Sources,
		syncer:     cfg.Syncer,
		lock:       cfg.Lock,
		logger:     logger,
		staleAfter: staleAfter,
		lockTTL:    lockTTL,
	}
}

// RunOnce executes one full pass over all stale sources.
func (r *Runner) RunOnce(ctx context.Context) (*domain.RunSummary, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger := r.logger.With("run_id", runID)

	if r.lock != nil {
		acquired, err := r.lock.Acquire(ctx, runLockName, r.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !acquired {
			return nil, domain.ErrRunInProgress
		}
		defer func() {
			if err := r.lock.Release(ctx, runLockName); err != nil {
				logger.Warn("failed to release run lock", "error", err)
			}
		}()
	}

	stale, err := r.sources.ListStale(ctx, startTime, r.staleAfter)
	if err != nil {
		return nil, fmt.Errorf("list stale sources: %w", err)
	}

	logger.Info("run starting", "stale_sources", len(stale))

	summary := &domain.RunSummary{
		RunID:     runID,
		StartedAt: startTime,
	}

	for _, source := range stale {
		select {
		case <-ctx.Done():
			summary.Duration = time.Since(startTime).Seconds()
			return summary, ctx.Err()
		default:
		}

		summary.Fold(r.syncer.Sync(ctx, source))
	}

	summary.Duration = time.Since(startTime).Seconds()

	logger.Info("run completed",
		"duration_seconds", summary.Duration,
		"sources_checked", summary.SourcesChecked,
		"sources_updated", summary.SourcesUpdated,
		"sources_skipped", summary.SourcesSkipped,
		"sources_failed", summary.SourcesFailed,
		"chunks_added", summary.ChunksAdded,
	)
	for _, failure := range summary.Failures {
		logger.Warn("source failed", "source_id", failure.SourceID, "error", failure.Message)
	}

	return summary, nil
}
