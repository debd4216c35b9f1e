// Package driving defines the interfaces through which the application
// is invoked.
package driving

import (
	"context"

	"github.com/knowara/kbsync/internal/core/domain"
)

// Syncer synchronizes one source's chunk set with the vector index.
type Syncer interface {
	// Sync runs the strategy for the source's kind. Strategy errors are
	// reported inside the result, never returned.
	Sync(ctx context.Context, source *domain.Source) domain.SyncResult
}

// Runner drives one full scheduler pass over all stale sources.
type Runner interface {
	// RunOnce selects stale sources, syncs them sequentially and
	// returns the aggregated summary
	RunOnce(ctx context.Context) (*domain.RunSummary, error)
}
