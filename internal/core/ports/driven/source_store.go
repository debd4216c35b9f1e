package driven

import (
	"context"
	"time"

	"github.com/knowara/kbsync/internal/core/domain"
)

// SyncUpdate carries the fields the pipeline writes back to a source after
// a successful sync. Zero-value string fields are still written; the
// pipeline always recomputes them.
type SyncUpdate struct {
	Title         string
	Description   string
	Snapshot      string
	ContentDigest string // single-page sources only
	SyncedAt      time.Time
}

// SourceStore handles source metadata persistence (PostgreSQL).
// Sources are created and deleted by the external management interface;
// the pipeline only reads them and records sync outcomes.
type SourceStore interface {
	// Save creates or updates a source
	Save(ctx context.Context, source *domain.Source) error

	// Get retrieves a source by ID
	Get(ctx context.Context, id string) (*domain.Source, error)

	// List retrieves all sources
	List(ctx context.Context) ([]*domain.Source, error)

	// ListStale retrieves active sources that have never synced or whose
	// last sync is older than staleAfter
	ListStale(ctx context.Context, now time.Time, staleAfter time.Duration) ([]*domain.Source, error)

	// RecordSyncSuccess persists the outcome of a successful sync and
	// clears any previous error message
	RecordSyncSuccess(ctx context.Context, id string, update SyncUpdate) error

	// TouchSynced refreshes only the last-synced timestamp. Used when
	// content is unchanged and nothing else may be rewritten.
	TouchSynced(ctx context.Context, id string, at time.Time) error

	// RecordSyncError stores the error message for a failed sync
	RecordSyncError(ctx context.Context, id string, message string) error

	// SetActive updates the active flag
	SetActive(ctx context.Context, id string, active bool) error
}
