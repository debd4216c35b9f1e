package driven

import (
	"context"

	"github.com/knowara/kbsync/internal/core/domain"
)

// VectorIndex is the external vector store, addressed only by id and
// metadata filter. The pipeline never reads documents back; it lists,
// deletes and adds, and relies on the next run's diff to self-heal any
// partial application.
type VectorIndex interface {
	// ListIDs returns the ids of records whose metadata matches all
	// key/value pairs in the filter
	ListIDs(ctx context.Context, filter map[string]string) ([]string, error)

	// Delete removes records by id. Deleting ids that no longer exist
	// is not an error.
	Delete(ctx context.Context, ids []string) error

	// Add stores entries. The store computes embeddings from the
	// document text.
	Add(ctx context.Context, entries []domain.VectorEntry) error

	// HealthCheck verifies the store is reachable
	HealthCheck(ctx context.Context) error
}
