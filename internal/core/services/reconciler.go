package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/knowara/kbsync/internal/core/domain"
	"github.com/knowara/kbsync/internal/core/ports/driven"
)

// deleteBatchSize bounds one delete call against the vector store.
const deleteBatchSize = 100

// addBatchSize bounds one add call; each added document is embedded by
// the store, so batches stay small.
const addBatchSize = 50

// Reconciler applies chunk-id diffs against the vector index. It carries
// no business logic beyond batching; strategies decide what to delete and
// add, and in which order. A crash between a delete and the matching add
// is recovered by the next run, which re-derives the full desired set.
type Reconciler struct {
	index  driven.VectorIndex
	logger *slog.Logger
}

// NewReconciler creates a new Reconciler.
func NewReconciler(index driven.VectorIndex, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{index: index, logger: logger}
}

// ExistingIDs lists all ids currently stored for a source.
func (r *Reconciler) ExistingIDs(ctx context.Context, sourceID string) ([]string, error) {
	ids, err := r.index.ListIDs(ctx, map[string]string{domain.MetadataKeySourceID: sourceID})
	if err != nil {
		return nil, fmt.Errorf("list ids for source %s: %w", sourceID, err)
	}
	return ids, nil
}

// DeleteIDs removes ids from the index in batches. Empty input is a no-op.
func (r *Reconciler) DeleteIDs(ctx context.Context, ids []string) error {
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := r.index.Delete(ctx, ids[start:end]); err != nil {
			return fmt.Errorf("delete %d ids: %w", end-start, err)
		}
	}
	return nil
}

// AddChunks stores chunks in the index in batches. Empty input is a no-op.
func (r *Reconciler) AddChunks(ctx context.Context, chunks []domain.Chunk) error {
	for start := 0; start < len(chunks); start += addBatchSize {
		end := start + addBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		entries := make([]domain.VectorEntry, 0, end-start)
		for _, chunk := range chunks[start:end] {
			entries = append(entries, chunk.Entry())
		}
		if err := r.index.Add(ctx, entries); err != nil {
			return fmt.Errorf("add %d entries: %w", len(entries), err)
		}
	}
	return nil
}

// Orphaned returns the ids present in existing but absent from desired,
// sorted. These are the ids that were not regenerated this run and must
// be swept.
func Orphaned(existing, desired []string) []string {
	wanted := make(map[string]struct{}, len(desired))
	for _, id := range desired {
		wanted[id] = struct{}{}
	}

	var orphans []string
	for _, id := range existing {
		if _, ok := wanted[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	return orphans
}

// IDsWithPrefix filters ids down to those sharing a page's id prefix.
func IDsWithPrefix(ids []string, prefix string) []string {
	var matched []string
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			matched = append(matched, id)
		}
	}
	return matched
}
