package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/knowara/kbsync/internal/core/domain"
	"github.com/knowara/kbsync/internal/core/ports/driven"
)

// MockSourceStore is an in-memory SourceStore for testing
type MockSourceStore struct {
	mu      sync.RWMutex
	sources map[string]*domain.Source

	// Error injection
	ListStaleErr error
	RecordErr    error
}

// NewMockSourceStore creates a new MockSourceStore
func NewMockSourceStore() *MockSourceStore {
	return &MockSourceStore{
		sources: make(map[string]*domain.Source),
	}
}

func (m *MockSourceStore) Save(ctx context.Context, source *domain.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *source
	m.sources[source.ID] = &copied
	return nil
}

func (m *MockSourceStore) Get(ctx context.Context, id string) (*domain.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	source, ok := m.sources[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *source
	return &copied, nil
}

func (m *MockSourceStore) List(ctx context.Context) ([]*domain.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Source
	for _, source := range m.sources {
		copied := *source
		result = append(result, &copied)
	}
	return result, nil
}

func (m *MockSourceStore) ListStale(ctx context.Context, now time.Time, staleAfter time.Duration) ([]*domain.Source, error) {
	if m.ListStaleErr != nil {
		return nil, m.ListStaleErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Source
	for _, source := range m.sources {
		if source.IsStale(now, staleAfter) {
			copied := *source
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *MockSourceStore) RecordSyncSuccess(ctx context.Context, id string, update driven.SyncUpdate) error {
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	source, ok := m.sources[id]
	if !ok {
		return domain.ErrNotFound
	}
	source.Title = update.Title
	source.Description = update.Description
	source.Snapshot = update.Snapshot
	if update.ContentDigest != "" {
		source.LastContentDigest = update.ContentDigest
	}
	syncedAt := update.SyncedAt
	source.LastSyncedAt = &syncedAt
	source.ErrorMessage = ""
	source.UpdatedAt = syncedAt
	return nil
}

func (m *MockSourceStore) TouchSynced(ctx context.Context, id string, at time.Time) error {
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	source, ok := m.sources[id]
	if !ok {
		return domain.ErrNotFound
	}
	syncedAt := at
	source.LastSyncedAt = &syncedAt
	return nil
}

func (m *MockSourceStore) RecordSyncError(ctx context.Context, id string, message string) error {
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	source, ok := m.sources[id]
	if !ok {
		return domain.ErrNotFound
	}
	source.ErrorMessage = message
	return nil
}

func (m *MockSourceStore) SetActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	source, ok := m.sources[id]
	if !ok {
		return domain.ErrNotFound
	}
	source.Active = active
	return nil
}
