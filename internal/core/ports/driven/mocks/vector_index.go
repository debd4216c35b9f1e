package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/knowara/kbsync/internal/core/domain"
)

// MockVectorIndex is an in-memory VectorIndex for testing. It records
// every delete and add so tests can assert on the exact reconciliation
// traffic, not just the final state.
type MockVectorIndex struct {
	mu      sync.RWMutex
	entries map[string]domain.VectorEntry

	// Call recording
	Deleted [][]string
	Added   [][]domain.VectorEntry

	// Error injection
	ListErr   error
	DeleteErr error
	AddErr    error
}

// NewMockVectorIndex creates a new MockVectorIndex
func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{
		entries: make(map[string]domain.VectorEntry),
	}
}

func (m *MockVectorIndex) ListIDs(ctx context.Context, filter map[string]string) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, entry := range m.entries {
		if metadataMatches(entry.Metadata, filter) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MockVectorIndex) Delete(ctx context.Context, ids []string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.entries, id)
	}
	m.Deleted = append(m.Deleted, append([]string(nil), ids...))
	return nil
}

func (m *MockVectorIndex) Add(ctx context.Context, entries []domain.VectorEntry) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range entries {
		m.entries[entry.ID] = entry
	}
	m.Added = append(m.Added, append([]domain.VectorEntry(nil), entries...))
	return nil
}

func (m *MockVectorIndex) HealthCheck(ctx context.Context) error {
	return nil
}

// IDs returns all stored ids, sorted.
func (m *MockVectorIndex) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Seed inserts entries without recording the call.
func (m *MockVectorIndex) Seed(entries ...domain.VectorEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range entries {
		m.entries[entry.ID] = entry
	}
}

func metadataMatches(metadata map[string]any, filter map[string]string) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok || fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}
