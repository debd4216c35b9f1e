package mocks

import (
	"context"
	"sync"
	"time"
)

// MockRunLock is an in-process RunLock for testing
type MockRunLock struct {
	mu   sync.Mutex
	held map[string]bool

	// Error injection
	AcquireErr error
}

// NewMockRunLock creates a new MockRunLock
func NewMockRunLock() *MockRunLock {
	return &MockRunLock{held: make(map[string]bool)}
}

func (m *MockRunLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if m.AcquireErr != nil {
		return false, m.AcquireErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[name] {
		return false, nil
	}
	m.held[name] = true
	return true, nil
}

func (m *MockRunLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, name)
	return nil
}
