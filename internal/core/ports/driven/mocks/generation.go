package mocks

import (
	"context"
	"sync"

	"github.com/knowara/kbsync/internal/core/ports/driven"
)

// MockGenerationService is a canned GenerationService for testing
type MockGenerationService struct {
	mu sync.Mutex

	Content string
	Err     error

	// Call recording
	Requests []driven.GenerationRequest
}

// NewMockGenerationService creates a new MockGenerationService
func NewMockGenerationService() *MockGenerationService {
	return &MockGenerationService{Content: "generated description"}
}

func (m *MockGenerationService) Generate(ctx context.Context, req driven.GenerationRequest) (*driven.GenerationResult, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return &driven.GenerationResult{
		Content:  m.Content,
		Attempts: 1,
	}, nil
}

func (m *MockGenerationService) Close() error {
	return nil
}

// CallCount returns how many Generate calls were made.
func (m *MockGenerationService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
