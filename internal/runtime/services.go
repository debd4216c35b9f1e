// Package runtime holds optional services that may or may not be
// configured for a given run.
package runtime

import (
	"sync"

	"github.com/knowara/kbsync/internal/core/ports/driven"
)

// Services holds references to optional remote services. The sync
// pipeline works without them; callers must tolerate nil.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	generationService driven.GenerationService
}

// NewServices creates a new Services registry
func NewServices() *Services {
	return &Services{}
}

// GenerationService returns the current generation service (may be nil)
func (s *Services) GenerationService() driven.GenerationService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generationService
}

// SetGenerationService updates the generation service.
// Closes the old service if present.
func (s *Services) SetGenerationService(svc driven.GenerationService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generationService != nil {
		_ = s.generationService.Close()
	}
	s.generationService = svc
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generationService != nil {
		_ = s.generationService.Close()
		s.generationService = nil
	}
	return nil
}
