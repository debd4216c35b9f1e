package driven

import (
	"context"
	"time"
)

// RunLock prevents overlapping scheduler passes when the job is fired by
// an external periodic trigger. Index consistency does not depend on it;
// it only avoids duplicate work.
type RunLock interface {
	// Acquire attempts to take the named lock with a TTL.
	// Returns true if acquired, false if held elsewhere.
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)

	// Release releases the named lock if held by this instance
	Release(ctx context.Context, name string) error
}
