package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cloudbill/backend/internal/domain/shared"
)

// sweepEvery bounds how often MarkProcessed scans for expired entries
const sweepEvery = 5 * time.Minute

// InMemoryIdempotencyStore keeps processed event IDs in a map. Expired
// entries are swept lazily on write, so no background goroutine is
// needed. Suitable for single-instance deployments and tests.
type InMemoryIdempotencyStore struct {
	mu        sync.Mutex
	expiresAt map[string]time.Time
	lastSweep time.Time
}

// NewInMemoryIdempotencyStore creates an empty store
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{
		expiresAt: make(map[string]time.Time),
		lastSweep: time.Now(),
	}
}

// MarkProcessed records the event ID and reports whether it was new
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= sweepEvery {
		s.sweepLocked(now)
	}

	if deadline, seen := s.expiresAt[eventID]; seen && now.Before(deadline) {
		return false, nil
	}
	s.expiresAt[eventID] = now.Add(ttl)
	return true, nil
}

func (s *InMemoryIdempotencyStore) Close() error {
	return nil
}

func (s *InMemoryIdempotencyStore) sweepLocked(now time.Time) {
	for eventID, deadline := range s.expiresAt {
		if now.After(deadline) {
			delete(s.expiresAt, eventID)
		}
	}
	s.lastSweep = now
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
