package conversation

import (
	"context"
	"sync"
	"time"
)

// StateStore keeps per-conversation flow state with a sliding TTL: every
// read refreshes the expiry, so the conversation only expires after the
// user goes quiet for the full TTL window.
type StateStore interface {
	// Get returns the current state or (nil, nil) when the conversation is
	// absent or expired. A hit refreshes the TTL.
	Get(ctx context.Context, key string) (*State, error)
	// Set replaces the state and restarts the TTL. The stored state, with
	// UpdatedAt and ExpiresAt stamped, is returned.
	Set(ctx context.Context, key string, state State) (*State, error)
	// Clear removes the conversation state.
	Clear(ctx context.Context, key string) error
}

// MemoryStateStore is the in-process fallback used when Redis is not
// configured. Expired entries are evicted lazily on access.
type MemoryStateStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]State
}

// NewMemoryStateStore creates a memory store with the given sliding TTL.
func NewMemoryStateStore(ttl time.Duration) *MemoryStateStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryStateStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]State),
	}
}

func (s *MemoryStateStore) Get(ctx context.Context, key string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	now := s.now()
	if !state.ExpiresAt.IsZero() && now.After(state.ExpiresAt) {
		delete(s.entries, key)
		return nil, nil
	}
	state.ExpiresAt = now.Add(s.ttl)
	s.entries[key] = state
	copied := state
	return &copied, nil
}

func (s *MemoryStateStore) Set(ctx context.Context, key string, state State) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	state.UpdatedAt = now
	state.ExpiresAt = now.Add(s.ttl)
	s.entries[key] = state
	copied := state
	return &copied, nil
}

func (s *MemoryStateStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
