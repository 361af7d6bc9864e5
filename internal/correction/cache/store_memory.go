package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	valid     bool
	expiresAt time.Time
}

// InMemoryStore is the default validity cache. Safe for concurrent use.
type InMemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewInMemory creates a memory-backed cache. A non-positive ttl means entries
// never expire for the lifetime of the process.
func NewInMemory(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Get(_ context.Context, code string) (bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[code]
	if !ok {
		return false, false
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		return false, false
	}
	return entry.valid, true
}

func (s *InMemoryStore) Set(_ context.Context, code string, valid bool) {
	entry := memoryEntry{valid: valid}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	s.entries[code] = entry
	s.mu.Unlock()
}
