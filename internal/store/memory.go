package store

import (
	"context"
	"sync"
	"time"
)

// entry is a stored value with its expiry deadline. A zero deadline never expires.
type entry struct {
	value    []byte
	deadline time.Time
}

// MemoryStore implements [Store] with an in-process map.
//
// Intended for tests and single-instance development runs; expiry is
// enforced lazily on read so no background janitor goroutine is needed.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Set stores value under key, replacing any previous entry and its deadline.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.deadline = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

// Get returns the value under key, treating entries past their deadline as absent.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	if !e.deadline.IsZero() && !s.now().Before(e.deadline) {
		s.mu.Lock()
		// Re-check under the write lock: a Set may have replaced the entry
		// since the read lock was released, and a renewed entry must survive.
		if cur, ok := s.entries[key]; ok && !cur.deadline.IsZero() && !s.now().Before(cur.deadline) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	return append([]byte(nil), e.value...), nil
}

// Delete removes key if present.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Ping always succeeds for the in-process store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close discards all entries.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]entry)
	return nil
}
