package progress

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store with TTL-based eviction. Thread-safe and
// suitable for single-instance deployments; use RedisStore for distributed
// ones.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	now      func() time.Time
}

type sessionEntry struct {
	results  map[int]Result
	lastSeen time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryTTL sets the retention window for a session's results after its
// last write. Default is DefaultTTL.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

// withClock overrides time.Now, for tests.
func withClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an in-memory progress store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*sessionEntry),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put records one utterance's result, refreshing the session's TTL window.
func (s *MemoryStore) Put(_ context.Context, sessionID string, result Result) error {
	if sessionID == "" {
		return ErrInvalidSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired()

	entry, ok := s.sessions[sessionID]
	if !ok {
		entry = &sessionEntry{results: make(map[int]Result)}
		s.sessions[sessionID] = entry
	}

	result.RecordedAt = s.now()
	entry.results[result.Index] = result
	entry.lastSeen = s.now()
	return nil
}

// Snapshot returns the session's results ordered by utterance index.
func (s *MemoryStore) Snapshot(_ context.Context, sessionID string) ([]Result, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[sessionID]
	if !ok || s.now().Sub(entry.lastSeen) > s.ttl {
		return []Result{}, nil
	}

	results := make([]Result, 0, len(entry.results))
	for _, r := range entry.results {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results, nil
}

// Clear drops a session's results.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// evictExpired removes sessions past their TTL. Caller holds the write lock.
func (s *MemoryStore) evictExpired() {
	cutoff := s.now().Add(-s.ttl)
	for id, entry := range s.sessions {
		if entry.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
