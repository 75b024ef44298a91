package insights

import (
	"context"
	"sync"
	"time"
)

// InMemorySessionStore provides a concurrency-safe default store. Sessions
// idle for longer than the TTL are pruned lazily on access.
type InMemorySessionStore struct {
	mu   sync.RWMutex
	data map[string]*Session
	ttl  time.Duration
	now  func() time.Time
}

// NewInMemorySessionStore creates an empty store. A ttl <= 0 keeps sessions forever.
func NewInMemorySessionStore(ttl time.Duration) *InMemorySessionStore {
	return &InMemorySessionStore{
		data: make(map[string]*Session),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get returns an existing session.
func (s *InMemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errMissingSession
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.data[id]
	if !ok {
		return nil, errSessionNotFound
	}
	return sess, nil
}

// GetOrCreate returns the session for id, creating an idle one when missing.
func (s *InMemorySessionStore) GetOrCreate(_ context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errMissingSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	if sess, ok := s.data[id]; ok {
		return sess, nil
	}
	sess := NewSession(id)
	s.data[id] = sess
	return sess, nil
}

// Delete drops a session.
func (s *InMemorySessionStore) Delete(_ context.Context, id string) error {
	if id == "" {
		return errMissingSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// Len reports how many sessions are tracked.
func (s *InMemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *InMemorySessionStore) pruneLocked() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.data {
		if sess.State() == StateLoading {
			continue
		}
		if sess.lastTouched().Before(cutoff) {
			delete(s.data, id)
		}
	}
}
