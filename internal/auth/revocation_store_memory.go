package auth

import (
	"context"
	"sync"
	"time"
)

// NewInMemoryRevocationStore returns a RevocationStore backed by an in-memory map.
func NewInMemoryRevocationStore() *InMemoryRevocationStore {
	return &InMemoryRevocationStore{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// InMemoryRevocationStore implements RevocationStore for tests and single-node deployments.
type InMemoryRevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time
}

// Revoke records the token id until the provided time.
func (s *InMemoryRevocationStore) Revoke(_ context.Context, tokenID string, until time.Time) error {
	now := s.now()
	s.mu.Lock()
	s.revoked[tokenID] = until
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.mu.Unlock()
	return nil
}

// IsRevoked reports whether the token id was revoked and has not yet expired.
func (s *InMemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	until, ok := s.revoked[tokenID]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return !s.now().After(until), nil
}

// Has reports whether a token id is tracked. Useful for tests.
func (s *InMemoryRevocationStore) Has(tokenID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[tokenID]
	return ok
}
