package session

import (
	"context"
	"sync"
	"time"

	"mediguard/internal/verification/models"
	id "mediguard/pkg/domain"
)

// InMemoryStore keeps sessions in a map for tests and single-instance dev.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.RequestID]models.Session
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[id.RequestID]models.Session)}
}

func (s *InMemoryStore) Save(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.RequestID]; exists {
		return ErrConflict
	}
	s.sessions[session.RequestID] = session
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, requestID id.RequestID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	return &session, nil
}

// DeleteCreatedBefore removes sessions created strictly before cutoff.
func (s *InMemoryStore) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key, session := range s.sessions {
		if session.CreatedAt.Before(cutoff) {
			delete(s.sessions, key)
			deleted++
		}
	}
	return deleted, nil
}
