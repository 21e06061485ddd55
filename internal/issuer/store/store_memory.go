package store

import (
	"context"
	"sync"

	"mediguard/internal/issuer/models"
	id "mediguard/pkg/domain"
)

// InMemoryStore keeps issuers in a map indexed by ID and public key.
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[id.IssuerID]models.Issuer
	byKey map[string]id.IssuerID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:  make(map[id.IssuerID]models.Issuer),
		byKey: make(map[string]id.IssuerID),
	}
}

func (s *InMemoryStore) Save(_ context.Context, issuer models.Issuer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[issuer.ID]; exists {
		return ErrConflict
	}
	if _, exists := s.byKey[issuer.PublicKey]; exists {
		return ErrConflict
	}
	s.byID[issuer.ID] = issuer
	s.byKey[issuer.PublicKey] = issuer.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, issuerID id.IssuerID) (*models.Issuer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	issuer, ok := s.byID[issuerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &issuer, nil
}

func (s *InMemoryStore) FindByPublicKey(_ context.Context, publicKey string) (*models.Issuer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	issuerID, ok := s.byKey[publicKey]
	if !ok {
		return nil, ErrNotFound
	}
	issuer := s.byID[issuerID]
	return &issuer, nil
}
