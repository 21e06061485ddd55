// Package store is the holder's credential store. All mutation goes through
// Store, which writes the full list through its Persistence before updating
// memory, so a failed save leaves the store unchanged.
package store

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"mediguard/internal/credential"
	dErrors "mediguard/pkg/domain-errors"
)

// ImportResult reports whether an import added a new credential.
type ImportResult struct {
	Added      bool
	Credential credential.Credential
}

// BatchItem is the outcome of one credential in ImportBatch.
type BatchItem struct {
	Index  int
	Result ImportResult
	Err    error
}

// Store deduplicates credentials by their effective ID.
type Store struct {
	mu          sync.Mutex
	persistence Persistence
	creds       []credential.Credential
	index       map[string]int
	now         func() time.Time
	logger      *slog.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open loads the persisted credentials. Entries that fail validation or
// repeat an earlier ID are skipped with a warning.
func Open(ctx context.Context, p Persistence, opts ...Option) (*Store, error) {
	s := &Store{
		persistence: p,
		index:       make(map[string]int),
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	loaded, err := p.Load(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load wallet")
	}
	for _, c := range loaded {
		key := c.EffectiveID()
		if err := c.Validate(); err != nil || key == "" {
			s.logger.WarnContext(ctx, "skipping invalid stored credential", "credential_id", key)
			continue
		}
		if _, dup := s.index[key]; dup {
			continue
		}
		c.ID = key
		s.index[key] = len(s.creds)
		s.creds = append(s.creds, c)
	}
	return s, nil
}

// Import stores c unless a credential with the same effective ID exists.
// IssuedAt is stamped at import time.
func (s *Store) Import(ctx context.Context, c credential.Credential) (ImportResult, error) {
	if err := c.Validate(); err != nil {
		return ImportResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := c.EffectiveID()
	if i, ok := s.index[key]; ok {
		return ImportResult{Added: false, Credential: clone(s.creds[i])}, nil
	}

	c = clone(c)
	c.ID = key
	c.IssuedAt = s.now().UTC()

	next := make([]credential.Credential, len(s.creds), len(s.creds)+1)
	copy(next, s.creds)
	next = append(next, c)
	if err := s.persistence.Save(ctx, next); err != nil {
		return ImportResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save wallet")
	}

	s.creds = next
	s.index[key] = len(next) - 1

	s.logger.InfoContext(ctx, "credential imported",
		"credential_id", key,
		"credential_type", c.Type,
		"issuer", c.Issuer,
	)
	return ImportResult{Added: true, Credential: clone(c)}, nil
}

// ImportBatch imports each credential independently; one failure never
// stops the rest.
func (s *Store) ImportBatch(ctx context.Context, creds []credential.Credential) []BatchItem {
	items := make([]BatchItem, len(creds))
	for i, c := range creds {
		res, err := s.Import(ctx, c)
		items[i] = BatchItem{Index: i, Result: res, Err: err}
	}
	return items
}

// List returns copies of all credentials in import order.
func (s *Store) List(_ context.Context) []credential.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]credential.Credential, len(s.creds))
	for i, c := range s.creds {
		out[i] = clone(c)
	}
	return out
}

// Get returns the credential with the given ID.
func (s *Store) Get(_ context.Context, credentialID string) (credential.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[credentialID]
	if !ok {
		return credential.Credential{}, dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	return clone(s.creds[i]), nil
}

func clone(c credential.Credential) credential.Credential {
	c.Attributes = maps.Clone(c.Attributes)
	return c
}
