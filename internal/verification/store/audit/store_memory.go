// Package audit stores the append-only trail of proof-submission attempts.
package audit

import (
	"context"
	"sort"
	"sync"

	"mediguard/internal/verification/models"
	id "mediguard/pkg/domain"
)

type entry struct {
	seq    uint64
	record models.AuditRecord
}

// InMemoryStore keeps the audit trail in process memory. Appends take the
// write lock only for the slice append, so pollers are never held up for long.
type InMemoryStore struct {
	mu      sync.RWMutex
	next    uint64
	entries []entry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, record models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.entries = append(s.entries, entry{seq: s.next, record: record})
	return nil
}

// ListByProvider returns up to limit records for the provider, newest first.
// Records with equal timestamps are returned in reverse append order.
func (s *InMemoryStore) ListByProvider(_ context.Context, providerID id.ProviderID, limit int) ([]models.AuditRecord, error) {
	return s.collect(limit, func(r models.AuditRecord) bool { return r.ProviderID == providerID }), nil
}

// ListByRequest returns every record correlated to requestID, newest first.
func (s *InMemoryStore) ListByRequest(_ context.Context, requestID id.RequestID) ([]models.AuditRecord, error) {
	return s.collect(0, func(r models.AuditRecord) bool { return r.RequestID == requestID }), nil
}

func (s *InMemoryStore) collect(limit int, match func(models.AuditRecord) bool) []models.AuditRecord {
	s.mu.RLock()
	matched := make([]entry, 0)
	for _, e := range s.entries {
		if match(e.record) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.record.Timestamp.Equal(b.record.Timestamp) {
			return a.record.Timestamp.After(b.record.Timestamp)
		}
		return a.seq > b.seq
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]models.AuditRecord, len(matched))
	for i, e := range matched {
		out[i] = e.record
	}
	return out
}
