// Package pending correlates provider-issued order identifiers with the form data
// submitted before payment.
package pending

import (
	"sync"

	"github.com/portalakashico/portal-backend/internal/intake"
)

// Store maps a provider order or session id to the record waiting for payment.
// Entries of orders that are never confirmed are not evicted.
type Store interface {
	// Put stores rec under id and reports whether an existing entry was replaced.
	Put(id string, rec intake.Record) bool
	// Take returns the record stored under id and removes it in the same step.
	Take(id string) (intake.Record, bool)
	// Len reports the number of orders awaiting confirmation.
	Len() int
}

// MemoryStore is the process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]intake.Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]intake.Record)}
}

func (s *MemoryStore) Put(id string, rec intake.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, replaced := s.records[id]
	s.records[id] = rec
	return replaced
}

func (s *MemoryStore) Take(id string) (intake.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if ok {
		delete(s.records, id)
	}
	return rec, ok
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
