package decisionlog

import (
	"context"
	"sync"

	"github.com/kilianp07/fleetops/core/allocation"
)

// MemoryStore keeps decisions in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	recs []allocation.DecisionRecord
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Append(_ context.Context, rec allocation.DecisionRecord) error {
	s.mu.Lock()
	s.recs = append(s.recs, rec)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Query(_ context.Context, q allocation.DecisionQuery) ([]allocation.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.recs, q), nil
}

func (s *MemoryStore) Close() error { return nil }
