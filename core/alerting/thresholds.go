package alerting

import (
	"sync"

	"github.com/kilianp07/fleetops/core/model"
)

// ThresholdStore holds the current alert limits. Updates are atomic: a
// patch that would leave an invalid configuration is rejected as a whole.
type ThresholdStore struct {
	mu  sync.RWMutex
	cur model.Thresholds
}

// NewThresholdStore creates a store seeded with initial. Zero values in
// initial fall back to the defaults.
func NewThresholdStore(initial model.Thresholds) (*ThresholdStore, error) {
	initial = initial.WithDefaults()
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &ThresholdStore{cur: initial}, nil
}

// Get returns a copy of the current thresholds.
func (s *ThresholdStore) Get() model.Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Update merges p into the current thresholds and returns the result.
func (s *ThresholdStore) Update(p model.ThresholdPatch) (model.Thresholds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cur.Apply(p)
	if err := next.Validate(); err != nil {
		return s.cur, err
	}
	s.cur = next
	return next, nil
}
