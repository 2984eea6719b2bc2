package usecase

import (
	"sync"

	"TemaScan/internal/domain/models"
)

// ResultStore holds the latest completed scan's result set. Replace swaps
// the whole set; results from an older job never mix with a newer one.
// Signal order is completion order and carries no meaning.
type ResultStore struct {
	mu     sync.RWMutex
	latest *models.ResultSet
}

// NewResultStore creates an empty store.
func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// Replace installs rs as the latest result set.
func (s *ResultStore) Replace(rs *models.ResultSet) {
	signals := make([]models.Signal, len(rs.Signals))
	copy(signals, rs.Signals)

	stored := *rs
	stored.Signals = signals

	s.mu.Lock()
	s.latest = &stored
	s.mu.Unlock()
}

// Latest returns the current result set, or nil when no scan completed yet.
func (s *ResultStore) Latest() *models.ResultSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}
