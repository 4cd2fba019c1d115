package margin

import (
	"context"
	"sync"

	"github.com/wonny/stratfolio/internal/contracts"
)

// MemoryStore is an in-process snapshot store
// Older snapshots never replace newer ones.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[contracts.MarginType]Snapshot
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snaps: make(map[contracts.MarginType]Snapshot),
	}
}

// Load implements RateStore
func (s *MemoryStore) Load(_ context.Context, marginType contracts.MarginType) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snaps[marginType]
	if !ok {
		return Snapshot{}, ErrNoSnapshot
	}
	snap.Rates = snap.Rates.Clone()
	return snap, nil
}

// Save implements RateStore
func (s *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.snaps[snap.MarginType]; ok && snap.FetchedAt.Before(existing.FetchedAt) {
		return nil
	}
	snap.Rates = snap.Rates.Clone()
	s.snaps[snap.MarginType] = snap
	return nil
}
