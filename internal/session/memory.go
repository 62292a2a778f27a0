package session

import (
	"fmt"
	"sync"
)

// MemoryStore is the in-memory Store used in production. The mutex only
// protects the map across users; per-user writes are last-writer-wins.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64]*Entry
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[int64]*Entry)}
}

func (s *MemoryStore) Get(userID int64) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[userID]
	return e, ok
}

func (s *MemoryStore) Put(userID int64, e *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = e
}

func (s *MemoryStore) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}

func formatYMM(year int, make, model string) string {
	return fmt.Sprintf("%d %s %s", year, make, model)
}
