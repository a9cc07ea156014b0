package store

import (
	"sync"

	"github.com/bluepond-io/aquamon/internal/model"
)

// MemoryStore keeps readings in memory only. Append cannot fail.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	readings []model.Reading
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{capacity: capacity}
}

func (s *MemoryStore) Append(r model.Reading) (model.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = appendBounded(s.readings, r, s.capacity)
	return r, nil
}

func (s *MemoryStore) Latest() (model.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.readings) == 0 {
		return model.Reading{}, false
	}
	return s.readings[len(s.readings)-1], true
}

func (s *MemoryStore) All() []model.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Reading, len(s.readings))
	copy(out, s.readings)
	return out
}

func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings)
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = nil
	return nil
}
