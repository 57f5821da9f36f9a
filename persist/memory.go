package persist

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore is an in-process Store used when no Redis is configured and as
// the test double.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string

	// FailWrites makes Save/Remove return an error, for exercising the
	// engine's persistence-failure downgrade.
	FailWrites bool
}

var errWriteFailed = errors.New("persist: write failed")

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Load(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, key, value string) error {
	if s.FailWrites {
		return errWriteFailed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	if s.FailWrites {
		return errWriteFailed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
