package storage

import (
	"context"
	"maps"
	"sync"
)

// MemoryStorage keeps values in process memory. Nothing survives a restart.
type MemoryStorage struct {
	m      sync.RWMutex
	values map[string]string
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (s *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	value, ok := s.values[key]

	return value, ok, nil
}

func (s *MemoryStorage) Set(_ context.Context, values map[string]string) error {
	s.m.Lock()
	defer s.m.Unlock()

	maps.Copy(s.values, values)

	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, keys ...string) error {
	s.m.Lock()
	defer s.m.Unlock()

	for _, key := range keys {
		delete(s.values, key)
	}

	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStorage) Len() int {
	s.m.RLock()
	defer s.m.RUnlock()

	return len(s.values)
}

func (s *MemoryStorage) Close() error {
	return nil
}
