package memstorage

import (
	"context"
	"sync"

	"github.com/trezcool/formportal/core"
)

// Storage keeps everything in a map. It is lost when the process exits.
type Storage struct {
	sync.RWMutex
	table map[string]string
}

var _ core.LocalStorage = (*Storage)(nil) // interface compliance check

func New() *Storage {
	return &Storage{table: make(map[string]string)}
}

func (s *Storage) Get(_ context.Context, key string) (string, error) {
	s.RLock()
	defer s.RUnlock()
	val, ok := s.table[key]
	if !ok {
		return "", core.ErrKeyNotFound
	}
	return val, nil
}

func (s *Storage) Set(_ context.Context, key, value string) error {
	s.Lock()
	defer s.Unlock()
	s.table[key] = value
	return nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	s.Lock()
	defer s.Unlock()
	delete(s.table, key)
	return nil
}

func (s *Storage) Close() error { return nil }
