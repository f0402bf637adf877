package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps everything in process memory. Used by tests and by
// `STORE_BACKEND=memory` for throwaway runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Open(_ context.Context, namespace string) (Handle, error) {
	return openHandle(s, namespace)
}

func (s *MemoryStore) get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[namespace][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemoryStore) apply(_ context.Context, namespace string, sets map[string][]byte, erases []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string][]byte)
		s.data[namespace] = ns
	}
	for _, k := range erases {
		delete(ns, k)
	}
	for k, v := range sets {
		ns[k] = append([]byte(nil), v...)
	}
	return nil
}
