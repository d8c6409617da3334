// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package store

import "sync"

type memoryStore struct {
	mu     sync.Mutex
	values map[string]int
}

// NewMemoryStore returns a store that forgets everything on exit
func NewMemoryStore() Store {
	return &memoryStore{values: make(map[string]int)}
}

func (s *memoryStore) GetInt(key string, def int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return def, nil
}

func (s *memoryStore) PutInt(key string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *memoryStore) Close() error { return nil }
