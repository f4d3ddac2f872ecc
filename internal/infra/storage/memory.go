package storage

import "sync"

// MemStore is an in-memory KV for tests and ephemeral runs.
type MemStore struct {
	mu   sync.Mutex
	data map[string]string

	// FailWrites makes SetItem and MultiRemove fail when set. Tests use
	// it to exercise write-failure paths.
	FailWrites error
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]string)}
}

// GetItem returns the stored value for key.
func (s *MemStore) GetItem(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	return v, ok, nil
}

// SetItem stores value under key.
func (s *MemStore) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.data[key] = value
	return nil
}

// MultiRemove removes all given keys.
func (s *MemStore) MultiRemove(keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites != nil {
		return s.FailWrites
	}
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
