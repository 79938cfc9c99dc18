package session

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps sessions as JSON so callers never share pointers with
// the stored copy.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (*Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(userID)
}

func (s *MemoryStore) Update(ctx context.Context, userID string, fn func(*Data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.load(userID)
	if err != nil {
		return err
	}
	if err := fn(d); err != nil {
		return err
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	s.data[userID] = raw
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
	return nil
}

func (s *MemoryStore) load(userID string) (*Data, error) {
	d := &Data{}
	raw, ok := s.data[userID]
	if !ok {
		return d, nil
	}
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, err
	}
	return d, nil
}
