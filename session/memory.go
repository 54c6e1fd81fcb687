package session

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore is a size-bounded store whose entries expire ttl after their
// last save.
type MemoryStore struct {
	cache *expirable.LRU[string, Data]
}

func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: expirable.NewLRU[string, Data](size, nil, ttl)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (Data, error) {
	data, ok := s.cache.Get(id)
	if !ok {
		return Data{}, ErrNotFound
	}
	return data.clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, id string, data Data) error {
	s.cache.Add(id, data.clone())
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.cache.Remove(id)
	return nil
}

func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
