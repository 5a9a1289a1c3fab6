package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultTranspositionCapacity = 4096

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process LRU store.
type MemoryStore struct {
	cache *lru.Cache[string, string]
}

func NewMemoryStore(capacity int) (*MemoryStore, error) {
	if capacity <= 0 {
		capacity = DefaultTranspositionCapacity
	}
	c, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: c}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.cache.Get(key)
	return v, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, key, value string) error {
	s.cache.Add(key, value)
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.cache.Purge()
	return nil
}

func (s *MemoryStore) Len(context.Context) (int, error) { return s.cache.Len(), nil }
