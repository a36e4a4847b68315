package token

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const memoryStoreKey = "management-token"

// MemoryStore keeps the management token in process.
type MemoryStore struct {
	cache *gocache.Cache
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (s *MemoryStore) Get(_ context.Context) (ManagementToken, bool, error) {
	v, ok := s.cache.Get(memoryStoreKey)
	if !ok {
		return ManagementToken{}, false, nil
	}
	tok, ok := v.(ManagementToken)
	return tok, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, tok ManagementToken, ttl time.Duration) error {
	s.cache.Set(memoryStoreKey, tok, ttl)
	return nil
}
