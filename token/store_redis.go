package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "auth-gateway:management-token"

// RedisStore shares the management token between gateway replicas.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Get(ctx context.Context) (ManagementToken, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ManagementToken{}, false, nil
	}
	if err != nil {
		return ManagementToken{}, false, fmt.Errorf("[RedisStore.Get] %w", err)
	}
	var tok ManagementToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return ManagementToken{}, false, fmt.Errorf("[RedisStore.Get] decode: %w", err)
	}
	return tok, true, nil
}

func (s *RedisStore) Set(ctx context.Context, tok ManagementToken, ttl time.Duration) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("[RedisStore.Set] encode: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("[RedisStore.Set] %w", err)
	}
	return nil
}
