package store

import (
	"context"
	"fmt"

	"github.com/arashthr/markcentral/internal/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore maps the Store interface onto a Redis keyspace. Entries are
// written without TTL: the per-user blobs are the durable state, not a cache.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) SetNX(ctx context.Context, key string, value []byte) error {
	ok, err := s.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx %q: %w", key, err)
	}
	if !ok {
		return ErrKeyExists
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}
