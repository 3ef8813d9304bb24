package store

import (
	"github.com/missedtask/missedtask-client/internal/cache"
)

// RedisStore backs the KV capability with Redis, for deployments where
// clients roam between machines and want watermarks to follow them.
type RedisStore struct {
	redis *cache.RedisCache
}

func NewRedisStore(redis *cache.RedisCache) *RedisStore {
	return &RedisStore{redis: redis}
}

func (s *RedisStore) Get(key string) (string, bool, error) {
	data, err := s.redis.Get(key)
	if err != nil {
		return "", false, err
	}
	if data == nil {
		return "", false, nil
	}
	return string(data), true, nil
}

func (s *RedisStore) Set(key, value string) error {
	// Watermarks never expire; zero TTL persists the key.
	return s.redis.Set(key, []byte(value), 0)
}

func (s *RedisStore) Delete(key string) error {
	return s.redis.Delete(key)
}
