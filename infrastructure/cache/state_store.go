package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStateNotFound is returned when a state key is absent or already spent.
var ErrStateNotFound = errors.New("state not found")

// RedisStateStore keeps short-lived OAuth state entries in Redis. Consume
// is GETDEL, so concurrent callbacks racing on the same state value see
// exactly one winner.
type RedisStateStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStateStore(client *redis.Client, prefix string) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: prefix}
}

func (s *RedisStateStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisStateStore) Put(ctx context.Context, key, value string, ttlSeconds int) error {
	return s.client.Set(ctx, s.key(key), value, time.Duration(ttlSeconds)*time.Second).Err()
}

func (s *RedisStateStore) Consume(ctx context.Context, key string) (string, error) {
	val, err := s.client.GetDel(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return "", ErrStateNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// MemoryStateStore is an in-process store for tests and single-node dev
// runs. Same single-use semantics as the Redis store.
type MemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStateStore) Put(ctx context.Context, key, value string, ttlSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(time.Duration(ttlSeconds) * time.Second)}
	return nil
}

func (s *MemoryStateStore) Consume(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", ErrStateNotFound
	}
	delete(s.entries, key)
	if time.Now().After(e.expiresAt) {
		return "", ErrStateNotFound
	}
	return e.value, nil
}
