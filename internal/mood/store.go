// Package mood tracks the current mood label per user. Mood is a
// last-write-wins side channel with no shared invariant against the message
// flow, so plain atomic replace semantics are enough.
package mood

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateUnknown means "no signal": the classifier has not produced a label
// yet or is unavailable. It is deliberately distinct from "neutral".
const StateUnknown = "unknown"

type Store interface {
	Set(ctx context.Context, userID, label string) error
	Get(ctx context.Context, userID string) (string, error)
}

// RedisStore keeps moods in redis with a TTL so stale labels age out.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func moodKey(userID string) string { return "mood:" + userID }

func (s *RedisStore) Set(ctx context.Context, userID, label string) error {
	return s.rdb.Set(ctx, moodKey(userID), label, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, userID string) (string, error) {
	v, err := s.rdb.Get(ctx, moodKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return StateUnknown, nil
	}
	if err != nil {
		return StateUnknown, err
	}
	return v, nil
}

// MemoryStore is the in-process fallback used in tests and when redis is not
// configured.
type MemoryStore struct {
	mu     sync.RWMutex
	labels map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{labels: make(map[string]string)}
}

func (s *MemoryStore) Set(_ context.Context, userID, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels[userID] = label
	return nil
}

func (s *MemoryStore) Get(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.labels[userID]; ok {
		return v, nil
	}
	return StateUnknown, nil
}
