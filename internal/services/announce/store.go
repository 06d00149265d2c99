package announce

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// LastSpokenKey holds the last payload that was announced.
const LastSpokenKey = "announcer:last_spoken"

// Store persists the last spoken payload across restarts.
type Store interface {
	LastSpoken(ctx context.Context) (string, error)
	SetLastSpoken(ctx context.Context, payload string) error
}

type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, key: LastSpokenKey}
}

// LastSpoken returns "" when nothing was spoken yet.
func (s *RedisStore) LastSpoken(ctx context.Context) (string, error) {
	v, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return v, nil
}

func (s *RedisStore) SetLastSpoken(ctx context.Context, payload string) error {
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// MemoryStore keeps the value in process. Used when Redis is not configured.
type MemoryStore struct {
	mu    sync.Mutex
	value string
}

func (s *MemoryStore) LastSpoken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, nil
}

func (s *MemoryStore) SetLastSpoken(_ context.Context, payload string) error {
	s.mu.Lock()
	s.value = payload
	s.mu.Unlock()
	return nil
}
