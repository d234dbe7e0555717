package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dtnitsch/article-analyzer/models"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "article-analyzer:session:"

// RedisStore keeps each bundle as a JSON string that expires after ttl. A ttl of 0 keeps
// bundles until cleared.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(session string) string {
	return redisKeyPrefix + session
}

func (s *RedisStore) Save(ctx context.Context, session string, b *models.ResultBundle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(session), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save bundle to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, session string) (*models.ResultBundle, error) {
	data, err := s.client.Get(ctx, redisKey(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle from redis: %w", err)
	}
	return decodeBundle(data)
}

func (s *RedisStore) Clear(ctx context.Context, session string) error {
	if err := s.client.Del(ctx, redisKey(session)).Err(); err != nil {
		return fmt.Errorf("failed to clear bundle in redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
