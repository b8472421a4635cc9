package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zoff-tech/go-shop-saga/pkg/config"
)

const keyPrefix = "session:"

// RedisStore backs sessions with redis so multiple instances share them.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(settings config.SessionSettings) (*RedisStore, error) {
	opts, err := redis.ParseURL(settings.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *RedisStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, keyPrefix+key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// NewStore picks the backend from configuration, defaulting to memory.
func NewStore(settings config.SessionSettings) (Store, error) {
	switch settings.Backend {
	case "redis":
		return NewRedisStore(settings)
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", settings.Backend)
	}
}
