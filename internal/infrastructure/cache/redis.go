package cache

import (
	"context"
	"credit-loan-service/internal/config"
	"credit-loan-service/internal/pkg/apperrors"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss reports that a key is absent from the cache. Absence from the
// cache says nothing about the store; callers must fall through to it.
var ErrMiss = errors.New("cache miss")

// Store is the narrow key-value contract the cache-aside layer needs. It is
// satisfied by RedisStore in production and by in-memory fakes in tests.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisStore is a Store backed by a single injected redis client with an
// explicit lifecycle: connected (and pinged) at startup, closed at shutdown.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisStore(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to ping redis at %s: %w", apperrors.ErrCacheUnavailable, cfg.Addr, err)
	}

	logger.Info("Successfully connected to Redis.", "addr", cfg.Addr, "db", cfg.DB)
	return &RedisStore{
		client: client,
		logger: logger.With("component", "RedisStore"),
	}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMiss
		}
		return "", fmt.Errorf(errMsgFormat, apperrors.ErrCacheUnavailable, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf(errMsgFormat, apperrors.ErrCacheUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf(errMsgFormat, apperrors.ErrCacheUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	s.logger.Info("Closing Redis connection...")
	return s.client.Close()
}

const errMsgFormat = "%w: %w"
