package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/statify/internal/shared"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements [Store] on a Redis server.
//
// TTL enforcement is delegated to Redis key expiry. Transient connection
// failures are retried by the client itself with exponential backoff
// (MaxRetries); errors surfacing here have already exhausted retries and
// wrap [shared.ErrStoreUnavailable].
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a [RedisStore] from connection settings.
//
// maxRetries <= 0 falls back to the go-redis default of 3 attempts.
func NewRedisStore(addr, password string, db, maxRetries int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:       addr,
		Password:   password,
		DB:         db,
		MaxRetries: maxRetries,
	})

	return &RedisStore{client: client}
}

// NewRedisStoreFromURL creates a [RedisStore] from a redis:// or rediss://
// URL. maxRetries > 0 overrides the retry count parsed from the URL.
func NewRedisStoreFromURL(rawURL string, maxRetries int) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: redis url: %v", shared.ErrInvalidConfig, err)
	}
	if maxRetries > 0 {
		opts.MaxRetries = maxRetries
	}

	return &RedisStore{client: redis.NewClient(opts)}, nil
}

// NewRedisStoreFromClient wraps an existing client, used by tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Set writes value under key with the given TTL via SET ... EX.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %v", shared.ErrStoreUnavailable, key, err)
	}
	return nil
}

// Get returns the value under key, or [ErrNotFound] once the key expired.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get %s: %v", shared.ErrStoreUnavailable, key, err)
	}
	return value, nil
}

// Delete removes key. Redis DEL on a missing key is a no-op.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: redis del %s: %v", shared.ErrStoreUnavailable, key, err)
	}
	return nil
}

// Ping checks connectivity to the Redis server.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %v", shared.ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the underlying client connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
