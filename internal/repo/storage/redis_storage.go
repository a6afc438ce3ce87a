package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/logging"
)

// RedisStorageConfig holds configuration for the Redis storage.
type RedisStorageConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`

	// Prefix namespaces the keys, e.g. "whiskey:client:authToken"
	Prefix string `env:"PREFIX" envDefault:"whiskey:client:"`
}

// RedisStorage keeps keys in Redis without expiry.
type RedisStorage struct {
	client redis.UniversalClient
	prefix string
	log    logging.Logger
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(ctx context.Context, cfg RedisStorageConfig) (*RedisStorage, error) {
	//nolint:exhaustruct
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Addr},
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("ping: %w", err)
	}

	return NewRedisStorageWithClient(client, cfg.Prefix), nil
}

// NewRedisStorageWithClient wraps an existing client.
func NewRedisStorageWithClient(client redis.UniversalClient, prefix string) *RedisStorage {
	return &RedisStorage{
		client: client,
		prefix: prefix,
		log:    logging.GetLogger("repo.storage.redis_storage").With(logging.Group("redis", "prefix", prefix)),
	}
}

func (s *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("redis get: %w", err)
	}

	return value, true, nil
}

func (s *RedisStorage) Set(ctx context.Context, values map[string]string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range values {
			pipe.Set(ctx, s.prefix+key, value, 0)
		}

		return nil
	})
	if err != nil {
		s.log.ErrorContext(ctx, "storage set failed", "error", err)

		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, s.prefix+key)
	}

	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

func (s *RedisStorage) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close client: %w", err)
	}

	return nil
}
