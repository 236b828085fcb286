package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ipwatch/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps the address under a single redis key
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStore creates a redis backed store. No connection is made until
// the first Load or Save.
func NewRedisStore(cfg *config.RedisConfig, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	key := cfg.Key
	if key == "" {
		key = config.DefaultRedisKey
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultRedisTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		PoolSize:     1,
		MaxRetries:   -1,
	})

	return newRedisStore(client, key, logger)
}

func newRedisStore(client *redis.Client, key string, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		key:    key,
		logger: logger.With(zap.String("cache_key", key)),
	}
}

// Load returns the stored address; a missing key is not an error
func (s *RedisStore) Load(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		s.logger.Debug("Cache key does not exist yet")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cache key: %w", err)
	}

	// Values written by hand may carry several lines; only the first counts
	first, _, _ := strings.Cut(val, "\n")
	return strings.TrimSpace(first), nil
}

// Save overwrites the key with ip
func (s *RedisStore) Save(ctx context.Context, ip string) error {
	if err := s.client.Set(ctx, s.key, ip, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cache key: %w", err)
	}
	return nil
}

// Close closes the redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
