// Package cache persists the last public IP seen between invocations.
package cache

import (
	"context"
	"fmt"

	"ipwatch/internal/config"

	"go.uber.org/zap"
)

// Store keeps a single address. Load returns "" with a nil error when
// nothing has been stored yet.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, ip string) error
	Close() error
}

// NewStore creates the store selected by cfg.Backend
func NewStore(cfg *config.CacheConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.File, logger), nil
	case "redis":
		return NewRedisStore(&cfg.Redis, logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}
