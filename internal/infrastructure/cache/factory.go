package cache

import (
	"context"
	"fmt"

	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/cuotas/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore picks the store for the configured deployment.
// Without a Redis host the in-memory store is used. When Redis is configured but
// unreachable, allowFallback decides between the in-memory store and an error.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, allowFallback bool, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	addr := cfg.Addr()
	if addr == "" {
		logger.Info("Redis not configured, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	store, err := NewRedisIdempotencyStore(ctx, addr, cfg.Password, cfg.DB)
	if err == nil {
		logger.Info("Using Redis idempotency store", zap.String("addr", addr))
		return store, nil
	}
	if !allowFallback {
		return nil, fmt.Errorf("redis idempotency store: %w", err)
	}
	logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
		"gateway duplicates are only caught per instance",
		zap.String("addr", addr),
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
