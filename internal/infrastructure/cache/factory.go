package cache

import (
	"context"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/dealerops/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StoreOption configures NewIdempotencyStore
type StoreOption func(*storeOptions)

type storeOptions struct {
	fallback bool
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory store (the default) or fails startup
func WithInMemoryFallback(allow bool) StoreOption {
	return func(o *storeOptions) { o.fallback = allow }
}

// NewIdempotencyStore picks the store for the configuration. Redis disabled
// means in-memory.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger, opts ...StoreOption) (shared.IdempotencyStore, error) {
	o := storeOptions{fallback: true}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if !cfg.Enabled {
		logger.Info("Using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	store, err := NewRedisIdempotencyStore(ctx, cfg)
	if err == nil {
		logger.Info("Using redis idempotency store", zap.String("addr", cfg.Addr()))
		return store, nil
	}
	if !o.fallback {
		return nil, err
	}
	// Alerts from redelivered events may duplicate across instances until
	// redis is back; the pending-alert unique index still catches most.
	logger.Warn("Redis unavailable, falling back to in-memory idempotency store",
		zap.String("addr", cfg.Addr()),
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
