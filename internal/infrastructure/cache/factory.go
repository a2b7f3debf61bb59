package cache

import (
	"context"
	"fmt"

	"github.com/fashun/backend/internal/domain/shared"
	"github.com/fashun/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// BackendMemory and BackendRedis name the idempotency backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// IdempotencyStoreFactory creates idempotency stores based on configuration
type IdempotencyStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// IdempotencyStoreFactoryOption is a functional option for configuring the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory store
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateStore creates the store for backend. A Redis backend that cannot be
// reached falls back to memory when allowed.
func (f *IdempotencyStoreFactory) CreateStore(ctx context.Context, backend string) (shared.IdempotencyStore, error) {
	switch backend {
	case BackendMemory, "":
		f.logger.Info("using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(0), nil
	case BackendRedis:
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", backend)
	}

	store, err := NewRedisIdempotencyStore(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis idempotency store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
		"Redelivered events may repeat side effects across workers.",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(0), nil
}
