package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fashun/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*InMemoryIdempotencyStore, *manualClock) {
	clock := &manualClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := NewInMemoryIdempotencyStore(time.Hour).WithClock(clock.Now)
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	ctx := context.Background()

	t.Run("claims a new key once", func(t *testing.T) {
		store, _ := newTestStore(t)

		claimed, err := store.MarkProcessed(ctx, "evt-1:notify:order_confirmation", time.Hour)
		require.NoError(t, err)
		assert.True(t, claimed)

		claimed, err = store.MarkProcessed(ctx, "evt-1:notify:order_confirmation", time.Hour)
		require.NoError(t, err)
		assert.False(t, claimed)

		claimed, err = store.MarkProcessed(ctx, "evt-1:decrement_inventory", time.Hour)
		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("allows a new claim after expiration", func(t *testing.T) {
		store, clock := newTestStore(t)

		_, err := store.MarkProcessed(ctx, "evt-2:restore_inventory", time.Minute)
		require.NoError(t, err)

		processed, err := store.IsProcessed(ctx, "evt-2:restore_inventory")
		require.NoError(t, err)
		assert.True(t, processed)

		clock.Advance(time.Minute)

		processed, err = store.IsProcessed(ctx, "evt-2:restore_inventory")
		require.NoError(t, err)
		assert.False(t, processed)

		claimed, err := store.MarkProcessed(ctx, "evt-2:restore_inventory", time.Minute)
		require.NoError(t, err)
		assert.True(t, claimed)
	})
}

func TestInMemoryIdempotencyStore_ConcurrentClaims(t *testing.T) {
	store, _ := newTestStore(t)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := store.MarkProcessed(context.Background(), "evt-3:flag_refund", time.Hour)
			if err == nil && claimed {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.MarkProcessed(ctx, fmt.Sprintf("short-%d", i), time.Minute)
		require.NoError(t, err)
	}
	_, err := store.MarkProcessed(ctx, "long", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 4, store.Size())

	clock.Advance(2 * time.Minute)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Millisecond)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestIdempotencyStoreFactory_CreateStore(t *testing.T) {
	ctx := context.Background()
	unreachable := config.RedisConfig{Host: "127.0.0.1", Port: 1}

	t.Run("memory backend", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(unreachable).CreateStore(ctx, BackendMemory)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory(unreachable).CreateStore(ctx, "etcd")
		assert.ErrorContains(t, err, "unknown idempotency backend")
	})

	t.Run("unreachable redis falls back to memory", func(t *testing.T) {
		factory := NewIdempotencyStoreFactory(unreachable, WithLogger(zaptest.NewLogger(t)))

		store, err := factory.CreateStore(ctx, BackendRedis)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("unreachable redis without fallback", func(t *testing.T) {
		factory := NewIdempotencyStoreFactory(unreachable, WithInMemoryFallback(false))

		_, err := factory.CreateStore(ctx, BackendRedis)
		assert.ErrorContains(t, err, "redis required")
	})
}
