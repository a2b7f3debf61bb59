package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fashun/backend/internal/domain/inventory"
	"github.com/fashun/backend/internal/domain/loyalty"
	"github.com/fashun/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryInventoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryInventoryStore()
	productID := uuid.New()
	require.NoError(t, store.Save(ctx, inventory.Record{ProductID: productID, Quantity: 500, LowStockThreshold: 10}))

	_, err := store.Get(ctx, uuid.New())
	assert.True(t, shared.IsNotFound(err))

	_, _, err = store.Apply(ctx, productID, func(inventory.Record) (int64, error) { return -5, nil })
	assert.ErrorIs(t, err, inventory.ErrNegativeQuantity)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := store.Apply(ctx, productID, func(current inventory.Record) (int64, error) {
				return current.Quantity - 5, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	record, err := store.Get(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), record.Quantity)
}

func TestInMemoryInventoryStore_LocksPerProduct(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryInventoryStore()
	held, other := uuid.New(), uuid.New()
	require.NoError(t, store.Save(ctx, inventory.Record{ProductID: held, Quantity: 5}))
	require.NoError(t, store.Save(ctx, inventory.Record{ProductID: other, Quantity: 5}))

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, err := store.Apply(ctx, held, func(current inventory.Record) (int64, error) {
			close(entered)
			<-release
			return current.Quantity - 1, nil
		})
		assert.NoError(t, err)
	}()
	<-entered

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_, after, err := store.Apply(ctx, other, func(current inventory.Record) (int64, error) {
			return current.Quantity - 2, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(3), after.Quantity)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("adjusting one product waited on another product's lock")
	}

	close(release)
	<-done
	record, err := store.Get(ctx, held)
	require.NoError(t, err)
	assert.Equal(t, int64(4), record.Quantity)
}

func TestInMemoryLoyaltyStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryLoyaltyStore()
	customerID := uuid.New()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := store.Increment(ctx, customerID, 1, decimal.NewFromInt(1), at)
	assert.ErrorIs(t, err, loyalty.ErrRecordNotFound)

	require.NoError(t, store.Save(ctx, loyalty.Record{CustomerID: customerID}))

	record, err := store.Increment(ctx, customerID, 49, decimal.RequireFromString("49.99"), at)
	require.NoError(t, err)
	assert.Equal(t, int64(49), record.TotalPoints)
	assert.Equal(t, int64(49), record.CurrentPoints)
	assert.Equal(t, "49.99", record.LifetimeSpent.String())
	require.NotNil(t, record.LastEarnedAt)
	assert.Equal(t, at, *record.LastEarnedAt)
}
