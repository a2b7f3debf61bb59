package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fashun/backend/internal/domain/inventory"
	"github.com/fashun/backend/internal/domain/loyalty"
	"github.com/fashun/backend/internal/domain/shared"
	"github.com/fashun/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var storeNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// newSQLiteDB opens a private in-memory database on a single connection
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.InventoryRecordModel{}, &models.LoyaltyRecordModel{}))
	return db
}

func seedInventory(t *testing.T, store *GormInventoryStore, quantity, threshold int64) uuid.UUID {
	t.Helper()
	productID := uuid.New()
	require.NoError(t, store.Save(context.Background(), inventory.Record{
		ProductID:         productID,
		Quantity:          quantity,
		LowStockThreshold: threshold,
	}))
	return productID
}

func TestGormInventoryStore_Get(t *testing.T) {
	store := NewGormInventoryStore(newSQLiteDB(t)).WithClock(func() time.Time { return storeNow })
	ctx := context.Background()

	productID := seedInventory(t, store, 12, 5)

	record, err := store.Get(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, productID, record.ProductID)
	assert.Equal(t, int64(12), record.Quantity)
	assert.Equal(t, int64(5), record.LowStockThreshold)

	_, err = store.Get(ctx, uuid.New())
	assert.True(t, shared.IsNotFound(err))
}

func TestGormInventoryStore_Apply(t *testing.T) {
	ctx := context.Background()

	t.Run("writes the computed quantity", func(t *testing.T) {
		store := NewGormInventoryStore(newSQLiteDB(t)).WithClock(func() time.Time { return storeNow })
		productID := seedInventory(t, store, 10, 3)

		before, after, err := store.Apply(ctx, productID, func(current inventory.Record) (int64, error) {
			return current.Quantity - 4, nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(10), before.Quantity)
		assert.Equal(t, int64(6), after.Quantity)
		assert.Equal(t, storeNow, after.UpdatedAt)

		stored, err := store.Get(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, int64(6), stored.Quantity)
	})

	t.Run("missing product", func(t *testing.T) {
		store := NewGormInventoryStore(newSQLiteDB(t))

		called := false
		_, _, err := store.Apply(ctx, uuid.New(), func(inventory.Record) (int64, error) {
			called = true
			return 0, nil
		})
		assert.True(t, shared.IsNotFound(err))
		assert.False(t, called)
	})

	t.Run("negative quantity is rejected", func(t *testing.T) {
		store := NewGormInventoryStore(newSQLiteDB(t))
		productID := seedInventory(t, store, 1, 0)

		_, _, err := store.Apply(ctx, productID, func(inventory.Record) (int64, error) {
			return -1, nil
		})
		assert.ErrorIs(t, err, inventory.ErrNegativeQuantity)

		stored, err := store.Get(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.Quantity)
	})

	t.Run("adjust error rolls back", func(t *testing.T) {
		store := NewGormInventoryStore(newSQLiteDB(t))
		productID := seedInventory(t, store, 7, 0)
		boom := errors.New("boom")

		_, _, err := store.Apply(ctx, productID, func(inventory.Record) (int64, error) {
			return 0, boom
		})
		assert.ErrorIs(t, err, boom)

		stored, err := store.Get(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, int64(7), stored.Quantity)
	})

	t.Run("concurrent decrements are not lost", func(t *testing.T) {
		store := NewGormInventoryStore(newSQLiteDB(t))
		productID := seedInventory(t, store, 100, 0)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := store.Apply(ctx, productID, func(current inventory.Record) (int64, error) {
					return current.Quantity - 3, nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		stored, err := store.Get(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, int64(40), stored.Quantity)
	})
}

func TestGormInventoryStore_SaveUpserts(t *testing.T) {
	store := NewGormInventoryStore(newSQLiteDB(t))
	ctx := context.Background()
	productID := seedInventory(t, store, 3, 1)

	require.NoError(t, store.Save(ctx, inventory.Record{ProductID: productID, Quantity: 30, LowStockThreshold: 10}))

	stored, err := store.Get(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), stored.Quantity)
	assert.Equal(t, int64(10), stored.LowStockThreshold)
}

func TestGormLoyaltyStore_Increment(t *testing.T) {
	ctx := context.Background()

	t.Run("adds points and spend", func(t *testing.T) {
		store := NewGormLoyaltyStore(newSQLiteDB(t))
		customerID := uuid.New()
		require.NoError(t, store.Save(ctx, loyalty.Record{
			CustomerID:    customerID,
			TotalPoints:   120,
			CurrentPoints: 20,
			LifetimeSpent: decimal.NewFromInt(100),
		}))

		record, err := store.Increment(ctx, customerID, 50, decimal.RequireFromString("50.5"), storeNow)
		require.NoError(t, err)

		assert.Equal(t, int64(170), record.TotalPoints)
		assert.Equal(t, int64(70), record.CurrentPoints)
		assert.True(t, record.LifetimeSpent.Equal(decimal.RequireFromString("150.5")), record.LifetimeSpent.String())
		require.NotNil(t, record.LastEarnedAt)
		assert.True(t, record.LastEarnedAt.Equal(storeNow))
	})

	t.Run("missing record", func(t *testing.T) {
		store := NewGormLoyaltyStore(newSQLiteDB(t))

		_, err := store.Increment(ctx, uuid.New(), 10, decimal.NewFromInt(10), storeNow)
		assert.ErrorIs(t, err, loyalty.ErrRecordNotFound)
		assert.True(t, shared.IsNotFound(err))

		_, err = store.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, loyalty.ErrRecordNotFound)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		store := NewGormLoyaltyStore(newSQLiteDB(t))
		customerID := uuid.New()
		require.NoError(t, store.Save(ctx, loyalty.Record{CustomerID: customerID, LifetimeSpent: decimal.Zero}))

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Increment(ctx, customerID, 5, decimal.NewFromInt(5), storeNow)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		record, err := store.Get(ctx, customerID)
		require.NoError(t, err)
		assert.Equal(t, int64(50), record.TotalPoints)
		assert.Equal(t, int64(50), record.CurrentPoints)
		assert.True(t, record.LifetimeSpent.Equal(decimal.NewFromInt(50)))
	})
}
