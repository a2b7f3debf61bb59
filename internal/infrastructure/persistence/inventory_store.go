package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fashun/backend/internal/domain/inventory"
	"github.com/fashun/backend/internal/domain/shared"
	"github.com/fashun/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryStore implements inventory.Store on the inventory_records table.
// Apply locks the row with SELECT ... FOR UPDATE for the length of the
// transaction, so concurrent orders for the same product are serialized.
type GormInventoryStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormInventoryStore creates a new GormInventoryStore
func NewGormInventoryStore(db *gorm.DB) *GormInventoryStore {
	return &GormInventoryStore{db: db, now: time.Now}
}

// WithClock overrides the time source used for updated_at
func (s *GormInventoryStore) WithClock(now func() time.Time) *GormInventoryStore {
	s.now = now
	return s
}

// Get returns the stock row of a product
func (s *GormInventoryStore) Get(ctx context.Context, productID uuid.UUID) (*inventory.Record, error) {
	var model models.InventoryRecordModel
	if err := s.db.WithContext(ctx).First(&model, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("inventory for product %s: %w", productID, shared.ErrNotFound)
		}
		return nil, err
	}
	record := model.ToDomain()
	return &record, nil
}

// Apply locks the product row, computes the new quantity with fn and writes it
func (s *GormInventoryStore) Apply(ctx context.Context, productID uuid.UUID, fn inventory.AdjustFunc) (before, after inventory.Record, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.InventoryRecordModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "product_id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("inventory for product %s: %w", productID, shared.ErrNotFound)
			}
			return err
		}

		before = model.ToDomain()
		quantity, err := fn(before)
		if err != nil {
			return err
		}
		if quantity < 0 {
			return inventory.ErrNegativeQuantity
		}

		now := s.now()
		if err := tx.Model(&models.InventoryRecordModel{}).
			Where("product_id = ?", productID).
			Updates(map[string]any{
				"quantity":   quantity,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		after = before
		after.Quantity = quantity
		after.UpdatedAt = now
		return nil
	})
	if err != nil {
		return inventory.Record{}, inventory.Record{}, err
	}
	return before, after, nil
}

// Save inserts a stock row or replaces its quantity and threshold
func (s *GormInventoryStore) Save(ctx context.Context, record inventory.Record) error {
	model := models.InventoryRecordModelFromDomain(record)
	if model.UpdatedAt.IsZero() {
		model.UpdatedAt = s.now()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "low_stock_threshold", "updated_at"}),
	}).Create(model).Error
}

var _ inventory.Store = (*GormInventoryStore)(nil)
