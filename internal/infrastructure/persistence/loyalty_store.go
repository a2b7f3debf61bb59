package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fashun/backend/internal/domain/loyalty"
	"github.com/fashun/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLoyaltyStore implements loyalty.Store on the loyalty_records table
type GormLoyaltyStore struct {
	db *gorm.DB
}

// NewGormLoyaltyStore creates a new GormLoyaltyStore
func NewGormLoyaltyStore(db *gorm.DB) *GormLoyaltyStore {
	return &GormLoyaltyStore{db: db}
}

// Get returns the loyalty record of a customer
func (s *GormLoyaltyStore) Get(ctx context.Context, customerID uuid.UUID) (*loyalty.Record, error) {
	return s.get(s.db.WithContext(ctx), customerID)
}

func (s *GormLoyaltyStore) get(db *gorm.DB, customerID uuid.UUID) (*loyalty.Record, error) {
	var model models.LoyaltyRecordModel
	if err := db.First(&model, "customer_id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, loyalty.ErrRecordNotFound
		}
		return nil, err
	}
	record := model.ToDomain()
	return &record, nil
}

// Increment adds to the counters in a single UPDATE so that concurrent
// accruals for one customer are never lost, then reads the row back
func (s *GormLoyaltyStore) Increment(ctx context.Context, customerID uuid.UUID, points int64, spend decimal.Decimal, at time.Time) (loyalty.Record, error) {
	var record *loyalty.Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.LoyaltyRecordModel{}).
			Where("customer_id = ?", customerID).
			Updates(map[string]any{
				"total_points":   gorm.Expr("total_points + ?", points),
				"current_points": gorm.Expr("current_points + ?", points),
				"lifetime_spent": gorm.Expr("lifetime_spent + ?", spend),
				"last_earned_at": at,
				"updated_at":     at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return loyalty.ErrRecordNotFound
		}

		var err error
		record, err = s.get(tx, customerID)
		return err
	})
	if err != nil {
		return loyalty.Record{}, err
	}
	return *record, nil
}

// Save inserts a loyalty record or replaces its balances
func (s *GormLoyaltyStore) Save(ctx context.Context, record loyalty.Record) error {
	model := models.LoyaltyRecordModelFromDomain(record)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "customer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_points", "current_points", "lifetime_spent", "last_earned_at", "updated_at",
		}),
	}).Create(model).Error
}

var _ loyalty.Store = (*GormLoyaltyStore)(nil)
