package models

import (
	"time"

	"github.com/fashun/backend/internal/domain/loyalty"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoyaltyRecordModel is the persistence model for a customer's loyalty balance
type LoyaltyRecordModel struct {
	CustomerID    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TotalPoints   int64           `gorm:"not null;default:0"`
	CurrentPoints int64           `gorm:"not null;default:0"`
	LifetimeSpent decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	LastEarnedAt  *time.Time
	TimestampModel
}

// TableName returns the table name for GORM
func (LoyaltyRecordModel) TableName() string {
	return "loyalty_records"
}

// ToDomain converts the persistence model to a domain Record
func (m *LoyaltyRecordModel) ToDomain() loyalty.Record {
	return loyalty.Record{
		CustomerID:    m.CustomerID,
		TotalPoints:   m.TotalPoints,
		CurrentPoints: m.CurrentPoints,
		LifetimeSpent: m.LifetimeSpent,
		LastEarnedAt:  m.LastEarnedAt,
	}
}

// LoyaltyRecordModelFromDomain creates a persistence model from a domain Record
func LoyaltyRecordModelFromDomain(r loyalty.Record) *LoyaltyRecordModel {
	return &LoyaltyRecordModel{
		CustomerID:    r.CustomerID,
		TotalPoints:   r.TotalPoints,
		CurrentPoints: r.CurrentPoints,
		LifetimeSpent: r.LifetimeSpent,
		LastEarnedAt:  r.LastEarnedAt,
	}
}
