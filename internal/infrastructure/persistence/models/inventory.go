package models

import (
	"github.com/fashun/backend/internal/domain/inventory"
	"github.com/google/uuid"
)

// InventoryRecordModel is the persistence model for a product's stock row
type InventoryRecordModel struct {
	ProductID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Quantity          int64     `gorm:"not null;default:0;check:chk_inventory_quantity_non_negative,quantity >= 0"`
	LowStockThreshold int64     `gorm:"not null;default:0"`
	TimestampModel
}

// TableName returns the table name for GORM
func (InventoryRecordModel) TableName() string {
	return "inventory_records"
}

// ToDomain converts the persistence model to a domain Record
func (m *InventoryRecordModel) ToDomain() inventory.Record {
	return inventory.Record{
		ProductID:         m.ProductID,
		Quantity:          m.Quantity,
		LowStockThreshold: m.LowStockThreshold,
		UpdatedAt:         m.UpdatedAt,
	}
}

// InventoryRecordModelFromDomain creates a persistence model from a domain Record
func InventoryRecordModelFromDomain(r inventory.Record) *InventoryRecordModel {
	m := &InventoryRecordModel{
		ProductID:         r.ProductID,
		Quantity:          r.Quantity,
		LowStockThreshold: r.LowStockThreshold,
	}
	m.UpdatedAt = r.UpdatedAt
	return m
}
