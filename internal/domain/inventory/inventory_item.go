// Package inventory models the stock row of a single product and the pure
// arithmetic of order-driven stock adjustments.
package inventory

import (
	"time"

	"github.com/fashun/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Record is the stock row of one product. Quantity is never negative.
type Record struct {
	ProductID         uuid.UUID
	Quantity          int64
	LowStockThreshold int64
	UpdatedAt         time.Time
}

// NewRecord creates a stock record for a product
func NewRecord(productID uuid.UUID, quantity, lowStockThreshold int64) (*Record, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if lowStockThreshold < 0 {
		return nil, shared.NewDomainError("INVALID_THRESHOLD", "Low stock threshold cannot be negative")
	}
	return &Record{
		ProductID:         productID,
		Quantity:          quantity,
		LowStockThreshold: lowStockThreshold,
		UpdatedAt:         time.Now(),
	}, nil
}

// IsOutOfStock returns true when nothing is left to sell
func (r *Record) IsOutOfStock() bool {
	return r.Quantity == 0
}

// IsLowStock returns true when stock is positive but at or below the threshold
func (r *Record) IsLowStock() bool {
	return r.Quantity > 0 && r.Quantity <= r.LowStockThreshold
}

// Direction is the sign of an adjustment
type Direction string

const (
	DirectionDecrement Direction = "decrement"
	DirectionRestore   Direction = "restore"
)

// StockState classifies the outcome of one adjustment
type StockState string

const (
	StockStateNormal      StockState = "normal"
	StockStateLow         StockState = "low_stock"
	StockStateOutOfStock  StockState = "out_of_stock"
	StockStateBackInStock StockState = "back_in_stock"
	StockStateSkipped     StockState = "skipped"
	StockStateFailed      StockState = "failed"
)

// Adjustment is the result of adjusting one product's stock for one order line
type Adjustment struct {
	ProductID uuid.UUID
	Direction Direction
	Requested int64
	Previous  int64
	Current   int64
	Threshold int64
	State     StockState
	// Shortfall is how much a decrement exceeded the stock on hand.
	// The stored quantity still floors at zero.
	Shortfall int64
	Reason    string
}

// Applied reports whether the stock row was written
func (a Adjustment) Applied() bool {
	return a.State != StockStateSkipped && a.State != StockStateFailed
}

// HasShortfall reports whether the decrement could not be fully covered
func (a Adjustment) HasShortfall() bool {
	return a.Shortfall > 0
}

// DecrementQuantity returns the floored quantity after removing requested
// units, and the part of the request that stock could not cover.
func DecrementQuantity(current, requested int64) (next, shortfall int64) {
	next = current - requested
	if next < 0 {
		return 0, -next
	}
	return next, 0
}

// ClassifyDecrement detects threshold crossings caused by a decrement
func ClassifyDecrement(previous, next, threshold int64) StockState {
	switch {
	case previous > 0 && next == 0:
		return StockStateOutOfStock
	case next > 0 && next <= threshold:
		return StockStateLow
	}
	return StockStateNormal
}

// ClassifyRestore detects a product coming back in stock
func ClassifyRestore(previous, next int64) StockState {
	if previous == 0 && next > 0 {
		return StockStateBackInStock
	}
	return StockStateNormal
}

// NewDecrementAdjustment builds the adjustment record for a completed decrement
func NewDecrementAdjustment(before, after Record, requested int64) Adjustment {
	_, shortfall := DecrementQuantity(before.Quantity, requested)
	return Adjustment{
		ProductID: before.ProductID,
		Direction: DirectionDecrement,
		Requested: requested,
		Previous:  before.Quantity,
		Current:   after.Quantity,
		Threshold: after.LowStockThreshold,
		State:     ClassifyDecrement(before.Quantity, after.Quantity, after.LowStockThreshold),
		Shortfall: shortfall,
	}
}

// NewRestoreAdjustment builds the adjustment record for a completed restore
func NewRestoreAdjustment(before, after Record, requested int64) Adjustment {
	return Adjustment{
		ProductID: before.ProductID,
		Direction: DirectionRestore,
		Requested: requested,
		Previous:  before.Quantity,
		Current:   after.Quantity,
		Threshold: after.LowStockThreshold,
		State:     ClassifyRestore(before.Quantity, after.Quantity),
	}
}

// SkippedAdjustment records a line that could not be matched to a stock row
func SkippedAdjustment(productID uuid.UUID, direction Direction, requested int64, reason string) Adjustment {
	return Adjustment{
		ProductID: productID,
		Direction: direction,
		Requested: requested,
		State:     StockStateSkipped,
		Reason:    reason,
	}
}

// FailedAdjustment records a line whose stock row could not be written
func FailedAdjustment(productID uuid.UUID, direction Direction, requested int64, reason string) Adjustment {
	return Adjustment{
		ProductID: productID,
		Direction: direction,
		Requested: requested,
		State:     StockStateFailed,
		Reason:    reason,
	}
}
