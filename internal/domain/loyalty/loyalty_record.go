// Package loyalty models a customer's loyalty balance and the accrual rule
// applied when an order is placed.
package loyalty

import (
	"time"

	"github.com/fashun/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrRecordNotFound is returned when a customer has no loyalty record.
// It wraps shared.ErrNotFound so the lifecycle reports the accrual as skipped.
var ErrRecordNotFound = &notFoundError{}

type notFoundError struct{}

func (e *notFoundError) Error() string {
	return "loyalty record not found"
}

func (e *notFoundError) Unwrap() error {
	return shared.ErrNotFound
}

// Record is a customer's loyalty balance
type Record struct {
	CustomerID    uuid.UUID
	TotalPoints   int64
	CurrentPoints int64
	LifetimeSpent decimal.Decimal
	LastEarnedAt  *time.Time
}

// PointsFor returns the points earned for an order total: one point per
// whole currency unit, never negative
func PointsFor(total decimal.Decimal) int64 {
	if !total.IsPositive() {
		return 0
	}
	return total.Floor().IntPart()
}

// SpendFor returns the amount added to lifetime spend for an order total
func SpendFor(total decimal.Decimal) decimal.Decimal {
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// Accrual is the outcome of a completed accrual
type Accrual struct {
	CustomerID     uuid.UUID
	PointsEarned   int64
	NewTotalPoints int64
	CurrentPoints  int64
	LifetimeSpent  decimal.Decimal
	EarnedAt       time.Time
}

// NewAccrual builds an Accrual from the record as persisted after the increment
func NewAccrual(after Record, pointsEarned int64, at time.Time) Accrual {
	return Accrual{
		CustomerID:     after.CustomerID,
		PointsEarned:   pointsEarned,
		NewTotalPoints: after.TotalPoints,
		CurrentPoints:  after.CurrentPoints,
		LifetimeSpent:  after.LifetimeSpent,
		EarnedAt:       at,
	}
}
