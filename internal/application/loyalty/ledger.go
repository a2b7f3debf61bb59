// Package loyalty accrues loyalty points for placed orders.
package loyalty

import (
	"context"
	"fmt"
	"time"

	"github.com/fashun/backend/internal/domain/loyalty"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger accrues points against the loyalty store
type Ledger struct {
	store  loyalty.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewLedger creates a new loyalty ledger
func NewLedger(store loyalty.Store, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source used to stamp accruals
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Accrue credits floor(total) points to the customer.
// Returns loyalty.ErrRecordNotFound when the customer has no record; callers
// should treat that as a no-op.
func (l *Ledger) Accrue(ctx context.Context, customerID uuid.UUID, total decimal.Decimal) (*loyalty.Accrual, error) {
	points := loyalty.PointsFor(total)
	at := l.now()

	after, err := l.store.Increment(ctx, customerID, points, loyalty.SpendFor(total), at)
	if err != nil {
		return nil, fmt.Errorf("accrue loyalty points for customer %s: %w", customerID, err)
	}

	accrual := loyalty.NewAccrual(after, points, at)
	l.logger.Info("loyalty points earned",
		zap.String("customer_id", customerID.String()),
		zap.Int64("points_earned", accrual.PointsEarned),
		zap.Int64("total_points", accrual.NewTotalPoints),
	)
	return &accrual, nil
}
