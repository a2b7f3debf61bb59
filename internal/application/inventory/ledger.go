// Package inventory reconciles catalog stock with order lines and raises
// alerts when stock crosses its thresholds.
package inventory

import (
	"context"

	"github.com/fashun/backend/internal/domain/inventory"
	"github.com/fashun/backend/internal/domain/order"
	"github.com/fashun/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const reasonNoRecord = "no inventory record for product"

// Ledger applies order-driven stock adjustments.
// Each line is adjusted independently: a missing or failing product never
// aborts the rest of the batch.
type Ledger struct {
	store     inventory.Store
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewLedger creates a new inventory ledger
func NewLedger(store inventory.Store, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger,
	}
}

// WithEventPublisher sets the publisher that receives threshold events
func (l *Ledger) WithEventPublisher(publisher shared.EventPublisher) *Ledger {
	l.publisher = publisher
	return l
}

// Decrement removes the ordered quantities from stock. Quantities floor at
// zero; the uncovered remainder is reported as a shortfall.
func (l *Ledger) Decrement(ctx context.Context, items []order.OrderItem) []inventory.Adjustment {
	adjustments := make([]inventory.Adjustment, 0, len(items))
	for _, item := range items {
		qty := item.Quantity
		before, after, err := l.store.Apply(ctx, item.ProductID, func(current inventory.Record) (int64, error) {
			next, _ := inventory.DecrementQuantity(current.Quantity, qty)
			return next, nil
		})
		if err != nil {
			adjustments = append(adjustments, l.rejected(item.ProductID, inventory.DirectionDecrement, qty, err))
			continue
		}

		adj := inventory.NewDecrementAdjustment(before, after, qty)
		if adj.HasShortfall() {
			l.logger.Warn("order quantity exceeds stock on hand",
				zap.String("product_id", item.ProductID.String()),
				zap.Int64("requested", qty),
				zap.Int64("available", before.Quantity),
				zap.Int64("shortfall", adj.Shortfall),
			)
		}
		l.publish(ctx, adj)
		adjustments = append(adjustments, adj)
	}
	return adjustments
}

// Restore returns the ordered quantities to stock
func (l *Ledger) Restore(ctx context.Context, items []order.OrderItem) []inventory.Adjustment {
	adjustments := make([]inventory.Adjustment, 0, len(items))
	for _, item := range items {
		qty := item.Quantity
		before, after, err := l.store.Apply(ctx, item.ProductID, func(current inventory.Record) (int64, error) {
			return current.Quantity + qty, nil
		})
		if err != nil {
			adjustments = append(adjustments, l.rejected(item.ProductID, inventory.DirectionRestore, qty, err))
			continue
		}

		adj := inventory.NewRestoreAdjustment(before, after, qty)
		l.publish(ctx, adj)
		adjustments = append(adjustments, adj)
	}
	return adjustments
}

func (l *Ledger) rejected(productID uuid.UUID, direction inventory.Direction, qty int64, err error) inventory.Adjustment {
	if shared.IsNotFound(err) {
		l.logger.Info("skipping stock adjustment for unknown product",
			zap.String("product_id", productID.String()),
			zap.String("direction", string(direction)),
		)
		return inventory.SkippedAdjustment(productID, direction, qty, reasonNoRecord)
	}
	l.logger.Error("stock adjustment failed",
		zap.String("product_id", productID.String()),
		zap.String("direction", string(direction)),
		zap.Int64("quantity", qty),
		zap.Error(err),
	)
	return inventory.FailedAdjustment(productID, direction, qty, err.Error())
}

func (l *Ledger) publish(ctx context.Context, adj inventory.Adjustment) {
	if l.publisher == nil {
		return
	}
	events := inventory.EventsFor(adj)
	if len(events) == 0 {
		return
	}
	if err := l.publisher.Publish(ctx, events...); err != nil {
		// Alerts are advisory; the stock write already happened
		l.logger.Error("failed to publish stock events",
			zap.String("product_id", adj.ProductID.String()),
			zap.Error(err),
		)
	}
}
