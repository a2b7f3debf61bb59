package lifecycle

import (
	"context"
	"fmt"

	"github.com/fashun/backend/internal/domain/order"
	"github.com/fashun/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RefundFlagHandler surfaces refund flags raised for cancelled, paid orders
type RefundFlagHandler struct {
	logger *zap.Logger
}

// NewRefundFlagHandler creates a new handler for RefundRequested events
func NewRefundFlagHandler(logger *zap.Logger) *RefundFlagHandler {
	return &RefundFlagHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *RefundFlagHandler) EventTypes() []string {
	return []string{order.EventTypeRefundRequested}
}

// Handle processes a RefundRequestedEvent
func (h *RefundFlagHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	refund, ok := event.(*order.RefundRequestedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			order.EventTypeRefundRequested, event.EventType())
	}

	h.logger.Warn("refund should be processed for cancelled order",
		zap.String("event_id", refund.EventID().String()),
		zap.String("order_id", refund.OrderID.String()),
		zap.String("order_number", refund.OrderNumber),
		zap.String("amount", refund.Amount.StringFixed(2)),
		zap.String("currency", refund.Currency),
	)
	return nil
}

var _ shared.EventHandler = (*RefundFlagHandler)(nil)
