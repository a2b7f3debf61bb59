package order

import (
	"github.com/fashun/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeOrder is the aggregate type of order events
const AggregateTypeOrder = "Order"

// EventTypeRefundRequested is raised when a paid order is cancelled
const EventTypeRefundRequested = "RefundRequested"

// RefundRequestedEvent flags a cancelled, paid order for refund processing.
// The engine only raises the flag; moving money is someone else's job.
type RefundRequestedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
}

// EventType returns the event type name
func (e *RefundRequestedEvent) EventType() string {
	return EventTypeRefundRequested
}

// NewRefundRequestedEvent creates the refund flag for o
func NewRefundRequestedEvent(o *Order) *RefundRequestedEvent {
	return &RefundRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRefundRequested, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		Amount:          o.Total,
		Currency:        o.CurrencyCode(),
	}
}
