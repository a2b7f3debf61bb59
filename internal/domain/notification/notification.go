// Package notification defines the boundary to the external notification
// service: typed requests and the gateway that accepts them.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type enumerates the notifications the order lifecycle can request
type Type string

const (
	TypeOrderConfirmation Type = "order_confirmation"
	TypeOrderShipped      Type = "order_shipped"
	TypeOrderDelivered    Type = "order_delivered"
	TypeOrderCancelled    Type = "order_cancelled"
	TypeOrderRefunded     Type = "order_refunded"
	TypePaymentConfirmed  Type = "payment_confirmed"
	TypePaymentFailed     Type = "payment_failed"
	TypePaymentRefunded   Type = "payment_refunded"
	TypeReviewRequest     Type = "review_request"
	TypeLoyaltyUpdate     Type = "loyalty_update"
	TypeBackInStock       Type = "back_in_stock"
)

// AllTypes returns every notification type in declaration order
func AllTypes() []Type {
	return []Type{
		TypeOrderConfirmation,
		TypeOrderShipped,
		TypeOrderDelivered,
		TypeOrderCancelled,
		TypeOrderRefunded,
		TypePaymentConfirmed,
		TypePaymentFailed,
		TypePaymentRefunded,
		TypeReviewRequest,
		TypeLoyaltyUpdate,
		TypeBackInStock,
	}
}

// IsValid returns true if t is a known notification type
func (t Type) IsValid() bool {
	for _, known := range AllTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// String returns the string representation
func (t Type) String() string {
	return string(t)
}

// Priority is the delivery priority hint passed to the gateway
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Request is a single notification handed to the gateway.
// Ownership passes to the gateway once Send returns.
type Request struct {
	Recipient      string         `json:"recipient"`
	Type           Type           `json:"type"`
	TemplateID     string         `json:"template_id"`
	TemplateData   map[string]any `json:"template_data,omitempty"`
	ScheduledAt    *time.Time     `json:"scheduled_at,omitempty"`
	Priority       Priority       `json:"priority"`
	RelatedOrderID *uuid.UUID     `json:"related_order_id,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// NewRequest creates a request with normal priority and the template id
// equal to the notification type
func NewRequest(recipient string, typ Type, data map[string]any) Request {
	if data == nil {
		data = make(map[string]any)
	}
	return Request{
		Recipient:    recipient,
		Type:         typ,
		TemplateID:   string(typ),
		TemplateData: data,
		Priority:     PriorityNormal,
	}
}

// IsScheduled reports whether delivery is deferred to a later time
func (r Request) IsScheduled() bool {
	return r.ScheduledAt != nil
}

// Gateway accepts notification requests for delivery.
// Send returns once the request has been accepted, not delivered.
type Gateway interface {
	Send(ctx context.Context, req Request) error
}

// RejectedError is returned by a gateway that refused a request
type RejectedError struct {
	Type   Type
	Reason string
}

// Error implements the error interface
func (e *RejectedError) Error() string {
	return fmt.Sprintf("notification %s rejected: %s", e.Type, e.Reason)
}

// Reject builds a RejectedError for req
func Reject(req Request, reason string) error {
	return &RejectedError{Type: req.Type, Reason: reason}
}
