// Package order holds the read-only order snapshot the lifecycle engine
// reacts to, and the table that maps status transitions to side effects.
package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the fulfilment status of an order
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is expected
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusRefunded
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Cancelled and refunded are reachable from any non-terminal state.
func (s Status) CanTransitionTo(target Status) bool {
	if s.IsTerminal() {
		return false
	}
	if target == StatusCancelled || target == StatusRefunded {
		return true
	}
	switch s {
	case StatusPending:
		return target == StatusProcessing
	case StatusProcessing:
		return target == StatusShipped
	case StatusShipped:
		return target == StatusDelivered
	}
	return false
}

// PaymentStatus is tracked independently of Status
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusPartiallyRefunded:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the payment status can move to target
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return target == PaymentStatusPaid || target == PaymentStatusFailed
	case PaymentStatusPaid:
		return target == PaymentStatusRefunded || target == PaymentStatusPartiallyRefunded || target == PaymentStatusFailed
	case PaymentStatusPartiallyRefunded:
		return target == PaymentStatusRefunded
	}
	return false
}

// OrderItem is a line of an order. Immutable once the order is placed.
type OrderItem struct {
	ProductID   uuid.UUID       `json:"product_id" validate:"required"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int64           `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Order is a snapshot of a customer order as persisted by the commerce system
type Order struct {
	ID                uuid.UUID       `json:"id" validate:"required"`
	OrderNumber       string          `json:"order_number" validate:"required,max=100"`
	Items             []OrderItem     `json:"items" validate:"dive"`
	Status            Status          `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled refunded"`
	PaymentStatus     PaymentStatus   `json:"payment_status" validate:"required,oneof=pending paid failed refunded partially_refunded"`
	TrackingNumber    string          `json:"tracking_number,omitempty"`
	Carrier           string          `json:"carrier,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	CustomerID        *uuid.UUID      `json:"customer_id,omitempty"`
	CustomerEmail     string          `json:"customer_email" validate:"omitempty,email"`
	CustomerName      string          `json:"customer_name,omitempty"`
	Total             decimal.Decimal `json:"total"`
	Currency          string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// DefaultCurrency is used when an order carries no currency code
const DefaultCurrency = "INR"

// DefaultCustomerName is used in templates when the customer has no name
const DefaultCustomerName = "Valued Customer"

// HasCustomer reports whether a customer account is attached
func (o *Order) HasCustomer() bool {
	return o.CustomerID != nil && *o.CustomerID != uuid.Nil
}

// HasItems reports whether the order carries at least one line
func (o *Order) HasItems() bool {
	return len(o.Items) > 0
}

// HasTracking reports whether a tracking number is set
func (o *Order) HasTracking() bool {
	return o.TrackingNumber != ""
}

// IsPaid reports whether payment has been captured
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// CurrencyCode returns the order currency or DefaultCurrency
func (o *Order) CurrencyCode() string {
	if o.Currency == "" {
		return DefaultCurrency
	}
	return o.Currency
}

// DisplayName returns the customer name used in notification templates
func (o *Order) DisplayName() string {
	if o.CustomerName == "" {
		return DefaultCustomerName
	}
	return o.CustomerName
}

// TotalQuantity returns the sum of item quantities
func (o *Order) TotalQuantity() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}
