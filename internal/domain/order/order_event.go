package order

import (
	"time"

	"github.com/google/uuid"
)

// EventKind distinguishes order creation from later mutations
type EventKind string

const (
	EventKindCreated EventKind = "created"
	EventKindUpdated EventKind = "updated"
)

// OrderEvent describes one order mutation. Previous is nil on creation,
// and on update when the before-snapshot could not be captured.
// Events are passed by value and never mutated while being handled.
type OrderEvent struct {
	ID         uuid.UUID
	Kind       EventKind
	Previous   *Order
	Current    Order
	OccurredAt time.Time
}

// NewCreatedEvent builds the event for a freshly placed order
func NewCreatedEvent(current Order) OrderEvent {
	return OrderEvent{
		ID:         uuid.New(),
		Kind:       EventKindCreated,
		Current:    current,
		OccurredAt: time.Now(),
	}
}

// NewUpdatedEvent builds the event for a mutation of an existing order.
// The previous snapshot is copied so later changes by the caller do not leak in.
func NewUpdatedEvent(previous *Order, current Order) OrderEvent {
	var prev *Order
	if previous != nil {
		snapshot := *previous
		prev = &snapshot
	}
	return OrderEvent{
		ID:         uuid.New(),
		Kind:       EventKindUpdated,
		Previous:   prev,
		Current:    current,
		OccurredAt: time.Now(),
	}
}

// PreviousKnown reports whether a before-snapshot is available
func (e OrderEvent) PreviousKnown() bool {
	return e.Previous != nil
}

// StatusChanged reports whether the fulfilment status moved.
// An unknown previous snapshot counts as a change.
func (e OrderEvent) StatusChanged() bool {
	if e.Previous == nil {
		return true
	}
	return e.Previous.Status != e.Current.Status
}

// PaymentStatusChanged reports whether the payment status moved.
// An unknown previous snapshot counts as a change.
func (e OrderEvent) PaymentStatusChanged() bool {
	if e.Previous == nil {
		return true
	}
	return e.Previous.PaymentStatus != e.Current.PaymentStatus
}

// TrackingAdded reports whether a tracking number appeared where there was none
func (e OrderEvent) TrackingAdded() bool {
	if !e.Current.HasTracking() {
		return false
	}
	return e.Previous == nil || !e.Previous.HasTracking()
}

// PreviousStatus returns the before-status, or an empty Status when unknown
func (e OrderEvent) PreviousStatus() Status {
	if e.Previous == nil {
		return ""
	}
	return e.Previous.Status
}

// PreviousPaymentStatus returns the before payment status, or empty when unknown
func (e OrderEvent) PreviousPaymentStatus() PaymentStatus {
	if e.Previous == nil {
		return ""
	}
	return e.Previous.PaymentStatus
}
