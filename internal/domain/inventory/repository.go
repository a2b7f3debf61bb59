package inventory

import (
	"context"

	"github.com/fashun/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrNegativeQuantity is returned by a Store when an adjustment would leave
// a stock row below zero
var ErrNegativeQuantity = shared.NewDomainError("NEGATIVE_QUANTITY", "Inventory quantity cannot be negative")

// AdjustFunc computes the new quantity from the current row.
// It may be called more than once if the store retries after a conflict.
type AdjustFunc func(current Record) (int64, error)

// Store is the catalog-owned inventory persistence.
// Implementations must serialize Apply per product so concurrent
// adjustments never observe the same starting quantity.
type Store interface {
	// Get returns the stock row of a product, or an error wrapping shared.ErrNotFound
	Get(ctx context.Context, productID uuid.UUID) (*Record, error)

	// Apply performs an atomic read-modify-write of one product's quantity and
	// returns the row before and after the write
	Apply(ctx context.Context, productID uuid.UUID, fn AdjustFunc) (before, after Record, err error)
}
