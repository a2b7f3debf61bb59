package loyalty

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store persists loyalty records
type Store interface {
	// Get returns the record of a customer, or ErrRecordNotFound
	Get(ctx context.Context, customerID uuid.UUID) (*Record, error)

	// Increment atomically adds points to both point counters and spend to the
	// lifetime spend, stamps the earned time and returns the updated record.
	// Returns ErrRecordNotFound if the customer has no record.
	Increment(ctx context.Context, customerID uuid.UUID, points int64, spend decimal.Decimal, at time.Time) (Record, error)
}
