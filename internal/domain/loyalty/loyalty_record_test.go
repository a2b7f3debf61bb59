package loyalty

import (
	"errors"
	"testing"
	"time"

	"github.com/fashun/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPointsFor(t *testing.T) {
	tests := []struct {
		total string
		want  int64
	}{
		{"49.99", 49},
		{"100", 100},
		{"0.99", 0},
		{"0", 0},
		{"-12.50", 0},
		{"1999.00", 1999},
	}

	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			assert.Equal(t, tt.want, PointsFor(decimal.RequireFromString(tt.total)))
		})
	}
}

func TestSpendFor(t *testing.T) {
	assert.True(t, SpendFor(decimal.RequireFromString("49.99")).Equal(decimal.RequireFromString("49.99")))
	assert.True(t, SpendFor(decimal.NewFromInt(-5)).IsZero())
}

func TestErrRecordNotFound(t *testing.T) {
	assert.True(t, errors.Is(ErrRecordNotFound, shared.ErrNotFound))
	assert.True(t, shared.IsNotFound(ErrRecordNotFound))
	assert.Equal(t, "loyalty record not found", ErrRecordNotFound.Error())
}

func TestNewAccrual(t *testing.T) {
	customerID := uuid.New()
	at := time.Now()
	after := Record{
		CustomerID:    customerID,
		TotalPoints:   149,
		CurrentPoints: 120,
		LifetimeSpent: decimal.RequireFromString("149.99"),
	}

	acc := NewAccrual(after, 49, at)

	assert.Equal(t, customerID, acc.CustomerID)
	assert.Equal(t, int64(49), acc.PointsEarned)
	assert.Equal(t, int64(149), acc.NewTotalPoints)
	assert.Equal(t, int64(120), acc.CurrentPoints)
	assert.Equal(t, at, acc.EarnedAt)
}
