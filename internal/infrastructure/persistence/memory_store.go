package persistence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fashun/backend/internal/domain/inventory"
	"github.com/fashun/backend/internal/domain/loyalty"
	"github.com/fashun/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InMemoryInventoryStore is an inventory.Store for local runs and tests.
// Apply serializes per product; adjustments to different products proceed
// in parallel.
type InMemoryInventoryStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]inventory.Record
	rows    map[uuid.UUID]*sync.Mutex
	now     func() time.Time
}

// NewInMemoryInventoryStore creates an empty in-memory inventory store
func NewInMemoryInventoryStore() *InMemoryInventoryStore {
	return &InMemoryInventoryStore{
		records: make(map[uuid.UUID]inventory.Record),
		rows:    make(map[uuid.UUID]*sync.Mutex),
		now:     time.Now,
	}
}

// row returns the lock of one product, creating it on first use
func (s *InMemoryInventoryStore) row(productID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.rows[productID]
	if !ok {
		lock = &sync.Mutex{}
		s.rows[productID] = lock
	}
	return lock
}

// Save inserts or replaces a stock row
func (s *InMemoryInventoryStore) Save(_ context.Context, record inventory.Record) error {
	row := s.row(record.ProductID)
	row.Lock()
	defer row.Unlock()

	s.mu.Lock()
	s.records[record.ProductID] = record
	s.mu.Unlock()
	return nil
}

// Get returns the stock row of a product
func (s *InMemoryInventoryStore) Get(_ context.Context, productID uuid.UUID) (*inventory.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[productID]
	if !ok {
		return nil, fmt.Errorf("inventory for product %s: %w", productID, shared.ErrNotFound)
	}
	return &record, nil
}

// Apply computes and stores the new quantity while holding the product's lock
func (s *InMemoryInventoryStore) Apply(_ context.Context, productID uuid.UUID, fn inventory.AdjustFunc) (before, after inventory.Record, err error) {
	row := s.row(productID)
	row.Lock()
	defer row.Unlock()

	s.mu.Lock()
	before, ok := s.records[productID]
	s.mu.Unlock()
	if !ok {
		return inventory.Record{}, inventory.Record{}, fmt.Errorf("inventory for product %s: %w", productID, shared.ErrNotFound)
	}

	quantity, err := fn(before)
	if err != nil {
		return inventory.Record{}, inventory.Record{}, err
	}
	if quantity < 0 {
		return inventory.Record{}, inventory.Record{}, inventory.ErrNegativeQuantity
	}

	after = before
	after.Quantity = quantity
	after.UpdatedAt = s.now()

	s.mu.Lock()
	s.records[productID] = after
	s.mu.Unlock()
	return before, after, nil
}

// InMemoryLoyaltyStore is a loyalty.Store for local runs and tests
type InMemoryLoyaltyStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]loyalty.Record
}

// NewInMemoryLoyaltyStore creates an empty in-memory loyalty store
func NewInMemoryLoyaltyStore() *InMemoryLoyaltyStore {
	return &InMemoryLoyaltyStore{records: make(map[uuid.UUID]loyalty.Record)}
}

// Save inserts or replaces a loyalty record
func (s *InMemoryLoyaltyStore) Save(_ context.Context, record loyalty.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.CustomerID] = record
	return nil
}

// Get returns the loyalty record of a customer
func (s *InMemoryLoyaltyStore) Get(_ context.Context, customerID uuid.UUID) (*loyalty.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[customerID]
	if !ok {
		return nil, loyalty.ErrRecordNotFound
	}
	return &record, nil
}

// Increment adds points and spend to a customer's record
func (s *InMemoryLoyaltyStore) Increment(_ context.Context, customerID uuid.UUID, points int64, spend decimal.Decimal, at time.Time) (loyalty.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[customerID]
	if !ok {
		return loyalty.Record{}, loyalty.ErrRecordNotFound
	}
	record.TotalPoints += points
	record.CurrentPoints += points
	record.LifetimeSpent = record.LifetimeSpent.Add(spend)
	earned := at
	record.LastEarnedAt = &earned
	s.records[customerID] = record
	return record, nil
}

var (
	_ inventory.Store = (*InMemoryInventoryStore)(nil)
	_ loyalty.Store   = (*InMemoryLoyaltyStore)(nil)
)
