package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fashun/backend/internal/domain/inventory"
	"github.com/fashun/backend/internal/domain/loyalty"
	"github.com/fashun/backend/internal/domain/notification"
	"github.com/fashun/backend/internal/domain/order"
	"github.com/fashun/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// fakeGateway records every request and fails, panics or blocks per type
type fakeGateway struct {
	mu       sync.Mutex
	requests []notification.Request
	failures map[notification.Type]error
	panics   map[notification.Type]bool
	failAll  error
	release  chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		failures: make(map[notification.Type]error),
		panics:   make(map[notification.Type]bool),
	}
}

func (g *fakeGateway) Send(ctx context.Context, req notification.Request) error {
	if g.release != nil {
		<-g.release
	}
	g.mu.Lock()
	g.requests = append(g.requests, req)
	fail := g.failures[req.Type]
	shouldPanic := g.panics[req.Type]
	failAll := g.failAll
	g.mu.Unlock()

	if shouldPanic {
		panic("template engine crashed")
	}
	if failAll != nil {
		return failAll
	}
	return fail
}

func (g *fakeGateway) sent(t notification.Type) []notification.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	result := make([]notification.Request, 0)
	for _, req := range g.requests {
		if req.Type == t {
			result = append(result, req)
		}
	}
	return result
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// fakeInventory reports a normal adjustment per line unless told otherwise
type fakeInventory struct {
	mu         sync.Mutex
	decrements int
	restores   int
	state      inventory.StockState
	reason     string
}

func (f *fakeInventory) adjust(items []order.OrderItem, dir inventory.Direction) []inventory.Adjustment {
	state := f.state
	if state == "" {
		state = inventory.StockStateNormal
	}
	adjs := make([]inventory.Adjustment, 0, len(items))
	for _, item := range items {
		adjs = append(adjs, inventory.Adjustment{
			ProductID: item.ProductID,
			Direction: dir,
			Requested: item.Quantity,
			Current:   item.Quantity,
			State:     state,
			Reason:    f.reason,
		})
	}
	return adjs
}

func (f *fakeInventory) Decrement(ctx context.Context, items []order.OrderItem) []inventory.Adjustment {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decrements++
	if err := ctx.Err(); err != nil {
		return f.failed(items, inventory.DirectionDecrement, err)
	}
	return f.adjust(items, inventory.DirectionDecrement)
}

// failed mimics a store whose queries are aborted by a done context
func (f *fakeInventory) failed(items []order.OrderItem, dir inventory.Direction, err error) []inventory.Adjustment {
	adjs := make([]inventory.Adjustment, 0, len(items))
	for _, item := range items {
		adjs = append(adjs, inventory.Adjustment{
			ProductID: item.ProductID,
			Direction: dir,
			Requested: item.Quantity,
			State:     inventory.StockStateFailed,
			Reason:    err.Error(),
		})
	}
	return adjs
}

func (f *fakeInventory) Restore(ctx context.Context, items []order.OrderItem) []inventory.Adjustment {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restores++
	return f.adjust(items, inventory.DirectionRestore)
}

func (f *fakeInventory) calls() (decrements, restores int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decrements, f.restores
}

// fakeLoyalty credits floor(total) points on top of a running balance
type fakeLoyalty struct {
	mu      sync.Mutex
	calls   int
	balance int64
	err     error
}

func (f *fakeLoyalty) Accrue(ctx context.Context, customerID uuid.UUID, total decimal.Decimal) (*loyalty.Accrual, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	points := loyalty.PointsFor(total)
	f.balance += points
	return &loyalty.Accrual{
		CustomerID:     customerID,
		PointsEarned:   points,
		NewTotalPoints: f.balance,
		CurrentPoints:  f.balance,
		LifetimeSpent:  total,
		EarnedAt:       fixedNow,
	}, nil
}

func (f *fakeLoyalty) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	offers []notification.Request
}

func (s *recordingSink) Offer(ctx context.Context, req notification.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers = append(s.offers, req)
	return nil
}

// memoryIdempotency is a map-backed idempotency store
type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: make(map[string]bool)}
}

func (s *memoryIdempotency) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memoryIdempotency) IsProcessed(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], s.err
}

func (s *memoryIdempotency) Close() error {
	return nil
}

var errGatewayDown = errors.New("notification service unavailable")

func testOrder() order.Order {
	customerID := uuid.New()
	return order.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-1001",
		Items: []order.OrderItem{
			{ProductID: uuid.New(), ProductName: "Linen Shirt", Quantity: 2, UnitPrice: decimal.RequireFromString("24.50")},
			{ProductID: uuid.New(), ProductName: "Canvas Tote", Quantity: 1, UnitPrice: decimal.RequireFromString("0.99")},
		},
		Status:        order.StatusPending,
		PaymentStatus: order.PaymentStatusPending,
		CustomerID:    &customerID,
		CustomerEmail: "asha@example.com",
		CustomerName:  "Asha",
		Total:         decimal.RequireFromString("49.99"),
		Currency:      "INR",
		CreatedAt:     fixedNow,
		UpdatedAt:     fixedNow,
	}
}

// transition returns a copy of o with a new status and payment status
func transition(o order.Order, status order.Status, payment order.PaymentStatus) order.Order {
	next := o
	next.Status = status
	next.PaymentStatus = payment
	return next
}
