// Package lifecycle turns order mutations into their side effects: customer
// notifications, stock adjustments, loyalty accrual and refund flags.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appinventory "github.com/fashun/backend/internal/application/inventory"
	"github.com/fashun/backend/internal/domain/inventory"
	"github.com/fashun/backend/internal/domain/loyalty"
	"github.com/fashun/backend/internal/domain/notification"
	"github.com/fashun/backend/internal/domain/order"
	"github.com/fashun/backend/internal/domain/shared"
	"github.com/fashun/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// InventoryLedger adjusts stock for order lines
type InventoryLedger interface {
	Decrement(ctx context.Context, items []order.OrderItem) []inventory.Adjustment
	Restore(ctx context.Context, items []order.OrderItem) []inventory.Adjustment
}

// LoyaltyLedger accrues loyalty points
type LoyaltyLedger interface {
	Accrue(ctx context.Context, customerID uuid.UUID, total decimal.Decimal) (*loyalty.Accrual, error)
}

// Orchestrator handles order events. Every side effect runs inside its own
// failure boundary; nothing an effect does can fail the event.
type Orchestrator struct {
	gateway     notification.Gateway
	inventory   InventoryLedger
	loyalty     LoyaltyLedger
	publisher   shared.EventPublisher
	backInStock appinventory.BackInStockSink
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	metrics     *telemetry.LifecycleMetrics
	validator   *EventValidator
	logger      *zap.Logger
	now         func() time.Time
	reviewDelay time.Duration
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(gateway notification.Gateway, inventoryLedger InventoryLedger, loyaltyLedger LoyaltyLedger, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		gateway:    gateway,
		inventory:  inventoryLedger,
		loyalty:    loyaltyLedger,
		idemConfig: shared.DefaultIdempotencyConfig(),
		validator:  NewEventValidator(),
		logger:     logger,
		now:        time.Now,
	}
}

// WithEventPublisher sets the publisher that receives refund flags
func (o *Orchestrator) WithEventPublisher(publisher shared.EventPublisher) *Orchestrator {
	o.publisher = publisher
	return o
}

// WithBackInStockSink sets the sink for back_in_stock candidates
func (o *Orchestrator) WithBackInStockSink(sink appinventory.BackInStockSink) *Orchestrator {
	o.backInStock = sink
	return o
}

// WithIdempotency enables at-most-once execution per event id
func (o *Orchestrator) WithIdempotency(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) *Orchestrator {
	o.idempotency = store
	o.idemConfig = cfg
	return o
}

// WithMetrics sets the lifecycle metrics
func (o *Orchestrator) WithMetrics(metrics *telemetry.LifecycleMetrics) *Orchestrator {
	o.metrics = metrics
	return o
}

// WithClock overrides the time source
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// WithReviewRequestDelay overrides how long after delivery the review request is scheduled
func (o *Orchestrator) WithReviewRequestDelay(delay time.Duration) *Orchestrator {
	o.reviewDelay = delay
	return o
}

// HandleOption configures a single Handle call
type HandleOption func(*handleOptions)

type handleOptions struct {
	eventID uuid.UUID
}

// WithEventID identifies the delivery of an event. Redeliveries carrying the
// same id skip the side effects that already ran.
func WithEventID(id uuid.UUID) HandleOption {
	return func(opts *handleOptions) {
		opts.eventID = id
	}
}

// HandleOrderCreated runs the side effects of a newly placed order
func (o *Orchestrator) HandleOrderCreated(ctx context.Context, current order.Order, opts ...HandleOption) (*Report, error) {
	return o.handle(ctx, order.NewCreatedEvent(current), opts)
}

// HandleOrderUpdated runs the side effects of an order mutation. previous is
// nil when the before-snapshot could not be captured.
func (o *Orchestrator) HandleOrderUpdated(ctx context.Context, previous *order.Order, current order.Order, opts ...HandleOption) (*Report, error) {
	return o.handle(ctx, order.NewUpdatedEvent(previous, current), opts)
}

func (o *Orchestrator) handle(ctx context.Context, e order.OrderEvent, opts []HandleOption) (*Report, error) {
	var options handleOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.eventID != uuid.Nil {
		e.ID = options.eventID
	}

	if err := o.validator.Validate(e); err != nil {
		o.logger.Error("rejected malformed order event",
			zap.String("event_id", e.ID.String()),
			zap.String("order_number", e.Current.OrderNumber),
			zap.Error(err),
		)
		return nil, err
	}

	// Effects run to completion once claimed, even if the host cancels
	ctx = context.WithoutCancel(ctx)

	start := o.now()
	ctx, span := telemetry.StartServiceSpan(ctx, "order_lifecycle", string(e.Kind),
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, e.Current.ID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrOrderNumber, e.Current.OrderNumber),
		telemetry.WithAttribute(telemetry.SpanAttrOrderStatus, string(e.Current.Status)),
	)
	defer span.End()

	plan := order.Classify(e)
	r := &eventRun{
		o:          o,
		event:      e,
		now:        start,
		idempotent: o.idempotency != nil && o.idemConfig.Enabled && options.eventID != uuid.Nil,
	}

	var g errgroup.Group
	for i, a := range plan.Actions {
		i, a := i, a
		switch a.Kind {
		case order.ActionDecrementInventory, order.ActionRestoreInventory:
			g.Go(func() error {
				r.adjustInventory(ctx, a, i)
				return nil
			})
		case order.ActionAccrueLoyalty:
			g.Go(func() error {
				r.accrueLoyalty(ctx, a, i)
				return nil
			})
		case order.ActionFlagRefund:
			g.Go(func() error {
				r.flagRefund(ctx, a, i)
				return nil
			})
		}
	}
	g.Go(func() error {
		// Notifications share one sequence so a slow gateway only delays other notifications
		for i, a := range plan.Actions {
			if a.Kind == order.ActionNotify || a.Kind == order.ActionScheduleNotify {
				r.notify(ctx, a, i)
			}
		}
		return nil
	})
	_ = g.Wait()

	report := newReport(e, r.entries, o.now().Sub(start))
	o.record(ctx, report)

	telemetry.SetAttributes(span,
		"actions", len(report.Entries),
		"failed", report.Count(OutcomeFailed),
	)
	if report.HasFailures() {
		telemetry.AddEvent(span, "side_effects_failed", "count", report.Count(OutcomeFailed))
	} else {
		telemetry.SetOK(span)
	}
	return report, nil
}

func (o *Orchestrator) record(ctx context.Context, report *Report) {
	fields := []zap.Field{
		zap.String("event_id", report.EventID.String()),
		zap.String("event_kind", string(report.EventKind)),
		zap.String("order_number", report.OrderNumber),
		zap.Strings("actions", report.Actions()),
		zap.Int("succeeded", report.Count(OutcomeSucceeded)),
		zap.Int("failed", report.Count(OutcomeFailed)),
		zap.Int("skipped", report.Count(OutcomeSkipped)),
		zap.Duration("duration", report.Duration),
	}
	if report.HasFailures() {
		o.logger.Warn("order event handled with failures", fields...)
	} else {
		o.logger.Info("order event handled", fields...)
	}

	if o.metrics == nil {
		return
	}
	o.metrics.RecordEvent(ctx, string(report.EventKind), report.Duration)
	for _, entry := range report.Entries {
		o.metrics.RecordAction(ctx, entry.Kind, string(entry.Outcome))
		for _, adj := range entry.Adjustments {
			o.metrics.RecordAdjustment(ctx, string(adj.Direction), string(adj.State))
		}
		if entry.Accrual != nil {
			o.metrics.RecordPointsEarned(ctx, entry.Accrual.PointsEarned)
		}
	}
}

// skipError marks an effect that was deliberately not performed
type skipError struct {
	reason string
}

func (e *skipError) Error() string {
	return e.reason
}

func skip(reason string) error {
	return &skipError{reason: reason}
}

const reasonAlreadyProcessed = "already processed"

// eventRun holds the state of one Handle call
type eventRun struct {
	o          *Orchestrator
	event      order.OrderEvent
	now        time.Time
	idempotent bool

	mu      sync.Mutex
	entries []Entry
}

func (r *eventRun) add(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

// run executes fn inside a failure boundary and records its outcome.
// Errors become failed, not-found and skip errors become skipped, and panics
// are recovered as failed.
func (r *eventRun) run(ctx context.Context, entry Entry, fn func(ctx context.Context, entry *Entry) error) Entry {
	if r.alreadyProcessed(ctx, entry.Action) {
		entry.Outcome = OutcomeSkipped
		entry.Reason = reasonAlreadyProcessed
		r.add(entry)
		return entry
	}

	ctx, span := telemetry.StartSpan(ctx, "order_lifecycle.action",
		telemetry.WithAttribute("action", entry.Action),
		telemetry.WithAttribute(telemetry.SpanAttrOrderNumber, r.event.Current.OrderNumber),
	)
	defer span.End()

	err := r.protect(ctx, &entry, fn)

	var skipped *skipError
	switch {
	case err == nil:
		entry.Outcome = OutcomeSucceeded
		telemetry.SetOK(span)
	case errors.As(err, &skipped), shared.IsNotFound(err):
		entry.Outcome = OutcomeSkipped
		entry.Reason = err.Error()
		telemetry.AddEvent(span, "skipped", "reason", entry.Reason)
		r.o.logger.Info("order side effect skipped",
			zap.String("order_number", r.event.Current.OrderNumber),
			zap.String("action", entry.Action),
			zap.String("reason", entry.Reason),
		)
	default:
		entry.Outcome = OutcomeFailed
		entry.Reason = err.Error()
		telemetry.RecordError(span, err)
		r.o.logger.Error("order side effect failed",
			zap.String("event_id", r.event.ID.String()),
			zap.String("order_number", r.event.Current.OrderNumber),
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}

	r.add(entry)
	return entry
}

func (r *eventRun) protect(ctx context.Context, entry *Entry, fn func(ctx context.Context, entry *Entry) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx, entry)
}

// alreadyProcessed claims the action for this event. Store failures let the
// action run: a duplicate is preferred over a dropped effect.
func (r *eventRun) alreadyProcessed(ctx context.Context, action string) bool {
	if !r.idempotent {
		return false
	}
	key := r.idempotencyKey(action)
	claimed, err := r.o.idempotency.MarkProcessed(ctx, key, r.o.idemConfig.TTL)
	if err != nil {
		r.o.logger.Warn("idempotency check failed, running action anyway",
			zap.String("key", key),
			zap.Error(err),
		)
		return false
	}
	return !claimed
}

func (r *eventRun) idempotencyKey(action string) string {
	return r.event.ID.String() + ":" + action
}

func plannedEntry(a order.Action, index int) Entry {
	return Entry{
		Action:       a.Key(),
		Kind:         a.Kind.String(),
		Notification: a.Notification,
		Phase:        a.Phase(),
		rank:         rank{phase: a.Phase(), slot: plannedSlot(a), index: index},
	}
}

func plannedSlot(a order.Action) int {
	switch a.Kind {
	case order.ActionFlagRefund:
		return slotRefundFlag
	case order.ActionScheduleNotify:
		return slotScheduled
	}
	return slotPlanned
}

func (r *eventRun) notify(ctx context.Context, a order.Action, index int) {
	current := &r.event.Current
	r.run(ctx, plannedEntry(a, index), func(ctx context.Context, entry *Entry) error {
		req := buildOrderNotification(a, current, r.now, r.o.reviewDelay)
		return r.send(ctx, entry, req)
	})
}

func (r *eventRun) send(ctx context.Context, entry *Entry, req notification.Request) error {
	if req.Recipient == "" {
		return skip("order has no customer email")
	}
	req.IdempotencyKey = r.idempotencyKey(entry.Action)
	entry.Request = &req
	return r.o.gateway.Send(ctx, req)
}

func (r *eventRun) adjustInventory(ctx context.Context, a order.Action, index int) {
	items := r.event.Current.Items
	entry := r.run(ctx, plannedEntry(a, index), func(ctx context.Context, entry *Entry) error {
		if a.Kind == order.ActionRestoreInventory {
			entry.Adjustments = r.o.inventory.Restore(ctx, items)
		} else {
			entry.Adjustments = r.o.inventory.Decrement(ctx, items)
		}
		return summarizeAdjustments(entry.Adjustments)
	})

	if r.o.backInStock == nil {
		return
	}
	for i, adj := range entry.Adjustments {
		if adj.State != inventory.StockStateBackInStock {
			continue
		}
		adj := adj
		r.run(ctx, Entry{
			Action:       "offer_back_in_stock:" + adj.ProductID.String(),
			Kind:         "offer_back_in_stock",
			Notification: notification.TypeBackInStock,
			Phase:        order.PhaseDerived,
			rank:         rank{phase: order.PhaseDerived, slot: slotBackInStock, index: i},
		}, func(ctx context.Context, entry *Entry) error {
			candidate := appinventory.BackInStockCandidate(adj, r.idempotencyKey(entry.Action))
			entry.Request = &candidate
			return r.o.backInStock.Offer(ctx, candidate)
		})
	}
}

// summarizeAdjustments maps per-line results to the outcome of the whole
// inventory action. Any failed line fails the action; an action where every
// line was skipped is skipped.
func summarizeAdjustments(adjs []inventory.Adjustment) error {
	var failed, skipped int
	var firstFailure string
	for _, adj := range adjs {
		switch adj.State {
		case inventory.StockStateFailed:
			if failed == 0 {
				firstFailure = adj.Reason
			}
			failed++
		case inventory.StockStateSkipped:
			skipped++
		}
	}
	switch {
	case failed > 0:
		return fmt.Errorf("%d of %d lines failed: %s", failed, len(adjs), firstFailure)
	case len(adjs) > 0 && skipped == len(adjs):
		return skip("no inventory record for any order line")
	}
	return nil
}

func (r *eventRun) accrueLoyalty(ctx context.Context, a order.Action, index int) {
	current := &r.event.Current
	entry := r.run(ctx, plannedEntry(a, index), func(ctx context.Context, entry *Entry) error {
		accrual, err := r.o.loyalty.Accrue(ctx, *current.CustomerID, current.Total)
		if err != nil {
			return err
		}
		entry.Accrual = accrual
		return nil
	})
	if entry.Outcome != OutcomeSucceeded || entry.Accrual == nil {
		return
	}

	accrual := entry.Accrual
	r.run(ctx, Entry{
		Action:       order.ActionNotify.String() + ":" + string(notification.TypeLoyaltyUpdate),
		Kind:         order.ActionNotify.String(),
		Notification: notification.TypeLoyaltyUpdate,
		Phase:        order.PhaseDerived,
		rank:         rank{phase: order.PhaseDerived, slot: slotLoyaltyUpdate},
	}, func(ctx context.Context, entry *Entry) error {
		return r.send(ctx, entry, buildLoyaltyNotification(current, accrual))
	})
}

func (r *eventRun) flagRefund(ctx context.Context, a order.Action, index int) {
	current := &r.event.Current
	r.run(ctx, plannedEntry(a, index), func(ctx context.Context, entry *Entry) error {
		event := order.NewRefundRequestedEvent(current)
		if r.o.publisher == nil {
			r.o.logger.Warn("refund should be processed for cancelled order",
				zap.String("order_number", current.OrderNumber),
				zap.String("amount", current.Total.StringFixed(2)),
			)
			return nil
		}
		return r.o.publisher.Publish(ctx, event)
	})
}
