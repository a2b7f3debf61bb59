package lifecycle

import (
	"sort"
	"time"

	"github.com/fashun/backend/internal/domain/inventory"
	"github.com/fashun/backend/internal/domain/loyalty"
	"github.com/fashun/backend/internal/domain/notification"
	"github.com/fashun/backend/internal/domain/order"
	"github.com/google/uuid"
)

// Outcome is the result of one side effect
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Entry reports one executed side effect. Action is the stable key of the
// effect within the event, e.g. "notify:order_shipped" or "restore_inventory".
type Entry struct {
	Action       string
	Kind         string
	Notification notification.Type
	Phase        order.Phase
	Outcome      Outcome
	Reason       string

	// Request is the notification handed to the gateway, if any
	Request *notification.Request
	// Adjustments holds the per-line result of an inventory action
	Adjustments []inventory.Adjustment
	// Accrual holds the result of a successful loyalty accrual
	Accrual *loyalty.Accrual

	rank rank
}

// rank orders entries deterministically regardless of completion order
type rank struct {
	phase order.Phase
	slot  int
	index int
}

func (r rank) less(other rank) bool {
	if r.phase != other.phase {
		return r.phase < other.phase
	}
	if r.slot != other.slot {
		return r.slot < other.slot
	}
	return r.index < other.index
}

// Derived entries are ordered by slot
const (
	slotPlanned = iota
	slotRefundFlag
	slotLoyaltyUpdate
	slotScheduled
	slotBackInStock
)

// Report is the per-event outcome of every side effect the event required
type Report struct {
	EventID     uuid.UUID
	EventKind   order.EventKind
	OrderID     uuid.UUID
	OrderNumber string
	Entries     []Entry
	Duration    time.Duration
}

func newReport(e order.OrderEvent, entries []Entry, duration time.Duration) *Report {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].rank.less(sorted[j].rank)
	})
	return &Report{
		EventID:     e.ID,
		EventKind:   e.Kind,
		OrderID:     e.Current.ID,
		OrderNumber: e.Current.OrderNumber,
		Entries:     sorted,
		Duration:    duration,
	}
}

// Entry returns the entry for an action key
func (r *Report) Entry(action string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Action == action {
			return e, true
		}
	}
	return Entry{}, false
}

// Outcome returns the outcome of an action key, or an empty Outcome if the
// action was not part of the event
func (r *Report) Outcome(action string) Outcome {
	e, _ := r.Entry(action)
	return e.Outcome
}

// Actions returns the action keys in report order
func (r *Report) Actions() []string {
	keys := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		keys[i] = e.Action
	}
	return keys
}

// Count returns how many entries ended with outcome o
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, e := range r.Entries {
		if e.Outcome == o {
			n++
		}
	}
	return n
}

// HasFailures reports whether any side effect failed
func (r *Report) HasFailures() bool {
	return r.Count(OutcomeFailed) > 0
}

// Notifications returns every request handed to the gateway, in report order
func (r *Report) Notifications() []notification.Request {
	result := make([]notification.Request, 0)
	for _, e := range r.Entries {
		if e.Request != nil {
			result = append(result, *e.Request)
		}
	}
	return result
}

// NotificationsOf returns the requests of one notification type
func (r *Report) NotificationsOf(t notification.Type) []notification.Request {
	result := make([]notification.Request, 0)
	for _, req := range r.Notifications() {
		if req.Type == t {
			result = append(result, req)
		}
	}
	return result
}
