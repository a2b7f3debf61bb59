package order

import (
	"sort"
	"time"

	"github.com/fashun/backend/internal/domain/notification"
)

// ActionKind is the closed set of side effects an order event can require
type ActionKind int

const (
	ActionNotify ActionKind = iota + 1
	ActionScheduleNotify
	ActionDecrementInventory
	ActionRestoreInventory
	ActionAccrueLoyalty
	ActionFlagRefund
)

// String returns the action name used in reports and logs
func (k ActionKind) String() string {
	switch k {
	case ActionNotify:
		return "notify"
	case ActionScheduleNotify:
		return "schedule_notify"
	case ActionDecrementInventory:
		return "decrement_inventory"
	case ActionRestoreInventory:
		return "restore_inventory"
	case ActionAccrueLoyalty:
		return "accrue_loyalty"
	case ActionFlagRefund:
		return "flag_refund"
	}
	return "unknown"
}

// Phase orders actions within a single event
type Phase int

const (
	PhasePrimaryNotification Phase = iota + 1
	PhaseInventory
	PhaseLoyalty
	PhaseDerived
)

// Phase returns the execution phase of the action kind
func (k ActionKind) Phase() Phase {
	switch k {
	case ActionNotify:
		return PhasePrimaryNotification
	case ActionDecrementInventory, ActionRestoreInventory:
		return PhaseInventory
	case ActionAccrueLoyalty:
		return PhaseLoyalty
	}
	return PhaseDerived
}

// Guard restricts an action to orders satisfying a condition
type Guard int

const (
	GuardNone Guard = iota
	GuardPaid
	GuardHasCustomer
	GuardHasItems
)

// Allows reports whether o satisfies the guard
func (g Guard) Allows(o *Order) bool {
	switch g {
	case GuardPaid:
		return o.IsPaid()
	case GuardHasCustomer:
		return o.HasCustomer()
	case GuardHasItems:
		return o.HasItems()
	}
	return true
}

// Trigger records which part of the mutation planned an action
type Trigger string

const (
	TriggerCreated  Trigger = "created"
	TriggerStatus   Trigger = "status"
	TriggerPayment  Trigger = "payment"
	TriggerTracking Trigger = "tracking"
)

// ReviewRequestDelay is how long after delivery the review request is sent
const ReviewRequestDelay = 3 * 24 * time.Hour

// Action is one tagged side effect. Notification is set for the notify kinds,
// Delay only for ActionScheduleNotify.
type Action struct {
	Kind         ActionKind
	Notification notification.Type
	Delay        time.Duration
	Guard        Guard
	Trigger      Trigger
}

// Key identifies the action within an event. Two actions with the same key
// are the same side effect.
func (a Action) Key() string {
	switch a.Kind {
	case ActionNotify, ActionScheduleNotify:
		return a.Kind.String() + ":" + string(a.Notification)
	}
	return a.Kind.String()
}

// Phase returns the execution phase of the action
func (a Action) Phase() Phase {
	return a.Kind.Phase()
}

func notify(t notification.Type) Action {
	return Action{Kind: ActionNotify, Notification: t}
}

func scheduleNotify(t notification.Type, delay time.Duration) Action {
	return Action{Kind: ActionScheduleNotify, Notification: t, Delay: delay}
}

func guarded(kind ActionKind, guard Guard) Action {
	return Action{Kind: kind, Guard: guard}
}

var creationActions = []Action{
	notify(notification.TypeOrderConfirmation),
	guarded(ActionDecrementInventory, GuardHasItems),
	guarded(ActionAccrueLoyalty, GuardHasCustomer),
}

var statusActions = map[Status][]Action{
	StatusPending:    nil,
	StatusProcessing: nil,
	StatusShipped: {
		notify(notification.TypeOrderShipped),
	},
	StatusDelivered: {
		notify(notification.TypeOrderDelivered),
		scheduleNotify(notification.TypeReviewRequest, ReviewRequestDelay),
	},
	StatusCancelled: {
		notify(notification.TypeOrderCancelled),
		guarded(ActionRestoreInventory, GuardHasItems),
		guarded(ActionFlagRefund, GuardPaid),
	},
	StatusRefunded: {
		notify(notification.TypeOrderRefunded),
	},
}

var paymentActions = map[PaymentStatus][]Action{
	PaymentStatusPending:           nil,
	PaymentStatusPaid:              {notify(notification.TypePaymentConfirmed)},
	PaymentStatusFailed:            {notify(notification.TypePaymentFailed)},
	PaymentStatusRefunded:          {notify(notification.TypePaymentRefunded)},
	PaymentStatusPartiallyRefunded: nil,
}

// ActionsForStatus returns the unguarded actions for entering status s
func ActionsForStatus(s Status) []Action {
	return append([]Action(nil), statusActions[s]...)
}

// ActionsForPaymentStatus returns the unguarded actions for entering payment status s
func ActionsForPaymentStatus(s PaymentStatus) []Action {
	return append([]Action(nil), paymentActions[s]...)
}

// Plan is the ordered set of actions an event requires
type Plan struct {
	Actions []Action
}

// Len returns the number of planned actions
func (p Plan) Len() int {
	return len(p.Actions)
}

// IsEmpty returns true if nothing needs to happen
func (p Plan) IsEmpty() bool {
	return len(p.Actions) == 0
}

// Contains reports whether an action with the given kind and notification type is planned
func (p Plan) Contains(kind ActionKind, typ notification.Type) bool {
	for _, a := range p.Actions {
		if a.Kind == kind && a.Notification == typ {
			return true
		}
	}
	return false
}

// Has reports whether an action of kind is planned
func (p Plan) Has(kind ActionKind) bool {
	for _, a := range p.Actions {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// InPhase returns the planned actions of one phase, in plan order
func (p Plan) InPhase(phase Phase) []Action {
	result := make([]Action, 0)
	for _, a := range p.Actions {
		if a.Phase() == phase {
			result = append(result, a)
		}
	}
	return result
}

// Keys returns the action keys in plan order
func (p Plan) Keys() []string {
	keys := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		keys[i] = a.Key()
	}
	return keys
}

func (p *Plan) add(o *Order, trigger Trigger, actions ...Action) {
	for _, a := range actions {
		if !a.Guard.Allows(o) {
			continue
		}
		if p.hasKey(a.Key()) {
			continue
		}
		a.Trigger = trigger
		p.Actions = append(p.Actions, a)
	}
}

func (p *Plan) hasKey(key string) bool {
	for _, a := range p.Actions {
		if a.Key() == key {
			return true
		}
	}
	return false
}

func (p *Plan) sortByPhase() {
	sort.SliceStable(p.Actions, func(i, j int) bool {
		return p.Actions[i].Phase() < p.Actions[j].Phase()
	})
}

// Classify maps an order event to the actions it requires.
//
// On update the status table and the payment table are evaluated
// independently, then the tracking-number trigger. A status or payment
// status whose previous value is unknown counts as changed, so the
// customer-facing notification for the new value still fires.
// The same side effect is never planned twice for one event.
func Classify(e OrderEvent) Plan {
	var plan Plan
	current := e.Current

	if e.Kind == EventKindCreated {
		plan.add(&current, TriggerCreated, creationActions...)
		plan.sortByPhase()
		return plan
	}

	if e.StatusChanged() {
		plan.add(&current, TriggerStatus, statusActions[current.Status]...)
	}
	if e.PaymentStatusChanged() {
		plan.add(&current, TriggerPayment, paymentActions[current.PaymentStatus]...)
	}
	if e.TrackingAdded() {
		plan.add(&current, TriggerTracking, notify(notification.TypeOrderShipped))
	}

	plan.sortByPhase()
	return plan
}
