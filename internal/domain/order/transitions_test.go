package order

import (
	"testing"

	"github.com/fashun/backend/internal/domain/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionTables_CoverEveryStatus(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded} {
		_, ok := statusActions[s]
		assert.True(t, ok, "status %s has no entry", s)
	}
	assert.Len(t, statusActions, 6)

	for _, s := range []PaymentStatus{PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusPartiallyRefunded} {
		_, ok := paymentActions[s]
		assert.True(t, ok, "payment status %s has no entry", s)
	}
	assert.Len(t, paymentActions, 5)
}

func TestActionsForStatus_ReturnsCopy(t *testing.T) {
	actions := ActionsForStatus(StatusDelivered)
	require.Len(t, actions, 2)
	actions[0].Kind = ActionFlagRefund

	assert.Equal(t, ActionNotify, statusActions[StatusDelivered][0].Kind)
}

func TestClassify_Created(t *testing.T) {
	o := newTestOrder()

	plan := Classify(NewCreatedEvent(o))

	assert.Equal(t, []string{
		"notify:order_confirmation",
		"decrement_inventory",
		"accrue_loyalty",
	}, plan.Keys())
	for _, a := range plan.Actions {
		assert.Equal(t, TriggerCreated, a.Trigger)
	}

	t.Run("guest order without items", func(t *testing.T) {
		guest := newTestOrder()
		guest.CustomerID = nil
		guest.Items = nil

		plan := Classify(NewCreatedEvent(guest))
		assert.Equal(t, []string{"notify:order_confirmation"}, plan.Keys())
	})
}

func TestClassify_StatusTable(t *testing.T) {
	tests := []struct {
		name     string
		from     Status
		to       Status
		paid     bool
		expected []string
	}{
		{"processing is informational", StatusPending, StatusProcessing, false, []string{}},
		{"shipped", StatusProcessing, StatusShipped, false, []string{"notify:order_shipped"}},
		{"delivered", StatusShipped, StatusDelivered, false, []string{"notify:order_delivered", "schedule_notify:review_request"}},
		{"cancelled unpaid", StatusProcessing, StatusCancelled, false, []string{"notify:order_cancelled", "restore_inventory"}},
		{"cancelled paid", StatusProcessing, StatusCancelled, true, []string{"notify:order_cancelled", "restore_inventory", "flag_refund"}},
		{"refunded", StatusDelivered, StatusRefunded, false, []string{"notify:order_refunded"}},
		{"unchanged", StatusShipped, StatusShipped, false, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := newTestOrder()
			prev.Status = tt.from
			if tt.paid {
				prev.PaymentStatus = PaymentStatusPaid
			}
			cur := prev
			cur.Status = tt.to

			plan := Classify(NewUpdatedEvent(&prev, cur))
			assert.Equal(t, tt.expected, plan.Keys())
		})
	}
}

func TestClassify_PaymentTable(t *testing.T) {
	tests := []struct {
		from     PaymentStatus
		to       PaymentStatus
		expected []string
	}{
		{PaymentStatusPending, PaymentStatusPaid, []string{"notify:payment_confirmed"}},
		{PaymentStatusPending, PaymentStatusFailed, []string{"notify:payment_failed"}},
		{PaymentStatusPaid, PaymentStatusRefunded, []string{"notify:payment_refunded"}},
		{PaymentStatusPaid, PaymentStatusPartiallyRefunded, []string{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			prev := newTestOrder()
			prev.PaymentStatus = tt.from
			cur := prev
			cur.PaymentStatus = tt.to

			plan := Classify(NewUpdatedEvent(&prev, cur))
			assert.Equal(t, tt.expected, plan.Keys())
			for _, a := range plan.Actions {
				assert.Equal(t, TriggerPayment, a.Trigger)
			}
		})
	}
}

func TestClassify_StatusAndPaymentInOneUpdate(t *testing.T) {
	prev := newTestOrder()
	prev.Status = StatusProcessing
	prev.PaymentStatus = PaymentStatusPaid
	cur := prev
	cur.Status = StatusCancelled
	cur.PaymentStatus = PaymentStatusRefunded

	plan := Classify(NewUpdatedEvent(&prev, cur))

	// the refund guard sees the current snapshot, which is no longer paid
	assert.Equal(t, []string{
		"notify:order_cancelled",
		"notify:payment_refunded",
		"restore_inventory",
	}, plan.Keys())
}

func TestClassify_TrackingTrigger(t *testing.T) {
	t.Run("tracking added without status change", func(t *testing.T) {
		prev := newTestOrder()
		prev.Status = StatusProcessing
		cur := prev
		cur.TrackingNumber = "TRK1"
		cur.Carrier = "ups"

		plan := Classify(NewUpdatedEvent(&prev, cur))
		require.Equal(t, []string{"notify:order_shipped"}, plan.Keys())
		assert.Equal(t, TriggerTracking, plan.Actions[0].Trigger)
	})

	t.Run("status shipped and tracking added in one update yield one notification", func(t *testing.T) {
		prev := newTestOrder()
		prev.Status = StatusProcessing
		cur := prev
		cur.Status = StatusShipped
		cur.TrackingNumber = "TRK1"
		cur.Carrier = "ups"

		plan := Classify(NewUpdatedEvent(&prev, cur))
		require.Equal(t, []string{"notify:order_shipped"}, plan.Keys())
		assert.Equal(t, TriggerStatus, plan.Actions[0].Trigger)
	})

	t.Run("existing tracking number does not retrigger", func(t *testing.T) {
		prev := newTestOrder()
		prev.Status = StatusShipped
		prev.TrackingNumber = "TRK1"
		cur := prev
		cur.TrackingNumber = "TRK2"

		plan := Classify(NewUpdatedEvent(&prev, cur))
		assert.True(t, plan.IsEmpty())
	})
}

func TestClassify_UnknownPrevious(t *testing.T) {
	cur := newTestOrder()
	cur.Status = StatusDelivered
	cur.PaymentStatus = PaymentStatusPaid

	plan := Classify(NewUpdatedEvent(nil, cur))

	assert.True(t, plan.Contains(ActionNotify, notification.TypeOrderDelivered))
	assert.True(t, plan.Contains(ActionScheduleNotify, notification.TypeReviewRequest))
	assert.True(t, plan.Contains(ActionNotify, notification.TypePaymentConfirmed))
}

func TestClassify_PhaseOrdering(t *testing.T) {
	prev := newTestOrder()
	prev.Status = StatusProcessing
	prev.PaymentStatus = PaymentStatusPaid
	cur := prev
	cur.Status = StatusCancelled
	cur.TrackingNumber = "TRK9"

	plan := Classify(NewUpdatedEvent(&prev, cur))

	assert.Equal(t, []string{
		"notify:order_cancelled",
		"notify:order_shipped",
		"restore_inventory",
		"flag_refund",
	}, plan.Keys())
	for i := 1; i < plan.Len(); i++ {
		assert.LessOrEqual(t, plan.Actions[i-1].Phase(), plan.Actions[i].Phase())
	}
	assert.Len(t, plan.InPhase(PhasePrimaryNotification), 2)
	assert.Len(t, plan.InPhase(PhaseInventory), 1)
	assert.Len(t, plan.InPhase(PhaseDerived), 1)
}

func TestAction_Key(t *testing.T) {
	assert.Equal(t, "notify:order_shipped", notify(notification.TypeOrderShipped).Key())
	assert.Equal(t, "schedule_notify:review_request", scheduleNotify(notification.TypeReviewRequest, ReviewRequestDelay).Key())
	assert.Equal(t, "flag_refund", guarded(ActionFlagRefund, GuardPaid).Key())
	assert.Equal(t, "unknown", ActionKind(99).String())
}
