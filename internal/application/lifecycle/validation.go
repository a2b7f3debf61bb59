package lifecycle

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/fashun/backend/internal/domain/order"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidEvent is returned when an order event is structurally malformed.
// It is the only error the entry points return.
var ErrInvalidEvent = errors.New("invalid order event")

// EventValidator checks the shape of order events before any side effect runs
type EventValidator struct {
	validate *validator.Validate
}

// NewEventValidator creates a validator that reports JSON field names
func NewEventValidator() *EventValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &EventValidator{validate: v}
}

// Validate returns an error wrapping ErrInvalidEvent if e cannot be handled
func (v *EventValidator) Validate(e order.OrderEvent) error {
	switch e.Kind {
	case order.EventKindCreated:
		if e.Previous != nil {
			return fmt.Errorf("%w: created event carries a previous snapshot", ErrInvalidEvent)
		}
	case order.EventKindUpdated:
	default:
		return fmt.Errorf("%w: unknown event kind %q", ErrInvalidEvent, e.Kind)
	}

	if err := v.validateOrder("current", &e.Current); err != nil {
		return err
	}
	if e.Previous != nil {
		if err := v.validateOrder("previous", e.Previous); err != nil {
			return err
		}
		if e.Previous.ID != e.Current.ID {
			return fmt.Errorf("%w: previous snapshot belongs to order %s, not %s",
				ErrInvalidEvent, e.Previous.ID, e.Current.ID)
		}
	}
	return nil
}

func (v *EventValidator) validateOrder(which string, o *order.Order) error {
	err := v.validate.Struct(o)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %s order: %v", ErrInvalidEvent, which, err)
	}
	fields := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s order: %s", ErrInvalidEvent, which, strings.Join(fields, ", "))
}
