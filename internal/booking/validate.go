package booking

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate reports whether p, priced as it, may be submitted.
// Selected add-ons never make parameters invalid.
func Validate(p Params, it Itinerary) error {
	var err error
	switch p.Kind {
	case KindHotel:
		err = validateHotel(p)
	case KindTour:
		err = validateTour(p)
	case KindCenote:
		err = firstErr(
			check(p.Party.Persons, "min=1", "at least one person is required"),
			check(p.Party.TicketType, "required", "a ticket type is required"),
		)
	case KindHorseback:
		err = check(p.Party.Riders, "min=1", "at least one rider is required")
	default:
		err = Invalid("unknown service kind")
	}
	if err != nil {
		return err
	}
	if it.Total <= 0 {
		return Invalid("nothing to charge: the booking is incomplete")
	}
	return nil
}

func validateHotel(p Params) error {
	if p.CheckIn.IsZero() || p.CheckOut.IsZero() {
		return Invalid("check-in and check-out dates are required")
	}
	if !p.CheckOut.After(p.CheckIn) {
		return Invalid("check-out must be after check-in")
	}
	return firstErr(
		check(p.Party.Guests, "min=1,max=10", "guests must be between 1 and 10"),
		check(p.Party.Rooms, "min=1,max=5", "rooms must be between 1 and 5"),
	)
}

func validateTour(p Params) error {
	if p.Party.Adults < 1 {
		return Invalid("at least one adult is required")
	}
	if p.Date.IsZero() {
		return Invalid("a tour date is required")
	}
	return check(p.Party.Children, "min=0", "children cannot be negative")
}

func check(v any, tag, reason string) error {
	if err := validate.Var(v, tag); err != nil {
		return &Failure{Kind: ValidationFailed, Reason: reason, Err: err}
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
