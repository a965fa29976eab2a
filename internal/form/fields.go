package form

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/mayabook/internal/booking"
)

// Field names a settable booking parameter. Values match the request's JSON keys.
type Field string

const (
	FieldCheckIn         Field = "check_in"
	FieldCheckOut        Field = "check_out"
	FieldDate            Field = "date"
	FieldGuests          Field = "guests"
	FieldRooms           Field = "rooms"
	FieldAdults          Field = "adults"
	FieldChildren        Field = "children"
	FieldPersons         Field = "persons"
	FieldTicketType      Field = "ticket_type"
	FieldRiders          Field = "riders"
	FieldSpecialRequests Field = "special_requests"
)

var kindFields = map[booking.ServiceKind][]Field{
	booking.KindHotel:     {FieldCheckIn, FieldCheckOut, FieldGuests, FieldRooms, FieldSpecialRequests},
	booking.KindTour:      {FieldDate, FieldAdults, FieldChildren, FieldSpecialRequests},
	booking.KindCenote:    {FieldPersons, FieldTicketType, FieldSpecialRequests},
	booking.KindHorseback: {FieldRiders, FieldSpecialRequests},
}

// Fields lists the fields a form for kind accepts.
func Fields(kind booking.ServiceKind) []Field {
	return append([]Field(nil), kindFields[kind]...)
}

func applies(kind booking.ServiceKind, f Field) bool {
	for _, k := range kindFields[kind] {
		if k == f {
			return true
		}
	}
	return false
}

// SetField parses value and assigns it to field. It is the entry point for shells
// that only have strings (HTML forms, CLI flags).
func (c *Controller) SetField(field Field, value string) error {
	switch field {
	case FieldCheckIn, FieldCheckOut, FieldDate:
		d, err := booking.ParseDate(value)
		if err != nil {
			return err
		}
		switch field {
		case FieldCheckIn:
			return c.SetCheckIn(d)
		case FieldCheckOut:
			return c.SetCheckOut(d)
		default:
			return c.SetDate(d)
		}
	case FieldGuests, FieldRooms, FieldAdults, FieldChildren, FieldPersons, FieldRiders:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: %q is not a whole number", field, value)
		}
		return c.setCount(field, n)
	case FieldTicketType:
		return c.SetTicketType(strings.TrimSpace(value))
	case FieldSpecialRequests:
		return c.SetSpecialRequests(value)
	default:
		return fmt.Errorf("unknown field %q", field)
	}
}

func (c *Controller) SetCheckIn(d time.Time) error {
	return c.mutate(FieldCheckIn, func(p *booking.Params) error { p.CheckIn = d; return nil })
}

func (c *Controller) SetCheckOut(d time.Time) error {
	return c.mutate(FieldCheckOut, func(p *booking.Params) error { p.CheckOut = d; return nil })
}

func (c *Controller) SetDate(d time.Time) error {
	return c.mutate(FieldDate, func(p *booking.Params) error { p.Date = d; return nil })
}

func (c *Controller) SetGuests(n int) error   { return c.setCount(FieldGuests, n) }
func (c *Controller) SetRooms(n int) error    { return c.setCount(FieldRooms, n) }
func (c *Controller) SetAdults(n int) error   { return c.setCount(FieldAdults, n) }
func (c *Controller) SetChildren(n int) error { return c.setCount(FieldChildren, n) }
func (c *Controller) SetPersons(n int) error  { return c.setCount(FieldPersons, n) }
func (c *Controller) SetRiders(n int) error   { return c.setCount(FieldRiders, n) }

func (c *Controller) SetTicketType(key string) error {
	return c.mutate(FieldTicketType, func(p *booking.Params) error {
		if _, ok := c.catalog.Ticket(key); !ok {
			return fmt.Errorf("unknown ticket type %q", key)
		}
		p.Party.TicketType = key
		return nil
	})
}

func (c *Controller) SetSpecialRequests(s string) error {
	return c.mutate(FieldSpecialRequests, func(p *booking.Params) error { p.SpecialRequests = s; return nil })
}

func (c *Controller) setCount(field Field, n int) error {
	return c.mutate(field, func(p *booking.Params) error {
		if n < 0 {
			return fmt.Errorf("%s cannot be negative", field)
		}
		switch field {
		case FieldGuests:
			p.Party.Guests = n
		case FieldRooms:
			p.Party.Rooms = n
		case FieldAdults:
			p.Party.Adults = n
		case FieldChildren:
			p.Party.Children = n
		case FieldPersons:
			p.Party.Persons = n
		case FieldRiders:
			p.Party.Riders = n
		}
		return nil
	})
}
