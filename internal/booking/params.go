package booking

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Party holds head counts. Which fields matter depends on the ServiceKind.
type Party struct {
	Guests     int    `json:"guests,omitempty"`
	Rooms      int    `json:"rooms,omitempty"`
	Adults     int    `json:"adults,omitempty"`
	Children   int    `json:"children,omitempty"`
	Persons    int    `json:"persons,omitempty"`
	TicketType string `json:"ticket_type,omitempty"`
	Riders     int    `json:"riders,omitempty"`
}

// Params is the mutable input of one form session.
// Dates are calendar days at UTC midnight; the zero time means "not set".
type Params struct {
	Kind            ServiceKind    `json:"kind"`
	CheckIn         time.Time      `json:"-"`
	CheckOut        time.Time      `json:"-"`
	Date            time.Time      `json:"-"`
	Party           Party          `json:"party"`
	Addons          []AddonService `json:"addons,omitempty"`
	SpecialRequests string         `json:"special_requests,omitempty"`
}

// DefaultParams mirrors the initial values of the booking forms.
func DefaultParams(kind ServiceKind) Params {
	p := Params{Kind: kind}
	switch kind {
	case KindHotel:
		p.Party.Guests = 2
		p.Party.Rooms = 1
	case KindTour:
		p.Party.Adults = 1
	case KindCenote:
		p.Party.Persons = 1
		p.Party.TicketType = TicketGeneral
	case KindHorseback:
		p.Party.Riders = 1
	}
	return p
}

// MarshalJSON writes the dates as YYYY-MM-DD and leaves out the unset ones.
func (p Params) MarshalJSON() ([]byte, error) {
	type plain Params
	return json.Marshal(struct {
		plain
		CheckIn  string `json:"check_in,omitempty"`
		CheckOut string `json:"check_out,omitempty"`
		Date     string `json:"date,omitempty"`
	}{plain(p), FormatDate(p.CheckIn), FormatDate(p.CheckOut), FormatDate(p.Date)})
}

func (p Params) HasAddon(name string) bool {
	for _, a := range p.Addons {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with p.
func (p Params) Clone() Params {
	out := p
	if p.Addons != nil {
		out.Addons = append([]AddonService(nil), p.Addons...)
	}
	return out
}

// ParseDate parses YYYY-MM-DD. An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

// FormatDate is the inverse of ParseDate.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
