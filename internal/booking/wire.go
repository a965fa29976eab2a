package booking

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ServiceID marshals as a JSON number when it is a canonical integer, which is how the
// booking API keys its hotels, and as a string otherwise ("007", "+7", "tour-xcaret").
type ServiceID string

func (id ServiceID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Request is the body of POST /bookings.
type Request struct {
	ServiceID       ServiceID      `json:"service_id"`
	ServiceKind     ServiceKind    `json:"service_kind"`
	HotelID         ServiceID      `json:"hotel_id,omitempty"`
	CheckIn         string         `json:"check_in,omitempty"`
	CheckOut        string         `json:"check_out,omitempty"`
	Date            string         `json:"date,omitempty"`
	Guests          *int           `json:"guests,omitempty"`
	Rooms           *int           `json:"rooms,omitempty"`
	Adults          *int           `json:"adults,omitempty"`
	Children        *int           `json:"children,omitempty"`
	Persons         *int           `json:"persons,omitempty"`
	TicketType      string         `json:"ticket_type,omitempty"`
	Riders          *int           `json:"riders,omitempty"`
	SpecialRequests *string        `json:"special_requests,omitempty"`
	AddonServices   []AddonService `json:"addon_services,omitempty"`
}

// NewRequest serializes the parameters relevant to the service kind.
func NewRequest(s Service, p Params, c Catalog) Request {
	r := Request{
		ServiceID:   ServiceID(s.ID),
		ServiceKind: p.Kind,
	}
	if sr := strings.TrimSpace(p.SpecialRequests); sr != "" {
		r.SpecialRequests = &sr
	}
	switch p.Kind {
	case KindHotel:
		r.HotelID = ServiceID(s.ID)
		r.CheckIn = FormatDate(p.CheckIn)
		r.CheckOut = FormatDate(p.CheckOut)
		r.Guests = intp(p.Party.Guests)
		r.Rooms = intp(p.Party.Rooms)
		for _, a := range c.Addons {
			if p.HasAddon(a.Name) {
				r.AddonServices = append(r.AddonServices, a)
			}
		}
	case KindTour:
		r.Date = FormatDate(p.Date)
		r.Adults = intp(p.Party.Adults)
		r.Children = intp(p.Party.Children)
	case KindCenote:
		r.Persons = intp(p.Party.Persons)
		r.TicketType = p.Party.TicketType
	case KindHorseback:
		r.Riders = intp(p.Party.Riders)
	}
	return r
}

func intp(v int) *int { return &v }

// Confirmation is the booking summary returned by the booking API on success.
type Confirmation struct {
	Reference   string  `json:"reference"`
	TotalPrice  float64 `json:"total_price"`
	Status      string  `json:"status"`
	ServiceName string  `json:"service_name"`
	CheckIn     string  `json:"check_in,omitempty"`
	CheckOut    string  `json:"check_out,omitempty"`
	Date        string  `json:"date,omitempty"`
}
