package booking

import (
	"fmt"
	"math"
	"time"
)

// ChildRateFactor is the share of the adult rate charged for a child on a tour.
const ChildRateFactor = 0.6

type LineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Itinerary is derived from Params and never stored.
type Itinerary struct {
	Items []LineItem `json:"items"`
	Total float64    `json:"total"`
}

type pricingRule func(p Params, s Service, c Catalog) []LineItem

// Adding a service kind means adding one entry here.
var pricingRules = map[ServiceKind]pricingRule{
	KindHotel:     priceHotel,
	KindTour:      priceTour,
	KindCenote:    priceCenote,
	KindHorseback: priceHorseback,
}

// Build prices p. It never fails: incomplete parameters produce an empty itinerary.
func Build(p Params, s Service, c Catalog) Itinerary {
	rule, ok := pricingRules[p.Kind]
	if !ok {
		return Itinerary{Items: []LineItem{}}
	}
	items := rule(p, s, c)
	if items == nil {
		items = []LineItem{}
	}
	var total float64
	for _, it := range items {
		total += it.Amount
	}
	return Itinerary{Items: items, Total: total}
}

// Nights counts the nights between two calendar dates, rounding partial days up.
func Nights(checkIn, checkOut time.Time) int {
	if checkIn.IsZero() || checkOut.IsZero() {
		return 0
	}
	return int(math.Ceil(checkOut.Sub(checkIn).Hours() / 24))
}

func priceHotel(p Params, s Service, c Catalog) []LineItem {
	if p.CheckIn.IsZero() || p.CheckOut.IsZero() {
		return nil
	}
	var items []LineItem
	rooms := p.Party.Rooms
	if rooms >= 1 {
		nightly := s.BasePrice * float64(rooms)
		for i := 0; i < Nights(p.CheckIn, p.CheckOut); i++ {
			items = append(items, LineItem{
				Description: fmt.Sprintf("Night %d (%d %s)", i+1, rooms, plural(rooms, "room", "rooms")),
				Amount:      nightly,
			})
		}
	}
	for _, a := range c.Addons {
		if p.HasAddon(a.Name) {
			items = append(items, LineItem{Description: a.Name, Amount: a.Price})
		}
	}
	return items
}

func priceTour(p Params, s Service, _ Catalog) []LineItem {
	if p.Party.Adults < 1 || p.Party.Children < 0 {
		return nil
	}
	items := []LineItem{{
		Description: fmt.Sprintf("Adults (%d × %.2f)", p.Party.Adults, s.BasePrice),
		Amount:      float64(p.Party.Adults) * s.BasePrice,
	}}
	if p.Party.Children > 0 {
		childRate := s.BasePrice * ChildRateFactor
		items = append(items, LineItem{
			Description: fmt.Sprintf("Children (%d × %.2f)", p.Party.Children, childRate),
			Amount:      float64(p.Party.Children) * childRate,
		})
	}
	return items
}

func priceCenote(p Params, _ Service, c Catalog) []LineItem {
	t, ok := c.Ticket(p.Party.TicketType)
	if !ok || p.Party.Persons < 1 {
		return nil
	}
	return []LineItem{{
		Description: fmt.Sprintf("%s (%d × %.2f)", t.Name, p.Party.Persons, t.Price),
		Amount:      float64(p.Party.Persons) * t.Price,
	}}
}

func priceHorseback(p Params, s Service, _ Catalog) []LineItem {
	if p.Party.Riders < 1 {
		return nil
	}
	return []LineItem{{
		Description: fmt.Sprintf("Riders (%d × %.2f)", p.Party.Riders, s.BasePrice),
		Amount:      float64(p.Party.Riders) * s.BasePrice,
	}}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// FormatAmount renders a currency value for display. Arithmetic never rounds before this.
func FormatAmount(v float64) string {
	return fmt.Sprintf("$%.2f MXN", v)
}
