package booking

import (
	"fmt"
	"strings"
)

// ServiceKind selects the pricing rule applied to a form session.
type ServiceKind string

const (
	KindHotel     ServiceKind = "hotel"
	KindTour      ServiceKind = "tour"
	KindCenote    ServiceKind = "cenote"
	KindHorseback ServiceKind = "horseback"
)

var kindAliases = map[string]ServiceKind{
	"hotel":     KindHotel,
	"hotels":    KindHotel,
	"tour":      KindTour,
	"tours":     KindTour,
	"cenote":    KindCenote,
	"cenotes":   KindCenote,
	"horseback": KindHorseback,
	"caballos":  KindHorseback,
}

// ParseKind accepts the canonical names plus the catalog aliases the marketplace uses.
func ParseKind(s string) (ServiceKind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown service kind %q", s)
	}
	return k, nil
}

func (k ServiceKind) Valid() bool {
	_, ok := pricingRules[k]
	return ok
}

func (k ServiceKind) String() string { return string(k) }

// Service is the identity of the thing being booked, supplied by the caller.
type Service struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Kind      ServiceKind `json:"kind"`
	BasePrice float64     `json:"base_price"`
}
