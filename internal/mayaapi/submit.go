package mayaapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/example/mayabook/internal/booking"
	"github.com/example/mayabook/internal/metrics"
)

// confirmedBooking accepts both the snake_case keys the API sends and the camelCase
// spelling some deployments use.
type confirmedBooking struct {
	Reference        string   `json:"reference"`
	BookingReference string   `json:"booking_reference"`
	BookingRefCamel  string   `json:"bookingReference"`
	TotalPrice       *float64 `json:"total_price"`
	TotalPriceCamel  *float64 `json:"totalPrice"`
	Status           string   `json:"status"`
	ServiceName      string   `json:"service_name"`
	ServiceNameCamel string   `json:"serviceName"`
	HotelName        string   `json:"hotel_name"`
	HotelNameCamel   string   `json:"hotelName"`
	CheckIn          string   `json:"check_in"`
	CheckInCamel     string   `json:"checkIn"`
	CheckOut         string   `json:"check_out"`
	CheckOutCamel    string   `json:"checkOut"`
	Date             string   `json:"date"`
}

func (b confirmedBooking) confirmation() (booking.Confirmation, error) {
	c := booking.Confirmation{
		Reference:   first(b.BookingReference, b.Reference, b.BookingRefCamel),
		Status:      b.Status,
		ServiceName: first(b.ServiceName, b.HotelName, b.ServiceNameCamel, b.HotelNameCamel),
		CheckIn:     first(b.CheckIn, b.CheckInCamel),
		CheckOut:    first(b.CheckOut, b.CheckOutCamel),
		Date:        b.Date,
	}
	switch {
	case c.Reference == "":
		return c, errors.New("booking reference missing")
	case c.Status == "":
		return c, errors.New("booking status missing")
	}
	if b.TotalPrice != nil {
		c.TotalPrice = *b.TotalPrice
	} else if b.TotalPriceCamel != nil {
		c.TotalPrice = *b.TotalPriceCamel
	} else {
		return c, errors.New("total price missing")
	}
	return c, nil
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Submit posts req and normalizes the outcome. Without a token nothing is sent.
// Failures are *booking.Failure values; there is no automatic retry.
func (c *Client) Submit(ctx context.Context, token string, req booking.Request) (booking.Confirmation, error) {
	conf, err := c.submit(ctx, token, req)
	result := "confirmed"
	if err != nil {
		kind, _ := booking.KindOf(err)
		result = string(kind)
	}
	metrics.Submissions.WithLabelValues(string(req.ServiceKind), result).Inc()
	return conf, err
}

func (c *Client) submit(ctx context.Context, token string, req booking.Request) (booking.Confirmation, error) {
	if err := requireToken(token); err != nil {
		return booking.Confirmation{}, err
	}
	res, err := c.do(ctx, "submit", http.MethodPost, "/bookings", token, req)
	if err != nil {
		return booking.Confirmation{}, err
	}
	if !res.ok() {
		return booking.Confirmation{}, rejected(res)
	}

	var envelope struct {
		Booking *confirmedBooking `json:"booking"`
	}
	if err := json.Unmarshal(res.body, &envelope); err != nil {
		return booking.Confirmation{}, malformed("submit", err)
	}
	if envelope.Booking == nil {
		return booking.Confirmation{}, malformed("submit", errors.New("booking object missing"))
	}
	conf, err := envelope.Booking.confirmation()
	if err != nil {
		return booking.Confirmation{}, malformed("submit", err)
	}
	c.log.WithFields(logrus.Fields{"reference": conf.Reference, "total": conf.TotalPrice}).Debug("booking accepted")
	return conf, nil
}
