package mayaapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/example/mayabook/internal/auth"
	"github.com/example/mayabook/internal/booking"
)

// Login exchanges credentials for an API token.
func (c *Client) Login(ctx context.Context, email, password string) (auth.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return auth.Session{}, booking.Invalid("email and password are required")
	}
	in := map[string]string{"email": email, "password": password}
	res, err := c.do(ctx, "login", http.MethodPost, "/auth/login", "", in)
	if err != nil {
		return auth.Session{}, err
	}
	if res.status == http.StatusUnauthorized {
		f := rejected(res)
		f.Kind = booking.Unauthenticated
		return auth.Session{}, f
	}
	if !res.ok() {
		return auth.Session{}, rejected(res)
	}
	var out auth.Session
	if err := json.Unmarshal(res.body, &out); err != nil {
		return auth.Session{}, malformed("login", err)
	}
	if out.Token == "" {
		return auth.Session{}, malformed("login", errors.New("token missing"))
	}
	return out, nil
}

// BookingSummary is one row of the signed-in user's booking history.
type BookingSummary struct {
	ID              int64                  `json:"id"`
	Reference       string                 `json:"booking_reference"`
	HotelName       string                 `json:"hotel_name"`
	HotelLocation   string                 `json:"hotel_location"`
	CheckIn         string                 `json:"check_in"`
	CheckOut        string                 `json:"check_out"`
	Guests          int                    `json:"guests"`
	Rooms           int                    `json:"rooms"`
	TotalPrice      float64                `json:"total_price"`
	Status          string                 `json:"status"`
	PaymentStatus   string                 `json:"payment_status"`
	SpecialRequests *string                `json:"special_requests"`
	Addons          []booking.AddonService `json:"addon_services"`
}

// Cancellable reports whether the API will still accept a cancellation.
func (b BookingSummary) Cancellable() bool { return b.Status != "cancelled" }

func (c *Client) MyBookings(ctx context.Context, token string) ([]BookingSummary, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	res, err := c.do(ctx, "my_bookings", http.MethodGet, "/bookings/my-bookings", token, nil)
	if err != nil {
		return nil, err
	}
	if !res.ok() {
		return nil, rejected(res)
	}
	var out struct {
		Bookings []BookingSummary `json:"bookings"`
	}
	if err := json.Unmarshal(res.body, &out); err != nil {
		return nil, malformed("my_bookings", err)
	}
	return out.Bookings, nil
}

// Cancel cancels one of the signed-in user's bookings. reason may be empty.
func (c *Client) Cancel(ctx context.Context, token string, id int64, reason string) error {
	if err := requireToken(token); err != nil {
		return err
	}
	in := struct {
		Reason *string `json:"reason"`
	}{}
	if r := strings.TrimSpace(reason); r != "" {
		in.Reason = &r
	}
	res, err := c.do(ctx, "cancel", http.MethodPut, fmt.Sprintf("/bookings/%d/cancel", id), token, in)
	if err != nil {
		return err
	}
	if !res.ok() {
		return rejected(res)
	}
	return nil
}
