package mayaapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ListingKind names the two kinds of listing that wait for admin approval.
type ListingKind string

const (
	Hotels     ListingKind = "hotels"
	Businesses ListingKind = "businesses"
)

func ParseListingKind(s string) (ListingKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hotel", "hotels":
		return Hotels, nil
	case "business", "businesses", "restaurant", "restaurants":
		return Businesses, nil
	}
	return "", fmt.Errorf("unknown listing kind %q", s)
}

type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(s))); d {
	case Approve, Reject:
		return d, nil
	}
	return "", fmt.Errorf("decision must be approve or reject, got %q", s)
}

// Listing is a hotel or business waiting for approval.
type Listing struct {
	ID         int64       `json:"id"`
	Kind       ListingKind `json:"kind"`
	Name       string      `json:"name"`
	Location   string      `json:"location"`
	Status     string      `json:"status"`
	OwnerEmail string      `json:"owner_email"`
	CreatedAt  string      `json:"created_at"`
}

type wireListing struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Location   string `json:"location"`
	Status     string `json:"status"`
	OwnerEmail string `json:"owner_email"`
	CreatedAt  string `json:"created_at"`
	Owner      *struct {
		OwnerEmail string `json:"owner_email"`
	} `json:"owner"`
}

// decodeListings accepts both {"hotels": [...]} / {"businesses": [...]} and a bare array.
func decodeListings(kind ListingKind, body []byte) ([]Listing, error) {
	var rows []wireListing
	if err := json.Unmarshal(body, &rows); err != nil {
		var wrapped map[string]json.RawMessage
		if err2 := json.Unmarshal(body, &wrapped); err2 != nil {
			return nil, err
		}
		raw, ok := wrapped[string(kind)]
		if !ok {
			return nil, fmt.Errorf("%s list missing", kind)
		}
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, err
		}
	}
	out := make([]Listing, 0, len(rows))
	for _, r := range rows {
		l := Listing{
			ID: r.ID, Kind: kind, Name: r.Name, Location: r.Location,
			Status: r.Status, OwnerEmail: r.OwnerEmail, CreatedAt: r.CreatedAt,
		}
		if l.OwnerEmail == "" && r.Owner != nil {
			l.OwnerEmail = r.Owner.OwnerEmail
		}
		out = append(out, l)
	}
	return out, nil
}

// Pending lists the listings of kind still waiting for a decision. Admin only.
func (c *Client) Pending(ctx context.Context, token string, kind ListingKind) ([]Listing, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	op := "pending_" + string(kind)
	res, err := c.do(ctx, op, http.MethodGet, fmt.Sprintf("/admin/%s/pending", kind), token, nil)
	if err != nil {
		return nil, err
	}
	if !res.ok() {
		return nil, rejected(res)
	}
	out, err := decodeListings(kind, res.body)
	if err != nil {
		return nil, malformed(op, err)
	}
	return out, nil
}

// Decide approves or rejects a pending listing. notes is sent with rejections.
func (c *Client) Decide(ctx context.Context, token string, kind ListingKind, id int64, d Decision, notes string) error {
	if err := requireToken(token); err != nil {
		return err
	}
	var in any
	if d == Reject {
		body := map[string]string{}
		if n := strings.TrimSpace(notes); n != "" {
			body["admin_notes"] = n
		}
		in = body
	}
	res, err := c.do(ctx, string(d), http.MethodPut, fmt.Sprintf("/admin/%s/%d/%s", kind, id, d), token, in)
	if err != nil {
		return err
	}
	if !res.ok() {
		return rejected(res)
	}
	return nil
}
