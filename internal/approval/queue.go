// Package approval keeps the admin's list of listings waiting for a decision.
package approval

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/example/mayabook/internal/auth"
	"github.com/example/mayabook/internal/booking"
	"github.com/example/mayabook/internal/mayaapi"
	"github.com/example/mayabook/internal/optimistic"
)

type API interface {
	Pending(ctx context.Context, token string, kind mayaapi.ListingKind) ([]mayaapi.Listing, error)
	Decide(ctx context.Context, token string, kind mayaapi.ListingKind, id int64, d mayaapi.Decision, notes string) error
}

var kinds = []mayaapi.ListingKind{mayaapi.Hotels, mayaapi.Businesses}

type Queue struct {
	api   API
	creds auth.CredentialProvider
	log   logrus.FieldLogger
	lists map[mayaapi.ListingKind]*optimistic.Value[[]mayaapi.Listing]
}

func NewQueue(api API, creds auth.CredentialProvider, log logrus.FieldLogger) *Queue {
	q := &Queue{
		api:   api,
		creds: creds,
		log:   log,
		lists: make(map[mayaapi.ListingKind]*optimistic.Value[[]mayaapi.Listing], len(kinds)),
	}
	for _, k := range kinds {
		q.lists[k] = optimistic.NewValue([]mayaapi.Listing{})
	}
	return q
}

func (q *Queue) token(ctx context.Context) (string, error) {
	tok, ok := q.creds.CurrentToken(ctx)
	if !ok {
		return "", booking.Fail(booking.Unauthenticated, "you need to sign in first")
	}
	return tok, nil
}

// Refresh reloads every pending list from the API.
func (q *Queue) Refresh(ctx context.Context) error {
	for _, k := range kinds {
		if err := q.refresh(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// RefreshKind reloads one pending list.
func (q *Queue) RefreshKind(ctx context.Context, kind mayaapi.ListingKind) error {
	if _, ok := q.lists[kind]; !ok {
		return fmt.Errorf("unknown listing kind %q", kind)
	}
	return q.refresh(ctx, kind)
}

func (q *Queue) refresh(ctx context.Context, kind mayaapi.ListingKind) error {
	tok, err := q.token(ctx)
	if err != nil {
		return err
	}
	items, err := q.api.Pending(ctx, tok, kind)
	if err != nil {
		return fmt.Errorf("load pending %s: %w", kind, err)
	}
	q.lists[kind].Set(items)
	return nil
}

// List returns a copy of the pending listings of kind.
func (q *Queue) List(kind mayaapi.ListingKind) []mayaapi.Listing {
	v, ok := q.lists[kind]
	if !ok {
		return nil
	}
	return append([]mayaapi.Listing{}, v.Get()...)
}

func (q *Queue) Total() int {
	n := 0
	for _, v := range q.lists {
		n += len(v.Get())
	}
	return n
}

// Decide removes the listing from the queue right away and asks the API to record
// the decision. If the API refuses, the listing comes back. On success the list is
// reloaded so it reflects what the server now holds.
func (q *Queue) Decide(ctx context.Context, kind mayaapi.ListingKind, id int64, d mayaapi.Decision, notes string) error {
	v, ok := q.lists[kind]
	if !ok {
		return fmt.Errorf("unknown listing kind %q", kind)
	}
	tok, err := q.token(ctx)
	if err != nil {
		return err
	}

	entry := q.log.WithFields(logrus.Fields{"kind": kind, "id": id, "decision": d})
	err = optimistic.Do(ctx, v,
		func(cur []mayaapi.Listing) []mayaapi.Listing {
			out := make([]mayaapi.Listing, 0, len(cur))
			for _, l := range cur {
				if l.ID != id {
					out = append(out, l)
				}
			}
			return out
		},
		func(ctx context.Context) error {
			return q.api.Decide(ctx, tok, kind, id, d, notes)
		})
	if err != nil {
		entry.WithError(err).Warn("approval decision rolled back")
		return err
	}
	entry.Info("approval decision recorded")

	if err := q.refresh(ctx, kind); err != nil {
		entry.WithError(err).Warn("reload after decision failed")
	}
	return nil
}
