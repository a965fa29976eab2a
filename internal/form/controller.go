// Package form owns the parameters of one booking form session: it reprices on every
// change, validates before submitting, and drives a single submission at a time.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/example/mayabook/internal/booking"
	"github.com/sirupsen/logrus"
)

type State string

const (
	Editing    State = "editing"
	Submitting State = "submitting"
	Confirmed  State = "confirmed"
)

var (
	ErrSubmitInProgress = errors.New("a submission is already in progress")
	ErrBusy             = errors.New("the form cannot change while it is being submitted")
	ErrClosed           = errors.New("the booking is already confirmed")
)

// Submitter sends a booking request to the booking service.
type Submitter interface {
	Submit(ctx context.Context, token string, req booking.Request) (booking.Confirmation, error)
}

// Credentials supplies the bearer token at submit time.
type Credentials interface {
	CurrentToken(ctx context.Context) (string, bool)
}

type Controller struct {
	service   booking.Service
	catalog   booking.Catalog
	submitter Submitter
	creds     Credentials
	onChange  func(booking.Itinerary)
	log       logrus.FieldLogger

	mu           sync.Mutex
	params       booking.Params
	itinerary    booking.Itinerary
	state        State
	lastErr      *booking.Failure
	confirmation *booking.Confirmation
}

type Option func(*Controller)

// WithCatalog replaces the default add-on and ticket catalog.
func WithCatalog(c booking.Catalog) Option { return func(ctl *Controller) { ctl.catalog = c } }

// WithObserver registers fn to receive every recomputed itinerary.
func WithObserver(fn func(booking.Itinerary)) Option {
	return func(ctl *Controller) { ctl.onChange = fn }
}

func WithLogger(l logrus.FieldLogger) Option { return func(ctl *Controller) { ctl.log = l } }

func New(service booking.Service, submitter Submitter, creds Credentials, opts ...Option) (*Controller, error) {
	if !service.Kind.Valid() {
		return nil, fmt.Errorf("unsupported service kind %q", service.Kind)
	}
	if submitter == nil {
		return nil, errors.New("submitter is nil")
	}
	c := &Controller{
		service:   service,
		catalog:   booking.DefaultCatalog(),
		submitter: submitter,
		creds:     creds,
		log:       logrus.StandardLogger(),
		params:    booking.DefaultParams(service.Kind),
		state:     Editing,
	}
	for _, o := range opts {
		o(c)
	}
	c.itinerary = booking.Build(c.params, c.service, c.catalog)
	return c, nil
}

func (c *Controller) Service() booking.Service { return c.service }
func (c *Controller) Catalog() booking.Catalog { return c.catalog }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Itinerary() booking.Itinerary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyItinerary(c.itinerary)
}

func (c *Controller) Params() booking.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params.Clone()
}

// Err returns the failure attached to the session, or nil.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastErr == nil {
		return nil
	}
	return c.lastErr
}

// ToggleAddon selects the named add-on if absent and removes it if present.
func (c *Controller) ToggleAddon(name string) error {
	if c.service.Kind != booking.KindHotel {
		return fmt.Errorf("add-ons are only offered for hotel bookings")
	}
	addon, ok := c.catalog.Addon(name)
	if !ok {
		return fmt.Errorf("unknown add-on %q", name)
	}
	return c.mutate("", func(p *booking.Params) error {
		for i, a := range p.Addons {
			if a.Name == name {
				p.Addons = append(p.Addons[:i], p.Addons[i+1:]...)
				return nil
			}
		}
		p.Addons = append(p.Addons, addon)
		return nil
	})
}

// ValidateForSubmit reports whether the current parameters may be submitted.
func (c *Controller) ValidateForSubmit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return booking.Validate(c.params, c.itinerary)
}

// Submit validates and, when valid, sends the booking. Invalid parameters never reach
// the network. While a submission is running, further calls get ErrSubmitInProgress.
func (c *Controller) Submit(ctx context.Context) (booking.Confirmation, error) {
	c.mu.Lock()
	switch c.state {
	case Submitting:
		c.mu.Unlock()
		return booking.Confirmation{}, ErrSubmitInProgress
	case Confirmed:
		c.mu.Unlock()
		return booking.Confirmation{}, ErrClosed
	}
	if err := booking.Validate(c.params, c.itinerary); err != nil {
		c.lastErr = asFailure(err)
		c.mu.Unlock()
		return booking.Confirmation{}, c.lastErr
	}
	req := booking.NewRequest(c.service, c.params, c.catalog)
	c.state = Submitting
	c.lastErr = nil
	c.mu.Unlock()

	var (
		conf booking.Confirmation
		err  = errors.New("submission aborted")
	)
	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.state = Editing
			c.lastErr = asFailure(err)
			return
		}
		c.state = Confirmed
		c.confirmation = &conf
	}()

	var token string
	if c.creds != nil {
		token, _ = c.creds.CurrentToken(ctx)
	}
	conf, err = c.submitter.Submit(ctx, token, req)

	entry := c.log.WithFields(logrus.Fields{"service_id": c.service.ID, "kind": c.service.Kind})
	if err != nil {
		kind, _ := booking.KindOf(err)
		entry.WithField("error_kind", kind).Warnf("booking submission failed: %v", err)
		return booking.Confirmation{}, asFailure(err)
	}
	entry.WithField("reference", conf.Reference).Info("booking confirmed")
	return conf, nil
}

// Snapshot is a consistent, render-ready copy of the session.
type Snapshot struct {
	Service      booking.Service       `json:"service"`
	Params       booking.Params        `json:"params"`
	Itinerary    booking.Itinerary     `json:"itinerary"`
	State        State                 `json:"state"`
	Error        string                `json:"error,omitempty"`
	ErrorKind    booking.ErrorKind     `json:"error_kind,omitempty"`
	Confirmation *booking.Confirmation `json:"confirmation,omitempty"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Service:   c.service,
		Params:    c.params.Clone(),
		Itinerary: copyItinerary(c.itinerary),
		State:     c.state,
	}
	if c.lastErr != nil {
		s.Error = c.lastErr.Reason
		s.ErrorKind = c.lastErr.Kind
	}
	if c.confirmation != nil {
		conf := *c.confirmation
		s.Confirmation = &conf
	}
	return s
}

// mutate applies fn to a copy of the parameters and, on success, reprices and
// notifies the observer. field is checked against the service kind when set.
func (c *Controller) mutate(field Field, fn func(p *booking.Params) error) error {
	if field != "" && !applies(c.service.Kind, field) {
		return fmt.Errorf("%s does not apply to %s bookings", field, c.service.Kind)
	}
	c.mu.Lock()
	switch c.state {
	case Submitting:
		c.mu.Unlock()
		return ErrBusy
	case Confirmed:
		c.mu.Unlock()
		return ErrClosed
	}
	next := c.params.Clone()
	if err := fn(&next); err != nil {
		c.mu.Unlock()
		return err
	}
	c.params = next
	c.itinerary = booking.Build(c.params, c.service, c.catalog)
	it := copyItinerary(c.itinerary)
	observer := c.onChange
	c.mu.Unlock()

	if observer != nil {
		observer(it)
	}
	return nil
}

func asFailure(err error) *booking.Failure {
	var f *booking.Failure
	if errors.As(err, &f) {
		return f
	}
	return &booking.Failure{Kind: booking.ConnectionError, Reason: err.Error(), Err: err}
}

func copyItinerary(it booking.Itinerary) booking.Itinerary {
	return booking.Itinerary{Items: append([]booking.LineItem{}, it.Items...), Total: it.Total}
}
