package web

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/example/mayabook/internal/booking"
	"github.com/example/mayabook/internal/form"
	"github.com/example/mayabook/internal/metrics"
)

var ErrNoSession = errors.New("form session not found")

// NewController builds the controller behind a new form session.
type NewController func(sessionID string, svc booking.Service) (*form.Controller, error)

type formSession struct {
	ctl      *form.Controller
	lastUsed time.Time
}

// Registry holds the open form sessions. Sessions share nothing with each other.
type Registry struct {
	build NewController
	ttl   time.Duration
	log   logrus.FieldLogger
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*formSession
}

func NewRegistry(build NewController, ttl time.Duration, log logrus.FieldLogger) *Registry {
	return &Registry{
		build:    build,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
		sessions: map[string]*formSession{},
	}
}

func (r *Registry) Create(svc booking.Service) (string, *form.Controller, error) {
	id := uuid.NewString()
	ctl, err := r.build(id, svc)
	if err != nil {
		return "", nil, err
	}
	r.mu.Lock()
	r.sessions[id] = &formSession{ctl: ctl, lastUsed: r.now()}
	n := len(r.sessions)
	r.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	return id, ctl, nil
}

// Get returns the session's controller and marks it as used.
func (r *Registry) Get(id string) (*form.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNoSession
	}
	s.lastUsed = r.now()
	return s.ctl, nil
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Reap drops sessions idle for longer than the TTL. Sessions mid-submission are kept.
func (r *Registry) Reap() int {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	dropped := 0
	for id, s := range r.sessions {
		if s.lastUsed.Before(cutoff) && s.ctl.State() != form.Submitting {
			delete(r.sessions, id)
			dropped++
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	return dropped
}

// Run reaps idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if n := r.Reap(); n > 0 {
				r.log.WithField("reaped", n).Info("dropped idle form sessions")
			}
		}
	}
}
