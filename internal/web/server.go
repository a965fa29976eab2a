// Package web is the HTTP shell around booking form sessions.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/sirupsen/logrus"

	"github.com/example/mayabook/internal/approval"
	"github.com/example/mayabook/internal/auth"
	"github.com/example/mayabook/internal/booking"
	"github.com/example/mayabook/internal/form"
	"github.com/example/mayabook/internal/mayaapi"
	"github.com/example/mayabook/internal/metrics"
)

type Server struct {
	API      *mayaapi.Client
	Sessions *Registry
	Cookies  *auth.SessionStore
	Catalog  booking.Catalog
	Log      logrus.FieldLogger

	// Idempotency is optional.
	Idempotency    IdempotencyStore
	IdempotencyTTL time.Duration
	CORSOrigins    []string
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.Log))
	r.Use(s.Cookies.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Get("/catalog", s.handleCatalog)

	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleSessionCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleSessionGet)
			r.Delete("/", s.handleSessionDelete)
			r.Patch("/fields", s.handleSessionFields)
			r.Post("/addons/{name}", s.handleSessionAddon)
			r.With(Idempotency(s.Idempotency, s.IdempotencyTTL, s.Log)).Post("/submit", s.handleSessionSubmit)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/bookings", s.handleBookings)
		r.Post("/bookings/{id}/cancel", s.handleBookingCancel)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Get("/admin/pending", s.handleAdminPending)
		r.Post("/admin/{kind}/{id}/{decision}", s.handleAdminDecide)
	})

	if len(s.CORSOrigins) == 0 {
		return r
	}
	return gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(s.CORSOrigins),
		gorillaHandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Idempotency-Key"}),
		gorillaHandlers.AllowCredentials(),
	)(r)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	fields := map[booking.ServiceKind][]form.Field{}
	for _, k := range []booking.ServiceKind{booking.KindHotel, booking.KindTour, booking.KindCenote, booking.KindHorseback} {
		fields[k] = form.Fields(k)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"addons":  s.Catalog.Addons,
		"tickets": s.Catalog.Tickets,
		"fields":  fields,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess, err := s.API.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if err := s.Cookies.Set(w, r, sess); err != nil {
		s.Log.WithError(err).Error("set session cookie")
		writeError(w, http.StatusInternalServerError, "could not start the session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": sess.User})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Service struct {
			ID        json.Number `json:"id"`
			Name      string      `json:"name"`
			Kind      string      `json:"kind"`
			BasePrice float64     `json:"base_price"`
		} `json:"service"`
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	kind, err := booking.ParseKind(in.Service.Kind)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if in.Service.ID == "" || in.Service.BasePrice < 0 {
		writeError(w, http.StatusUnprocessableEntity, "service id and a non-negative base_price are required")
		return
	}
	svc := booking.Service{ID: in.Service.ID.String(), Name: in.Service.Name, Kind: kind, BasePrice: in.Service.BasePrice}
	id, ctl, err := s.Sessions.Create(svc)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "session": ctl.Snapshot()})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*form.Controller, bool) {
	ctl, err := s.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return ctl, true
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	if ctl, ok := s.session(w, r); ok {
		writeJSON(w, http.StatusOK, ctl.Snapshot())
	}
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if !s.Sessions.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, ErrNoSession.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionFields applies a JSON object of field values. Values may be strings or
// numbers. Fields apply in the form's own order and stop at the first error.
func (s *Server) handleSessionFields(w http.ResponseWriter, r *http.Request) {
	ctl, ok := s.session(w, r)
	if !ok {
		return
	}
	var in map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	known := form.Fields(ctl.Service().Kind)
	for name := range in {
		if !containsField(known, form.Field(name)) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error": "unknown field " + strconv.Quote(name), "field": name, "session": ctl.Snapshot(),
			})
			return
		}
	}
	for _, f := range known {
		raw, ok := in[string(f)]
		if !ok {
			continue
		}
		if err := ctl.SetField(f, rawString(raw)); err != nil {
			status := http.StatusUnprocessableEntity
			if errors.Is(err, form.ErrBusy) || errors.Is(err, form.ErrClosed) {
				status = http.StatusConflict
			}
			writeJSON(w, status, map[string]any{"error": err.Error(), "field": f, "session": ctl.Snapshot()})
			return
		}
	}
	writeJSON(w, http.StatusOK, ctl.Snapshot())
}

func (s *Server) handleSessionAddon(w http.ResponseWriter, r *http.Request) {
	ctl, ok := s.session(w, r)
	if !ok {
		return
	}
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid add-on name")
		return
	}
	if err := ctl.ToggleAddon(name); err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, form.ErrBusy) || errors.Is(err, form.ErrClosed) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ctl.Snapshot())
}

func (s *Server) handleSessionSubmit(w http.ResponseWriter, r *http.Request) {
	ctl, ok := s.session(w, r)
	if !ok {
		return
	}
	conf, err := ctl.Submit(r.Context())
	switch {
	case errors.Is(err, form.ErrSubmitInProgress), errors.Is(err, form.ErrClosed):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "session": ctl.Snapshot()})
	case err != nil:
		f := &booking.Failure{}
		errors.As(err, &f)
		writeJSON(w, failureStatus(f), map[string]any{
			"error": f.Reason, "error_kind": f.Kind, "session": ctl.Snapshot(),
		})
	default:
		writeJSON(w, http.StatusCreated, map[string]any{"confirmation": conf, "session": ctl.Snapshot()})
	}
}

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	tok, _ := auth.FromContext().CurrentToken(r.Context())
	list, err := s.API.MyBookings(r.Context(), tok)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if list == nil {
		list = []mayaapi.BookingSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": list})
}

func (s *Server) handleBookingCancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	var in struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	tok, _ := auth.FromContext().CurrentToken(r.Context())
	if err := s.API.Cancel(r.Context(), tok, id, in.Reason); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) queue() *approval.Queue {
	return approval.NewQueue(s.API, auth.FromContext(), s.Log)
}

func (s *Server) handleAdminPending(w http.ResponseWriter, r *http.Request) {
	q := s.queue()
	if err := q.Refresh(r.Context()); err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hotels":     q.List(mayaapi.Hotels),
		"businesses": q.List(mayaapi.Businesses),
		"total":      q.Total(),
	})
}

func (s *Server) handleAdminDecide(w http.ResponseWriter, r *http.Request) {
	kind, err := mayaapi.ParseListingKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	decision, err := mayaapi.ParseDecision(chi.URLParam(r, "decision"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	var in struct {
		Notes string `json:"notes"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	q := s.queue()
	if err := q.RefreshKind(r.Context(), kind); err != nil {
		s.writeFailure(w, err)
		return
	}
	if err := q.Decide(r.Context(), kind, id, decision, in.Notes); err != nil {
		// the queue has already put the listing back
		var f *booking.Failure
		if !errors.As(err, &f) {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, failureStatus(f), map[string]any{
			"error": f.Reason, "error_kind": f.Kind, "pending": q.List(kind),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": q.List(kind)})
}

// failureStatus maps a booking failure onto the shell's response status.
func failureStatus(f *booking.Failure) int {
	switch f.Kind {
	case booking.ValidationFailed:
		return http.StatusUnprocessableEntity
	case booking.Unauthenticated:
		return http.StatusUnauthorized
	case booking.ServerRejected:
		if f.Status >= 400 && f.Status < 500 {
			return f.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	var f *booking.Failure
	if !errors.As(err, &f) {
		s.Log.WithError(err).Error("request failed")
		writeError(w, http.StatusBadGateway, "the booking service could not complete the request")
		return
	}
	writeJSON(w, failureStatus(f), map[string]any{"error": f.Reason, "error_kind": f.Kind})
}

func containsField(fs []form.Field, f form.Field) bool {
	for _, x := range fs {
		if x == f {
			return true
		}
	}
	return false
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}

// Start serves h on addr until ctx is done.
func Start(ctx context.Context, addr string, h http.Handler, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.WithField("addr", addr).Info("listening")
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
