package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/mayabook/internal/auth"
	"github.com/example/mayabook/internal/booking"
	"github.com/example/mayabook/internal/form"
	"github.com/example/mayabook/internal/mayaapi"
)

type backend struct {
	bookings int32
	lastAuth atomic.Value

	mu         sync.Mutex
	decided    map[string]bool
	adminNotes string
}

var pendingHotels = []struct {
	id   int
	name string
}{{3, "Casa Maya"}, {5, "Hacienda Sol"}}

func (b *backend) hotels() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []map[string]any{}
	for _, h := range pendingHotels {
		if !b.decided[strconv.Itoa(h.id)] {
			out = append(out, map[string]any{"id": h.id, "name": h.name})
		}
	}
	return out
}

// decide handles PUT /admin/hotels/{id}/{approve|reject}. Hotel 5 always fails.
func (b *backend) decide(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/admin/hotels/"), "/")
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if parts[0] == "5" {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"Error al procesar la solicitud"}`)
		return
	}
	var in struct {
		AdminNotes string `json:"admin_notes"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	b.mu.Lock()
	if b.decided == nil {
		b.decided = map[string]bool{}
	}
	b.decided[parts[0]] = true
	b.adminNotes = in.AdminNotes
	b.mu.Unlock()
	_, _ = io.WriteString(w, `{"message":"ok"}`)
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
		var in struct{ Email string }
		_ = json.NewDecoder(r.Body).Decode(&in)
		role := "user"
		if strings.HasPrefix(in.Email, "admin") {
			role = "admin"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "tok-" + role,
			"user":  map[string]any{"id": 1, "email": in.Email, "role": role},
		})
	case r.Method == http.MethodPost && r.URL.Path == "/bookings":
		atomic.AddInt32(&b.bookings, 1)
		b.lastAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"booking":{"booking_reference":"MY100200","hotel_name":"Hotel X","total_price":4800,"status":"confirmed","check_in":"2024-06-01","check_out":"2024-06-03"}}`)
	case r.Method == http.MethodGet && r.URL.Path == "/bookings/my-bookings":
		_, _ = io.WriteString(w, `{"bookings":[{"id":4,"booking_reference":"MY1","status":"confirmed"}]}`)
	case r.Method == http.MethodGet && r.URL.Path == "/admin/hotels/pending":
		hotels := b.hotels()
		_ = json.NewEncoder(w).Encode(map[string]any{"hotels": hotels, "total": len(hotels)})
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/admin/hotels/"):
		b.decide(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/admin/businesses/pending":
		_, _ = io.WriteString(w, `[]`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"Not Found"}`)
	}
}

type shell struct {
	srv     *httptest.Server
	client  *http.Client
	backend *backend
	reg     *Registry
}

func newShell(t *testing.T, idem IdempotencyStore) *shell {
	t.Helper()
	log, _ := test.NewNullLogger()
	be := &backend{}
	api := httptest.NewServer(be)
	t.Cleanup(api.Close)

	client := mayaapi.New(api.URL, mayaapi.WithLogger(log))
	reg := NewRegistry(func(_ string, svc booking.Service) (*form.Controller, error) {
		return form.New(svc, client, auth.FromContext(), form.WithLogger(log))
	}, time.Hour, log)
	s := &Server{
		API:            client,
		Sessions:       reg,
		Cookies:        auth.NewSessionStore(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32), time.Hour),
		Catalog:        booking.DefaultCatalog(),
		Log:            log,
		Idempotency:    idem,
		IdempotencyTTL: time.Hour,
	}
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	jar, _ := cookiejar.New(nil)
	return &shell{srv: srv, client: &http.Client{Jar: jar}, backend: be, reg: reg}
}

func (s *shell) do(t *testing.T, method, path, body string, headers ...string) (int, map[string]any, http.Header) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	res, err := s.client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	raw, _ := io.ReadAll(res.Body)
	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return res.StatusCode, out, res.Header
}

func (s *shell) hotelSession(t *testing.T) string {
	t.Helper()
	code, out, _ := s.do(t, http.MethodPost, "/sessions",
		`{"service":{"id":7,"name":"Hotel X","kind":"hotels","base_price":1000}}`)
	require.Equal(t, http.StatusCreated, code)
	return out["id"].(string)
}

func total(t *testing.T, snap map[string]any) float64 {
	t.Helper()
	it, ok := snap["itinerary"].(map[string]any)
	require.True(t, ok, "snapshot has no itinerary: %v", snap)
	return it["total"].(float64)
}

func TestHealthAndCatalog(t *testing.T) {
	s := newShell(t, nil)

	code, _, _ := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)

	code, out, _ := s.do(t, http.MethodGet, "/catalog", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, out["addons"], 3)
	assert.Len(t, out["tickets"], 2)
}

func TestSessionFlow(t *testing.T) {
	s := newShell(t, nil)
	id := s.hotelSession(t)

	code, snap, _ := s.do(t, http.MethodPatch, "/sessions/"+id+"/fields",
		`{"check_in":"2024-06-01","check_out":"2024-06-03","rooms":2}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 4000.0, total(t, snap))
	params, ok := snap["params"].(map[string]any)
	require.True(t, ok, "snapshot has no params: %v", snap)
	assert.Equal(t, "2024-06-01", params["check_in"])
	assert.Equal(t, "2024-06-03", params["check_out"])
	assert.NotContains(t, params, "date")

	code, snap, _ = s.do(t, http.MethodPost, "/sessions/"+id+"/addons/Acceso%20a%20Spa", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 4800.0, total(t, snap))

	code, out, _ := s.do(t, http.MethodPatch, "/sessions/"+id+"/fields", `{"adults":2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "adults", out["field"])

	code, _, _ = s.do(t, http.MethodGet, "/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSubmit_SignedOutMakesNoCall(t *testing.T) {
	s := newShell(t, nil)
	id := s.hotelSession(t)
	s.do(t, http.MethodPatch, "/sessions/"+id+"/fields", `{"check_in":"2024-06-01","check_out":"2024-06-03"}`)

	code, out, _ := s.do(t, http.MethodPost, "/sessions/"+id+"/submit", "")

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, string(booking.Unauthenticated), out["error_kind"])
	assert.EqualValues(t, 0, atomic.LoadInt32(&s.backend.bookings))
}

func TestSubmit_InvalidDates(t *testing.T) {
	s := newShell(t, nil)
	id := s.hotelSession(t)
	s.do(t, http.MethodPatch, "/sessions/"+id+"/fields", `{"check_in":"2024-06-03","check_out":"2024-06-01"}`)

	code, out, _ := s.do(t, http.MethodPost, "/sessions/"+id+"/submit", "")

	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "check-out must be after check-in", out["error"])
}

func TestSubmit_SignedIn(t *testing.T) {
	s := newShell(t, nil)
	code, _, _ := s.do(t, http.MethodPost, "/login", `{"email":"ana@example.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, code)
	id := s.hotelSession(t)
	s.do(t, http.MethodPatch, "/sessions/"+id+"/fields", `{"check_in":"2024-06-01","check_out":"2024-06-03"}`)

	code, out, _ := s.do(t, http.MethodPost, "/sessions/"+id+"/submit", "")

	require.Equal(t, http.StatusCreated, code)
	conf := out["confirmation"].(map[string]any)
	assert.Equal(t, "MY100200", conf["reference"])
	assert.Equal(t, "Bearer tok-user", s.backend.lastAuth.Load())
	assert.Equal(t, string(form.Confirmed), out["session"].(map[string]any)["state"])

	code, _, _ = s.do(t, http.MethodPost, "/sessions/"+id+"/submit", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.EqualValues(t, 1, atomic.LoadInt32(&s.backend.bookings))

	code, out, _ = s.do(t, http.MethodGet, "/bookings", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, out["bookings"], 1)
}

func TestAdminRoutes(t *testing.T) {
	s := newShell(t, nil)
	code, _, _ := s.do(t, http.MethodGet, "/admin/pending", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	s.do(t, http.MethodPost, "/login", `{"email":"ana@example.com","password":"pw"}`)
	code, _, _ = s.do(t, http.MethodGet, "/admin/pending", "")
	assert.Equal(t, http.StatusForbidden, code)

	s.do(t, http.MethodPost, "/login", `{"email":"admin@example.com","password":"pw"}`)
	code, out, _ := s.do(t, http.MethodGet, "/admin/pending", "")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, out["total"])
}

func pendingIDs(t *testing.T, out map[string]any) []float64 {
	t.Helper()
	list, ok := out["pending"].([]any)
	require.True(t, ok, "response has no pending list: %v", out)
	ids := []float64{}
	for _, l := range list {
		ids = append(ids, l.(map[string]any)["id"].(float64))
	}
	return ids
}

func TestAdminDecide(t *testing.T) {
	s := newShell(t, nil)
	code, _, _ := s.do(t, http.MethodPost, "/admin/hotels/3/approve", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	s.do(t, http.MethodPost, "/login", `{"email":"admin@example.com","password":"pw"}`)

	t.Run("failure puts the listing back", func(t *testing.T) {
		code, out, _ := s.do(t, http.MethodPost, "/admin/hotel/5/approve", "")
		assert.Equal(t, http.StatusBadGateway, code)
		assert.Equal(t, "Error al procesar la solicitud", out["error"])
		assert.Equal(t, string(booking.ServerRejected), out["error_kind"])
		assert.Equal(t, []float64{3, 5}, pendingIDs(t, out))
	})

	t.Run("reject sends notes and drops the listing", func(t *testing.T) {
		code, out, _ := s.do(t, http.MethodPost, "/admin/hotels/3/reject", `{"notes":"fotos faltantes"}`)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, []float64{5}, pendingIDs(t, out))
		s.backend.mu.Lock()
		assert.Equal(t, "fotos faltantes", s.backend.adminNotes)
		s.backend.mu.Unlock()
	})

	t.Run("approve", func(t *testing.T) {
		s.backend.mu.Lock()
		delete(s.backend.decided, "3")
		s.backend.mu.Unlock()

		code, out, _ := s.do(t, http.MethodPost, "/admin/hotels/3/approve", "")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, []float64{5}, pendingIDs(t, out))

		code, out, _ = s.do(t, http.MethodGet, "/admin/pending", "")
		require.Equal(t, http.StatusOK, code)
		assert.EqualValues(t, 1, out["total"])
	})

	code, _, _ = s.do(t, http.MethodPost, "/admin/boats/3/approve", "")
	assert.Equal(t, http.StatusNotFound, code)
}

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memStore) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memStore) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (m *memStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (m *memStore) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestSubmit_IdempotencyKeyReplays(t *testing.T) {
	store := &memStore{data: map[string]string{}}
	s := newShell(t, store)
	s.do(t, http.MethodPost, "/login", `{"email":"ana@example.com","password":"pw"}`)
	id := s.hotelSession(t)
	s.do(t, http.MethodPatch, "/sessions/"+id+"/fields", `{"check_in":"2024-06-01","check_out":"2024-06-03"}`)

	code, first, _ := s.do(t, http.MethodPost, "/sessions/"+id+"/submit", "", "Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, code)

	code, again, hdr := s.do(t, http.MethodPost, "/sessions/"+id+"/submit", "", "Idempotency-Key", "k1")
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "true", hdr.Get("X-Idempotency-Replayed"))
	assert.Equal(t, first["confirmation"], again["confirmation"])
	assert.EqualValues(t, 1, atomic.LoadInt32(&s.backend.bookings))
}

func TestIdempotency_InProgressKeyIsRefused(t *testing.T) {
	store := &memStore{data: map[string]string{"idempotency:/x:k": processing}}
	log, _ := test.NewNullLogger()
	called := false
	h := Idempotency(store, time.Hour, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Idempotency-Key", "k")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, called)
}

func TestIdempotency_ServerErrorReleasesKey(t *testing.T) {
	store := &memStore{data: map[string]string{}}
	log, _ := test.NewNullLogger()
	h := Idempotency(store, time.Hour, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusBadGateway, "down")
	}))

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Idempotency-Key", "k")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, store.data)
}

func TestRegistry_Reap(t *testing.T) {
	log, _ := test.NewNullLogger()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	reg := NewRegistry(func(_ string, svc booking.Service) (*form.Controller, error) {
		return form.New(svc, nil, nil)
	}, 10*time.Minute, log)
	reg.now = func() time.Time { return now }

	_, _, err := reg.Create(booking.Service{ID: "1", Kind: booking.KindHorseback})
	assert.Error(t, err, "a nil submitter is rejected")

	reg.build = func(_ string, svc booking.Service) (*form.Controller, error) {
		return form.New(svc, stubSubmitter{}, nil)
	}
	old, _, err := reg.Create(booking.Service{ID: "1", Kind: booking.KindHorseback, BasePrice: 700})
	require.NoError(t, err)
	now = now.Add(8 * time.Minute)
	fresh, _, err := reg.Create(booking.Service{ID: "2", Kind: booking.KindHorseback, BasePrice: 700})
	require.NoError(t, err)
	now = now.Add(5 * time.Minute)

	assert.Equal(t, 1, reg.Reap())
	_, err = reg.Get(old)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = reg.Get(fresh)
	assert.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
}

type stubSubmitter struct{}

func (stubSubmitter) Submit(context.Context, string, booking.Request) (booking.Confirmation, error) {
	return booking.Confirmation{Reference: "X"}, nil
}
