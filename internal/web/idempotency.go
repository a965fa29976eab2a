package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// IdempotencyStore is the part of *redis.Client the guard uses.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const processing = "PROCESSING"

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *captureWriter) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a request repeats an Idempotency-Key
// that already completed, and refuses one whose first attempt is still running.
// Requests without the header pass through. Responses other than 2xx and 4xx release
// the key so the client can retry. When redis is unreachable the guard steps aside.
func Idempotency(store IdempotencyStore, ttl time.Duration, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			idemKey := fmt.Sprintf("idempotency:%s:%s", r.URL.Path, key)
			ctx := r.Context()

			val, err := store.Get(ctx, idemKey).Result()
			switch {
			case err == nil && val == processing:
				writeError(w, http.StatusConflict, "a request with this Idempotency-Key is still in progress")
				return
			case err == nil:
				var sr storedResponse
				if json.Unmarshal([]byte(val), &sr) == nil && sr.Status != 0 {
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("X-Idempotency-Replayed", "true")
					w.WriteHeader(sr.Status)
					_, _ = w.Write(sr.Body)
					return
				}
			case !errors.Is(err, redis.Nil):
				log.WithError(err).Warn("idempotency store unavailable")
				next.ServeHTTP(w, r)
				return
			}

			acquired, err := store.SetNX(ctx, idemKey, processing, 30*time.Second).Result()
			if err != nil {
				log.WithError(err).Warn("idempotency store unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				writeError(w, http.StatusConflict, "a request with this Idempotency-Key is still in progress")
				return
			}

			cw := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(cw, r)

			bg := context.WithoutCancel(ctx)
			if cw.status >= 500 || cw.status == 0 || !json.Valid(cw.buf.Bytes()) {
				store.Del(bg, idemKey)
				return
			}
			b, _ := json.Marshal(storedResponse{Status: cw.status, Body: cw.buf.Bytes()})
			if err := store.Set(bg, idemKey, string(b), ttl).Err(); err != nil {
				log.WithError(err).Warn("could not store idempotent response")
			}
		})
	}
}
