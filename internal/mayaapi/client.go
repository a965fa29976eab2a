// Package mayaapi talks to the Maya Digital booking API.
package mayaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/example/mayabook/internal/booking"
	"github.com/example/mayabook/internal/metrics"
)

const DefaultBaseURL = "http://127.0.0.1:8080/api"

type Client struct {
	baseURL string
	hc      *http.Client
	cb      *gobreaker.CircuitBreaker
	log     logrus.FieldLogger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

func WithTimeout(d time.Duration) Option { return func(c *Client) { c.hc.Timeout = d } }

func WithLogger(l logrus.FieldLogger) Option { return func(c *Client) { c.log = l } }

// WithBreaker opens the circuit after maxFailures consecutive transport errors.
// Zero disables the breaker.
func WithBreaker(maxFailures uint32, cooldown time.Duration) Option {
	return func(c *Client) {
		if maxFailures == 0 {
			c.cb = nil
			return
		}
		c.cb = newBreaker(maxFailures, cooldown, c)
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 15 * time.Second},
		log:     logrus.StandardLogger(),
	}
	c.cb = newBreaker(5, 30*time.Second, c)
	for _, o := range opts {
		o(c)
	}
	return c
}

func newBreaker(maxFailures uint32, cooldown time.Duration, c *Client) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "booking-api",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
			if to == gobreaker.StateOpen {
				metrics.BreakerOpen.Set(1)
			} else {
				metrics.BreakerOpen.Set(0)
			}
		},
	})
}

type response struct {
	status int
	text   string
	body   []byte
}

func (r response) ok() bool { return r.status >= 200 && r.status < 300 }

// do performs one exchange. A non-nil error is a ValidationFailed when the body could
// not be encoded (nothing was sent) and a ConnectionError otherwise. HTTP error
// statuses are returned in the response for the caller to interpret.
func (c *Client) do(ctx context.Context, op, method, path, token string, in any) (response, error) {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return response{}, &booking.Failure{
				Kind:   booking.ValidationFailed,
				Reason: "the booking could not be encoded for sending",
				Err:    fmt.Errorf("encode %s request: %w", op, err),
			}
		}
		payload = b
	}

	start := time.Now()
	exchange := func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		res, err := c.hc.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()
		b, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}
		return response{status: res.StatusCode, text: http.StatusText(res.StatusCode), body: b}, nil
	}

	var (
		out any
		err error
	)
	if c.cb != nil {
		out, err = c.cb.Execute(exchange)
	} else {
		out, err = exchange()
	}
	metrics.APILatency.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.APIRequests.WithLabelValues(op, "connection_error").Inc()
		reason := "could not reach the booking service"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			reason = "the booking service is temporarily unavailable"
		}
		c.log.WithFields(logrus.Fields{"op": op, "path": path}).WithError(err).Warn("booking api request failed")
		return response{}, &booking.Failure{Kind: booking.ConnectionError, Reason: reason + ": " + err.Error(), Err: err}
	}
	res := out.(response)
	outcome := "ok"
	if !res.ok() {
		outcome = fmt.Sprintf("%dxx", res.status/100)
	}
	metrics.APIRequests.WithLabelValues(op, outcome).Inc()
	return res, nil
}

// rejected turns an error status into a ServerRejected failure. The server's own
// message is kept verbatim when the body has one.
func rejected(res response) *booking.Failure {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(res.body, &body)
	reason := strings.TrimSpace(body.Error)
	if reason == "" {
		reason = fmt.Sprintf("booking service returned status %d (%s)", res.status, res.text)
	}
	return &booking.Failure{Kind: booking.ServerRejected, Reason: reason, Status: res.status}
}

func malformed(op string, err error) *booking.Failure {
	return &booking.Failure{
		Kind:   booking.MalformedResponse,
		Reason: "the booking service sent an unexpected response",
		Err:    fmt.Errorf("%s: %w", op, err),
	}
}

func requireToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return booking.Fail(booking.Unauthenticated, "you need to sign in first")
	}
	return nil
}
