// Package metrics holds the Prometheus collectors shared by the API client, the form
// shell and the CLI server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mayabook_api_requests_total",
		Help: "Requests sent to the booking API, by operation and outcome",
	}, []string{"op", "outcome"})

	APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mayabook_api_request_duration_seconds",
		Help:    "Latency of booking API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mayabook_submissions_total",
		Help: "Booking submissions by service kind and result",
	}, []string{"kind", "result"})

	BreakerOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mayabook_api_breaker_open",
		Help: "1 while the circuit breaker in front of the booking API is open",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mayabook_form_sessions",
		Help: "Form sessions currently held by the shell",
	})
)

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }
