// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the server's collectors.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	Verifications    *prometheus.CounterVec
	SignatureChanges *prometheus.CounterVec
	RateLimited      prometheus.Counter
}

// New builds the collectors on a dedicated registry, including the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mitrasign",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mitrasign",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mitrasign",
			Name:      "verifications_total",
			Help:      "Verification lookups by transport and outcome.",
		}, []string{"transport", "outcome"}),
		SignatureChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mitrasign",
			Name:      "signature_changes_total",
			Help:      "Issued and revoked signatures.",
		}, []string{"action"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mitrasign",
			Name:      "verify_rate_limited_total",
			Help:      "Verification requests rejected by the rate limiter.",
		}),
	}
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.Verifications,
		m.SignatureChanges,
		m.RateLimited,
	)
	return m
}

// Verification outcomes.
const (
	OutcomeVerified    = "verified"
	OutcomeNotFound    = "not_found"
	OutcomeLegacy      = "legacy"
	OutcomeUnavailable = "unavailable"
)
