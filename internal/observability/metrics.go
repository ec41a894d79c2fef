package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Decision outcomes recorded by the request interceptor.
const (
	OutcomeAdmitted = "admitted"
	OutcomeDenied   = "denied"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	errors    *prometheus.CounterVec
	decisions *prometheus.CounterVec
	issued    *prometheus.CounterVec
}

// NewMetrics initializes collectors for the given service.
func NewMetrics(service string) *Metrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": service}

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "HTTP requests by route, method and status.",
			ConstLabels: labels,
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_errors_total",
			Help:        "Failed HTTP requests by error code.",
			ConstLabels: labels,
		}, []string{"route", "method", "code"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "auth_decisions_total",
			Help:        "Token verification decisions by outcome and reason.",
			ConstLabels: labels,
		}, []string{"outcome", "reason"}),
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "auth_tokens_issued_total",
			Help:        "Tokens minted by role.",
			ConstLabels: labels,
		}, []string{"role"}),
	}
	registry.MustRegister(m.requests, m.latency, m.errors, m.decisions, m.issued)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordDecision counts one interceptor outcome.
func (m *Metrics) RecordDecision(outcome, reason string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome, reason).Inc()
}

// RecordIssued counts one minted token.
func (m *Metrics) RecordIssued(role string) {
	if m == nil {
		return
	}
	m.issued.WithLabelValues(role).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
