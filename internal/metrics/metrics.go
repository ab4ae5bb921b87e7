// Package metrics exposes Prometheus counters for session, login, form and
// API outcomes. Every recorder method is safe on a nil *Metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "adminconsole"

// Metrics holds all Prometheus metrics for the console.
type Metrics struct {
	// Session metrics
	SessionBootstraps *prometheus.CounterVec
	Logins            *prometheus.CounterVec
	Logouts           prometheus.Counter

	// Form metrics
	FormSubmissions *prometheus.CounterVec

	// API metrics
	APIRequests        *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		SessionBootstraps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_bootstrap_total",
				Help:      "Session bootstraps by outcome (cache, verified, anonymous, invalidated, degraded)",
			},
			[]string{"outcome"},
		),
		Logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "login_total",
				Help:      "Login attempts by method and result",
			},
			[]string{"method", "result"},
		),
		Logouts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logout_total",
				Help:      "Total number of logouts",
			},
		),
		FormSubmissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "form_submissions_total",
				Help:      "Form submissions by outcome",
			},
			[]string{"outcome"},
		),
		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Admin API requests by endpoint and status class",
			},
			[]string{"endpoint", "status_class"},
		),
		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Admin API request latency",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint"},
		),
	}
}

// RecordBootstrap counts one session bootstrap.
func (m *Metrics) RecordBootstrap(outcome string) {
	if m == nil {
		return
	}
	m.SessionBootstraps.WithLabelValues(outcome).Inc()
}

// RecordLogin counts one login attempt. method is "password", "federated",
// "demo" or "2fa".
func (m *Metrics) RecordLogin(method string, err error) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(method, result(err)).Inc()
}

// RecordLogout counts one logout.
func (m *Metrics) RecordLogout() {
	if m == nil {
		return
	}
	m.Logouts.Inc()
}

// RecordFormSubmission counts one form submission.
func (m *Metrics) RecordFormSubmission(outcome string) {
	if m == nil {
		return
	}
	m.FormSubmissions.WithLabelValues(outcome).Inc()
}

// RecordAPIRequest records an API call. status 0 means no response.
func (m *Metrics) RecordAPIRequest(endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(endpoint, StatusClass(status)).Inc()
	m.APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// StatusClass maps 200 to "2xx" and 0 to "error".
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
