// Package metrics exposes Prometheus counters for the user and person services.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Person operations.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

type Metrics struct {
	UsersRegistered    prometheus.Counter
	Logins             *prometheus.CounterVec
	PersonOperations   *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

// New registers every metric with reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "profilekeeper_users_registered_total",
			Help: "Total number of credentials created",
		}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "profilekeeper_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		PersonOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "profilekeeper_person_operations_total",
			Help: "Successful person record mutations by operation",
		}, []string{"operation"}),
		ValidationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "profilekeeper_validation_failures_total",
			Help: "Requests rejected by field validation, by operation",
		}, []string{"operation"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "profilekeeper_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status code",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) IncUserRegistered() {
	m.UsersRegistered.Inc()
}

func (m *Metrics) IncLogin(outcome string) {
	m.Logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncPersonOperation(op string) {
	m.PersonOperations.WithLabelValues(op).Inc()
}

func (m *Metrics) IncValidationFailure(op string) {
	m.ValidationFailures.WithLabelValues(op).Inc()
}

// ObserveRequest records the duration of a request started at start.
func (m *Metrics) ObserveRequest(route, status string, start time.Time) {
	m.RequestDuration.WithLabelValues(route, status).Observe(time.Since(start).Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
