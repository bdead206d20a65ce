package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	MembersCreated     prometheus.Counter
	MembershipsCreated prometheus.Counter
	CredentialsIssued  prometheus.Counter
	ConstraintConflict prometheus.Counter
	RequestDuration    *prometheus.HistogramVec
}

// New creates and registers all metrics on the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers all metrics on the given registry. Tests pass a
// fresh registry so repeated construction never collides.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MembersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "memberd_members_created_total",
			Help: "Total number of members created in the system",
		}),
		MembershipsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "memberd_memberships_created_total",
			Help: "Total number of memberships created in the system",
		}),
		CredentialsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "memberd_credentials_issued_total",
			Help: "Total number of API credentials issued",
		}),
		ConstraintConflict: factory.NewCounter(prometheus.CounterOpts{
			Name: "memberd_constraint_conflicts_total",
			Help: "Total number of writes rejected by uniqueness or reference constraints",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memberd_http_request_duration_ms",
			Help:    "Latency of HTTP requests in milliseconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"route", "method"}),
	}
}

// IncrementMembersCreated increments the members created counter by 1
func (m *Metrics) IncrementMembersCreated() {
	m.MembersCreated.Inc()
}

// IncrementMembershipsCreated increments the memberships created counter by 1
func (m *Metrics) IncrementMembershipsCreated() {
	m.MembershipsCreated.Inc()
}

// IncrementCredentialsIssued increments the credentials issued counter by 1
func (m *Metrics) IncrementCredentialsIssued() {
	m.CredentialsIssued.Inc()
}

// IncrementConstraintConflict increments the constraint conflict counter by 1
func (m *Metrics) IncrementConstraintConflict() {
	m.ConstraintConflict.Inc()
}

// ObserveRequest records request latency in milliseconds for a route.
func (m *Metrics) ObserveRequest(route, method string, millis float64) {
	m.RequestDuration.WithLabelValues(route, method).Observe(millis)
}
