// Package metrics exposes Prometheus collectors for request dispatch and
// notification delivery.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Notification outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
	OutcomeQueued    = "queued"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	requests      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	digests       prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labtrack_requests_total",
				Help: "Dispatched actions by result kind",
			},
			[]string{"action", "result"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labtrack_notifications_total",
				Help: "Notification events by outcome",
			},
			[]string{"outcome"},
		),
		digests: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "labtrack_digests_total",
				Help: "Digest messages compiled",
			},
		),
	}
	reg.MustRegister(m.requests, m.notifications, m.digests)
	return m
}

// Request counts one dispatched action.
func (m *Metrics) Request(action, result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(action, result).Inc()
}

// Notification counts one notification outcome.
func (m *Metrics) Notification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

// Digest counts one compiled digest.
func (m *Metrics) Digest() {
	if m == nil {
		return
	}
	m.digests.Inc()
}
