package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters for the booking and chat flows. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	booked          prometheus.Counter
	transitions     *prometheus.CounterVec
	deletions       *prometheus.CounterVec
	resolved        prometheus.Counter
	recommendations *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec
}

// New registers the collectors on reg (DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		booked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medbot",
			Subsystem: "appointments",
			Name:      "booked_total",
			Help:      "Appointments booked",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medbot",
			Subsystem: "appointments",
			Name:      "transitions_total",
			Help:      "Appointment status transitions by target status and outcome",
		}, []string{"to", "outcome"}),
		deletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medbot",
			Subsystem: "appointments",
			Name:      "deleted_total",
			Help:      "Appointments deleted by reason",
		}, []string{"reason"}),
		resolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medbot",
			Subsystem: "chat",
			Name:      "conversations_resolved_total",
			Help:      "Conversation rounds that produced a resolved symptom",
		}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medbot",
			Subsystem: "doctors",
			Name:      "recommendations_total",
			Help:      "Doctor recommendations served, split by whole-directory fallback",
		}, []string{"fallback"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medbot",
			Subsystem: "store",
			Name:      "operation_seconds",
			Help:      "Latency of appointment store operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.booked, m.transitions, m.deletions, m.resolved, m.recommendations, m.storeLatency)
	return m
}

// ObserveBooked counts a new appointment.
func (m *Metrics) ObserveBooked() {
	if m == nil {
		return
	}
	m.booked.Inc()
}

// ObserveTransition counts an attempted move to status to.
func (m *Metrics) ObserveTransition(to string, ok bool) {
	if m == nil {
		return
	}
	outcome := "applied"
	if !ok {
		outcome = "rejected"
	}
	m.transitions.WithLabelValues(to, outcome).Inc()
}

// ObserveDeleted adds count deletions under reason.
func (m *Metrics) ObserveDeleted(reason string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.deletions.WithLabelValues(reason).Add(float64(count))
}

// ObserveResolved counts a resolved symptom.
func (m *Metrics) ObserveResolved() {
	if m == nil {
		return
	}
	m.resolved.Inc()
}

// ObserveRecommendation counts a recommendation, split by fallback.
func (m *Metrics) ObserveRecommendation(fallback bool) {
	if m == nil {
		return
	}
	m.recommendations.WithLabelValues(strconv.FormatBool(fallback)).Inc()
}

// ObserveStore records how long a store operation took since start.
func (m *Metrics) ObserveStore(op string, start time.Time) {
	if m == nil {
		return
	}
	m.storeLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
