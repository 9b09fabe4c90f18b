package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBooked()
		m.ObserveTransition("Accepted", true)
		m.ObserveDeleted("age", 2)
		m.ObserveResolved()
		m.ObserveRecommendation(true)
		m.ObserveStore("mutate", time.Now())
	})
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveBooked()
	m.ObserveBooked()
	m.ObserveTransition("Accepted", true)
	m.ObserveTransition("Completed", false)
	m.ObserveDeleted("age", 3)
	m.ObserveDeleted("id", 0)
	m.ObserveRecommendation(false)

	assert.Equal(t, 2.0, counterValue(t, reg, "medbot_appointments_booked_total", nil))
	assert.Equal(t, 1.0, counterValue(t, reg, "medbot_appointments_transitions_total", map[string]string{"to": "Accepted", "outcome": "applied"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "medbot_appointments_transitions_total", map[string]string{"to": "Completed", "outcome": "rejected"}))
	assert.Equal(t, 3.0, counterValue(t, reg, "medbot_appointments_deleted_total", map[string]string{"reason": "age"}))
	assert.Equal(t, 0.0, counterValue(t, reg, "medbot_appointments_deleted_total", map[string]string{"reason": "id"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "medbot_doctors_recommendations_total", map[string]string{"fallback": "false"}))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			matched := 0
			for _, lp := range metric.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
					matched++
				}
			}
			if matched == len(labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}
