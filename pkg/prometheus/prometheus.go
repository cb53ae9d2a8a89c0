// Package prometheus provides a tether.MetricsProvider backed by Prometheus
// collectors.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zoobzio/tether"
)

// Metrics records property activity as Prometheus metrics, labeled by
// attribute path.
type Metrics struct {
	changes    *prometheus.CounterVec
	writes     *prometheus.CounterVec
	violations *prometheus.CounterVec
	state      *prometheus.GaugeVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		changes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "property_changes_total",
				Help:      "Total number of changes relayed from notifiers",
			},
			[]string{"path"},
		),
		writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "property_writes_total",
				Help:      "Total number of values written through to targets",
			},
			[]string{"path"},
		),
		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "property_violations_total",
				Help:      "Total number of notifier failure events",
			},
			[]string{"path"},
		),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "property_state",
				Help:      "1 for the state each property is currently in, 0 otherwise",
			},
			[]string{"path", "state"},
		),
	}

	for _, c := range []prometheus.Collector{m.changes, m.writes, m.violations, m.state} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// OnStateChange moves the path's state gauge from one state to the other.
func (m *Metrics) OnStateChange(path string, from, to tether.State) {
	m.state.WithLabelValues(path, from.String()).Set(0)
	m.state.WithLabelValues(path, to.String()).Set(1)
}

// OnChangeReceived counts a relayed change.
func (m *Metrics) OnChangeReceived(path string) {
	m.changes.WithLabelValues(path).Inc()
}

// OnValueWritten counts a direct write.
func (m *Metrics) OnValueWritten(path string) {
	m.writes.WithLabelValues(path).Inc()
}

// OnViolation counts a notifier failure event.
func (m *Metrics) OnViolation(path string) {
	m.violations.WithLabelValues(path).Inc()
}

// Ensure Metrics implements tether.MetricsProvider.
var _ tether.MetricsProvider = (*Metrics)(nil)
