// Package metrics exposes Prometheus collectors describing batch runs.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "anefwatch"

// Metrics reports account outcomes, webhook deliveries and attempt latency.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	outcomes        *prometheus.CounterVec
	deliveries      *prometheus.CounterVec
	accountDuration *prometheus.HistogramVec
	skipped         prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcomes_total",
				Help:      "Classified login outcomes by tag.",
			},
			[]string{"outcome"},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_deliveries_total",
				Help:      "Webhook notification attempts by result.",
			},
			[]string{"result"},
		),
		accountDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "account_duration_seconds",
				Help:      "Wall time of one account attempt, both navigation phases included.",
				Buckets:   []float64{5, 10, 15, 20, 30, 45, 60, 90},
			},
			[]string{"path"},
		),
		skipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_skipped_total",
				Help:      "Input records skipped for a missing username or password.",
			},
		),
	}
	reg.MustRegister(m.outcomes, m.deliveries, m.accountDuration, m.skipped)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveOutcome counts one classified outcome.
func (m *Metrics) ObserveOutcome(tag string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(tag).Inc()
}

// ObserveDelivery counts one webhook attempt; result is delivered, rejected,
// failed or disabled.
func (m *Metrics) ObserveDelivery(result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(result).Inc()
}

// ObserveAccount records the duration of one attempt.
func (m *Metrics) ObserveAccount(path string, d time.Duration) {
	if m == nil {
		return
	}
	m.accountDuration.WithLabelValues(path).Observe(d.Seconds())
}

// AddSkipped counts records dropped by the input filter.
func (m *Metrics) AddSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skipped.Add(float64(n))
}

// WriteTextfile writes the current values in the Prometheus text format, for
// pickup by a node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
