package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts what the monitoring loop does. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	iterations  prometheus.Counter
	readings    prometheus.Counter
	failures    prometheus.Counter
	sinkErrors  *prometheus.CounterVec
	lastReading prometheus.Gauge
}

// NewMetrics creates the loop collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_checks_total",
			Help: "Total monitoring loop iterations.",
		}),
		readings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_readings_total",
			Help: "Total synthetic readings emitted.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_reading_failures_total",
			Help: "Total checks that produced no reading.",
		}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simulator_sink_errors_total",
			Help: "Total errors forwarding readings, by sink.",
		}, []string{"sink"}),
		lastReading: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_last_reading_timestamp_seconds",
			Help: "Unix time of the last emitted reading.",
		}),
	}

	m.registry.MustRegister(
		m.iterations,
		m.readings,
		m.failures,
		m.sinkErrors,
		m.lastReading,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Iteration counts one loop check.
func (m *Metrics) Iteration() {
	if m == nil {
		return
	}
	m.iterations.Inc()
}

// Reading counts an emitted reading and records when it was emitted.
func (m *Metrics) Reading(unixSeconds float64) {
	if m == nil {
		return
	}
	m.readings.Inc()
	m.lastReading.Set(unixSeconds)
}

// Failure counts a check that produced no reading.
func (m *Metrics) Failure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}

// SinkError counts a failed forward to the named sink.
func (m *Metrics) SinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(sink).Inc()
}
