package metrics

import "github.com/prometheus/client_golang/prometheus"

// initTelemetryMetrics initializes telemetry recorder metrics.
func (m *Manager) initTelemetryMetrics() {
	m.telemetryQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "telemetry_queue_depth",
			Help: "Telemetry records waiting for a writer",
		},
	)

	m.telemetryWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_writes_total",
			Help: "Telemetry sink writes by sink and status",
		},
		[]string{"sink", "status"},
	)

	m.telemetryDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telemetry_dropped_total",
			Help: "Telemetry records dropped because the queue was full or closed",
		},
	)

	m.registry.MustRegister(m.telemetryQueueDepth)
	m.registry.MustRegister(m.telemetryWrites)
	m.registry.MustRegister(m.telemetryDropped)
}

// SetTelemetryQueueDepth sets the number of pending telemetry records.
func (m *Manager) SetTelemetryQueueDepth(depth int) {
	if !m.Enabled() {
		return
	}
	m.telemetryQueueDepth.Set(float64(depth))
}

// RecordTelemetryWrite counts one sink write.
func (m *Manager) RecordTelemetryWrite(sink string, err error) {
	if !m.Enabled() {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.telemetryWrites.WithLabelValues(sink, status).Inc()
}

// RecordTelemetryDropped counts a record that never reached a sink.
func (m *Manager) RecordTelemetryDropped() {
	if !m.Enabled() {
		return
	}
	m.telemetryDropped.Inc()
}
