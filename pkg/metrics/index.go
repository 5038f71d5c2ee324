package metrics

import "github.com/prometheus/client_golang/prometheus"

// initIndexMetrics initializes local memory index metrics.
func (m *Manager) initIndexMetrics() {
	m.indexDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "memory_index_documents",
			Help: "Documents held in the local memory index",
		},
	)

	m.indexOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_index_operations_total",
			Help: "Local memory index operations by kind and status",
		},
		[]string{"operation", "status"},
	)

	m.registry.MustRegister(m.indexDocuments)
	m.registry.MustRegister(m.indexOperations)
}

// SetIndexDocuments sets the number of indexed documents.
func (m *Manager) SetIndexDocuments(n int) {
	if !m.Enabled() {
		return
	}
	m.indexDocuments.Set(float64(n))
}

// RecordIndexOperation counts one index operation (add, search, delete).
func (m *Manager) RecordIndexOperation(operation string, err error) {
	if !m.Enabled() {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.indexOperations.WithLabelValues(operation, status).Inc()
}
