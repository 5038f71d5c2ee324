package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline stage labels.
const (
	StageClassify = "classify"
	StageRetrieve = "retrieve"
	StageCompress = "compress"
	StageAssemble = "assemble"
)

// initPipelineMetrics initializes context assembly metrics.
func (m *Manager) initPipelineMetrics(cfg Config) {
	m.contextRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "context_requests_total",
			Help: "Total number of context assembly requests by intent",
		},
		[]string{"intent"},
	)

	m.contextDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "context_duration_seconds",
			Help:    "End-to-end context assembly duration in seconds",
			Buckets: cfg.ContextDurationBuckets,
		},
		[]string{"intent"},
	)

	m.contextTokens = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "context_tokens",
			Help:    "Estimated tokens in assembled message lists",
			Buckets: cfg.TokenBuckets,
		},
	)

	m.memoryItems = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "context_memory_items",
			Help:    "Memory snippets packed per request",
			Buckets: prometheus.LinearBuckets(0, 1, 13),
		},
	)

	m.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "context_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages in seconds",
			Buckets: cfg.StageDurationBuckets,
		},
		[]string{"stage"},
	)

	m.retrievalErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_failures_total",
			Help: "Memory retrieval calls that degraded to an empty result, by reason",
		},
		[]string{"reason"},
	)

	m.compressionCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compression_items_total",
			Help: "Compressed snippets by outcome (summarized, fallback)",
		},
		[]string{"outcome"},
	)

	m.registry.MustRegister(m.contextRequests)
	m.registry.MustRegister(m.contextDuration)
	m.registry.MustRegister(m.contextTokens)
	m.registry.MustRegister(m.memoryItems)
	m.registry.MustRegister(m.stageDuration)
	m.registry.MustRegister(m.retrievalErrors)
	m.registry.MustRegister(m.compressionCalls)
}

// RecordContext records one completed context assembly.
func (m *Manager) RecordContext(ctx context.Context, intent string, totalTokens, memoryItems int, duration time.Duration) {
	if !m.Enabled() {
		return
	}
	m.contextRequests.WithLabelValues(intent).Inc()
	observe(ctx, m.contextDuration.WithLabelValues(intent), duration.Seconds())
	m.contextTokens.Observe(float64(totalTokens))
	m.memoryItems.Observe(float64(memoryItems))
}

// RecordStage records the duration of one pipeline stage.
func (m *Manager) RecordStage(ctx context.Context, stage string, duration time.Duration) {
	if !m.Enabled() {
		return
	}
	observe(ctx, m.stageDuration.WithLabelValues(stage), duration.Seconds())
}

// RecordRetrievalFailure counts a retrieval that fell back to no memory.
func (m *Manager) RecordRetrievalFailure(reason string) {
	if !m.Enabled() {
		return
	}
	m.retrievalErrors.WithLabelValues(reason).Inc()
}

// RecordCompression counts one compressed item.
func (m *Manager) RecordCompression(fallback bool) {
	if !m.Enabled() {
		return
	}
	outcome := "summarized"
	if fallback {
		outcome = "fallback"
	}
	m.compressionCalls.WithLabelValues(outcome).Inc()
}
