package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec
	toolErrorsTotal       *prometheus.CounterVec

	mapReduceItemsTotal *prometheus.CounterVec

	vectorStoreRecords   prometheus.Gauge
	vectorSearchDuration prometheus.Histogram
	vectorIngestDuration prometheus.Histogram

	embeddingCacheTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			toolErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_errors_total",
					Help: "Total tool failures by tool and reason.",
				},
				[]string{"tool", "reason"},
			),
			mapReduceItemsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "map_reduce_items_total",
					Help: "Total mapper invocations fanned out by map/reduce tools.",
				},
				[]string{"tool"},
			),
			vectorStoreRecords: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "vector_store_records",
					Help: "Record count of the most recently modified vector store.",
				},
			),
			vectorSearchDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "vector_search_duration_seconds",
					Help:    "Vector store similarity search duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			vectorIngestDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "vector_ingest_duration_seconds",
					Help:    "Vector store text ingestion duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			embeddingCacheTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "embedding_cache_total",
					Help: "Embedding cache lookups by result (hit, miss).",
				},
				[]string{"result"},
			),
		}

		prometheus.MustRegister(
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.toolErrorsTotal,
			m.mapReduceItemsTotal,
			m.vectorStoreRecords,
			m.vectorSearchDuration,
			m.vectorIngestDuration,
			m.embeddingCacheTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordToolExecution(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.toolExecutionTotal.WithLabelValues(tool, status).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordToolError counts a failure; reason is "validation" or "execution".
func RecordToolError(tool, reason string) {
	m := getMetrics()
	m.toolErrorsTotal.WithLabelValues(tool, reason).Inc()
}

func RecordMapReduceItems(tool string, items int) {
	m := getMetrics()
	m.mapReduceItemsTotal.WithLabelValues(tool).Add(float64(items))
}

func SetVectorStoreRecords(total int) {
	m := getMetrics()
	m.vectorStoreRecords.Set(float64(total))
}

func RecordVectorSearch(duration time.Duration) {
	m := getMetrics()
	m.vectorSearchDuration.Observe(duration.Seconds())
}

func RecordVectorIngest(duration time.Duration) {
	m := getMetrics()
	m.vectorIngestDuration.Observe(duration.Seconds())
}

func RecordEmbeddingCache(hit bool) {
	m := getMetrics()
	result := "miss"
	if hit {
		result = "hit"
	}
	m.embeddingCacheTotal.WithLabelValues(result).Inc()
}
