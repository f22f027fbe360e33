package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding and matching Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boqmatch",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding batch requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "boqmatch",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding batch request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boqmatch",
			Name:      "embedding_errors_total",
			Help:      "Total embedding errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingTextsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boqmatch",
			Name:      "embedding_texts_total",
			Help:      "Total texts sent for embedding",
		},
		[]string{"provider", "model", "role"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boqmatch",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache lookups by result",
		},
		[]string{"provider", "result"},
	)

	MatchRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boqmatch",
			Name:      "match_runs_total",
			Help:      "Total matcher invocations",
		},
		[]string{"matcher", "status"},
	)

	MatchRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "boqmatch",
			Name:      "match_run_duration_seconds",
			Help:      "End-to-end matcher invocation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"matcher"},
	)
)

var matchMetricsRegistered bool

// RegisterMatchingMetrics registers Prometheus metrics. Must be called once from main.
func RegisterMatchingMetrics() {
	if matchMetricsRegistered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingErrorsTotal)
	prometheus.MustRegister(EmbeddingTextsTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(MatchRunsTotal)
	prometheus.MustRegister(MatchRunDuration)
	matchMetricsRegistered = true
}
