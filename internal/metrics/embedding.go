package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "productsearch"

// Query vectorization outcomes.
const (
	EmbedOK            = "ok"
	EmbedAPIError      = "api_error"
	EmbedEmptyResponse = "empty_response"
)

// Query embedding Prometheus metrics. Every search embeds exactly one query.
var (
	QueryEmbeddingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_embeddings_total",
			Help:      "Query vectorizations by model and outcome",
		},
		[]string{"model", "outcome"},
	)

	QueryEmbeddingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_embedding_duration_seconds",
			Help:      "Provider latency of query vectorization, failures included",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	QueryEmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_embedding_tokens_total",
			Help:      "Tokens billed for query vectorization",
		},
		[]string{"model"},
	)

	// QueryVectorDimensions must match the stored product vectors; a change means
	// the provider model drifted from the catalog's.
	QueryVectorDimensions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "query_vector_dimensions",
			Help:      "Dimensions of the last query vector returned by the provider",
		},
		[]string{"model"},
	)

	QueryEmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_embedding_cache_total",
			Help:      "Query embedding cache lookups",
		},
		[]string{"result"}, // hit / miss
	)
)

// ObserveQueryEmbedding records one provider call.
func ObserveQueryEmbedding(model, outcome string, took time.Duration, tokens, dims int) {
	QueryEmbeddingsTotal.WithLabelValues(model, outcome).Inc()
	QueryEmbeddingDuration.WithLabelValues(model).Observe(took.Seconds())
	if tokens > 0 {
		QueryEmbeddingTokensTotal.WithLabelValues(model).Add(float64(tokens))
	}
	if dims > 0 {
		QueryVectorDimensions.WithLabelValues(model).Set(float64(dims))
	}
}

var embMetricsRegistered bool

// RegisterEmbeddingMetrics registers query embedding metrics. Safe to call repeatedly.
func RegisterEmbeddingMetrics() {
	if embMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueryEmbeddingsTotal)
	prometheus.MustRegister(QueryEmbeddingDuration)
	prometheus.MustRegister(QueryEmbeddingTokensTotal)
	prometheus.MustRegister(QueryVectorDimensions)
	prometheus.MustRegister(QueryEmbeddingCacheTotal)
	embMetricsRegistered = true
}
