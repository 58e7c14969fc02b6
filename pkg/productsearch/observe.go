package productsearch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation outcomes used as the "status" label.
const (
	statusOK        = "ok"
	statusInvalid   = "invalid"
	statusEmbedding = "embedding_error"
	statusDatastore = "datastore_error"
	statusRerank    = "rerank_error"
	statusError     = "error"
)

// clientMetrics holds prometheus metrics registered for the client.
type clientMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	results    prometheus.Histogram
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	m := &clientMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "productsearch",
			Subsystem: "client",
			Name:      "operations_total",
			Help:      "Total client operations by type and outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "productsearch",
			Subsystem: "client",
			Name:      "operation_duration_seconds",
			Help:      "Client operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		results: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "productsearch",
			Subsystem: "client",
			Name:      "search_results",
			Help:      "Products returned per successful search.",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 500},
		}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.results); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("productsearch: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("productsearch: register metric: %w", err)
	}
	return nil
}

// observer provides logging and metrics for client operations.
type observer struct {
	logger  *slog.Logger
	metrics *clientMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *clientMetrics
	if reg != nil {
		var err error
		m, err = newClientMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

// observe records one finished operation. count is the number of products
// returned, or -1 for operations that return none.
func (o *observer) observe(op string, start time.Time, count int, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status := outcome(err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
		if err == nil && count >= 0 {
			o.metrics.results.Observe(float64(count))
		}
	}

	if o.logger == nil {
		return
	}
	switch status {
	case statusOK:
		o.logger.Debug("operation completed", "op", op, "duration", dur, "count", count)
	case statusInvalid:
		o.logger.Info("operation rejected", "op", op, "error", err)
	default:
		o.logger.Warn("operation failed", "op", op, "status", status, "duration", dur, "error", err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, ErrInvalidQuery):
		return statusInvalid
	case errors.Is(err, ErrEmbeddingProviderError):
		return statusEmbedding
	case errors.Is(err, ErrDatastore):
		return statusDatastore
	case errors.Is(err, ErrRerankFailed):
		return statusRerank
	default:
		return statusError
	}
}
