package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sourcy/productsearch/internal/domain"
	"github.com/sourcy/productsearch/internal/domain/search/result"
	"github.com/sourcy/productsearch/internal/logger"
	"github.com/sourcy/productsearch/internal/metrics"
)

// Rerank outcomes reported to metrics.
const (
	rerankReordered = "reordered"
	rerankFallback  = "fallback"
	rerankFailed    = "failed"
)

// RerankOrchestrator reorders search results with a cross-encoder.
//
// An explicit *domain.RerankError from the reranker fails the search.
// Any other failure (transport error, timeout, panic) is logged and the
// input order is returned unchanged.
type RerankOrchestrator struct {
	reranker Reranker
	timeout  time.Duration
	logger   *zap.Logger
}

// NewRerankOrchestrator creates an orchestrator. A non-positive timeout
// leaves the caller's deadline as the only bound.
func NewRerankOrchestrator(r Reranker, timeout time.Duration, l *zap.Logger) *RerankOrchestrator {
	if r == nil {
		r = domain.PassthroughReranker{}
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &RerankOrchestrator{reranker: r, timeout: timeout, logger: l}
}

// Apply reranks products by their display names. Products the reranker does
// not reference are dropped; out-of-range and repeated indices are ignored.
func (o *RerankOrchestrator) Apply(
	ctx context.Context, query string, products []result.Product, topK int,
) ([]result.Product, error) {
	if len(products) == 0 {
		return products, nil
	}
	log := logger.ForOperation(ctx, o.logger, component, opRerank)

	docs := make([]string, len(products))
	for i := range products {
		docs[i] = products[i].Product
	}

	start := time.Now()
	hits, err := o.call(ctx, query, docs, topK)
	metrics.SearchDuration.WithLabelValues(stageRerank).Observe(time.Since(start).Seconds())

	if err != nil {
		var explicit *domain.RerankError
		if errors.As(err, &explicit) {
			metrics.RerankTotal.WithLabelValues(rerankFailed).Inc()
			log.Error("Reranker reported failure", zap.Int("status", explicit.StatusCode), zap.Error(err))
			return nil, explicit
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		metrics.RerankTotal.WithLabelValues(rerankFallback).Inc()
		log.Warn("Reranking failed, returning original order", zap.Error(err))
		return products, nil
	}

	metrics.RerankTotal.WithLabelValues(rerankReordered).Inc()
	return reorder(products, hits), nil
}

func (o *RerankOrchestrator) call(
	ctx context.Context, query string, docs []string, topK int,
) (hits []domain.RerankHit, err error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			hits, err = nil, fmt.Errorf("reranker panic: %v", r)
		}
	}()
	return o.reranker.Rerank(ctx, query, docs, topK)
}

func reorder(products []result.Product, hits []domain.RerankHit) []result.Product {
	used := make([]bool, len(products))
	out := make([]result.Product, 0, len(hits))
	for _, h := range hits {
		if h.Index < 0 || h.Index >= len(products) || used[h.Index] {
			continue
		}
		used[h.Index] = true
		out = append(out, products[h.Index])
	}
	return out
}
