package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sourcy/productsearch/internal/domain"
	"github.com/sourcy/productsearch/internal/domain/search/request"
	"github.com/sourcy/productsearch/internal/domain/search/result"
	"github.com/sourcy/productsearch/internal/logger"
	"github.com/sourcy/productsearch/internal/metrics"
)

// Log tags for the search pipeline.
const (
	component = "product_vector_store"
	opSearch  = "get_similar_products"
	opRerank  = "rerank"
)

// Pipeline stages and outcomes reported to metrics.
const (
	stageEmbed      = "embed"
	stageCandidates = "candidates"
	stageRerank     = "rerank"
	stageTotal      = "total"

	statusOK        = "ok"
	statusInvalid   = "invalid"
	statusEmbedding = "embedding_error"
	statusDatastore = "datastore_error"
	statusRerank    = "rerank_error"
	statusCanceled  = "canceled"
)

// Service runs product similarity search: embed the query, fetch candidate
// rows, dedupe and rank them, then optionally rerank.
type Service struct {
	repo   Repository
	embed  Embedder
	rerank *RerankOrchestrator
	logger *zap.Logger
}

// New creates a search service. A nil orchestrator disables reranking
// even when requested.
func New(repo Repository, embed Embedder, rerank *RerankOrchestrator, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{repo: repo, embed: embed, rerank: rerank, logger: l}
}

// Search returns at most req.Limit() products, one per product id.
// Errors match domain.ErrInvalidQuery, domain.ErrEmbeddingProviderError or
// domain.ErrDatastore, or are a *domain.RerankError returned as-is.
func (s *Service) Search(ctx context.Context, req *request.Request) ([]result.Product, error) {
	start := time.Now()
	log := logger.ForOperation(ctx, s.logger, component, opSearch)

	products, status, err := s.search(ctx, req)
	metrics.SearchRequestsTotal.WithLabelValues(status).Inc()
	metrics.SearchDuration.WithLabelValues(stageTotal).Observe(time.Since(start).Seconds())

	if err != nil {
		if status == statusInvalid || status == statusCanceled {
			log.Warn("Search rejected", zap.Error(err))
		} else {
			log.Error("Search failed", zap.Error(err))
		}
		return nil, err
	}
	return products, nil
}

func (s *Service) search(ctx context.Context, req *request.Request) ([]result.Product, string, error) {
	if req == nil || req.Query() == "" {
		return nil, statusInvalid, fmt.Errorf("%w: no query provided", domain.ErrInvalidQuery)
	}

	vector, err := s.vectorize(ctx, req.Query())
	if err != nil {
		return nil, failureStatus(ctx, statusEmbedding), err
	}

	t := time.Now()
	cands, err := s.repo.Candidates(ctx, req, vector)
	metrics.SearchDuration.WithLabelValues(stageCandidates).Observe(time.Since(t).Seconds())
	if err != nil {
		return nil, failureStatus(ctx, statusDatastore), fmt.Errorf("%w: %w", domain.ErrDatastore, err)
	}
	metrics.SearchCandidateRows.Observe(float64(len(cands)))

	products := Paginate(cands, req.Page(), req.Limit())

	if req.Rerank() && s.rerank != nil {
		products, err = s.rerank.Apply(ctx, req.Query(), products, req.Limit())
		if err != nil {
			return nil, failureStatus(ctx, statusRerank), err
		}
	}
	return products, statusOK, nil
}

func (s *Service) vectorize(ctx context.Context, query string) ([]float32, error) {
	t := time.Now()
	emb, err := s.embed.Embed(ctx, query)
	metrics.SearchDuration.WithLabelValues(stageEmbed).Observe(time.Since(t).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingProviderError) {
			return nil, fmt.Errorf("vectorize query: %w", err)
		}
		return nil, fmt.Errorf("vectorize query: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	if len(emb.Embedding) == 0 {
		return nil, fmt.Errorf("vectorize query: %w: empty vector", domain.ErrEmbeddingProviderError)
	}

	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)
	return emb.Embedding, nil
}

func failureStatus(ctx context.Context, status string) string {
	if ctx.Err() != nil {
		return statusCanceled
	}
	return status
}
