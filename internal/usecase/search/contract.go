package search

import (
	"context"

	"github.com/sourcy/productsearch/internal/domain"
	"github.com/sourcy/productsearch/internal/domain/search/request"
	"github.com/sourcy/productsearch/internal/domain/search/result"
)

// Repository defines the storage contract for search operations.
type Repository interface {
	Candidates(ctx context.Context, req *request.Request, vector []float32) ([]result.Candidate, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Reranker reorders documents by relevance to a query.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]domain.RerankHit, error)
}
