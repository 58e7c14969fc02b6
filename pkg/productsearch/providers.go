package productsearch

import (
	"context"
	"fmt"

	"github.com/sourcy/productsearch/internal/domain"
)

// Embedder converts the query text to a vector in the same space as the
// stored product embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Reranker orders documents by relevance to query and returns at most topK hits.
// Return a *RerankError to fail the search; any other error keeps the
// similarity order.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankHit, error)
}

// RerankHit points at one input document by its position.
type RerankHit struct {
	Index          int
	RelevanceScore float64
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// rerankerAdapter wraps public Reranker to satisfy the search use case.
// Errors pass through untouched so *RerankError stays recognizable.
type rerankerAdapter struct {
	inner Reranker
}

func (a *rerankerAdapter) Rerank(
	ctx context.Context, query string, documents []string, topK int,
) ([]domain.RerankHit, error) {
	hits, err := a.inner.Rerank(ctx, query, documents, topK)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RerankHit, len(hits))
	for i, h := range hits {
		out[i] = domain.RerankHit{Index: h.Index, RelevanceScore: h.RelevanceScore}
	}
	return out, nil
}
