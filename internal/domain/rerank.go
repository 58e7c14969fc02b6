package domain

import "context"

// RerankHit points at one input document by its position in the request.
type RerankHit struct {
	Index          int
	RelevanceScore float64
}

// Reranker reorders documents by relevance to a query using a cross-encoder.
// A *RerankError means the service answered and refused; any other error is
// treated as transient by callers.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankHit, error)
}

// PassthroughReranker keeps the incoming order and truncates to topK.
// Used when no reranking service is configured.
type PassthroughReranker struct{}

// Rerank implements Reranker.
func (PassthroughReranker) Rerank(_ context.Context, _ string, documents []string, topK int) ([]RerankHit, error) {
	n := len(documents)
	if topK > 0 && topK < n {
		n = topK
	}
	hits := make([]RerankHit, n)
	for i := range hits {
		hits[i] = RerankHit{Index: i}
	}
	return hits, nil
}
