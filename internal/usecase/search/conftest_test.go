package search

import (
	"context"
	"strconv"
	"testing"

	"github.com/sourcy/productsearch/internal/domain"
	"github.com/sourcy/productsearch/internal/domain/search/filter"
	"github.com/sourcy/productsearch/internal/domain/search/request"
	"github.com/sourcy/productsearch/internal/domain/search/result"
	searchrepo "github.com/sourcy/productsearch/internal/repository/search"
)

// --- Mocks ---

type mockRepo struct {
	candidatesFn func(ctx context.Context, req *request.Request, vector []float32) ([]result.Candidate, error)
	calls        int
}

func (m *mockRepo) Candidates(ctx context.Context, req *request.Request, vector []float32) ([]result.Candidate, error) {
	m.calls++
	if m.candidatesFn != nil {
		return m.candidatesFn(ctx, req, vector)
	}
	return nil, nil
}

type mockEmbedder struct {
	vec    []float32
	tokens int
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	vec := m.vec
	if vec == nil {
		vec = []float32{0.1, 0.2, 0.3}
	}
	return domain.EmbeddingResult{Embedding: vec, TotalTokens: m.tokens}, nil
}

type mockReranker struct {
	rerankFn func(ctx context.Context, query string, docs []string, topK int) ([]domain.RerankHit, error)
	calls    int
	docs     []string
	topK     int
}

func (m *mockReranker) Rerank(ctx context.Context, query string, docs []string, topK int) ([]domain.RerankHit, error) {
	m.calls++
	m.docs = docs
	m.topK = topK
	if m.rerankFn != nil {
		return m.rerankFn(ctx, query, docs, topK)
	}
	return domain.PassthroughReranker{}.Rerank(ctx, query, docs, topK)
}

// fakeCatalog emulates the candidate join over an in-memory dataset:
// products are ranked by product-level distance, the nearest
// CandidatePool(page, limit) are kept, then price filters drop variants.
type fakeCatalog struct {
	rows []result.Candidate // ProductRank set on every row
}

func (f *fakeCatalog) Candidates(_ context.Context, req *request.Request, _ []float32) ([]result.Candidate, error) {
	pool := int64(searchrepo.CandidatePool(req.Page(), req.Limit()))
	price := req.Filters().Price()

	var out []result.Candidate
	for _, r := range f.rows {
		if r.ProductRank > pool {
			continue
		}
		if lo := price.Min(); lo != nil && r.Price.LessThan(*lo) {
			continue
		}
		if hi := price.Max(); hi != nil && r.Price.GreaterThan(*hi) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// --- Helpers ---

func cand(productID, variantID int64, dist, score float64) result.Candidate {
	return result.Candidate{
		Product: result.Product{
			ProductID:   productID,
			VariantID:   variantID,
			Product:     "product-" + strconv.FormatInt(productID, 10),
			CosDistance: dist,
		},
		RankScore: score,
	}
}

func mustRequest(t *testing.T, query string, page, limit int, f filter.Filters, rerank bool) *request.Request {
	t.Helper()
	req, err := request.New(query, page, limit, f, rerank)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &req
}

func productIDs(ps []result.Product) []int64 {
	ids := make([]int64, len(ps))
	for i := range ps {
		ids[i] = ps[i].ProductID
	}
	return ids
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func newTestService(repo Repository, emb *mockEmbedder, rr Reranker) *Service {
	var orch *RerankOrchestrator
	if rr != nil {
		orch = NewRerankOrchestrator(rr, 0, nil)
	}
	return New(repo, emb, orch, nil)
}
