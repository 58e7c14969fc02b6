package productsearch

import (
	"context"

	"github.com/sourcy/productsearch/internal/domain/search/request"
	"github.com/sourcy/productsearch/internal/domain/search/result"
	healthuc "github.com/sourcy/productsearch/internal/usecase/health"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req *request.Request) ([]result.Product, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req *request.Request) ([]result.Product, error) {
	return m.searchFn(ctx, req)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report { return m.report }

// --- public provider mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockReranker struct {
	fn func(ctx context.Context, query string, documents []string, topK int) ([]RerankHit, error)
}

func (m *mockReranker) Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankHit, error) {
	return m.fn(ctx, query, documents, topK)
}

// --- helpers ---

func testClient(searchSvc searchUseCase, healthSvc healthUseCase, obs *observer) *Client {
	return &Client{
		searchSvc: searchSvc,
		healthSvc: healthSvc,
		obs:       obs,
	}
}
