package search

import (
	"context"
	"testing"

	"github.com/sourcy/productsearch/internal/db"
	"github.com/sourcy/productsearch/internal/domain/search/filter"
	"github.com/sourcy/productsearch/internal/domain/search/request"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchCandidatesFn func(ctx context.Context, q *db.CandidateQuery) ([]db.CandidateRow, error)
}

func (m *mockStore) SearchCandidates(ctx context.Context, q *db.CandidateQuery) ([]db.CandidateRow, error) {
	if m.searchCandidatesFn != nil {
		return m.searchCandidatesFn(ctx, q)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, Options{}), ms
}

func mustRequest(t *testing.T, page, limit int, f filter.Filters) *request.Request {
	t.Helper()
	req, err := request.New("bamboo cutting board", page, limit, f, false)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &req
}
