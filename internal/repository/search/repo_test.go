package search

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sourcy/productsearch/internal/db"
	"github.com/sourcy/productsearch/internal/domain"
	"github.com/sourcy/productsearch/internal/domain/search/filter"
	"github.com/sourcy/productsearch/internal/domain/search/request"
)

func TestEFSearch(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{1, 100},
		{10, 100},
		{50, 100},
		{51, 102},
		{60, 120},
		{500, 1000},
	}
	for _, tc := range tests {
		if got := EFSearch(CandidatePool(0, tc.limit), DefaultMinEFSearch); got != tc.want {
			t.Errorf("limit %d: EFSearch = %d, want %d", tc.limit, got, tc.want)
		}
	}
}

func TestEFSearch_NeverExceedsPgvectorMax(t *testing.T) {
	tests := []struct {
		pool  int
		floor int
		want  int
	}{
		{520, DefaultMinEFSearch, MaxEFSearch},
		{1000, DefaultMinEFSearch, MaxEFSearch},
		{10, 2000, MaxEFSearch},
	}
	for _, tc := range tests {
		if got := EFSearch(tc.pool, tc.floor); got != tc.want {
			t.Errorf("EFSearch(%d, %d) = %d, want %d", tc.pool, tc.floor, got, tc.want)
		}
	}
}

func TestCandidates_DeepPagesStayWithinRecallMax(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got *db.CandidateQuery
	ms.searchCandidatesFn = func(_ context.Context, q *db.CandidateQuery) ([]db.CandidateRow, error) {
		got = q
		return nil, nil
	}

	tests := []struct {
		page     int
		limit    int
		wantPool int
		wantEF   int
	}{
		{25, 20, 520, MaxEFSearch},
		{49, 20, 1000, MaxEFSearch},
		{1, request.MaxLimit, 1000, MaxEFSearch},
	}
	for _, tc := range tests {
		if _, err := repo.Candidates(context.Background(), mustRequest(t, tc.page, tc.limit, filter.Filters{}), []float32{1}); err != nil {
			t.Fatalf("page %d limit %d: %v", tc.page, tc.limit, err)
		}
		if got.CandidateLimit != tc.wantPool || got.EFSearch != tc.wantEF {
			t.Errorf("page %d limit %d: pool=%d ef=%d, want pool=%d ef=%d",
				tc.page, tc.limit, got.CandidateLimit, got.EFSearch, tc.wantPool, tc.wantEF)
		}
	}
}

func TestCandidates_PageBeyondWindowIsInvalidQuery(t *testing.T) {
	for _, page := range []int{50, 1 << 40} {
		_, err := request.New("bamboo cutting board", page, 20, filter.Filters{}, false)
		if !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("page %d: err = %v, want ErrInvalidQuery", page, err)
		}
	}
}

func TestCandidatePool(t *testing.T) {
	if got := CandidatePool(0, 20); got != 20 {
		t.Errorf("page 0: %d, want 20", got)
	}
	if got := CandidatePool(2, 20); got != 60 {
		t.Errorf("page 2: %d, want 60", got)
	}
}

func TestCandidates_BuildsQuery(t *testing.T) {
	repo, ms := newTestRepo(t)
	vec := []float32{0.1, 0.2}
	minPrice := decimal.RequireFromString("5")
	f := filter.New(filter.Params{PriceMin: &minPrice})

	var got *db.CandidateQuery
	ms.searchCandidatesFn = func(_ context.Context, q *db.CandidateQuery) ([]db.CandidateRow, error) {
		got = q
		return nil, nil
	}

	if _, err := repo.Candidates(context.Background(), mustRequest(t, 1, 60, f), vec); err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if got == nil {
		t.Fatal("store not called")
	}
	if got.Model != DefaultModel {
		t.Errorf("model = %q", got.Model)
	}
	if got.CandidateLimit != 120 {
		t.Errorf("candidate limit = %d, want 120", got.CandidateLimit)
	}
	if got.EFSearch != 240 {
		t.Errorf("ef_search = %d, want 240", got.EFSearch)
	}
	if p := got.Filters.Price().Min(); p == nil || !p.Equal(minPrice) {
		t.Errorf("price filter not forwarded: %v", p)
	}
	if len(got.Vector) != 2 {
		t.Errorf("vector not forwarded")
	}
}

func TestCandidates_CustomOptions(t *testing.T) {
	ms := &mockStore{}
	repo := New(ms, Options{Model: "variant", MinEFSearch: 40})

	var got *db.CandidateQuery
	ms.searchCandidatesFn = func(_ context.Context, q *db.CandidateQuery) ([]db.CandidateRow, error) {
		got = q
		return nil, nil
	}
	if _, err := repo.Candidates(context.Background(), mustRequest(t, 0, 10, filter.Filters{}), []float32{1}); err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if got.Model != "variant" || got.EFSearch != 40 {
		t.Errorf("got model %q ef %d", got.Model, got.EFSearch)
	}
}

func TestCandidates_MapsRows(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchCandidatesFn = func(context.Context, *db.CandidateQuery) ([]db.CandidateRow, error) {
		return []db.CandidateRow{{
			ProductID:   7,
			VariantID:   70,
			Product:     "Board",
			Image:       "img",
			ImageSource: "variant",
			Price:       decimal.RequireFromString("3.20"),
			Labels:      []string{"eco"},
			CosDistance: 0.25,
			RankScore:   0.9,
		}}, nil
	}

	got, err := repo.Candidates(context.Background(), mustRequest(t, 0, 10, filter.Filters{}), []float32{1})
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d", len(got))
	}
	c := got[0]
	if c.ProductID != 7 || c.VariantID != 70 || c.Product.Product != "Board" || c.RankScore != 0.9 || c.CosDistance != 0.25 {
		t.Errorf("unexpected candidate: %+v", c)
	}
	if !c.Price.Equal(decimal.RequireFromString("3.2")) {
		t.Errorf("price = %s", c.Price)
	}
}

func TestCandidates_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	boom := errors.New("connection reset")
	ms.searchCandidatesFn = func(context.Context, *db.CandidateQuery) ([]db.CandidateRow, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: boom}
	}

	_, err := repo.Candidates(context.Background(), mustRequest(t, 0, 10, filter.Filters{}), []float32{1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
