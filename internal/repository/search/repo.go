package search

import (
	"context"
	"fmt"

	"github.com/sourcy/productsearch/internal/db"
	"github.com/sourcy/productsearch/internal/domain/search/request"
	"github.com/sourcy/productsearch/internal/domain/search/result"
)

// DefaultModel is the embedding model tag both search phases are restricted to.
const DefaultModel = "product"

// DefaultMinEFSearch is the recall width floor.
const DefaultMinEFSearch = 100

// MaxEFSearch is the largest hnsw.ef_search pgvector accepts.
const MaxEFSearch = 1000

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchCandidates(ctx context.Context, q *db.CandidateQuery) ([]db.CandidateRow, error)
}

// Options tune how requests map onto store queries.
type Options struct {
	Model       string
	MinEFSearch int
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store store
	model string
	minEF int
}

// New creates a search repository. Zero options take the defaults.
func New(s store, opts Options) *Repo {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MinEFSearch <= 0 {
		opts.MinEFSearch = DefaultMinEFSearch
	}
	return &Repo{store: s, model: opts.Model, minEF: opts.MinEFSearch}
}

// CandidatePool is the number of nearest products kept for the join:
// every product of pages 0..page must be reachable.
func CandidatePool(page, limit int) int {
	return limit * (page + 1)
}

// EFSearch is the HNSW recall width for a candidate pool, capped at MaxEFSearch.
func EFSearch(pool, floor int) int {
	return min(MaxEFSearch, max(floor, pool*2))
}

// Candidates returns every (product, variant) row matching the request's
// filters among the nearest products to vector.
func (r *Repo) Candidates(ctx context.Context, req *request.Request, vector []float32) ([]result.Candidate, error) {
	pool := CandidatePool(req.Page(), req.Limit())
	q := &db.CandidateQuery{
		Vector:         vector,
		Model:          r.model,
		CandidateLimit: pool,
		EFSearch:       EFSearch(pool, r.minEF),
		Filters:        req.Filters(),
	}

	rows, err := r.store.SearchCandidates(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}

	out := make([]result.Candidate, len(rows))
	for i := range rows {
		out[i] = toCandidate(&rows[i])
	}
	return out, nil
}

func toCandidate(row *db.CandidateRow) result.Candidate {
	return result.Candidate{
		Product: result.Product{
			ProductID:    row.ProductID,
			VariantID:    row.VariantID,
			Product:      row.Product,
			Variant:      row.Variant,
			Link:         row.Link,
			SupplierID:   row.SupplierID,
			Image:        row.Image,
			ImageSource:  row.ImageSource,
			Price:        row.Price,
			MOQ:          row.MOQ,
			LeadTimeDays: row.LeadTimeDays,
			Labels:       row.Labels,
			CosDistance:  row.CosDistance,
		},
		RankScore:   row.RankScore,
		ProductRank: row.ProductRank,
	}
}
