package db

import (
	"github.com/shopspring/decimal"

	"github.com/sourcy/productsearch/internal/domain/search/filter"
)

// CandidateQuery is the input for the two-phase similarity search.
type CandidateQuery struct {
	// Vector is the query embedding.
	Vector []float32
	// Model restricts both phases to embeddings of this model/type.
	Model string
	// CandidateLimit bounds phase one: the nearest products kept for the join.
	CandidateLimit int
	// EFSearch is the HNSW recall width applied for this query only.
	EFSearch int
	Filters  filter.Filters
}

// CandidateRow is one (product, variant) pair emitted by the join.
// Rows are ordered by product, distance, variant.
type CandidateRow struct {
	ProductID    int64
	VariantID    int64
	Product      string
	Variant      string
	Link         string
	SupplierID   int64
	Image        string
	ImageSource  string
	Price        decimal.Decimal
	MOQ          int64
	LeadTimeDays int64
	Labels       []string
	CosDistance  float64
	RankScore    float64

	// ProductRank is the product's 1-based position in the nearest-product pool.
	ProductRank int64
}
