package result

import "github.com/shopspring/decimal"

// Image provenance tags.
const (
	ImageFromVariant      = "variant"
	ImageFromCleanProduct = "product - clean"
	ImageFromRawProduct   = "product - raw"
	ImageNone             = "n/a"
)

// Product is one search hit: a product represented by its closest matching variant.
type Product struct {
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
}

// Candidate is one (product, variant) row produced by the similarity join,
// before deduplication. RankScore is the precomputed relevance signal (0 when absent).
// ProductRank is the 1-based position of the product among the nearest
// products by product-level distance; 0 means unknown.
type Candidate struct {
	Product
	RankScore   float64
	ProductRank int64
}
