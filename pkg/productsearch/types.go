package productsearch

import (
	"github.com/shopspring/decimal"

	"github.com/sourcy/productsearch/internal/domain/search/filter"
	"github.com/sourcy/productsearch/internal/domain/search/request"
	"github.com/sourcy/productsearch/internal/domain/search/result"
)

// Query describes one product search. Nil bounds are open.
type Query struct {
	Text  string
	Page  int // zero-based
	Limit int // 0 means 20

	PriceMin, PriceMax       *decimal.Decimal
	MOQMin, MOQMax           *int64
	LeadTimeMin, LeadTimeMax *int64

	// LabelKeys keeps products carrying at least one of the keys.
	LabelKeys []string

	Translated  bool // require a translated title
	Categorized bool // require a taxonomy assignment
	BotSearch   bool // require positive price, weight and dimensions
	Rerank      bool
}

// Product is one search hit: a product represented by its closest variant.
type Product struct {
	ProductID    int64
	VariantID    int64
	Product      string
	Variant      string
	Link         string
	SupplierID   int64
	Image        string
	ImageSource  string // "variant", "product - clean", "product - raw" or "n/a"
	Price        decimal.Decimal
	MOQ          int64
	LeadTimeDays int64
	Labels       []string
	CosDistance  float64
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component -> "ok"/"error"
}

func (q *Query) toRequest() (request.Request, error) {
	f := filter.New(filter.Params{
		PriceMin:         q.PriceMin,
		PriceMax:         q.PriceMax,
		MOQMin:           q.MOQMin,
		MOQMax:           q.MOQMax,
		LeadTimeMin:      q.LeadTimeMin,
		LeadTimeMax:      q.LeadTimeMax,
		ProductLabelKeys: q.LabelKeys,
		Translated:       q.Translated,
		Categorized:      q.Categorized,
		BotSearch:        q.BotSearch,
	})
	return request.New(q.Text, q.Page, q.Limit, f, q.Rerank)
}

func productFromResult(p *result.Product) Product {
	return Product{
		ProductID:    p.ProductID,
		VariantID:    p.VariantID,
		Product:      p.Product,
		Variant:      p.Variant,
		Link:         p.Link,
		SupplierID:   p.SupplierID,
		Image:        p.Image,
		ImageSource:  p.ImageSource,
		Price:        p.Price,
		MOQ:          p.MOQ,
		LeadTimeDays: p.LeadTimeDays,
		Labels:       p.Labels,
		CosDistance:  p.CosDistance,
	}
}
