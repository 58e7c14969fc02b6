package request

import (
	"fmt"
	"strings"

	"github.com/sourcy/productsearch/internal/domain"
	"github.com/sourcy/productsearch/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 20
	MaxLimit       = 500

	// MaxResultWindow bounds (page+1)*limit, the nearest-product pool a page draws from.
	MaxResultWindow = 1000
)

// Request is a validated product search.
type Request struct {
	query   string
	page    int
	limit   int
	filters filter.Filters
	rerank  bool
}

// New validates and normalizes search parameters.
// The query is trimmed; limit 0 means DefaultLimit and values above MaxLimit are clamped.
// Pages whose window would pass MaxResultWindow are rejected.
// Every failure wraps domain.ErrInvalidQuery.
func New(query string, page, limit int, filters filter.Filters, rerank bool) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("%w: no query provided", domain.ErrInvalidQuery)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if page < 0 {
		return Request{}, fmt.Errorf("%w: page must be >= 0, got %d", domain.ErrInvalidQuery, page)
	}
	if limit < 0 {
		return Request{}, fmt.Errorf("%w: limit must be > 0, got %d", domain.ErrInvalidQuery, limit)
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if page >= MaxResultWindow/limit {
		return Request{}, fmt.Errorf("%w: page %d out of range (page+1)*limit must not exceed %d",
			domain.ErrInvalidQuery, page, MaxResultWindow)
	}
	if n := len(filters.LabelKeys()); n > filter.MaxLabelKeys {
		return Request{}, fmt.Errorf("%w: too many product label keys (%d, max %d)",
			domain.ErrInvalidQuery, n, filter.MaxLabelKeys)
	}

	return Request{
		query:   query,
		page:    page,
		limit:   limit,
		filters: filters,
		rerank:  rerank,
	}, nil
}

// Query returns the trimmed search text.
func (r *Request) Query() string { return r.query }

// Page returns the zero-based page number.
func (r *Request) Page() int { return r.page }

// Limit returns the page size.
func (r *Request) Limit() int { return r.limit }

// Filters returns the hard constraints.
func (r *Request) Filters() filter.Filters { return r.filters }

// Rerank reports whether cross-encoder reranking was requested.
func (r *Request) Rerank() bool { return r.rerank }
