package filter

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxLabelKeys is the maximum number of product label keys in one filter.
const MaxLabelKeys = 64

// Bound is an inclusive range where either end may be open (nil).
type Bound[T any] struct {
	min *T
	max *T
}

// NewBound creates a Bound. Both ends are applied independently; min <= max
// is the caller's responsibility.
func NewBound[T any](minVal, maxVal *T) Bound[T] {
	return Bound[T]{min: minVal, max: maxVal}
}

// Min returns the lower inclusive bound or nil.
func (b Bound[T]) Min() *T { return b.min }

// Max returns the upper inclusive bound or nil.
func (b Bound[T]) Max() *T { return b.max }

// IsSet reports whether at least one end is present.
func (b Bound[T]) IsSet() bool { return b.min != nil || b.max != nil }

// Params is the raw filter subset of a search request.
type Params struct {
	PriceMin, PriceMax       *decimal.Decimal
	MOQMin, MOQMax           *int64
	LeadTimeMin, LeadTimeMax *int64
	ProductLabelKeys         []string
	Translated               bool
	Categorized              bool
	BotSearch                bool
}

// Filters holds the hard constraints applied to the candidate join.
// The zero value constrains nothing.
type Filters struct {
	price       Bound[decimal.Decimal]
	moq         Bound[int64]
	leadTime    Bound[int64]
	labelKeys   []string
	translated  bool
	categorized bool
	botSearch   bool
}

// New normalizes raw params. Blank and duplicate label keys are dropped.
func New(p Params) Filters {
	return Filters{
		price:       NewBound(p.PriceMin, p.PriceMax),
		moq:         NewBound(p.MOQMin, p.MOQMax),
		leadTime:    NewBound(p.LeadTimeMin, p.LeadTimeMax),
		labelKeys:   normalizeLabels(p.ProductLabelKeys),
		translated:  p.Translated,
		categorized: p.Categorized,
		botSearch:   p.BotSearch,
	}
}

// Price returns the variant price range.
func (f Filters) Price() Bound[decimal.Decimal] { return f.price }

// MOQ returns the minimum order quantity range.
func (f Filters) MOQ() Bound[int64] { return f.moq }

// LeadTime returns the lead time range in days.
func (f Filters) LeadTime() Bound[int64] { return f.leadTime }

// LabelKeys returns the product label keys a product must carry one of.
func (f Filters) LabelKeys() []string { return f.labelKeys }

// Translated requires a translated product title.
func (f Filters) Translated() bool { return f.translated }

// Categorized requires a taxonomy assignment.
func (f Filters) Categorized() bool { return f.categorized }

// BotSearch requires the data a quoting bot needs: positive price, weight and dimensions.
func (f Filters) BotSearch() bool { return f.botSearch }

// IsEmpty reports whether no constraint is active.
func (f Filters) IsEmpty() bool {
	return !f.price.IsSet() && !f.moq.IsSet() && !f.leadTime.IsSet() &&
		len(f.labelKeys) == 0 && !f.translated && !f.categorized && !f.botSearch
}

func normalizeLabels(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
