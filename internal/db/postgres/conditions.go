package postgres

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/sourcy/productsearch/internal/domain/search/filter"
)

// Column references used by the detail join.
const (
	colPrice       = "pv.price"
	colMOQ         = "pv.moq"
	colLeadTime    = "pv.lead_time_days"
	colLabelKey    = "l.label_key"
	colLabels      = "pl.labels"
	colTitleTransl = "p.title_translated"
	colTaxonomy    = "p.taxonomy_id"
	botReadyExpr   = "pv.price > 0 AND pv.weight_per_unit_kg IS NOT NULL AND pv.length_cm IS NOT NULL AND pv.width_cm IS NOT NULL AND pv.height_cm IS NOT NULL"
	alwaysTrueExpr = "true"
)

var alwaysTrue = sq.Expr(alwaysTrueExpr)

var unfiltered = Conditions{
	Price:       alwaysTrue,
	MOQ:         alwaysTrue,
	LeadTime:    alwaysTrue,
	LabelKeys:   alwaysTrue,
	Labels:      alwaysTrue,
	Translated:  alwaysTrue,
	Categorized: alwaysTrue,
	BotSearch:   alwaysTrue,
}

// Conditions is one predicate per filter dimension. Unset dimensions are
// the literal true, so any subset can be ANDed together.
type Conditions struct {
	Price       sq.Sqlizer
	MOQ         sq.Sqlizer
	LeadTime    sq.Sqlizer
	LabelKeys   sq.Sqlizer // applied inside the label aggregate
	Labels      sq.Sqlizer // requires a surviving label aggregate
	Translated  sq.Sqlizer
	Categorized sq.Sqlizer
	BotSearch   sq.Sqlizer
}

// BuildConditions translates filters into bind-parameter predicates.
// Only label keys are interpolated, and they go through Escape.
func BuildConditions(f filter.Filters) Conditions {
	if f.IsEmpty() {
		return unfiltered
	}

	c := Conditions{
		Price:       rangeCondition(colPrice, f.Price()),
		MOQ:         rangeCondition(colMOQ, f.MOQ()),
		LeadTime:    rangeCondition(colLeadTime, f.LeadTime()),
		LabelKeys:   alwaysTrue,
		Labels:      alwaysTrue,
		Translated:  alwaysTrue,
		Categorized: alwaysTrue,
		BotSearch:   alwaysTrue,
	}

	if keys := f.LabelKeys(); len(keys) > 0 {
		c.LabelKeys = labelKeysCondition(keys)
		c.Labels = sq.NotEq{colLabels: nil}
	}
	if f.Translated() {
		c.Translated = sq.NotEq{colTitleTransl: nil}
	}
	if f.Categorized() {
		c.Categorized = sq.NotEq{colTaxonomy: nil}
	}
	if f.BotSearch() {
		c.BotSearch = sq.Expr(botReadyExpr)
	}
	return c
}

// Detail returns the predicates of the outer join in a fixed order.
func (c Conditions) Detail() sq.And {
	return sq.And{c.BotSearch, c.Price, c.MOQ, c.LeadTime, c.Labels, c.Translated, c.Categorized}
}

func rangeCondition[T any](col string, b filter.Bound[T]) sq.Sqlizer {
	var parts sq.And
	if lo := b.Min(); lo != nil {
		parts = append(parts, sq.GtOrEq{col: *lo})
	}
	if hi := b.Max(); hi != nil {
		parts = append(parts, sq.LtOrEq{col: *hi})
	}
	if len(parts) == 0 {
		return alwaysTrue
	}
	return parts
}

func labelKeysCondition(keys []string) sq.Sqlizer {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		// '?' is the builder's placeholder; "??" emits a literal one.
		quoted[i] = strings.ReplaceAll(Escape(k), "?", "??")
	}
	return sq.Expr(colLabelKey + " IN (" + strings.Join(quoted, ", ") + ")")
}
