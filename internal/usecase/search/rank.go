package search

import (
	"cmp"
	"slices"

	"github.com/sourcy/productsearch/internal/domain/search/result"
)

// Dedupe keeps one candidate per product: the variant with the smallest
// cosine distance. Equal distances keep the earliest row. Products appear in
// the order they were first seen.
func Dedupe(cands []result.Candidate) []result.Candidate {
	pos := make(map[int64]int, len(cands))
	out := make([]result.Candidate, 0, len(cands))
	for i := range cands {
		c := cands[i]
		j, seen := pos[c.ProductID]
		if !seen {
			pos[c.ProductID] = len(out)
			out = append(out, c)
			continue
		}
		if c.CosDistance < out[j].CosDistance {
			out[j] = c
		}
	}
	return out
}

// Order sorts by rank score descending, then cosine distance ascending.
// The sort is stable, so remaining ties keep input order.
func Order(cands []result.Candidate) {
	slices.SortStableFunc(cands, func(a, b result.Candidate) int {
		if c := cmp.Compare(b.RankScore, a.RankScore); c != 0 {
			return c
		}
		return cmp.Compare(a.CosDistance, b.CosDistance)
	})
}

// Paginate dedupes candidates and returns the requested page.
//
// Page j holds the best limit products, by Order, among the nearest
// limit*(j+1) products (by ProductRank) that were not on pages 0..j-1.
// Page 0 is therefore the ordered top of the nearest limit products, and
// no product ever appears on two pages. Candidates with an unknown rank
// belong to every window.
func Paginate(cands []result.Candidate, page, limit int) []result.Product {
	if limit <= 0 || page < 0 {
		return nil
	}
	best := Dedupe(cands)
	shown := make(map[int64]struct{}, limit*page)

	var current []result.Candidate
	for j := 0; j <= page; j++ {
		window := int64(limit) * int64(j+1)
		current = current[:0]
		for _, c := range best {
			if _, done := shown[c.ProductID]; done {
				continue
			}
			if c.ProductRank == 0 || c.ProductRank <= window {
				current = append(current, c)
			}
		}
		Order(current)
		if len(current) > limit {
			current = current[:limit]
		}
		for _, c := range current {
			shown[c.ProductID] = struct{}{}
		}
	}

	out := make([]result.Product, len(current))
	for i := range current {
		out[i] = current[i].Product
	}
	return out
}
