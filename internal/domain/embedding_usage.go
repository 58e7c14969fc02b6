package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage collects the tokens spent vectorizing one search query.
// The handler puts a pointer into the context, the search service fills it,
// the handler reports it in the X-Embedding-Tokens header.
type EmbeddingUsage struct {
	TotalTokens int
	Used        bool // set even when the vector came from cache
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext returns the collector or nil.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records consumed tokens. Safe on a nil receiver.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.TotalTokens += n
	u.Used = true
}
