package productsearch

import "github.com/sourcy/productsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrDatastore              = domain.ErrDatastore
	ErrRerankFailed           = domain.ErrRerankFailed
)

// RerankError is an explicit failure reported by the reranking service.
// Use errors.As() to inspect StatusCode and Message.
type RerankError = domain.RerankError
