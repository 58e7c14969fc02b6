package domain

import (
	"errors"
	"strconv"
)

var (
	// ErrInvalidQuery signals a request rejected before any I/O (empty query, bad paging).
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEmbeddingProviderError signals that no query vector could be produced.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrDatastore signals a failed similarity query against the product store.
	ErrDatastore = errors.New("datastore error")
	// ErrRerankFailed is matched by every RerankError.
	ErrRerankFailed = errors.New("rerank failed")
)

// RerankError is an explicit failure reported by the reranking service itself.
// Unlike transport errors it is propagated to the caller of Search.
type RerankError struct {
	StatusCode int
	Message    string
}

func (e *RerankError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.StatusCode != 0 {
		return "rerank service returned status " + strconv.Itoa(e.StatusCode)
	}
	return ErrRerankFailed.Error()
}

func (e *RerankError) Unwrap() error { return ErrRerankFailed }
