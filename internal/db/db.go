package db

import (
	"context"
	"time"
)

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Lifecycle is shared by every store implementation.
type Lifecycle interface {
	Pinger
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// CandidateSearcher runs the similarity join over the product catalog.
type CandidateSearcher interface {
	SearchCandidates(ctx context.Context, q *CandidateQuery) ([]CandidateRow, error)
}

// ProductStore is the read-only product catalog with its embedding index.
type ProductStore interface {
	Lifecycle
	CandidateSearcher
}

// KVStore provides the key-value operations used for caching.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CacheStore is a key-value store with lifecycle management.
type CacheStore interface {
	Lifecycle
	KVStore
}
