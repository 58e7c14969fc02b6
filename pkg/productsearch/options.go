package productsearch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	dsn      string
	schema   string
	maxConns int32

	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration

	openAIKey   string
	openAIModel string
	embedder    Embedder

	cohereKey     string
	reranker      Reranker
	rerankTimeout time.Duration

	modelTag    string
	minEFSearch int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithPostgres sets the catalog database connection string.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dsn = dsn
	})
}

// WithSchema sets the schema holding the catalog tables. Default: public.
func WithSchema(schema string) Option {
	return optionFunc(func(c *clientConfig) {
		c.schema = schema
	})
}

// WithMaxConns caps the connection pool size.
func WithMaxConns(n int32) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxConns = n
	})
}

// WithRedisCache caches query embeddings in Redis or Valkey.
// A non-positive ttl means 24h.
func WithRedisCache(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
		c.cacheTTL = ttl
	})
}

// WithOpenAI vectorizes queries with the OpenAI embeddings API.
// The model defaults to text-embedding-3-small.
func WithOpenAI(apiKey string, model ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAIKey = apiKey
		if len(model) > 0 {
			c.openAIModel = model[0]
		}
	})
}

// WithEmbedder sets a custom query embedder. It wins over WithOpenAI.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithCohere reranks with Cohere's rerank-english-v3.0 model.
// An empty key keeps the similarity order.
func WithCohere(apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cohereKey = apiKey
	})
}

// WithReranker sets a custom reranker. It wins over WithCohere.
func WithReranker(r Reranker) Option {
	return optionFunc(func(c *clientConfig) {
		c.reranker = r
	})
}

// WithRerankTimeout bounds each rerank call. Default: 10s.
func WithRerankTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.rerankTimeout = d
	})
}

// WithModelTag selects which stored product embeddings are searched. Default: "product".
func WithModelTag(tag string) Option {
	return optionFunc(func(c *clientConfig) {
		c.modelTag = tag
	})
}

// WithMinEFSearch sets the HNSW recall width floor. Default: 100.
func WithMinEFSearch(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.minEFSearch = n
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
