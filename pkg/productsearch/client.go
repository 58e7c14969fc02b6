package productsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sourcy/productsearch/internal/db/postgres"
	dbRedis "github.com/sourcy/productsearch/internal/db/redis"
	"github.com/sourcy/productsearch/internal/domain"
	"github.com/sourcy/productsearch/internal/domain/search/request"
	"github.com/sourcy/productsearch/internal/domain/search/result"
	"github.com/sourcy/productsearch/internal/metrics"
	"github.com/sourcy/productsearch/internal/repository/embcache"
	searchrepo "github.com/sourcy/productsearch/internal/repository/search"
	"github.com/sourcy/productsearch/internal/transport/cohere"
	openaiEmb "github.com/sourcy/productsearch/internal/transport/openai"
	healthuc "github.com/sourcy/productsearch/internal/usecase/health"
	searchuc "github.com/sourcy/productsearch/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped out in tests.
type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) ([]result.Product, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the productsearch library entry point. It is safe for concurrent use.
type Client struct {
	db        *postgres.Store
	cache     *dbRedis.Store
	searchSvc searchUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and connects to the catalog database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.dsn == "" {
		return nil, errors.New("productsearch: database connection string required (use WithPostgres)")
	}
	if cfg.embedder == nil && cfg.openAIKey == "" {
		return nil, errors.New("productsearch: query embedder required (use WithOpenAI or WithEmbedder)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := postgres.NewStore(ctx, postgres.Config{
		DSN:      cfg.dsn,
		Schema:   cfg.schema,
		MaxConns: cfg.maxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("productsearch: create database store: %w", err)
	}
	c := &Client{db: store, obs: obs}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		c.Close()
		return nil, fmt.Errorf("productsearch: database not ready: %w", err)
	}

	if len(cfg.cacheAddrs) > 0 {
		cache, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.cacheAddrs,
			Password: cfg.cachePassword,
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("productsearch: create cache store: %w", err)
		}
		c.cache = cache
	}

	c.wire(cfg)
	return c, nil
}

func (c *Client) wire(cfg *clientConfig) {
	nop := zap.NewNop()

	var (
		embedder domain.Embedder
		checker  healthuc.EmbeddingChecker
		model    = cfg.openAIModel
	)
	if cfg.embedder != nil {
		embedder = &embedderAdapter{inner: cfg.embedder}
		if model == "" {
			model = "custom"
		}
	} else {
		base := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey: cfg.openAIKey,
			Model:  cfg.openAIModel,
			Logger: nop,
		})
		embedder, checker, model = base, base, base.Model()
	}

	var cachePinger healthuc.Pinger
	if c.cache != nil {
		embedder = embcache.New(embedder, c.cache, model, cfg.cacheTTL, metrics.QueryEmbeddingCacheTotal, nop)
		cachePinger = c.cache
	}

	var reranker searchuc.Reranker = domain.PassthroughReranker{}
	switch {
	case cfg.reranker != nil:
		reranker = &rerankerAdapter{inner: cfg.reranker}
	case cfg.cohereKey != "":
		reranker = cohere.NewReranker(&cohere.Config{APIKey: cfg.cohereKey, Timeout: cfg.rerankTimeout})
	}
	timeout := cfg.rerankTimeout
	if timeout <= 0 {
		timeout = cohere.DefaultTimeout
	}

	repo := searchrepo.New(c.db, searchrepo.Options{Model: cfg.modelTag, MinEFSearch: cfg.minEFSearch})
	c.searchSvc = searchuc.New(repo, embedder, searchuc.NewRerankOrchestrator(reranker, timeout, nop), nop)
	c.healthSvc = healthuc.New(c.db, cachePinger, checker)
}

// Close releases all resources.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, -1, err) }()

	if err = c.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search returns at most q.Limit products most similar to q.Text that satisfy
// every filter, one variant per product.
func (c *Client) Search(ctx context.Context, q Query) (products []Product, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, len(products), err) }()

	req, err := q.toRequest()
	if err != nil {
		return nil, err
	}

	found, err := c.searchSvc.Search(ctx, &req)
	if err != nil {
		return nil, err
	}

	products = make([]Product, len(found))
	for i := range found {
		products[i] = productFromResult(&found[i])
	}
	return products, nil
}

// Health checks the health of all system components.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}
