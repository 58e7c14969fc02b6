// Package app is the composition root shared by the HTTP service and the CLI.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sourcy/productsearch/internal/config"
	"github.com/sourcy/productsearch/internal/db/postgres"
	dbRedis "github.com/sourcy/productsearch/internal/db/redis"
	"github.com/sourcy/productsearch/internal/domain"
	"github.com/sourcy/productsearch/internal/metrics"
	"github.com/sourcy/productsearch/internal/repository/embcache"
	searchrepo "github.com/sourcy/productsearch/internal/repository/search"
	"github.com/sourcy/productsearch/internal/transport/cohere"
	openaiEmb "github.com/sourcy/productsearch/internal/transport/openai"
	healthuc "github.com/sourcy/productsearch/internal/usecase/health"
	searchuc "github.com/sourcy/productsearch/internal/usecase/search"
)

// App holds the wired services and the resources they own.
type App struct {
	Search *searchuc.Service
	Health *healthuc.Service

	db    *postgres.Store
	cache *dbRedis.Store
}

// New connects to the catalog database (and the embedding cache when enabled),
// waits for both to be ready and builds the search pipeline.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	store, err := postgres.NewStore(ctx, postgres.Config{
		DSN:      cfg.Database.ConnString(),
		Schema:   cfg.Database.Schema,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	a := &App{db: store}

	if err := store.WaitForReady(ctx, cfg.Database.ReadinessTimeoutDuration()); err != nil {
		a.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.String("schema", cfg.Database.Schema))

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	var cachePinger healthuc.Pinger
	if cfg.Cache.Enabled {
		cache, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		a.cache = cache
		cachePinger = cache
		embedder = embcache.New(base, cache, base.Model(), cfg.Cache.TTL(), metrics.QueryEmbeddingCacheTotal, logger)
		logger.Info("Embedding cache enabled",
			zap.String("driver", cfg.Cache.Driver),
			zap.Strings("addrs", cfg.Cache.Addrs),
		)
	}

	orchestrator := searchuc.NewRerankOrchestrator(buildReranker(&cfg.Rerank, logger), cfg.Rerank.Timeout(), logger)

	repo := searchrepo.New(store, searchrepo.Options{
		Model:       cfg.Search.Model,
		MinEFSearch: cfg.Search.MinEFSearch,
	})

	a.Search = searchuc.New(repo, embedder, orchestrator, logger)
	a.Health = healthuc.New(store, cachePinger, base)

	logger.Info("Search pipeline ready",
		zap.String("embedding_model", base.Model()),
		zap.String("vector_model_tag", cfg.Search.Model),
		zap.Bool("rerank_configured", cfg.Rerank.APIKey != ""),
	)
	return a, nil
}

// Close releases the database pool and cache connections.
func (a *App) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// buildReranker returns the Cohere client, or a passthrough when no API key is configured.
func buildReranker(cfg *config.RerankConfig, logger *zap.Logger) searchuc.Reranker {
	if cfg.APIKey == "" {
		logger.Info("No rerank API key configured, reranking keeps original order")
		return domain.PassthroughReranker{}
	}
	return cohere.NewReranker(&cohere.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout(),
	})
}
