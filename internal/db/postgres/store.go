package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/sourcy/productsearch/internal/db"
)

var _ db.ProductStore = (*Store)(nil)

// Tables names the relations read by the candidate query.
type Tables struct {
	Embeddings    string // product-level embeddings used for candidate selection
	VectorStore   string // variant-level embeddings
	Products      string
	Variants      string
	Labels        string
	SearchMetrics string
}

// DefaultTables returns the catalog's standard relation names.
func DefaultTables() Tables {
	return Tables{
		Embeddings:    "product_embeddings",
		VectorStore:   "product_vector_store",
		Products:      "products",
		Variants:      "product_variants",
		Labels:        "product_labels",
		SearchMetrics: "product_search_metrics",
	}
}

// Config holds connection parameters for the catalog database.
type Config struct {
	DSN      string
	Schema   string
	MaxConns int32
	Tables   Tables
}

// pool is the subset of pgxpool.Pool the store depends on.
type pool interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Store implements db.ProductStore on PostgreSQL with pgvector.
type Store struct {
	pool   pool
	tables Tables // schema-qualified, sanitized identifiers
}

// NewStore opens a connection pool. Connections register the vector type on connect.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pcfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	p, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, &db.Error{Op: db.OpConnect, Err: err}
	}
	return newStore(p, cfg), nil
}

// NewStoreForTest wraps an existing pool, typically a pgxmock pool.
func NewStoreForTest(p pool, cfg Config) *Store {
	return newStore(p, cfg)
}

func newStore(p pool, cfg Config) *Store {
	t := cfg.Tables
	d := DefaultTables()
	return &Store{
		pool: p,
		tables: Tables{
			Embeddings:    qualify(cfg.Schema, t.Embeddings, d.Embeddings),
			VectorStore:   qualify(cfg.Schema, t.VectorStore, d.VectorStore),
			Products:      qualify(cfg.Schema, t.Products, d.Products),
			Variants:      qualify(cfg.Schema, t.Variants, d.Variants),
			Labels:        qualify(cfg.Schema, t.Labels, d.Labels),
			SearchMetrics: qualify(cfg.Schema, t.SearchMetrics, d.SearchMetrics),
		},
	}
}

func qualify(schema, name, fallback string) string {
	if name == "" {
		name = fallback
	}
	if schema == "" {
		return pgx.Identifier{name}.Sanitize()
	}
	return pgx.Identifier{schema, name}.Sanitize()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return db.WaitForReady(ctx, timeout, s.Ping)
}
