package postgres

import (
	"context"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/shopspring/decimal"

	"github.com/sourcy/productsearch/internal/db"
)

// set_config with is_local=true reverts at transaction end.
const tuneSQL = "SELECT set_config($1, $2, true)"

const efSearchParam = "hnsw.ef_search"

var detailColumns = []string{
	"pvs.product_id::bigint",
	"pvs.product_variant_id::bigint",
	"COALESCE(p.title_translated, p.title, '') AS product",
	"COALESCE(pv.product_variant_key_translated, pv.product_variant_key, '') AS variant",
	"COALESCE(p.link, '') AS link",
	"COALESCE(p.supplier_id, 0)::bigint AS supplier_id",
	"COALESCE(pv.images[1], p.image_urls_clean[1], p.image_urls[1], '') AS product_image",
	`CASE
		WHEN pv.images[1] IS NOT NULL THEN 'variant'
		WHEN p.image_urls_clean[1] IS NOT NULL THEN 'product - clean'
		WHEN p.image_urls[1] IS NOT NULL THEN 'product - raw'
		ELSE 'n/a'
	END AS image_source`,
	"COALESCE(pv.price, 0)::text AS price",
	"COALESCE(pv.moq, 0)::bigint AS moq",
	"COALESCE(pv.lead_time_days, 0)::bigint AS lead_time_days",
	"COALESCE(pl.labels, '{}')::text[] AS labels",
}

// SearchCandidates runs recall tuning and the candidate join inside one
// read-only transaction, so both statements share a connection and the
// ef_search setting is dropped when the transaction ends.
func (s *Store) SearchCandidates(ctx context.Context, q *db.CandidateQuery) ([]db.CandidateRow, error) {
	query, args, err := s.candidateSQL(q)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, &db.Error{Op: db.OpBegin, Err: err}
	}

	out, err := runCandidateQuery(ctx, tx, q.EFSearch, query, args)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &db.Error{Op: db.OpCommit, Err: err}
	}
	return out, nil
}

func runCandidateQuery(ctx context.Context, tx pgx.Tx, efSearch int, query string, args []any) ([]db.CandidateRow, error) {
	if _, err := tx.Exec(ctx, tuneSQL, efSearchParam, strconv.Itoa(efSearch)); err != nil {
		return nil, &db.Error{Op: db.OpTune, Err: err}
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	out, err := pgx.CollectRows(rows, scanCandidate)
	if err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	return out, nil
}

// candidateSQL builds the two-phase query:
// product_limit picks the nearest products by product-level embedding and
// numbers them by distance,
// pl aggregates (optionally filtered) labels for those products,
// and the outer select joins their variants and applies every filter.
func (s *Store) candidateSQL(q *db.CandidateQuery) (string, []any, error) {
	if len(q.Vector) == 0 {
		return "", nil, fmt.Errorf("empty query vector")
	}
	if q.CandidateLimit <= 0 {
		return "", nil, fmt.Errorf("candidate limit must be positive, got %d", q.CandidateLimit)
	}

	vec := pgvector.NewVector(q.Vector)
	cond := BuildConditions(q.Filters)
	t := s.tables

	nearest := sq.Select("e.product_id").
		Column(sq.Expr("e.embedding <=> ?::vector AS cos_dist", vec)).
		From(fmt.Sprintf("%s e", t.Embeddings)).
		Where(sq.Eq{"e.model": q.Model}).
		OrderBy("cos_dist").
		Limit(uint64(q.CandidateLimit))
	limitSQL, limitArgs, err := sq.Select(
		"nn.product_id",
		"nn.cos_dist",
		"row_number() OVER (ORDER BY nn.cos_dist, nn.product_id) AS product_rank",
	).
		FromSelect(nearest, "nn").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build candidate selection: %w", err)
	}

	labelSQL, labelArgs, err := sq.Select("l.product_id", "array_agg(l.label_key) AS labels").
		From(fmt.Sprintf("%s l", t.Labels)).
		Where("l.product_id IN (SELECT product_id FROM product_limit)").
		Where(cond.LabelKeys).
		GroupBy("l.product_id").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build label aggregate: %w", err)
	}

	prefixArgs := append(limitArgs, labelArgs...)
	query, args, err := sq.Select(detailColumns...).
		Prefix(fmt.Sprintf("WITH product_limit AS (%s), pl AS (%s)", limitSQL, labelSQL), prefixArgs...).
		Column(sq.Expr("pvs.embedding <=> ?::vector AS cos_dist", vec)).
		Column("COALESCE(psm.final_score, 0)::float8 AS rank_score").
		Column("c.product_rank").
		From(fmt.Sprintf("%s pvs", t.VectorStore)).
		Join(fmt.Sprintf("%s p ON p.product_id = pvs.product_id", t.Products)).
		Join(fmt.Sprintf("%s pv ON pv.product_variant_id = pvs.product_variant_id", t.Variants)).
		Join("product_limit c ON c.product_id = pvs.product_id").
		LeftJoin("pl ON pl.product_id = pvs.product_id").
		LeftJoin(fmt.Sprintf("%s psm ON psm.product_id = pvs.product_id", t.SearchMetrics)).
		Where(sq.Eq{"pvs.model": q.Model}).
		Where(cond.Detail()).
		OrderBy("pvs.product_id", "cos_dist", "pvs.product_variant_id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build detail join: %w", err)
	}
	return query, args, nil
}

func scanCandidate(row pgx.CollectableRow) (db.CandidateRow, error) {
	var (
		r     db.CandidateRow
		price string
	)
	err := row.Scan(
		&r.ProductID,
		&r.VariantID,
		&r.Product,
		&r.Variant,
		&r.Link,
		&r.SupplierID,
		&r.Image,
		&r.ImageSource,
		&price,
		&r.MOQ,
		&r.LeadTimeDays,
		&r.Labels,
		&r.CosDistance,
		&r.RankScore,
		&r.ProductRank,
	)
	if err != nil {
		return r, err
	}
	r.Price, err = decimal.NewFromString(price)
	if err != nil {
		return r, fmt.Errorf("parse price %q: %w", price, err)
	}
	return r, nil
}
