// Package productsearch embeds the catalog similarity search in another Go
// program, such as the workflow that builds sourcing quotes.
//
// Products are stored with pgvector embeddings in PostgreSQL. A query is
// vectorized, matched against the HNSW index, deduplicated to one variant per
// product, ordered by the precomputed rank score and optionally reranked by a
// cross-encoder.
//
//	client, err := productsearch.New(ctx,
//	    productsearch.WithPostgres("postgres://search@db/catalog"),
//	    productsearch.WithOpenAI(os.Getenv("OPENAI_API_KEY")),
//	    productsearch.WithCohere(os.Getenv("COHERE_API_KEY")),
//	)
//	defer client.Close()
//
//	maxPrice := decimal.NewFromInt(20)
//	products, err := client.Search(ctx, productsearch.Query{
//	    Text:     "insulated steel bottle",
//	    Limit:    10,
//	    PriceMax: &maxPrice,
//	    Rerank:   true,
//	})
//
// An explicit refusal from the reranking service is returned as *RerankError.
// Transient reranker failures keep the similarity order.
package productsearch
