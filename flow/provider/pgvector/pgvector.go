// Package pgvector implements flow/provider's VectorClient contract on top
// of PostgreSQL with the pgvector extension, using pgx for the connection
// pool and pgvector-go for the vector column codec.
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/flowforge/flowrun/flow/provider"
)

// Client implements provider.VectorClient against a pgvector-enabled
// Postgres database. Each IndexName names a distinct table, created on
// first use; Namespace, when set, becomes a `namespace` filter column rather
// than a separate table.
type Client struct {
	pool *pgxpool.Pool
	dim  int
}

// New builds a Client from a pool and the fixed vector dimension every
// index in this deployment shares.
func New(pool *pgxpool.Pool, dimension int) *Client {
	return &Client{pool: pool, dim: dimension}
}

// Connect dials Postgres, registering the vector codec on every pooled
// connection, and wraps the pool in a Client.
func Connect(ctx context.Context, connString string, dimension int) (*Client, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("pgvector: parse connection string: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgvector: connect: %w", err)
	}
	return New(pool, dimension), nil
}

func (c *Client) ensureTable(ctx context.Context, table string) error {
	_, err := c.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("pgvector: enable extension: %w", err)
	}
	_, err = c.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			namespace TEXT NOT NULL DEFAULT '',
			embedding vector(%d),
			metadata JSONB
		)`, table, c.dim))
	if err != nil {
		return fmt.Errorf("pgvector: create table %s: %w", table, err)
	}
	return nil
}

// Insert implements provider.VectorClient.
func (c *Client) Insert(ctx context.Context, req provider.VectorInsertRequest) (provider.VectorInsertResponse, error) {
	if err := c.ensureTable(ctx, req.IndexName); err != nil {
		return provider.VectorInsertResponse{}, err
	}

	ids := make([]string, 0, len(req.Records))
	for _, rec := range req.Records {
		metadata, err := json.Marshal(rec.Metadata)
		if err != nil {
			return provider.VectorInsertResponse{}, fmt.Errorf("pgvector: marshal metadata for %s: %w", rec.ID, err)
		}
		_, err = c.pool.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (id, namespace, embedding, metadata)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				namespace = EXCLUDED.namespace,
				embedding = EXCLUDED.embedding,
				metadata = EXCLUDED.metadata`, req.IndexName),
			rec.ID, req.Namespace, pgvector.NewVector(rec.Vector), metadata)
		if err != nil {
			return provider.VectorInsertResponse{}, fmt.Errorf("pgvector: insert %s: %w", rec.ID, err)
		}
		ids = append(ids, rec.ID)
	}
	return provider.VectorInsertResponse{InsertedIDs: ids}, nil
}

// Search implements provider.VectorClient.
func (c *Client) Search(ctx context.Context, req provider.VectorSearchRequest) (provider.VectorSearchResponse, error) {
	if err := c.ensureTable(ctx, req.IndexName); err != nil {
		return provider.VectorSearchResponse{}, err
	}

	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}

	query := fmt.Sprintf(`
		SELECT id, metadata, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE ($2 = '' OR namespace = $2)
		ORDER BY embedding <=> $1
		LIMIT $3`, req.IndexName)

	rows, err := c.pool.Query(ctx, query, pgvector.NewVector(req.Vector), req.Namespace, topK)
	if err != nil {
		return provider.VectorSearchResponse{}, fmt.Errorf("pgvector: search: %w", err)
	}
	defer rows.Close()

	var matches []provider.VectorMatch
	for rows.Next() {
		var (
			id           string
			metadataJSON []byte
			score        float64
		)
		if err := rows.Scan(&id, &metadataJSON, &score); err != nil {
			return provider.VectorSearchResponse{}, fmt.Errorf("pgvector: scan match: %w", err)
		}
		if req.SimilarityThreshold > 0 && score < req.SimilarityThreshold {
			continue
		}

		var metadata map[string]any
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
				return provider.VectorSearchResponse{}, fmt.Errorf("pgvector: unmarshal metadata for %s: %w", id, err)
			}
		}
		if !matchesFilter(metadata, req.Filter) {
			continue
		}
		matches = append(matches, provider.VectorMatch{ID: id, Score: score, Metadata: metadata})
	}
	if err := rows.Err(); err != nil {
		return provider.VectorSearchResponse{}, fmt.Errorf("pgvector: iterate matches: %w", err)
	}

	return provider.VectorSearchResponse{Matches: matches}, nil
}

// Update implements provider.VectorClient.
func (c *Client) Update(ctx context.Context, req provider.VectorUpdateRequest) (provider.VectorUpdateResponse, error) {
	if err := c.ensureTable(ctx, req.IndexName); err != nil {
		return provider.VectorUpdateResponse{}, err
	}

	var ids []string
	for _, rec := range req.Records {
		metadata, err := json.Marshal(rec.Metadata)
		if err != nil {
			return provider.VectorUpdateResponse{}, fmt.Errorf("pgvector: marshal metadata for %s: %w", rec.ID, err)
		}

		var tag pgconn.CommandTag
		if len(rec.Vector) > 0 {
			tag, err = c.pool.Exec(ctx, fmt.Sprintf(`
				UPDATE %s SET embedding = $2, metadata = $3 WHERE id = $1`, req.IndexName),
				rec.ID, pgvector.NewVector(rec.Vector), metadata)
		} else {
			tag, err = c.pool.Exec(ctx, fmt.Sprintf(`
				UPDATE %s SET metadata = $2 WHERE id = $1`, req.IndexName),
				rec.ID, metadata)
		}
		if err != nil {
			return provider.VectorUpdateResponse{}, fmt.Errorf("pgvector: update %s: %w", rec.ID, err)
		}
		if tag.RowsAffected() > 0 {
			ids = append(ids, rec.ID)
		}
	}
	return provider.VectorUpdateResponse{UpdatedIDs: ids}, nil
}

// Delete implements provider.VectorClient.
func (c *Client) Delete(ctx context.Context, req provider.VectorDeleteRequest) (provider.VectorDeleteResponse, error) {
	if err := c.ensureTable(ctx, req.IndexName); err != nil {
		return provider.VectorDeleteResponse{}, err
	}
	if len(req.IDs) == 0 {
		return provider.VectorDeleteResponse{}, nil
	}

	tag, err := c.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, req.IndexName), req.IDs)
	if err != nil {
		return provider.VectorDeleteResponse{}, fmt.Errorf("pgvector: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return provider.VectorDeleteResponse{}, nil
	}
	return provider.VectorDeleteResponse{DeletedIDs: req.IDs}, nil
}

func matchesFilter(metadata map[string]any, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}
