// Package pgvector provides a PostgreSQL vector store backed by the
// pgvector extension.
package pgvector

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/vector"
)

// Store implements vector.Store against PostgreSQL with pgvector.
type Store struct {
	pool       *pgxpool.Pool
	dimensions uint
	logger     *zap.Logger
}

// Config holds configuration for the pgvector store.
type Config struct {
	// ConnString is the PostgreSQL connection string.
	ConnString string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewStore connects to PostgreSQL. Call Initialize before use.
func NewStore(ctx context.Context, c Config, logger *zap.Logger) (*Store, error) {
	if c.ConnString == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("pgvector embedding dimensions cannot be 0, must be configured")
	}

	poolConfig, err := pgxpool.ParseConfig(c.ConnString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	return &Store{
		pool:       pool,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// Initialize ensures the pgvector extension and the chunk table exist.
// Idempotent.
func (s *Store) Initialize(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("%w: creating vector extension: %v", vector.ErrConnection, err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS folio_chunks (
			record_id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			collection_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			chunk_text TEXT NOT NULL,
			page INTEGER NOT NULL DEFAULT 0,
			word_count INTEGER NOT NULL DEFAULT 0,
			char_count INTEGER NOT NULL DEFAULT 0,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.dimensions)
	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("%w: creating chunks table: %v", vector.ErrConnection, err)
	}

	if _, err := s.pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS idx_folio_chunks_collection ON folio_chunks(collection_id)`,
	); err != nil {
		return fmt.Errorf("%w: creating collection index: %v", vector.ErrConnection, err)
	}

	s.logger.Info("pgvector store initialized",
		zap.Uint("dimensions", s.dimensions),
	)

	return nil
}

// AddDocuments upserts records in a single batch.
func (s *Store) AddDocuments(ctx context.Context, records []vector.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
		batch.Queue(`
			INSERT INTO folio_chunks
				(record_id, document_id, collection_id, chunk_index, chunk_text,
				 page, word_count, char_count, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (record_id) DO UPDATE SET
				document_id = EXCLUDED.document_id,
				collection_id = EXCLUDED.collection_id,
				chunk_index = EXCLUDED.chunk_index,
				chunk_text = EXCLUDED.chunk_text,
				page = EXCLUDED.page,
				word_count = EXCLUDED.word_count,
				char_count = EXCLUDED.char_count,
				embedding = EXCLUDED.embedding,
				created_at = EXCLUDED.created_at`,
			rec.ID, rec.DocumentID, rec.CollectionID, rec.ChunkIndex, rec.ChunkText,
			rec.Metadata.Page, rec.Metadata.WordCount, rec.Metadata.CharCount,
			pgvec.NewVector(rec.Embedding), rec.CreatedAt.UTC(),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range records {
		if _, err := br.Exec(); err != nil {
			return nil, fmt.Errorf("failed to upsert chunk %d: %w", i, err)
		}
	}

	s.logger.Debug("added records to pgvector",
		zap.Int("count", len(records)),
	)

	return ids, nil
}

// SimilaritySearch orders by cosine distance and normalizes it to a score
// via 1 - distance.
func (s *Store) SimilaritySearch(ctx context.Context, queryVector []float32, k int, filter vector.Filter) ([]vector.SearchResult, error) {
	if filter.CollectionID == "" {
		return nil, vector.ErrMissingCollection
	}
	if k <= 0 {
		k = 10
	}

	query := `
		SELECT record_id, document_id, collection_id, chunk_index, chunk_text,
			page, word_count, char_count, created_at,
			embedding <=> $1 AS distance
		FROM folio_chunks
		WHERE embedding IS NOT NULL
			AND collection_id = $2`
	args := []any{pgvec.NewVector(queryVector), filter.CollectionID}

	if filter.DocumentID != "" {
		query += ` AND document_id = $3
		ORDER BY distance
		LIMIT $4`
		args = append(args, filter.DocumentID, k)
	} else {
		query += `
		ORDER BY distance
		LIMIT $3`
		args = append(args, k)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrSearch, err)
	}
	defer rows.Close()

	var results []vector.SearchResult
	for rows.Next() {
		var rec vector.Record
		var createdAt time.Time
		var distance float64
		if err := rows.Scan(
			&rec.ID, &rec.DocumentID, &rec.CollectionID, &rec.ChunkIndex,
			&rec.ChunkText, &rec.Metadata.Page, &rec.Metadata.WordCount,
			&rec.Metadata.CharCount, &createdAt, &distance,
		); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}

		rec.CreatedAt = createdAt

		results = append(results, vector.SearchResult{
			Record: rec,
			// Cosine distance is 0..2; 1 - d keeps identical vectors at 1.
			Score: float32(1.0 - distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrSearch, err)
	}

	s.logger.Debug("queried pgvector",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// DeleteDocuments removes records by their ids. Unknown ids are ignored.
func (s *Store) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM folio_chunks WHERE record_id = ANY($1)`, ids,
	); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}

	s.logger.Debug("deleted records from pgvector",
		zap.Int("count", len(ids)),
	)

	return nil
}

// CollectionStats reports counts for a logical collection.
func (s *Store) CollectionStats(ctx context.Context, collectionID string) (vector.Stats, error) {
	var count int
	var textBytes int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(chunk_text)), 0)
		FROM folio_chunks
		WHERE collection_id = $1`, collectionID,
	).Scan(&count, &textBytes)
	if err != nil {
		return vector.Stats{}, fmt.Errorf("counting collection: %w", err)
	}

	return vector.Stats{
		VectorCount: count,
		Dimensions:  int(s.dimensions),
		SizeBytes:   int64(count)*int64(s.dimensions)*4 + textBytes,
	}, nil
}

// HealthCheck pings the pool.
func (s *Store) HealthCheck(ctx context.Context) bool {
	return s.pool.Ping(ctx) == nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

var _ vector.Store = (*Store)(nil)
