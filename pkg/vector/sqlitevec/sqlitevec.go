// Package sqlitevec provides a SQLite-backed vector store using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/vector"
)

// Store implements vector.Store using SQLite with sqlite-vec.
type Store struct {
	db         *sql.DB
	dimensions uint
	logger     *zap.Logger
}

// Config holds configuration for the SQLite vec store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewStore opens the database and verifies sqlite-vec is available.
// Call Initialize before use.
func NewStore(c Config, logger *zap.Logger) (*Store, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	logger.Info("sqlite-vec store opened",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Store{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// Initialize creates the chunk mapping table and the vec0 virtual table.
// Idempotent.
func (s *Store) Initialize(ctx context.Context) error {
	// vec0 virtual tables use integer rowids, so string record ids map
	// through vec_chunks which also carries the chunk payload.
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS vec_chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id TEXT NOT NULL UNIQUE,
			document_id TEXT NOT NULL,
			collection_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			chunk_text TEXT NOT NULL,
			page INTEGER NOT NULL DEFAULT 0,
			word_count INTEGER NOT NULL DEFAULT 0,
			char_count INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("creating chunks table: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_vec_chunks_collection ON vec_chunks(collection_id)`,
	)
	if err != nil {
		return fmt.Errorf("creating collection index: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d])`,
		s.dimensions,
	)
	if _, err := s.db.ExecContext(ctx, createVec); err != nil {
		return fmt.Errorf("creating vec0 table: %w", err)
	}

	return nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// AddDocuments stores records with their embeddings. Records with an
// existing id are updated in place.
func (s *Store) AddDocuments(ctx context.Context, records []vector.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
		embBlob := serializeFloat32(rec.Embedding)
		createdAt := rec.CreatedAt.UTC().Format(time.RFC3339)

		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_chunks WHERE record_id = ?`, rec.ID,
		).Scan(&existingRowID)

		switch err {
		case nil:
			if _, err := tx.ExecContext(ctx, `
				UPDATE vec_chunks
				SET document_id = ?, collection_id = ?, chunk_index = ?,
					chunk_text = ?, page = ?, word_count = ?, char_count = ?,
					created_at = ?
				WHERE rowid = ?`,
				rec.DocumentID, rec.CollectionID, rec.ChunkIndex,
				rec.ChunkText, rec.Metadata.Page, rec.Metadata.WordCount,
				rec.Metadata.CharCount, createdAt, existingRowID,
			); err != nil {
				return nil, fmt.Errorf("updating record %s: %w", rec.ID, err)
			}

			// vec0 does not support UPDATE, so replace via DELETE + INSERT.
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
			); err != nil {
				return nil, fmt.Errorf("deleting old embedding for %s: %w", rec.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				existingRowID, embBlob,
			); err != nil {
				return nil, fmt.Errorf("re-inserting embedding for %s: %w", rec.ID, err)
			}
		case sql.ErrNoRows:
			result, err := tx.ExecContext(ctx, `
				INSERT INTO vec_chunks(record_id, document_id, collection_id,
					chunk_index, chunk_text, page, word_count, char_count, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				rec.ID, rec.DocumentID, rec.CollectionID, rec.ChunkIndex,
				rec.ChunkText, rec.Metadata.Page, rec.Metadata.WordCount,
				rec.Metadata.CharCount, createdAt,
			)
			if err != nil {
				return nil, fmt.Errorf("inserting record %s: %w", rec.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("getting rowid for %s: %w", rec.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				rowID, embBlob,
			); err != nil {
				return nil, fmt.Errorf("inserting embedding for %s: %w", rec.ID, err)
			}
		default:
			return nil, fmt.Errorf("checking for existing record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("added records to sqlite-vec",
		zap.Int("count", len(records)),
	)

	return ids, nil
}

// SimilaritySearch runs a vec0 KNN MATCH and joins back to the chunk table.
// The KNN runs before the collection filter, so the MATCH over-fetches and
// the filter trims the joined rows down to k.
func (s *Store) SimilaritySearch(ctx context.Context, queryVector []float32, k int, filter vector.Filter) ([]vector.SearchResult, error) {
	if filter.CollectionID == "" {
		return nil, vector.ErrMissingCollection
	}
	if k <= 0 {
		k = 10
	}

	queryBlob := serializeFloat32(queryVector)

	overFetch := k * 10
	if overFetch < 50 {
		overFetch = 50
	}

	query := `
		SELECT
			c.record_id,
			c.document_id,
			c.collection_id,
			c.chunk_index,
			c.chunk_text,
			c.page,
			c.word_count,
			c.char_count,
			c.created_at,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_chunks c ON c.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
			AND c.collection_id = ?`
	args := []any{queryBlob, overFetch, filter.CollectionID}

	if filter.DocumentID != "" {
		query += ` AND c.document_id = ?`
		args = append(args, filter.DocumentID)
	}

	query += `
		ORDER BY ve.distance
		LIMIT ?`
	args = append(args, k)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying vectors: %v", vector.ErrSearch, err)
	}
	defer rows.Close()

	var results []vector.SearchResult
	for rows.Next() {
		var rec vector.Record
		var createdAt string
		var distance float64
		if err := rows.Scan(
			&rec.ID, &rec.DocumentID, &rec.CollectionID, &rec.ChunkIndex,
			&rec.ChunkText, &rec.Metadata.Page, &rec.Metadata.WordCount,
			&rec.Metadata.CharCount, &createdAt, &distance,
		); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			rec.CreatedAt = t
		}

		results = append(results, vector.SearchResult{
			Record: rec,
			// Convert distance to similarity score: lower distance = higher similarity
			Score: float32(1.0 / (1.0 + distance)),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating query results: %v", vector.ErrSearch, err)
	}

	s.logger.Debug("queried sqlite-vec",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// DeleteDocuments removes records by their ids. Unknown ids are ignored.
func (s *Store) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	inClause := strings.Join(placeholders, ",")

	query := fmt.Sprintf(
		`SELECT rowid FROM vec_chunks WHERE record_id IN (%s)`, inClause,
	)
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying rowids for deletion: %w", err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning rowid: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rowids: %w", err)
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
	}

	deleteQuery := fmt.Sprintf(
		`DELETE FROM vec_chunks WHERE record_id IN (%s)`, inClause,
	)
	if _, err := tx.ExecContext(ctx, deleteQuery, args...); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("deleted records from sqlite-vec",
		zap.Int("count", len(ids)),
	)

	return nil
}

// CollectionStats reports counts for a logical collection. Size is estimated
// from vector width and stored text length.
func (s *Store) CollectionStats(ctx context.Context, collectionID string) (vector.Stats, error) {
	var count int
	var textBytes int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(chunk_text)), 0)
		FROM vec_chunks
		WHERE collection_id = ?`, collectionID,
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

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}

// Close releases resources held by the store.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ vector.Store = (*Store)(nil)
