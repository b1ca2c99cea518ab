// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/foliodocs/folio/pkg/storage"
)

// Driver implements storage.Driver using SQLite.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a new SQLite-backed driver.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			collection_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			content_type TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			chunk_count INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection_id)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			collection_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			page INTEGER NOT NULL DEFAULT 0,
			word_count INTEGER NOT NULL DEFAULT 0,
			char_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)`,
		`CREATE TABLE IF NOT EXISTS queries (
			id TEXT PRIMARY KEY,
			collection_id TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			source_count INTEGER NOT NULL DEFAULT 0,
			source_chunk_ids TEXT NOT NULL DEFAULT '',
			degraded INTEGER NOT NULL DEFAULT 0,
			tokens_in INTEGER NOT NULL DEFAULT 0,
			tokens_out INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queries_collection ON queries(collection_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateDocument stores a new document record.
func (d *Driver) CreateDocument(ctx context.Context, doc *storage.Document) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO documents
			(id, collection_id, name, content_type, content, status,
			 chunk_count, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.CollectionID, doc.Name, doc.ContentType, doc.Content,
		string(doc.Status), doc.ChunkCount, doc.Error,
		doc.CreatedAt.UTC(), doc.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument retrieves a document by its id.
func (d *Driver) GetDocument(ctx context.Context, id string) (*storage.Document, error) {
	var doc storage.Document
	var status string
	err := d.db.QueryRowContext(ctx, `
		SELECT id, collection_id, name, content_type, content, status,
			chunk_count, error, created_at, updated_at
		FROM documents WHERE id = ?`, id,
	).Scan(
		&doc.ID, &doc.CollectionID, &doc.Name, &doc.ContentType, &doc.Content,
		&status, &doc.ChunkCount, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("getting document %s: %w", id, err)
	}

	doc.Status = storage.DocumentStatus(status)
	return &doc, nil
}

// UpdateDocumentStatus transitions a document's indexing state.
func (d *Driver) UpdateDocumentStatus(ctx context.Context, id string, status storage.DocumentStatus, chunkCount int, errMsg string) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, chunk_count = ?, error = ?, updated_at = ?
		WHERE id = ?`,
		string(status), chunkCount, errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating document %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update of document %s: %w", id, err)
	}
	if affected == 0 {
		return storage.ErrNotFound{ID: id}
	}
	return nil
}

// ListDocuments returns all documents in a collection, oldest first.
func (d *Driver) ListDocuments(ctx context.Context, collectionID string) ([]*storage.Document, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, collection_id, name, content_type, content, status,
			chunk_count, error, created_at, updated_at
		FROM documents
		WHERE collection_id = ?
		ORDER BY created_at, id`, collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*storage.Document
	for rows.Next() {
		var doc storage.Document
		var status string
		if err := rows.Scan(
			&doc.ID, &doc.CollectionID, &doc.Name, &doc.ContentType, &doc.Content,
			&status, &doc.ChunkCount, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Status = storage.DocumentStatus(status)
		docs = append(docs, &doc)
	}

	return docs, rows.Err()
}

// PutChunks stores chunk records, replacing any with the same id.
func (d *Driver) PutChunks(ctx context.Context, chunks []*storage.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range chunks {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO chunks
				(id, document_id, collection_id, chunk_index, text,
				 page, word_count, char_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.DocumentID, c.CollectionID, c.Index, c.Text,
			c.Page, c.WordCount, c.CharCount, c.CreatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// ListChunksByCollection returns all chunks in a collection ordered by
// document id then chunk index.
func (d *Driver) ListChunksByCollection(ctx context.Context, collectionID string) ([]*storage.Chunk, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, document_id, collection_id, chunk_index, text,
			page, word_count, char_count, created_at
		FROM chunks
		WHERE collection_id = ?
		ORDER BY document_id, chunk_index`, collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*storage.Chunk
	for rows.Next() {
		var c storage.Chunk
		if err := rows.Scan(
			&c.ID, &c.DocumentID, &c.CollectionID, &c.Index, &c.Text,
			&c.Page, &c.WordCount, &c.CharCount, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, &c)
	}

	return chunks, rows.Err()
}

// DeleteChunksByDocument removes all chunks belonging to a document.
func (d *Driver) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	if _, err := d.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE document_id = ?`, documentID,
	); err != nil {
		return fmt.Errorf("deleting chunks for document %s: %w", documentID, err)
	}
	return nil
}

// RecordQuery stores a query audit entry.
func (d *Driver) RecordQuery(ctx context.Context, rec *storage.QueryRecord) error {
	degraded := 0
	if rec.Degraded {
		degraded = 1
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO queries
			(id, collection_id, question, answer, confidence, source_count,
			 source_chunk_ids, degraded, tokens_in, tokens_out, duration_ms,
			 created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CollectionID, rec.Question, rec.Answer, rec.Confidence,
		rec.SourceCount, strings.Join(rec.SourceChunkIDs, ","), degraded,
		rec.TokensIn, rec.TokensOut, rec.DurationMs, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting query record: %w", err)
	}
	return nil
}

// ListQueries returns the most recent query records for a collection.
func (d *Driver) ListQueries(ctx context.Context, collectionID string, limit int) ([]*storage.QueryRecord, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, collection_id, question, answer, confidence, source_count,
			source_chunk_ids, degraded, tokens_in, tokens_out, duration_ms,
			created_at
		FROM queries
		WHERE collection_id = ?
		ORDER BY created_at DESC, id DESC`)

	args := []any{collectionID}
	if limit > 0 {
		query.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing queries: %w", err)
	}
	defer rows.Close()

	var recs []*storage.QueryRecord
	for rows.Next() {
		var rec storage.QueryRecord
		var degraded int
		var chunkIDs string
		if err := rows.Scan(
			&rec.ID, &rec.CollectionID, &rec.Question, &rec.Answer,
			&rec.Confidence, &rec.SourceCount, &chunkIDs, &degraded,
			&rec.TokensIn, &rec.TokensOut, &rec.DurationMs, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning query record: %w", err)
		}
		rec.Degraded = degraded != 0
		if chunkIDs != "" {
			rec.SourceChunkIDs = strings.Split(chunkIDs, ",")
		}
		recs = append(recs, &rec)
	}

	return recs, rows.Err()
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ storage.Driver = (*Driver)(nil)
