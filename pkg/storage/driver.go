// Package storage
package storage

import (
	"context"
	"time"
)

// DocumentStatus tracks a document through the indexing pipeline.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Document is an ingested source document and its indexing state.
type Document struct {
	ID           string         `json:"id"`
	CollectionID string         `json:"collection_id"`
	Name         string         `json:"name"`
	ContentType  string         `json:"content_type"`
	Content      string         `json:"content"`
	Status       DocumentStatus `json:"status"`
	ChunkCount   int            `json:"chunk_count"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Chunk is a persisted text chunk. Chunks survive independently of the
// vector store so retrieval can degrade to keyword scanning when the
// vector backend is unavailable.
type Chunk struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	CollectionID string    `json:"collection_id"`
	Index        int       `json:"index"`
	Text         string    `json:"text"`
	Page         int       `json:"page"`
	WordCount    int       `json:"word_count"`
	CharCount    int       `json:"char_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// QueryRecord is an audit entry for an answered question, including the
// chunks it was answered from and the token and latency accounting.
type QueryRecord struct {
	ID             string    `json:"id"`
	CollectionID   string    `json:"collection_id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	Confidence     float64   `json:"confidence"`
	SourceCount    int       `json:"source_count"`
	SourceChunkIDs []string  `json:"source_chunk_ids,omitempty"`
	Degraded       bool      `json:"degraded"`
	TokensIn       int       `json:"tokens_in"`
	TokensOut      int       `json:"tokens_out"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// Driver defines the interface for persisting documents, chunks and query
// audit records in a storage backend.
type Driver interface {
	// CreateDocument stores a new document record.
	CreateDocument(ctx context.Context, doc *Document) error

	// GetDocument retrieves a document by its id.
	// Returns ErrNotFound when the document doesn't exist.
	GetDocument(ctx context.Context, id string) (*Document, error)

	// UpdateDocumentStatus transitions a document's indexing state and
	// records the chunk count and failure message where applicable.
	UpdateDocumentStatus(ctx context.Context, id string, status DocumentStatus, chunkCount int, errMsg string) error

	// ListDocuments returns all documents in a collection.
	ListDocuments(ctx context.Context, collectionID string) ([]*Document, error)

	// PutChunks stores chunk records, replacing any with the same id.
	PutChunks(ctx context.Context, chunks []*Chunk) error

	// ListChunksByCollection returns all chunks in a collection ordered by
	// document id then chunk index.
	ListChunksByCollection(ctx context.Context, collectionID string) ([]*Chunk, error)

	// DeleteChunksByDocument removes all chunks belonging to a document.
	DeleteChunksByDocument(ctx context.Context, documentID string) error

	// RecordQuery stores a query audit entry.
	RecordQuery(ctx context.Context, rec *QueryRecord) error

	// ListQueries returns the most recent query records for a collection,
	// newest first, up to limit.
	ListQueries(ctx context.Context, collectionID string, limit int) ([]*QueryRecord, error)

	// Close closes the store and releases any resources.
	Close() error
}
