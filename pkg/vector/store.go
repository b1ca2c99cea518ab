// Package vector provides interfaces and implementations for chunk/embedding
// storage and similarity search.
package vector

import (
	"context"
	"time"
)

// Metadata carries the per-chunk descriptive fields persisted alongside the
// embedding.
type Metadata struct {
	// Page is the source page marker, zero when unknown.
	Page int `json:"page,omitempty"`

	// WordCount and CharCount describe the chunk text.
	WordCount int `json:"word_count"`
	CharCount int `json:"char_count"`
}

// Record is the persisted chunk layout: one chunk of one document, scoped to
// a collection, with its embedding. Records are immutable once stored and are
// deleted only alongside their document.
type Record struct {
	// ID is the caller-assigned stable identifier, so repeated inserts of
	// the same logical chunk do not duplicate.
	ID string `json:"id"`

	// DocumentID is the owning document.
	DocumentID string `json:"document_id"`

	// CollectionID is the owning collection (project). Search never crosses
	// collection boundaries.
	CollectionID string `json:"collection_id"`

	// ChunkIndex is the zero-based sequential position within the document.
	ChunkIndex int `json:"chunk_index"`

	// ChunkText is the chunk content. Non-empty.
	ChunkText string `json:"chunk_text"`

	// Embedding is the fixed-dimension vector for ChunkText. All embeddings
	// within one collection share the same dimensionality.
	Embedding []float32 `json:"embedding"`

	Metadata Metadata `json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
}

// Filter scopes a similarity search. CollectionID is mandatory: searches for
// collection A must never return chunks from collection B.
type Filter struct {
	CollectionID string

	// DocumentID optionally narrows the search to one document.
	DocumentID string
}

// SearchResult is a similarity match. Score is normalized so that higher is
// better, approximately in [0,1], regardless of the backend's native
// distance convention.
type SearchResult struct {
	Record

	// Score is the normalized similarity score.
	Score float32 `json:"score"`
}

// Stats describes one collection's storage, used for quota/usage reporting.
type Stats struct {
	// VectorCount is the number of stored embeddings.
	VectorCount int `json:"vector_count"`

	// Dimensions is the embedding dimensionality, zero when the collection
	// is empty.
	Dimensions int `json:"dimensions"`

	// SizeBytes is an approximate storage-size estimate.
	SizeBytes int64 `json:"size_bytes"`
}

// Store handles storage and retrieval of chunk embeddings. Implementations
// are selected at construction time by configuration, never by runtime type
// inspection at call sites.
type Store interface {
	// Initialize prepares the backing collection/schema. Idempotent; fails
	// loudly when the backend is unreachable.
	Initialize(ctx context.Context) error

	// AddDocuments bulk-inserts records and returns the assigned ids. Safe
	// to call repeatedly with the same logical chunk: callers assign stable
	// ids and implementations upsert.
	AddDocuments(ctx context.Context, records []Record) ([]string, error)

	// SimilaritySearch finds the k most similar records to the query vector
	// within the filter's collection, ordered descending by Score.
	SimilaritySearch(ctx context.Context, queryVector []float32, k int, filter Filter) ([]SearchResult, error)

	// DeleteDocuments removes records by their ids. Idempotent: deleting a
	// non-existent id is not an error.
	DeleteDocuments(ctx context.Context, ids []string) error

	// CollectionStats reports counts and sizing for one collection.
	CollectionStats(ctx context.Context, collectionID string) (Stats, error)

	// HealthCheck reports backend reachability. It must not panic and never
	// returns an error.
	HealthCheck(ctx context.Context) bool

	// Close releases any resources held by the store.
	Close() error
}
