// Package inmemory provides an in-memory storage driver, useful for tests
// and ephemeral runs.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/foliodocs/folio/pkg/storage"
)

// Driver implements storage.Driver with plain maps behind a mutex.
type Driver struct {
	mu        sync.RWMutex
	documents map[string]*storage.Document
	chunks    map[string]*storage.Chunk
	queries   []*storage.QueryRecord
}

// NewDriver creates a new empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		documents: make(map[string]*storage.Document),
		chunks:    make(map[string]*storage.Chunk),
	}
}

// CreateDocument stores a new document record.
func (d *Driver) CreateDocument(_ context.Context, doc *storage.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cp := *doc
	d.documents[doc.ID] = &cp
	return nil
}

// GetDocument retrieves a document by its id.
func (d *Driver) GetDocument(_ context.Context, id string) (*storage.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	doc, ok := d.documents[id]
	if !ok {
		return nil, storage.ErrNotFound{ID: id}
	}

	cp := *doc
	return &cp, nil
}

// UpdateDocumentStatus transitions a document's indexing state.
func (d *Driver) UpdateDocumentStatus(_ context.Context, id string, status storage.DocumentStatus, chunkCount int, errMsg string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, ok := d.documents[id]
	if !ok {
		return storage.ErrNotFound{ID: id}
	}

	doc.Status = status
	doc.ChunkCount = chunkCount
	doc.Error = errMsg
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

// ListDocuments returns all documents in a collection, oldest first.
func (d *Driver) ListDocuments(_ context.Context, collectionID string) ([]*storage.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var docs []*storage.Document
	for _, doc := range d.documents {
		if doc.CollectionID == collectionID {
			cp := *doc
			docs = append(docs, &cp)
		}
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})

	return docs, nil
}

// PutChunks stores chunk records, replacing any with the same id.
func (d *Driver) PutChunks(_ context.Context, chunks []*storage.Chunk) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range chunks {
		cp := *c
		d.chunks[c.ID] = &cp
	}
	return nil
}

// ListChunksByCollection returns all chunks in a collection ordered by
// document id then chunk index.
func (d *Driver) ListChunksByCollection(_ context.Context, collectionID string) ([]*storage.Chunk, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var chunks []*storage.Chunk
	for _, c := range d.chunks {
		if c.CollectionID == collectionID {
			cp := *c
			chunks = append(chunks, &cp)
		}
	}

	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].DocumentID == chunks[j].DocumentID {
			return chunks[i].Index < chunks[j].Index
		}
		return chunks[i].DocumentID < chunks[j].DocumentID
	})

	return chunks, nil
}

// DeleteChunksByDocument removes all chunks belonging to a document.
func (d *Driver) DeleteChunksByDocument(_ context.Context, documentID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, c := range d.chunks {
		if c.DocumentID == documentID {
			delete(d.chunks, id)
		}
	}
	return nil
}

// RecordQuery stores a query audit entry.
func (d *Driver) RecordQuery(_ context.Context, rec *storage.QueryRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cp := *rec
	cp.SourceChunkIDs = append([]string(nil), rec.SourceChunkIDs...)
	d.queries = append(d.queries, &cp)
	return nil
}

// ListQueries returns the most recent query records for a collection.
func (d *Driver) ListQueries(_ context.Context, collectionID string, limit int) ([]*storage.QueryRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var recs []*storage.QueryRecord
	for i := len(d.queries) - 1; i >= 0; i-- {
		if d.queries[i].CollectionID != collectionID {
			continue
		}
		cp := *d.queries[i]
		cp.SourceChunkIDs = append([]string(nil), d.queries[i].SourceChunkIDs...)
		recs = append(recs, &cp)
		if limit > 0 && len(recs) >= limit {
			break
		}
	}

	return recs, nil
}

// Close releases resources. A no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

var _ storage.Driver = (*Driver)(nil)
