// Package indexer turns documents into embedded, searchable chunks. It owns
// the write path: chunking, embedding with bounded concurrency, vector store
// writes and document status bookkeeping.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/chunker"
	"github.com/foliodocs/folio/pkg/embeddings"
	"github.com/foliodocs/folio/pkg/embeddings/ratelimit"
	"github.com/foliodocs/folio/pkg/eventstream"
	"github.com/foliodocs/folio/pkg/storage"
	"github.com/foliodocs/folio/pkg/vector"
)

const (
	defaultEmbedWorkers = 4

	// finishTimeout bounds the detached status write and event publish
	// after an indexing run ends.
	finishTimeout = 10 * time.Second
)

// ErrNoChunksIndexed is returned when every chunk of a document failed to
// embed, leaving nothing to index.
var ErrNoChunksIndexed = errors.New("no chunks indexed")

// Config holds the collaborators of the indexing pipeline.
type Config struct {
	Chunker  *chunker.Chunker
	Embedder embeddings.Embedder
	Stores   []vector.Store
	Storage  storage.Driver
	Events   eventstream.Publisher

	// EmbedWorkers bounds concurrent embedding calls per document.
	EmbedWorkers uint

	Logger *zap.Logger
}

// Outcome summarizes one indexing run.
type Outcome struct {
	DocumentID   string
	Status       storage.DocumentStatus
	ChunkCount   int
	FailedChunks int
	Duration     time.Duration
}

// Pipeline processes documents into indexed chunks.
type Pipeline struct {
	chunker      *chunker.Chunker
	embedder     embeddings.Embedder
	stores       []vector.Store
	storage      storage.Driver
	events       eventstream.Publisher
	embedWorkers uint
	logger       *zap.Logger

	// collection write locks: one collection indexes serially, distinct
	// collections index in parallel.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPipeline creates an indexing pipeline.
func NewPipeline(c Config) (*Pipeline, error) {
	if c.Chunker == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if c.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if len(c.Stores) == 0 {
		return nil, fmt.Errorf("at least one vector store is required")
	}
	if c.Storage == nil {
		return nil, fmt.Errorf("storage driver is required")
	}

	workers := c.EmbedWorkers
	if workers == 0 {
		workers = defaultEmbedWorkers
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		chunker:      c.Chunker,
		embedder:     c.Embedder,
		stores:       c.Stores,
		storage:      c.Storage,
		events:       c.Events,
		embedWorkers: workers,
		logger:       logger,
		locks:        make(map[string]*sync.Mutex),
	}, nil
}

// collectionLock returns the write mutex for a collection, creating it on
// first use.
func (p *Pipeline) collectionLock(collectionID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.locks[collectionID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[collectionID] = lock
	}
	return lock
}

// Process indexes one document. The document always ends in a terminal
// status: completed when at least one chunk was indexed, failed otherwise.
func (p *Pipeline) Process(ctx context.Context, doc *storage.Document) (Outcome, error) {
	start := time.Now()
	outcome := Outcome{DocumentID: doc.ID}

	if err := p.storage.UpdateDocumentStatus(ctx, doc.ID, storage.StatusProcessing, 0, ""); err != nil {
		return outcome, fmt.Errorf("marking document processing: %w", err)
	}

	chunks, err := p.chunker.Chunk(doc.Content)
	if err != nil {
		outcome.Status = storage.StatusFailed
		p.finish(ctx, doc, &outcome, start, err)
		return outcome, fmt.Errorf("chunking document %s: %w", doc.ID, err)
	}

	// Record ids and indices are fixed here, before any embedding begins,
	// so partial failures never reorder surviving chunks.
	records := make([]vector.Record, len(chunks))
	now := time.Now().UTC()
	for i, ch := range chunks {
		records[i] = vector.Record{
			ID:           fmt.Sprintf("%s:%d", doc.ID, ch.Index),
			DocumentID:   doc.ID,
			CollectionID: doc.CollectionID,
			ChunkIndex:   ch.Index,
			ChunkText:    ch.Text,
			Metadata: vector.Metadata{
				Page:      ch.Page,
				WordCount: ch.WordCount,
				CharCount: ch.CharCount,
			},
			CreatedAt: now,
		}
	}

	survivors := p.embedAll(ctx, records)
	outcome.FailedChunks = len(records) - len(survivors)

	if ctx.Err() != nil {
		outcome.Status = storage.StatusFailed
		p.finish(ctx, doc, &outcome, start, ctx.Err())
		return outcome, ctx.Err()
	}

	if len(survivors) == 0 {
		outcome.Status = storage.StatusFailed
		p.finish(ctx, doc, &outcome, start, ErrNoChunksIndexed)
		return outcome, fmt.Errorf("indexing document %s: %w", doc.ID, ErrNoChunksIndexed)
	}

	lock := p.collectionLock(doc.CollectionID)
	lock.Lock()
	err = p.write(ctx, doc, survivors)
	lock.Unlock()
	if err != nil {
		outcome.Status = storage.StatusFailed
		p.finish(ctx, doc, &outcome, start, err)
		return outcome, err
	}

	outcome.Status = storage.StatusCompleted
	outcome.ChunkCount = len(survivors)
	p.finish(ctx, doc, &outcome, start, nil)

	p.logger.Info("document indexed",
		zap.String("document_id", doc.ID),
		zap.String("collection_id", doc.CollectionID),
		zap.Int("chunks", outcome.ChunkCount),
		zap.Int("failed_chunks", outcome.FailedChunks),
	)

	return outcome, nil
}

// embedAll embeds records with bounded concurrency and returns the records
// that embedded successfully, in their original order. Per-chunk failures
// are logged and skipped.
func (p *Pipeline) embedAll(ctx context.Context, records []vector.Record) []vector.Record {
	ctx = ratelimit.WithCaller(ctx, "indexer")

	sem := make(chan struct{}, p.embedWorkers)
	var wg sync.WaitGroup
	ok := make([]bool, len(records))

	for i := range records {
		if ctx.Err() != nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			emb, err := p.embedder.Embed(ctx, records[i].ChunkText)
			if err != nil {
				p.logger.Warn("chunk embedding failed, skipping",
					zap.String("record_id", records[i].ID),
					zap.Error(err),
				)
				return
			}
			records[i].Embedding = emb
			ok[i] = true
		}(i)
	}
	wg.Wait()

	survivors := make([]vector.Record, 0, len(records))
	for i := range records {
		if ok[i] {
			survivors = append(survivors, records[i])
		}
	}
	return survivors
}

// write pushes the surviving records to every configured vector store and
// persists the chunk text for degraded retrieval.
func (p *Pipeline) write(ctx context.Context, doc *storage.Document, records []vector.Record) error {
	for _, store := range p.stores {
		if _, err := store.AddDocuments(ctx, records); err != nil {
			return fmt.Errorf("writing vectors for document %s: %w", doc.ID, err)
		}
	}

	chunks := make([]*storage.Chunk, len(records))
	for i, rec := range records {
		chunks[i] = &storage.Chunk{
			ID:           rec.ID,
			DocumentID:   rec.DocumentID,
			CollectionID: rec.CollectionID,
			Index:        rec.ChunkIndex,
			Text:         rec.ChunkText,
			Page:         rec.Metadata.Page,
			WordCount:    rec.Metadata.WordCount,
			CharCount:    rec.Metadata.CharCount,
			CreatedAt:    rec.CreatedAt,
		}
	}

	if err := p.storage.PutChunks(ctx, chunks); err != nil {
		return fmt.Errorf("persisting chunks for document %s: %w", doc.ID, err)
	}

	return nil
}

// finish records the terminal status and emits the processed event. Failures
// here are logged, never propagated: the indexing outcome already stands.
// The bookkeeping runs detached from the caller's context so a cancelled
// indexing run still lands a terminal status instead of a permanent
// processing state.
func (p *Pipeline) finish(ctx context.Context, doc *storage.Document, outcome *Outcome, start time.Time, cause error) {
	outcome.Duration = time.Since(start)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}

	if err := p.storage.UpdateDocumentStatus(ctx, doc.ID, outcome.Status, outcome.ChunkCount, errMsg); err != nil {
		p.logger.Error("failed to record document status",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
	}

	if p.events == nil {
		return
	}

	event := &eventstream.DocumentProcessedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeDocumentProcessed,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Document: eventstream.DocumentRef{
			DocumentID:   doc.ID,
			CollectionID: doc.CollectionID,
			Name:         doc.Name,
			ContentType:  doc.ContentType,
		},
		Indexing: eventstream.IndexMeta{
			Status:       string(outcome.Status),
			ChunkCount:   outcome.ChunkCount,
			FailedChunks: outcome.FailedChunks,
			DurationMs:   outcome.Duration.Milliseconds(),
			Error:        errMsg,
		},
	}

	if err := p.events.PublishDocumentProcessed(ctx, event); err != nil {
		p.logger.Error("failed to publish document event",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
	}
}
