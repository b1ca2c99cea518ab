package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentProcessed is emitted after a document finishes indexing,
	// whether it completed or failed.
	EventTypeDocumentProcessed = "folio.document.processed"
)

// DocumentProcessedEvent is a transport-neutral event payload for an indexed
// document.
type DocumentProcessedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Document      DocumentRef `json:"document"`
	Indexing      IndexMeta   `json:"indexing"`
}

// DocumentRef identifies the document the event belongs to.
type DocumentRef struct {
	DocumentID   string `json:"document_id"`
	CollectionID string `json:"collection_id"`
	Name         string `json:"name,omitempty"`
	ContentType  string `json:"content_type,omitempty"`
}

// IndexMeta captures the outcome of the indexing run.
type IndexMeta struct {
	Status       string `json:"status"`
	ChunkCount   int    `json:"chunk_count"`
	FailedChunks int    `json:"failed_chunks,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
	Error        string `json:"error,omitempty"`
}
