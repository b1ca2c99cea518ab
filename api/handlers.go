package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/indexer/worker"
	"github.com/foliodocs/folio/pkg/query"
	"github.com/foliodocs/folio/pkg/storage"
)

// ErrorResponse is the JSON error envelope returned by every handler.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateDocumentRequest is the payload for POST /v1/documents.
type CreateDocumentRequest struct {
	CollectionID string `json:"collection_id"`
	Name         string `json:"name"`
	ContentType  string `json:"content_type,omitempty"`
	Content      string `json:"content"`
}

// CreateDocumentResponse acknowledges an accepted document.
type CreateDocumentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// DocumentResponse is the public view of an ingested document.
type DocumentResponse struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collection_id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	ChunkCount   int       `json:"chunk_count"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// QueryRequest is the payload for POST /v1/query.
type QueryRequest struct {
	CollectionID string `json:"collection_id"`
	Question     string `json:"question"`
	MaxSources   int    `json:"max_sources,omitempty"`
	DocumentID   string `json:"document_id,omitempty"`
}

// CollectionStatsResponse aggregates stats across the configured vector stores.
type CollectionStatsResponse struct {
	CollectionID  string `json:"collection_id"`
	DocumentCount int    `json:"document_count"`
	VectorCount   int    `json:"vector_count"`
	SizeBytes     int64  `json:"size_bytes"`
	QueryCount    int    `json:"query_count"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleCreateDocument persists a document and enqueues it for indexing.
// The response is an acknowledgement; indexing happens asynchronously.
func (s *Server) handleCreateDocument(c *fiber.Ctx) error {
	var req CreateDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "content is required"})
	}
	collectionID := req.CollectionID
	if collectionID == "" {
		collectionID = s.config.DefaultCollection
	}
	if collectionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "collection_id is required"})
	}
	name := req.Name
	if name == "" {
		name = "untitled"
	}

	now := time.Now().UTC()
	doc := &storage.Document{
		ID:           uuid.NewString(),
		CollectionID: collectionID,
		Name:         name,
		ContentType:  req.ContentType,
		Content:      req.Content,
		Status:       storage.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storer.CreateDocument(c.Context(), doc); err != nil {
		s.logger.Error("failed to create document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to create document"})
	}

	if !s.pool.Enqueue(worker.Job{Document: doc}) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "indexing queue is full"})
	}

	return c.Status(fiber.StatusAccepted).JSON(CreateDocumentResponse{
		ID:     doc.ID,
		Status: string(doc.Status),
	})
}

// handleGetDocument returns the indexing status of a document.
func (s *Server) handleGetDocument(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	doc, err := s.storer.GetDocument(c.Context(), id)
	if err != nil {
		var notFound storage.ErrNotFound
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "document not found"})
		}
		s.logger.Error("failed to get document", zap.String("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to get document"})
	}

	return c.JSON(DocumentResponse{
		ID:           doc.ID,
		CollectionID: doc.CollectionID,
		Name:         doc.Name,
		Status:       string(doc.Status),
		ChunkCount:   doc.ChunkCount,
		Error:        doc.Error,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	})
}

// handleQuery answers a question against an indexed collection.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	collectionID := req.CollectionID
	if collectionID == "" {
		collectionID = s.config.DefaultCollection
	}
	if collectionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "collection_id is required"})
	}
	if strings.TrimSpace(req.Question) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "question is required"})
	}

	answer, err := s.queries.Query(c.Context(), req.Question, collectionID, query.Options{
		MaxSources: req.MaxSources,
		DocumentID: req.DocumentID,
	})
	if err != nil {
		s.logger.Error("query failed",
			zap.String("collection_id", collectionID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "query failed"})
	}

	return c.JSON(answer)
}

// handleCollectionStats aggregates vector store and document stats for a collection.
func (s *Server) handleCollectionStats(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}
	ctx := c.Context()

	resp := CollectionStatsResponse{CollectionID: id}

	for _, store := range s.stores {
		stats, err := store.CollectionStats(ctx, id)
		if err != nil {
			s.logger.Warn("collection stats unavailable",
				zap.String("collection_id", id),
				zap.Error(err),
			)
			continue
		}
		resp.VectorCount += stats.VectorCount
		resp.SizeBytes += stats.SizeBytes
	}

	docs, err := s.storer.ListDocuments(ctx, id)
	if err != nil {
		s.logger.Error("failed to list documents", zap.String("collection_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list documents"})
	}
	resp.DocumentCount = len(docs)

	queries, err := s.storer.ListQueries(ctx, id, 0)
	if err != nil {
		s.logger.Error("failed to list queries", zap.String("collection_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list queries"})
	}
	resp.QueryCount = len(queries)

	return c.JSON(resp)
}
