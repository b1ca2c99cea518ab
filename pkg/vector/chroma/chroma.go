// Package chroma provides a Chroma vector database store implementation
// speaking the REST collection API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for storing folio embeddings.
	DefaultCollectionName = "folio"

	apiPrefix = "/api/v2/tenants/default_tenant/databases/default_database"
)

// Store implements vector.Store using Chroma's REST API.
type Store struct {
	baseURL        string
	collectionName string
	collectionID   string
	dimensions     uint
	httpClient     *http.Client
	logger         *zap.Logger
}

// Config holds configuration for the Chroma store.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the embedding width, used for stats size estimates.
	Dimensions uint
}

// NewStore creates a new Chroma vector store. Call Initialize before use.
func NewStore(c Config, logger *zap.Logger) (*Store, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	return &Store{
		baseURL:        c.URL,
		collectionName: collectionName,
		dimensions:     c.Dimensions,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}, nil
}

// Initialize gets or creates the backing collection. Idempotent; fails
// loudly when the server is unreachable.
func (s *Store) Initialize(ctx context.Context) error {
	if s.collectionID != "" {
		return nil
	}

	id, err := s.getOrCreateCollection(ctx)
	if err != nil {
		return fmt.Errorf("%w: getting or creating collection %q: %v", vector.ErrConnection, s.collectionName, err)
	}
	s.collectionID = id

	s.logger.Info("connected to Chroma",
		zap.String("url", s.baseURL),
		zap.String("collection", s.collectionName),
		zap.String("collection_id", id),
	)

	return nil
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (s *Store) getOrCreateCollection(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s%s/collections/%s", s.baseURL, apiPrefix, s.collectionName)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var collection chromaCollection
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return "", fmt.Errorf("decoding collection response: %w", err)
		}
		return collection.ID, nil
	}

	// Collection doesn't exist, create it
	createURL := fmt.Sprintf("%s%s/collections", s.baseURL, apiPrefix)
	createBody := map[string]string{"name": s.collectionName}
	jsonBody, err := json.Marshal(createBody)
	if err != nil {
		return "", fmt.Errorf("marshaling create request: %w", err)
	}

	req, err = http.NewRequestWithContext(ctx, "POST", createURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err = s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending create request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to create collection: status %d: %s", resp.StatusCode, string(body))
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}

	return collection.ID, nil
}

// AddDocuments bulk-inserts records with their embeddings. Stable record ids
// make repeated calls safe: Chroma upserts on id.
func (s *Store) AddDocuments(ctx context.Context, records []vector.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	ids := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	metadatas := make([]map[string]any, len(records))
	documents := make([]string, len(records))

	for i, rec := range records {
		ids[i] = rec.ID
		embeddings[i] = rec.Embedding
		documents[i] = rec.ChunkText
		metadatas[i] = map[string]any{
			"document_id":   rec.DocumentID,
			"collection_id": rec.CollectionID,
			"chunk_index":   rec.ChunkIndex,
			"page":          rec.Metadata.Page,
			"word_count":    rec.Metadata.WordCount,
			"char_count":    rec.Metadata.CharCount,
			"created_at":    rec.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	reqBody := chromaAddRequest{
		IDs:        ids,
		Embeddings: embeddings,
		Metadatas:  metadatas,
		Documents:  documents,
	}

	if err := s.post(ctx, "/add", reqBody, nil); err != nil {
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}

	s.logger.Debug("added records to chroma",
		zap.Int("count", len(records)),
	)

	return ids, nil
}

// SimilaritySearch queries the backend's native vector index and normalizes
// its distances to the higher-is-better score contract via 1/(1+distance).
func (s *Store) SimilaritySearch(ctx context.Context, queryVector []float32, k int, filter vector.Filter) ([]vector.SearchResult, error) {
	if filter.CollectionID == "" {
		return nil, vector.ErrMissingCollection
	}
	if k <= 0 {
		k = 10
	}

	where := map[string]any{"collection_id": filter.CollectionID}
	if filter.DocumentID != "" {
		where = map[string]any{
			"$and": []map[string]any{
				{"collection_id": filter.CollectionID},
				{"document_id": filter.DocumentID},
			},
		}
	}

	reqBody := chromaQueryRequest{
		QueryEmbeddings: [][]float32{queryVector},
		NResults:        k,
		Where:           where,
		Include:         []string{"metadatas", "distances", "documents"},
	}

	var queryResp chromaQueryResponse
	if err := s.post(ctx, "/query", reqBody, &queryResp); err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrSearch, err)
	}

	var results []vector.SearchResult

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return results, nil
	}

	ids := queryResp.IDs[0]
	distances := queryResp.Distances[0]

	var docs []string
	if len(queryResp.Documents) > 0 {
		docs = queryResp.Documents[0]
	}

	var metadatas []map[string]any
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}

	for i, id := range ids {
		rec := vector.Record{
			ID:           id,
			CollectionID: filter.CollectionID,
		}

		if i < len(docs) {
			rec.ChunkText = docs[i]
		}

		if i < len(metadatas) && metadatas[i] != nil {
			applyMetadata(&rec, metadatas[i])
		}

		result := vector.SearchResult{Record: rec}

		// Convert distance to similarity score: lower distance = higher similarity.
		if i < len(distances) {
			result.Score = 1.0 / (1.0 + distances[i])
		}

		results = append(results, result)
	}

	s.logger.Debug("queried chroma",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// applyMetadata copies the persisted metadata fields back onto a record.
func applyMetadata(rec *vector.Record, md map[string]any) {
	if v, ok := md["document_id"].(string); ok {
		rec.DocumentID = v
	}
	if v, ok := md["collection_id"].(string); ok {
		rec.CollectionID = v
	}
	if v, ok := md["chunk_index"].(float64); ok {
		rec.ChunkIndex = int(v)
	}
	if v, ok := md["page"].(float64); ok {
		rec.Metadata.Page = int(v)
	}
	if v, ok := md["word_count"].(float64); ok {
		rec.Metadata.WordCount = int(v)
	}
	if v, ok := md["char_count"].(float64); ok {
		rec.Metadata.CharCount = int(v)
	}
	if v, ok := md["created_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			rec.CreatedAt = t
		}
	}
}

// DeleteDocuments removes records by their ids. Chroma ignores unknown ids,
// so deletion is idempotent.
func (s *Store) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := s.post(ctx, "/delete", chromaDeleteRequest{IDs: ids}, nil); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}

	s.logger.Debug("deleted records from chroma",
		zap.Int("count", len(ids)),
	)

	return nil
}

// CollectionStats counts records within one logical collection via a filtered
// get, so collections sharing the backing Chroma collection never leak into
// each other's numbers. Size is estimated from vector width and the persisted
// char counts.
func (s *Store) CollectionStats(ctx context.Context, collectionID string) (vector.Stats, error) {
	if collectionID == "" {
		return vector.Stats{}, vector.ErrMissingCollection
	}

	reqBody := chromaGetRequest{
		Where:   map[string]any{"collection_id": collectionID},
		Include: []string{"metadatas"},
	}

	var got chromaGetResponse
	if err := s.post(ctx, "/get", reqBody, &got); err != nil {
		return vector.Stats{}, fmt.Errorf("failed to get collection records: %w", err)
	}

	var textBytes int64
	for _, md := range got.Metadatas {
		if md == nil {
			continue
		}
		if v, ok := md["char_count"].(float64); ok {
			textBytes += int64(v)
		}
	}

	count := len(got.IDs)
	return vector.Stats{
		VectorCount: count,
		Dimensions:  int(s.dimensions),
		SizeBytes:   int64(count)*int64(s.dimensions)*4 + textBytes,
	}, nil
}

// HealthCheck probes the server's heartbeat endpoint.
func (s *Store) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/api/v2/heartbeat", nil)
	if err != nil {
		return false
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Close releases resources held by the store.
func (s *Store) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

// post sends a JSON body to a collection-scoped path and optionally decodes
// the response into out.
func (s *Store) post(ctx context.Context, path string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s%s/collections/%s%s", s.baseURL, apiPrefix, s.collectionID, path)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

var _ vector.Store = (*Store)(nil)
