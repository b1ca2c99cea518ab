// Package weaviate provides a Weaviate vector store implementation using the
// REST schema/batch endpoints and GraphQL nearVector queries.
package weaviate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/vector"
)

// DefaultClassName is the default Weaviate class for storing folio chunks.
const DefaultClassName = "FolioChunk"

// idNamespace seeds the deterministic UUIDs Weaviate requires as object ids.
// Record ids round-trip through the recordId property.
var idNamespace = uuid.MustParse("2f2c7a6e-9d34-4f1b-8a0d-6c1f5b9e4d21")

// Store implements vector.Store against a Weaviate server.
type Store struct {
	baseURL    string
	className  string
	dimensions uint
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds configuration for the Weaviate store.
type Config struct {
	// URL is the Weaviate server URL (e.g., "http://localhost:8080").
	URL string

	// ClassName is the schema class to use. Defaults to DefaultClassName.
	// Weaviate capitalizes class names server side; the first letter is
	// uppercased here so GraphQL queries resolve the same class.
	ClassName string

	// Dimensions is the embedding width, used for stats size estimates.
	Dimensions uint
}

// NewStore creates a new Weaviate vector store. Call Initialize before use.
func NewStore(c Config, logger *zap.Logger) (*Store, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("weaviate URL is required")
	}

	className := c.ClassName
	if className == "" {
		className = DefaultClassName
	} else {
		className = strings.ToUpper(className[:1]) + className[1:]
	}

	return &Store{
		baseURL:    c.URL,
		className:  className,
		dimensions: c.Dimensions,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}, nil
}

// Initialize ensures the schema class exists. Idempotent.
func (s *Store) Initialize(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1/schema/%s", s.baseURL, s.className)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("creating schema request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: reaching weaviate: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	class := weaviateClass{
		Class:      s.className,
		Vectorizer: "none",
		Properties: []weaviateProperty{
			{Name: "recordId", DataType: []string{"text"}},
			{Name: "documentId", DataType: []string{"text"}},
			{Name: "collectionId", DataType: []string{"text"}},
			{Name: "chunkIndex", DataType: []string{"int"}},
			{Name: "chunkText", DataType: []string{"text"}},
			{Name: "page", DataType: []string{"int"}},
			{Name: "wordCount", DataType: []string{"int"}},
			{Name: "charCount", DataType: []string{"int"}},
			{Name: "createdAt", DataType: []string{"date"}},
		},
	}

	if err := s.postJSON(ctx, "/v1/schema", class, nil); err != nil {
		return fmt.Errorf("%w: creating class %q: %v", vector.ErrConnection, s.className, err)
	}

	s.logger.Info("created weaviate class",
		zap.String("url", s.baseURL),
		zap.String("class", s.className),
	)

	return nil
}

// objectID derives the deterministic Weaviate object id for a record id.
func objectID(recordID string) string {
	return uuid.NewSHA1(idNamespace, []byte(recordID)).String()
}

// AddDocuments batch-inserts records. Deterministic object ids make the
// insert an upsert on repeated calls.
func (s *Store) AddDocuments(ctx context.Context, records []vector.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	objects := make([]weaviateObject, len(records))
	ids := make([]string, len(records))

	for i, rec := range records {
		ids[i] = rec.ID
		objects[i] = weaviateObject{
			Class:  s.className,
			ID:     objectID(rec.ID),
			Vector: rec.Embedding,
			Properties: map[string]any{
				"recordId":     rec.ID,
				"documentId":   rec.DocumentID,
				"collectionId": rec.CollectionID,
				"chunkIndex":   rec.ChunkIndex,
				"chunkText":    rec.ChunkText,
				"page":         rec.Metadata.Page,
				"wordCount":    rec.Metadata.WordCount,
				"charCount":    rec.Metadata.CharCount,
				"createdAt":    rec.CreatedAt.UTC().Format(time.RFC3339),
			},
		}
	}

	if err := s.postJSON(ctx, "/v1/batch/objects", weaviateBatchRequest{Objects: objects}, nil); err != nil {
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}

	s.logger.Debug("added records to weaviate",
		zap.Int("count", len(records)),
	)

	return ids, nil
}

// SimilaritySearch issues a GraphQL Get with nearVector and a where filter,
// normalizing Weaviate's cosine distance (0..2) to a 0..1 score via 1 - d/2.
func (s *Store) SimilaritySearch(ctx context.Context, queryVector []float32, k int, filter vector.Filter) ([]vector.SearchResult, error) {
	if filter.CollectionID == "" {
		return nil, vector.ErrMissingCollection
	}
	if k <= 0 {
		k = 10
	}

	vecJSON, err := json.Marshal(queryVector)
	if err != nil {
		return nil, fmt.Errorf("marshaling query vector: %w", err)
	}

	where := fmt.Sprintf(`{path: ["collectionId"], operator: Equal, valueText: %q}`, filter.CollectionID)
	if filter.DocumentID != "" {
		where = fmt.Sprintf(`{operator: And, operands: [%s, {path: ["documentId"], operator: Equal, valueText: %q}]}`,
			where, filter.DocumentID)
	}

	query := fmt.Sprintf(`{
  Get {
    %s(nearVector: {vector: %s}, where: %s, limit: %d) {
      recordId
      documentId
      collectionId
      chunkIndex
      chunkText
      page
      wordCount
      charCount
      createdAt
      _additional { distance }
    }
  }
}`, s.className, vecJSON, where, k)

	var resp graphqlResponse
	if err := s.postJSON(ctx, "/v1/graphql", graphqlRequest{Query: query}, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrSearch, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: graphql: %s", vector.ErrSearch, resp.Errors[0].Message)
	}

	raw, ok := resp.Data["Get"][s.className].([]any)
	if !ok {
		return nil, nil
	}

	results := make([]vector.SearchResult, 0, len(raw))
	for _, entry := range raw {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		rec := vector.Record{CollectionID: filter.CollectionID}
		if v, ok := obj["recordId"].(string); ok {
			rec.ID = v
		}
		if v, ok := obj["documentId"].(string); ok {
			rec.DocumentID = v
		}
		if v, ok := obj["collectionId"].(string); ok {
			rec.CollectionID = v
		}
		if v, ok := obj["chunkIndex"].(float64); ok {
			rec.ChunkIndex = int(v)
		}
		if v, ok := obj["chunkText"].(string); ok {
			rec.ChunkText = v
		}
		if v, ok := obj["page"].(float64); ok {
			rec.Metadata.Page = int(v)
		}
		if v, ok := obj["wordCount"].(float64); ok {
			rec.Metadata.WordCount = int(v)
		}
		if v, ok := obj["charCount"].(float64); ok {
			rec.Metadata.CharCount = int(v)
		}
		if v, ok := obj["createdAt"].(string); ok {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				rec.CreatedAt = t
			}
		}

		result := vector.SearchResult{Record: rec}
		if add, ok := obj["_additional"].(map[string]any); ok {
			if d, ok := add["distance"].(float64); ok {
				result.Score = float32(1.0 - d/2.0)
			}
		}

		results = append(results, result)
	}

	s.logger.Debug("queried weaviate",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// DeleteDocuments deletes objects by record id. Missing objects are ignored.
func (s *Store) DeleteDocuments(ctx context.Context, ids []string) error {
	for _, id := range ids {
		url := fmt.Sprintf("%s/v1/objects/%s/%s", s.baseURL, s.className, objectID(id))

		req, err := http.NewRequestWithContext(ctx, "DELETE", url, nil)
		if err != nil {
			return fmt.Errorf("creating delete request: %w", err)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", id, err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
			return fmt.Errorf("failed to delete %s: status %d", id, resp.StatusCode)
		}
	}

	s.logger.Debug("deleted records from weaviate",
		zap.Int("count", len(ids)),
	)

	return nil
}

// CollectionStats counts objects within a logical collection using a GraphQL
// Aggregate query. Size is estimated from vector width and the aggregated
// char counts.
func (s *Store) CollectionStats(ctx context.Context, collectionID string) (vector.Stats, error) {
	if collectionID == "" {
		return vector.Stats{}, vector.ErrMissingCollection
	}

	query := fmt.Sprintf(`{
  Aggregate {
    %s(where: {path: ["collectionId"], operator: Equal, valueText: %q}) {
      meta { count }
      charCount { sum }
    }
  }
}`, s.className, collectionID)

	var resp graphqlResponse
	if err := s.postJSON(ctx, "/v1/graphql", graphqlRequest{Query: query}, &resp); err != nil {
		return vector.Stats{}, fmt.Errorf("failed to aggregate: %w", err)
	}
	if len(resp.Errors) > 0 {
		return vector.Stats{}, fmt.Errorf("graphql: %s", resp.Errors[0].Message)
	}

	stats := vector.Stats{Dimensions: int(s.dimensions)}
	var textBytes int64
	if raw, ok := resp.Data["Aggregate"][s.className].([]any); ok && len(raw) > 0 {
		if obj, ok := raw[0].(map[string]any); ok {
			if meta, ok := obj["meta"].(map[string]any); ok {
				if count, ok := meta["count"].(float64); ok {
					stats.VectorCount = int(count)
				}
			}
			if cc, ok := obj["charCount"].(map[string]any); ok {
				if sum, ok := cc["sum"].(float64); ok {
					textBytes = int64(sum)
				}
			}
		}
	}
	stats.SizeBytes = int64(stats.VectorCount)*int64(s.dimensions)*4 + textBytes

	return stats, nil
}

// HealthCheck probes the readiness endpoint.
func (s *Store) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/v1/.well-known/ready", nil)
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
	return nil
}

// postJSON sends a JSON body to a server path and optionally decodes the
// response into out.
func (s *Store) postJSON(ctx context.Context, path string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

var _ vector.Store = (*Store)(nil)
