package weaviate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliodocs/folio/pkg/logger"
	"github.com/foliodocs/folio/pkg/vector"
	"github.com/foliodocs/folio/pkg/vector/weaviate"
)

var _ = Describe("Weaviate store", func() {
	var (
		server *httptest.Server
		store  *weaviate.Store
		ctx    context.Context

		batchRequests   []map[string]any
		graphqlRequests []string
		deletedPaths    []string
		graphqlHandler  func(w http.ResponseWriter, query string)
	)

	newStore := func() *weaviate.Store {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /v1/schema/FolioChunk", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"class": "FolioChunk"})
		})
		mux.HandleFunc("POST /v1/batch/objects", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			batchRequests = append(batchRequests, body)
			json.NewEncoder(w).Encode([]any{})
		})
		mux.HandleFunc("POST /v1/graphql", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			graphqlRequests = append(graphqlRequests, body["query"])
			graphqlHandler(w, body["query"])
		})
		mux.HandleFunc("DELETE /v1/objects/FolioChunk/{id}", func(w http.ResponseWriter, r *http.Request) {
			deletedPaths = append(deletedPaths, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		})
		mux.HandleFunc("GET /v1/.well-known/ready", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		server = httptest.NewServer(mux)
		s, err := weaviate.NewStore(weaviate.Config{URL: server.URL, Dimensions: 2}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Initialize(context.Background())).To(Succeed())
		return s
	}

	BeforeEach(func() {
		ctx = context.Background()
		batchRequests = nil
		graphqlRequests = nil
		deletedPaths = nil
		graphqlHandler = func(w http.ResponseWriter, _ string) {
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"Get": map[string]any{"FolioChunk": []any{}}},
			})
		}
		store = newStore()
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("NewStore", func() {
		It("requires a URL", func() {
			_, err := weaviate.NewStore(weaviate.Config{}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("URL is required")))
		})

		It("capitalizes a configured class name", func() {
			var looked bool
			mux := http.NewServeMux()
			mux.HandleFunc("GET /v1/schema/Folio", func(w http.ResponseWriter, r *http.Request) {
				looked = true
				json.NewEncoder(w).Encode(map[string]string{"class": "Folio"})
			})

			srv := httptest.NewServer(mux)
			defer srv.Close()

			s, err := weaviate.NewStore(weaviate.Config{URL: srv.URL, ClassName: "folio"}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Initialize(context.Background())).To(Succeed())
			Expect(looked).To(BeTrue())
		})
	})

	Describe("Initialize", func() {
		It("creates the class when the schema lookup misses", func() {
			var created map[string]any
			mux := http.NewServeMux()
			mux.HandleFunc("GET /v1/schema/FolioChunk", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			})
			mux.HandleFunc("POST /v1/schema", func(w http.ResponseWriter, r *http.Request) {
				Expect(json.NewDecoder(r.Body).Decode(&created)).To(Succeed())
				json.NewEncoder(w).Encode(created)
			})

			srv := httptest.NewServer(mux)
			defer srv.Close()

			s, err := weaviate.NewStore(weaviate.Config{URL: srv.URL}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Initialize(context.Background())).To(Succeed())

			Expect(created["class"]).To(Equal("FolioChunk"))
			Expect(created["vectorizer"]).To(Equal("none"))
		})
	})

	Describe("AddDocuments", func() {
		It("batches objects with deterministic ids and properties", func() {
			rec := vector.Record{
				ID:           "doc-1:0",
				DocumentID:   "doc-1",
				CollectionID: "handbook",
				ChunkIndex:   0,
				ChunkText:    "first chunk",
				Embedding:    []float32{0.1, 0.2},
				Metadata:     vector.Metadata{Page: 3, WordCount: 2, CharCount: 11},
				CreatedAt:    time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
			}

			ids, err := store.AddDocuments(ctx, []vector.Record{rec, rec})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(Equal([]string{"doc-1:0", "doc-1:0"}))

			Expect(batchRequests).To(HaveLen(1))
			objects := batchRequests[0]["objects"].([]any)
			Expect(objects).To(HaveLen(2))

			first := objects[0].(map[string]any)
			second := objects[1].(map[string]any)
			Expect(first["id"]).To(Equal(second["id"]))

			props := first["properties"].(map[string]any)
			Expect(props["recordId"]).To(Equal("doc-1:0"))
			Expect(props["collectionId"]).To(Equal("handbook"))
			Expect(props["createdAt"]).To(Equal("2026-08-26T12:00:00Z"))
		})
	})

	Describe("SimilaritySearch", func() {
		It("requires a collection filter", func() {
			_, err := store.SimilaritySearch(ctx, []float32{0.1}, 5, vector.Filter{})
			Expect(err).To(MatchError(vector.ErrMissingCollection))
		})

		It("maps GraphQL hits and normalizes distances", func() {
			graphqlHandler = func(w http.ResponseWriter, _ string) {
				json.NewEncoder(w).Encode(map[string]any{
					"data": map[string]any{"Get": map[string]any{"FolioChunk": []any{
						map[string]any{
							"recordId":     "doc-1:0",
							"documentId":   "doc-1",
							"collectionId": "handbook",
							"chunkIndex":   0,
							"chunkText":    "first chunk",
							"page":         3,
							"_additional":  map[string]any{"distance": 0.0},
						},
						map[string]any{
							"recordId":    "doc-1:1",
							"chunkText":   "second chunk",
							"_additional": map[string]any{"distance": 1.0},
						},
					}}},
				})
			}

			results, err := store.SimilaritySearch(ctx, []float32{0.1, 0.2}, 5, vector.Filter{CollectionID: "handbook"})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))

			Expect(graphqlRequests[0]).To(ContainSubstring("nearVector"))
			Expect(graphqlRequests[0]).To(ContainSubstring(`valueText: "handbook"`))
			Expect(graphqlRequests[0]).To(ContainSubstring("limit: 5"))

			Expect(results[0].Score).To(BeNumerically("~", 1.0, 1e-6))
			Expect(results[1].Score).To(BeNumerically("~", 0.5, 1e-6))
			Expect(results[0].Record.ID).To(Equal("doc-1:0"))
			Expect(results[0].Record.Metadata.Page).To(Equal(3))
		})

		It("adds a document operand when both filters are set", func() {
			_, err := store.SimilaritySearch(ctx, []float32{0.1}, 5, vector.Filter{
				CollectionID: "handbook",
				DocumentID:   "doc-1",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(graphqlRequests[0]).To(ContainSubstring("operator: And"))
			Expect(graphqlRequests[0]).To(ContainSubstring(`valueText: "doc-1"`))
		})

		It("surfaces GraphQL errors as search errors", func() {
			graphqlHandler = func(w http.ResponseWriter, _ string) {
				json.NewEncoder(w).Encode(map[string]any{
					"errors": []map[string]string{{"message": "vector length mismatch"}},
				})
			}

			_, err := store.SimilaritySearch(ctx, []float32{0.1}, 5, vector.Filter{CollectionID: "handbook"})
			Expect(err).To(MatchError(vector.ErrSearch))
			Expect(err.Error()).To(ContainSubstring("vector length mismatch"))
		})

		It("wraps transport failures as search errors", func() {
			graphqlHandler = func(w http.ResponseWriter, _ string) {
				http.Error(w, "internal error", http.StatusInternalServerError)
			}

			_, err := store.SimilaritySearch(ctx, []float32{0.1}, 5, vector.Filter{CollectionID: "handbook"})
			Expect(err).To(MatchError(vector.ErrSearch))
		})
	})

	Describe("DeleteDocuments", func() {
		It("deletes the derived object ids", func() {
			Expect(store.DeleteDocuments(ctx, []string{"doc-1:0", "doc-1:1"})).To(Succeed())
			Expect(deletedPaths).To(HaveLen(2))
			Expect(deletedPaths[0]).NotTo(Equal(deletedPaths[1]))
		})
	})

	Describe("CollectionStats", func() {
		It("requires a collection id", func() {
			_, err := store.CollectionStats(ctx, "")
			Expect(err).To(MatchError(vector.ErrMissingCollection))
		})

		It("reads the aggregate count and estimates size", func() {
			graphqlHandler = func(w http.ResponseWriter, query string) {
				Expect(query).To(ContainSubstring("Aggregate"))
				Expect(query).To(ContainSubstring(`valueText: "handbook"`))
				json.NewEncoder(w).Encode(map[string]any{
					"data": map[string]any{"Aggregate": map[string]any{"FolioChunk": []any{
						map[string]any{
							"meta":      map[string]any{"count": 17},
							"charCount": map[string]any{"sum": 230},
						},
					}}},
				})
			}

			stats, err := store.CollectionStats(ctx, "handbook")
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.VectorCount).To(Equal(17))
			Expect(stats.Dimensions).To(Equal(2))
			// 17 vectors of 2 float32s plus 230 text bytes.
			Expect(stats.SizeBytes).To(Equal(int64(17*2*4 + 230)))
		})
	})

	Describe("HealthCheck", func() {
		It("returns true when ready", func() {
			Expect(store.HealthCheck(ctx)).To(BeTrue())
		})

		It("returns false when the server is gone", func() {
			server.Close()
			Expect(store.HealthCheck(ctx)).To(BeFalse())
		})
	})
})
