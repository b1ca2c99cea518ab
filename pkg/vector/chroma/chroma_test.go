package chroma_test

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
	"github.com/foliodocs/folio/pkg/vector/chroma"
)

const collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"

var _ = Describe("Chroma store", func() {
	var (
		server *httptest.Server
		store  *chroma.Store
		ctx    context.Context

		addRequests    []map[string]any
		queryRequests  []map[string]any
		deleteRequests []map[string]any
		getRequests    []map[string]any
	)

	newStore := func(handler http.Handler) *chroma.Store {
		server = httptest.NewServer(handler)
		s, err := chroma.NewStore(chroma.Config{
			URL:            server.URL,
			CollectionName: "test-collection",
			Dimensions:     2,
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	decodeBody := func(r *http.Request) map[string]any {
		var body map[string]any
		Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
		return body
	}

	BeforeEach(func() {
		ctx = context.Background()
		addRequests = nil
		queryRequests = nil
		deleteRequests = nil
		getRequests = nil
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
			server = nil
		}
	})

	Describe("NewStore", func() {
		It("requires a URL", func() {
			_, err := chroma.NewStore(chroma.Config{}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("URL is required")))
		})
	})

	Describe("Initialize", func() {
		It("reuses an existing collection", func() {
			var created bool
			mux := http.NewServeMux()
			mux.HandleFunc("GET "+collectionsPath+"/test-collection", func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "test-collection"})
			})
			mux.HandleFunc("POST "+collectionsPath, func(w http.ResponseWriter, r *http.Request) {
				created = true
			})

			store = newStore(mux)
			Expect(store.Initialize(ctx)).To(Succeed())
			Expect(created).To(BeFalse())
		})

		It("creates the collection when missing", func() {
			mux := http.NewServeMux()
			mux.HandleFunc("GET "+collectionsPath+"/test-collection", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			})
			mux.HandleFunc("POST "+collectionsPath, func(w http.ResponseWriter, r *http.Request) {
				body := decodeBody(r)
				Expect(body["name"]).To(Equal("test-collection"))
				json.NewEncoder(w).Encode(map[string]string{"id": "col-2", "name": "test-collection"})
			})

			store = newStore(mux)
			Expect(store.Initialize(ctx)).To(Succeed())
		})

		It("wraps connection failures", func() {
			store = newStore(http.NotFoundHandler())
			server.Close()

			err := store.Initialize(ctx)
			Expect(err).To(MatchError(vector.ErrConnection))
		})
	})

	Context("with an initialized store", func() {
		BeforeEach(func() {
			mux := http.NewServeMux()
			mux.HandleFunc("GET "+collectionsPath+"/test-collection", func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "test-collection"})
			})
			mux.HandleFunc("POST "+collectionsPath+"/col-1/add", func(w http.ResponseWriter, r *http.Request) {
				addRequests = append(addRequests, decodeBody(r))
			})
			mux.HandleFunc("POST "+collectionsPath+"/col-1/query", func(w http.ResponseWriter, r *http.Request) {
				queryRequests = append(queryRequests, decodeBody(r))
				json.NewEncoder(w).Encode(map[string]any{
					"ids":       [][]string{{"doc-1:0", "doc-1:1"}},
					"documents": [][]string{{"first chunk", "second chunk"}},
					"distances": [][]float32{{0.0, 1.0}},
					"metadatas": [][]map[string]any{{
						{
							"document_id":   "doc-1",
							"collection_id": "handbook",
							"chunk_index":   0,
							"page":          2,
							"word_count":    2,
							"char_count":    11,
							"created_at":    "2026-08-26T00:00:00Z",
						},
						{
							"document_id":   "doc-1",
							"collection_id": "handbook",
							"chunk_index":   1,
						},
					}},
				})
			})
			mux.HandleFunc("POST "+collectionsPath+"/col-1/delete", func(w http.ResponseWriter, r *http.Request) {
				deleteRequests = append(deleteRequests, decodeBody(r))
			})
			mux.HandleFunc("POST "+collectionsPath+"/col-1/get", func(w http.ResponseWriter, r *http.Request) {
				getRequests = append(getRequests, decodeBody(r))
				json.NewEncoder(w).Encode(map[string]any{
					"ids": []string{"doc-1:0", "doc-1:1"},
					"metadatas": []map[string]any{
						{"char_count": 11},
						{"char_count": 12},
					},
				})
			})
			mux.HandleFunc("GET /api/v2/heartbeat", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			store = newStore(mux)
			Expect(store.Initialize(ctx)).To(Succeed())
		})

		Describe("AddDocuments", func() {
			It("sends ids, embeddings, documents and metadata", func() {
				created := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
				ids, err := store.AddDocuments(ctx, []vector.Record{
					{
						ID:           "doc-1:0",
						DocumentID:   "doc-1",
						CollectionID: "handbook",
						ChunkIndex:   0,
						ChunkText:    "first chunk",
						Embedding:    []float32{0.1, 0.2},
						Metadata:     vector.Metadata{Page: 2, WordCount: 2, CharCount: 11},
						CreatedAt:    created,
					},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(ids).To(Equal([]string{"doc-1:0"}))

				Expect(addRequests).To(HaveLen(1))
				body := addRequests[0]
				Expect(body["ids"]).To(Equal([]any{"doc-1:0"}))
				Expect(body["documents"]).To(Equal([]any{"first chunk"}))

				metadatas := body["metadatas"].([]any)
				md := metadatas[0].(map[string]any)
				Expect(md["document_id"]).To(Equal("doc-1"))
				Expect(md["collection_id"]).To(Equal("handbook"))
				Expect(md["created_at"]).To(Equal("2026-08-26T12:00:00Z"))
			})

			It("is a no-op for empty input", func() {
				ids, err := store.AddDocuments(ctx, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids).To(BeEmpty())
				Expect(addRequests).To(BeEmpty())
			})
		})

		Describe("SimilaritySearch", func() {
			It("requires a collection filter", func() {
				_, err := store.SimilaritySearch(ctx, []float32{0.1}, 5, vector.Filter{})
				Expect(err).To(MatchError(vector.ErrMissingCollection))
			})

			It("filters by collection and normalizes distances", func() {
				results, err := store.SimilaritySearch(ctx, []float32{0.1, 0.2}, 5, vector.Filter{CollectionID: "handbook"})
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(2))

				Expect(queryRequests).To(HaveLen(1))
				where := queryRequests[0]["where"].(map[string]any)
				Expect(where["collection_id"]).To(Equal("handbook"))

				Expect(results[0].Score).To(BeNumerically("~", 1.0, 1e-6))
				Expect(results[1].Score).To(BeNumerically("~", 0.5, 1e-6))
				Expect(results[0].Record.ChunkText).To(Equal("first chunk"))
				Expect(results[0].Record.DocumentID).To(Equal("doc-1"))
				Expect(results[0].Record.Metadata.Page).To(Equal(2))
			})

			It("combines collection and document filters", func() {
				_, err := store.SimilaritySearch(ctx, []float32{0.1}, 5, vector.Filter{
					CollectionID: "handbook",
					DocumentID:   "doc-1",
				})
				Expect(err).NotTo(HaveOccurred())

				where := queryRequests[0]["where"].(map[string]any)
				Expect(where).To(HaveKey("$and"))
			})
		})

		Describe("DeleteDocuments", func() {
			It("sends the ids to delete", func() {
				Expect(store.DeleteDocuments(ctx, []string{"doc-1:0", "doc-1:1"})).To(Succeed())
				Expect(deleteRequests).To(HaveLen(1))
				Expect(deleteRequests[0]["ids"]).To(Equal([]any{"doc-1:0", "doc-1:1"}))
			})

			It("is a no-op for empty input", func() {
				Expect(store.DeleteDocuments(ctx, nil)).To(Succeed())
				Expect(deleteRequests).To(BeEmpty())
			})
		})

		Describe("CollectionStats", func() {
			It("requires a collection id", func() {
				_, err := store.CollectionStats(ctx, "")
				Expect(err).To(MatchError(vector.ErrMissingCollection))
			})

			It("scopes the count to the logical collection", func() {
				stats, err := store.CollectionStats(ctx, "handbook")
				Expect(err).NotTo(HaveOccurred())

				Expect(getRequests).To(HaveLen(1))
				where := getRequests[0]["where"].(map[string]any)
				Expect(where["collection_id"]).To(Equal("handbook"))

				Expect(stats.VectorCount).To(Equal(2))
				Expect(stats.Dimensions).To(Equal(2))
				// 2 vectors of 2 float32s plus 23 text bytes.
				Expect(stats.SizeBytes).To(Equal(int64(2*2*4 + 23)))
			})
		})

		Describe("HealthCheck", func() {
			It("returns true when the server responds", func() {
				Expect(store.HealthCheck(ctx)).To(BeTrue())
			})

			It("returns false when the server is gone", func() {
				server.Close()
				Expect(store.HealthCheck(ctx)).To(BeFalse())
			})
		})
	})

	Describe("search failures", func() {
		It("wraps backend errors so callers can fall back", func() {
			mux := http.NewServeMux()
			mux.HandleFunc("GET "+collectionsPath+"/test-collection", func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "test-collection"})
			})
			mux.HandleFunc("POST "+collectionsPath+"/col-1/query", func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "internal error", http.StatusInternalServerError)
			})

			store = newStore(mux)
			Expect(store.Initialize(ctx)).To(Succeed())

			_, err := store.SimilaritySearch(ctx, []float32{0.1}, 5, vector.Filter{CollectionID: "handbook"})
			Expect(err).To(MatchError(vector.ErrSearch))
		})
	})
})
