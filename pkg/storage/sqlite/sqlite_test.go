package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliodocs/folio/pkg/storage"
	"github.com/foliodocs/folio/pkg/storage/sqlite"
)

func testDocument(id, collectionID string) *storage.Document {
	now := time.Now().UTC().Truncate(time.Second)
	return &storage.Document{
		ID:           id,
		CollectionID: collectionID,
		Name:         "handbook.txt",
		ContentType:  "text/plain",
		Content:      "Remote work is allowed for eligible employees.",
		Status:       storage.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

var _ = Describe("SQLite driver", func() {
	var (
		driver *sqlite.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		driver, err = sqlite.NewDriver(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	Describe("NewDriver", func() {
		It("creates a driver with a file database", func() {
			tmpDir := GinkgoT().TempDir()
			dbPath := filepath.Join(tmpDir, "test.db")

			s, err := sqlite.NewDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("documents", func() {
		It("round-trips a document", func() {
			doc := testDocument("doc-1", "handbook")
			Expect(driver.CreateDocument(ctx, doc)).To(Succeed())

			got, err := driver.GetDocument(ctx, "doc-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal("doc-1"))
			Expect(got.CollectionID).To(Equal("handbook"))
			Expect(got.Status).To(Equal(storage.StatusPending))
			Expect(got.Content).To(Equal(doc.Content))
		})

		It("returns ErrNotFound for missing documents", func() {
			_, err := driver.GetDocument(ctx, "missing")
			Expect(err).To(BeAssignableToTypeOf(storage.ErrNotFound{}))
		})

		It("updates status, chunk count and error message", func() {
			Expect(driver.CreateDocument(ctx, testDocument("doc-1", "handbook"))).To(Succeed())

			Expect(driver.UpdateDocumentStatus(ctx, "doc-1", storage.StatusFailed, 3, "embedding failed")).To(Succeed())

			got, err := driver.GetDocument(ctx, "doc-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(storage.StatusFailed))
			Expect(got.ChunkCount).To(Equal(3))
			Expect(got.Error).To(Equal("embedding failed"))
		})

		It("returns ErrNotFound when updating a missing document", func() {
			err := driver.UpdateDocumentStatus(ctx, "missing", storage.StatusCompleted, 0, "")
			Expect(err).To(BeAssignableToTypeOf(storage.ErrNotFound{}))
		})

		It("lists documents scoped to a collection", func() {
			Expect(driver.CreateDocument(ctx, testDocument("doc-1", "handbook"))).To(Succeed())
			Expect(driver.CreateDocument(ctx, testDocument("doc-2", "handbook"))).To(Succeed())
			Expect(driver.CreateDocument(ctx, testDocument("doc-3", "legal"))).To(Succeed())

			docs, err := driver.ListDocuments(ctx, "handbook")
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
		})
	})

	Describe("chunks", func() {
		chunk := func(id, docID, collID string, idx int, text string) *storage.Chunk {
			return &storage.Chunk{
				ID:           id,
				DocumentID:   docID,
				CollectionID: collID,
				Index:        idx,
				Text:         text,
				WordCount:    2,
				CharCount:    len(text),
				CreatedAt:    time.Now().UTC(),
			}
		}

		It("stores and lists chunks ordered by document then index", func() {
			Expect(driver.PutChunks(ctx, []*storage.Chunk{
				chunk("doc-1:1", "doc-1", "handbook", 1, "expense reporting"),
				chunk("doc-1:0", "doc-1", "handbook", 0, "remote work"),
				chunk("doc-2:0", "doc-2", "legal", 0, "jurisdiction clause"),
			})).To(Succeed())

			chunks, err := driver.ListChunksByCollection(ctx, "handbook")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(2))
			Expect(chunks[0].Index).To(Equal(0))
			Expect(chunks[1].Index).To(Equal(1))
		})

		It("replaces chunks with the same id", func() {
			Expect(driver.PutChunks(ctx, []*storage.Chunk{
				chunk("doc-1:0", "doc-1", "handbook", 0, "first version"),
			})).To(Succeed())
			Expect(driver.PutChunks(ctx, []*storage.Chunk{
				chunk("doc-1:0", "doc-1", "handbook", 0, "second version"),
			})).To(Succeed())

			chunks, err := driver.ListChunksByCollection(ctx, "handbook")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].Text).To(Equal("second version"))
		})

		It("deletes chunks by document", func() {
			Expect(driver.PutChunks(ctx, []*storage.Chunk{
				chunk("doc-1:0", "doc-1", "handbook", 0, "remote work"),
				chunk("doc-2:0", "doc-2", "handbook", 0, "expense reporting"),
			})).To(Succeed())

			Expect(driver.DeleteChunksByDocument(ctx, "doc-1")).To(Succeed())

			chunks, err := driver.ListChunksByCollection(ctx, "handbook")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].DocumentID).To(Equal("doc-2"))
		})
	})

	Describe("query records", func() {
		It("records queries and lists newest first", func() {
			base := time.Now().UTC().Truncate(time.Second)
			for i := range 3 {
				Expect(driver.RecordQuery(ctx, &storage.QueryRecord{
					ID:           string(rune('a' + i)),
					CollectionID: "handbook",
					Question:     "what is the policy?",
					Answer:       "remote work is allowed",
					Confidence:   0.8,
					SourceCount:  2,
					CreatedAt:    base.Add(time.Duration(i) * time.Second),
				})).To(Succeed())
			}

			recs, err := driver.ListQueries(ctx, "handbook", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(2))
			Expect(recs[0].ID).To(Equal("c"))
			Expect(recs[1].ID).To(Equal("b"))
		})

		It("round-trips the degraded flag", func() {
			Expect(driver.RecordQuery(ctx, &storage.QueryRecord{
				ID:           "q-1",
				CollectionID: "handbook",
				Question:     "anything?",
				Answer:       "",
				Degraded:     true,
				CreatedAt:    time.Now().UTC(),
			})).To(Succeed())

			recs, err := driver.ListQueries(ctx, "handbook", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].Degraded).To(BeTrue())
			Expect(recs[0].SourceChunkIDs).To(BeEmpty())
		})

		It("round-trips source chunk ids and accounting", func() {
			Expect(driver.RecordQuery(ctx, &storage.QueryRecord{
				ID:             "q-2",
				CollectionID:   "handbook",
				Question:       "what is the policy?",
				Answer:         "remote work is allowed",
				Confidence:     0.8,
				SourceCount:    2,
				SourceChunkIDs: []string{"doc-1:0", "doc-1:3"},
				TokensIn:       128,
				TokensOut:      42,
				DurationMs:     350,
				CreatedAt:      time.Now().UTC(),
			})).To(Succeed())

			recs, err := driver.ListQueries(ctx, "handbook", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].SourceChunkIDs).To(Equal([]string{"doc-1:0", "doc-1:3"}))
			Expect(recs[0].TokensIn).To(Equal(128))
			Expect(recs[0].TokensOut).To(Equal(42))
			Expect(recs[0].DurationMs).To(Equal(int64(350)))
		})
	})
})
