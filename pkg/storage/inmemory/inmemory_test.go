package inmemory_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliodocs/folio/pkg/storage"
	"github.com/foliodocs/folio/pkg/storage/inmemory"
)

var _ = Describe("InMemory driver", func() {
	var (
		driver *inmemory.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
	})

	It("round-trips a document and isolates callers from internal state", func() {
		doc := &storage.Document{
			ID:           "doc-1",
			CollectionID: "handbook",
			Status:       storage.StatusPending,
			CreatedAt:    time.Now().UTC(),
		}
		Expect(driver.CreateDocument(ctx, doc)).To(Succeed())

		got, err := driver.GetDocument(ctx, "doc-1")
		Expect(err).NotTo(HaveOccurred())

		// Mutating the returned copy must not affect the stored record.
		got.Status = storage.StatusFailed
		again, err := driver.GetDocument(ctx, "doc-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Status).To(Equal(storage.StatusPending))
	})

	It("returns ErrNotFound for missing documents", func() {
		_, err := driver.GetDocument(ctx, "missing")
		Expect(err).To(BeAssignableToTypeOf(storage.ErrNotFound{}))

		err = driver.UpdateDocumentStatus(ctx, "missing", storage.StatusCompleted, 0, "")
		Expect(err).To(BeAssignableToTypeOf(storage.ErrNotFound{}))
	})

	It("updates document status", func() {
		Expect(driver.CreateDocument(ctx, &storage.Document{
			ID:           "doc-1",
			CollectionID: "handbook",
			Status:       storage.StatusPending,
		})).To(Succeed())

		Expect(driver.UpdateDocumentStatus(ctx, "doc-1", storage.StatusCompleted, 4, "")).To(Succeed())

		got, err := driver.GetDocument(ctx, "doc-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(storage.StatusCompleted))
		Expect(got.ChunkCount).To(Equal(4))
	})

	It("lists chunks ordered by document then index", func() {
		Expect(driver.PutChunks(ctx, []*storage.Chunk{
			{ID: "b:1", DocumentID: "b", CollectionID: "handbook", Index: 1},
			{ID: "a:0", DocumentID: "a", CollectionID: "handbook", Index: 0},
			{ID: "b:0", DocumentID: "b", CollectionID: "handbook", Index: 0},
			{ID: "c:0", DocumentID: "c", CollectionID: "legal", Index: 0},
		})).To(Succeed())

		chunks, err := driver.ListChunksByCollection(ctx, "handbook")
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).To(HaveLen(3))
		Expect(chunks[0].ID).To(Equal("a:0"))
		Expect(chunks[1].ID).To(Equal("b:0"))
		Expect(chunks[2].ID).To(Equal("b:1"))
	})

	It("deletes chunks by document", func() {
		Expect(driver.PutChunks(ctx, []*storage.Chunk{
			{ID: "a:0", DocumentID: "a", CollectionID: "handbook", Index: 0},
			{ID: "b:0", DocumentID: "b", CollectionID: "handbook", Index: 0},
		})).To(Succeed())

		Expect(driver.DeleteChunksByDocument(ctx, "a")).To(Succeed())

		chunks, err := driver.ListChunksByCollection(ctx, "handbook")
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).To(HaveLen(1))
	})

	It("lists query records newest first with a limit", func() {
		for _, id := range []string{"a", "b", "c"} {
			Expect(driver.RecordQuery(ctx, &storage.QueryRecord{
				ID:           id,
				CollectionID: "handbook",
			})).To(Succeed())
		}

		recs, err := driver.ListQueries(ctx, "handbook", 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(2))
		Expect(recs[0].ID).To(Equal("c"))
		Expect(recs[1].ID).To(Equal("b"))
	})
})
