package worker_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/chunker"
	"github.com/foliodocs/folio/pkg/indexer"
	"github.com/foliodocs/folio/pkg/indexer/worker"
	"github.com/foliodocs/folio/pkg/storage"
	"github.com/foliodocs/folio/pkg/storage/inmemory"
	testutils "github.com/foliodocs/folio/pkg/utils/test"
	"github.com/foliodocs/folio/pkg/vector"
)

// newTestPool creates a worker pool over an in-memory stack.
// Callers should wp.Close() to drain enqueued jobs before asserting state.
func newTestPool() (*worker.Pool, *inmemory.Driver, *testutils.MockVectorStore) {
	driver := inmemory.NewDriver()
	store := testutils.NewMockVectorStore()

	pipeline, err := indexer.NewPipeline(indexer.Config{
		Chunker:  chunker.New(100, 0),
		Embedder: testutils.NewMockEmbedder(),
		Stores:   []vector.Store{store},
		Storage:  driver,
		Logger:   zap.NewNop(),
	})
	Expect(err).NotTo(HaveOccurred())

	wp, err := worker.NewPool(&worker.Config{
		Pipeline: pipeline,
		Logger:   zap.NewNop(),
	})
	Expect(err).NotTo(HaveOccurred())

	return wp, driver, store
}

var _ = Describe("Worker Pool", func() {
	var (
		wp     *worker.Pool
		driver *inmemory.Driver
		store  *testutils.MockVectorStore
		ctx    context.Context
	)

	BeforeEach(func() {
		wp, driver, store = newTestPool()
		ctx = context.Background()
	})

	newDoc := func(id string) *storage.Document {
		doc := &storage.Document{
			ID:           id,
			CollectionID: "handbook",
			Content:      "Remote work is allowed for eligible employees.",
			Status:       storage.StatusPending,
			CreatedAt:    time.Now().UTC(),
		}
		Expect(driver.CreateDocument(ctx, doc)).To(Succeed())
		return doc
	}

	Describe("NewPool", func() {
		It("requires a pipeline", func() {
			_, err := worker.NewPool(&worker.Config{Logger: zap.NewNop()})
			Expect(err).To(MatchError(ContainSubstring("pipeline is required")))
		})
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			ok := wp.Enqueue(worker.Job{Document: newDoc("doc-1")})
			Expect(ok).To(BeTrue())
			wp.Close()
		})

		It("processes queued documents to a terminal status", func() {
			doc := newDoc("doc-1")
			Expect(wp.Enqueue(worker.Job{Document: doc})).To(BeTrue())
			wp.Close()

			got, err := driver.GetDocument(ctx, "doc-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(storage.StatusCompleted))
			Expect(store.Added).NotTo(BeEmpty())
		})

		It("keeps processing after a failed document", func() {
			bad := newDoc("doc-bad")
			bad.Content = ""
			good := newDoc("doc-good")

			Expect(wp.Enqueue(worker.Job{Document: bad})).To(BeTrue())
			Expect(wp.Enqueue(worker.Job{Document: good})).To(BeTrue())
			wp.Close()

			gotBad, err := driver.GetDocument(ctx, "doc-bad")
			Expect(err).NotTo(HaveOccurred())
			Expect(gotBad.Status).To(Equal(storage.StatusFailed))

			gotGood, err := driver.GetDocument(ctx, "doc-good")
			Expect(err).NotTo(HaveOccurred())
			Expect(gotGood.Status).To(Equal(storage.StatusCompleted))
		})
	})
})
