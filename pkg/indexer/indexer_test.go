package indexer_test

import (
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/chunker"
	"github.com/foliodocs/folio/pkg/indexer"
	"github.com/foliodocs/folio/pkg/storage"
	"github.com/foliodocs/folio/pkg/storage/inmemory"
	"github.com/foliodocs/folio/pkg/storage/sqlite"
	testutils "github.com/foliodocs/folio/pkg/utils/test"
	"github.com/foliodocs/folio/pkg/vector"
)

// cancellingEmbedder aborts the run from inside the first embedding call,
// the way a caller giving up mid-document does.
type cancellingEmbedder struct {
	cancel context.CancelFunc
}

func (e *cancellingEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	e.cancel()
	return nil, ctx.Err()
}

func (e *cancellingEmbedder) Close() error { return nil }

// Three paragraphs, each its own chunk at this chunk size.
const policyText = "Remote work is allowed for eligible employees.\n\n" +
	"Expenses must be filed monthly with receipts.\n\n" +
	"Security training is mandatory every year."

var _ = Describe("Pipeline", func() {
	var (
		ctx      context.Context
		store    *testutils.MockVectorStore
		embedder *testutils.MockEmbedder
		events   *testutils.MockPublisher
		driver   *inmemory.Driver
		pipeline *indexer.Pipeline
		doc      *storage.Document
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = testutils.NewMockVectorStore()
		embedder = testutils.NewMockEmbedder()
		events = testutils.NewMockPublisher()
		driver = inmemory.NewDriver()

		var err error
		pipeline, err = indexer.NewPipeline(indexer.Config{
			Chunker:      chunker.New(50, 0),
			Embedder:     embedder,
			Stores:       []vector.Store{store},
			Storage:      driver,
			Events:       events,
			EmbedWorkers: 2,
			Logger:       zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		doc = &storage.Document{
			ID:           "doc-1",
			CollectionID: "handbook",
			Name:         "handbook.txt",
			Content:      policyText,
			Status:       storage.StatusPending,
			CreatedAt:    time.Now().UTC(),
		}
		Expect(driver.CreateDocument(ctx, doc)).To(Succeed())
	})

	It("indexes every chunk of a clean document", func() {
		outcome, err := pipeline.Process(ctx, doc)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.Status).To(Equal(storage.StatusCompleted))
		Expect(outcome.ChunkCount).To(Equal(3))
		Expect(outcome.FailedChunks).To(BeZero())

		got, err := driver.GetDocument(ctx, "doc-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(storage.StatusCompleted))
		Expect(got.ChunkCount).To(Equal(3))

		Expect(store.Added).To(HaveLen(3))
		chunks, err := driver.ListChunksByCollection(ctx, "handbook")
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).To(HaveLen(3))
	})

	It("skips chunks whose embedding fails and still completes", func() {
		embedder.FailOn = "Expenses"

		outcome, err := pipeline.Process(ctx, doc)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.Status).To(Equal(storage.StatusCompleted))
		Expect(outcome.ChunkCount).To(Equal(2))
		Expect(outcome.FailedChunks).To(Equal(1))

		// Surviving chunks keep the indices assigned before embedding.
		indices := []int{store.Added[0].ChunkIndex, store.Added[1].ChunkIndex}
		Expect(indices).To(ConsistOf(0, 2))

		got, err := driver.GetDocument(ctx, "doc-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ChunkCount).To(Equal(2))
	})

	It("fails terminally when every chunk fails to embed", func() {
		embedder.FailOn = "e"

		outcome, err := pipeline.Process(ctx, doc)
		Expect(err).To(MatchError(indexer.ErrNoChunksIndexed))
		Expect(outcome.Status).To(Equal(storage.StatusFailed))
		Expect(outcome.ChunkCount).To(BeZero())

		got, derr := driver.GetDocument(ctx, "doc-1")
		Expect(derr).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(storage.StatusFailed))
		Expect(got.Error).NotTo(BeEmpty())
	})

	It("fails terminally on empty input", func() {
		doc.Content = "   "

		outcome, err := pipeline.Process(ctx, doc)
		Expect(err).To(MatchError(chunker.ErrEmptyInput))
		Expect(outcome.Status).To(Equal(storage.StatusFailed))

		got, derr := driver.GetDocument(ctx, "doc-1")
		Expect(derr).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(storage.StatusFailed))
	})

	It("fails terminally when the vector store rejects the write", func() {
		store.FailAdd = true

		outcome, err := pipeline.Process(ctx, doc)
		Expect(err).To(HaveOccurred())
		Expect(outcome.Status).To(Equal(storage.StatusFailed))
		Expect(outcome.ChunkCount).To(BeZero())

		got, derr := driver.GetDocument(ctx, "doc-1")
		Expect(derr).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(storage.StatusFailed))
		Expect(got.ChunkCount).To(BeZero())
	})

	It("lands a terminal status when the run is cancelled mid-embedding", func() {
		dbPath := filepath.Join(GinkgoT().TempDir(), "folio.db")
		db, err := sqlite.NewDriver(dbPath)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)

		runCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cancelled, err := indexer.NewPipeline(indexer.Config{
			Chunker:      chunker.New(50, 0),
			Embedder:     &cancellingEmbedder{cancel: cancel},
			Stores:       []vector.Store{store},
			Storage:      db,
			EmbedWorkers: 1,
			Logger:       zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.CreateDocument(ctx, doc)).To(Succeed())

		_, err = cancelled.Process(runCtx, doc)
		Expect(err).To(MatchError(context.Canceled))

		// The status write must survive the cancelled run context.
		got, derr := db.GetDocument(ctx, "doc-1")
		Expect(derr).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(storage.StatusFailed))
		Expect(got.Error).NotTo(BeEmpty())
	})

	It("emits a processed event with the indexing outcome", func() {
		embedder.FailOn = "Expenses"

		_, err := pipeline.Process(ctx, doc)
		Expect(err).NotTo(HaveOccurred())

		published := events.Events()
		Expect(published).To(HaveLen(1))
		Expect(published[0].EventType).To(Equal("folio.document.processed"))
		Expect(published[0].Document.DocumentID).To(Equal("doc-1"))
		Expect(published[0].Indexing.Status).To(Equal("completed"))
		Expect(published[0].Indexing.ChunkCount).To(Equal(2))
		Expect(published[0].Indexing.FailedChunks).To(Equal(1))
	})
})
