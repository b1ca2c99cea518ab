package engine

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliodocs/folio/pkg/config"
	foliologger "github.com/foliodocs/folio/pkg/logger"
	"github.com/foliodocs/folio/pkg/storage/inmemory"
	"github.com/foliodocs/folio/pkg/storage/sqlite"
)

var _ = Describe("New", func() {
	var (
		cfg *config.Config
		ctx context.Context
	)

	BeforeEach(func() {
		cfg = config.NewDefaultConfig()
		ctx = context.Background()
	})

	It("assembles all collaborators from the default config", func() {
		eng, err := New(ctx, cfg, foliologger.Nop())
		Expect(err).NotTo(HaveOccurred())
		defer eng.Close()

		Expect(eng.Storage).NotTo(BeNil())
		Expect(eng.Stores).To(HaveLen(1))
		Expect(eng.Embedder).NotTo(BeNil())
		Expect(eng.Generator).NotTo(BeNil())
		Expect(eng.Events).NotTo(BeNil())
		Expect(eng.Indexer).NotTo(BeNil())
		Expect(eng.Query).NotTo(BeNil())
	})

	It("defaults to in-memory document storage", func() {
		cfg.Storage.Provider = ""

		eng, err := New(ctx, cfg, foliologger.Nop())
		Expect(err).NotTo(HaveOccurred())
		defer eng.Close()

		Expect(eng.Storage).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("uses sqlite storage when configured", func() {
		cfg.Storage.Provider = "sqlite"
		cfg.Storage.SQLitePath = GinkgoT().TempDir() + "/folio.db"

		eng, err := New(ctx, cfg, foliologger.Nop())
		Expect(err).NotTo(HaveOccurred())
		defer eng.Close()

		Expect(eng.Storage).To(BeAssignableToTypeOf(&sqlite.Driver{}))
	})

	It("requires a path for the sqlite provider", func() {
		cfg.Storage.Provider = "sqlite"
		cfg.Storage.SQLitePath = ""

		_, err := New(ctx, cfg, foliologger.Nop())
		Expect(err).To(MatchError(ContainSubstring("sqlite_path")))
	})

	It("rejects an unknown storage provider", func() {
		cfg.Storage.Provider = "dynamo"

		_, err := New(ctx, cfg, foliologger.Nop())
		Expect(err).To(MatchError(ContainSubstring("unsupported storage provider")))
	})

	It("rejects an unknown vector store provider", func() {
		cfg.VectorStore.Provider = "pinecone"

		_, err := New(ctx, cfg, foliologger.Nop())
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider")))
	})

	It("initializes the in-memory vector store", func() {
		eng, err := New(ctx, cfg, foliologger.Nop())
		Expect(err).NotTo(HaveOccurred())
		defer eng.Close()

		Expect(eng.Initialize(ctx)).To(Succeed())
	})
})

var _ = Describe("splitBrokers", func() {
	It("returns nil for an empty string", func() {
		Expect(splitBrokers("")).To(BeNil())
	})

	It("splits and trims a comma separated list", func() {
		Expect(splitBrokers("localhost:9092, broker2:9092 ,")).To(Equal([]string{"localhost:9092", "broker2:9092"}))
	})
})
