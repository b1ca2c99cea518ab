package pgvector_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/vector/pgvector"
)

// Behavior against a live database is covered by integration environments;
// these tests cover configuration handling.
var _ = Describe("Pgvector store", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("NewStore", func() {
		It("requires a connection string", func() {
			_, err := pgvector.NewStore(ctx, pgvector.Config{Dimensions: 4}, zap.NewNop())
			Expect(err).To(MatchError(ContainSubstring("connection string is required")))
		})

		It("requires dimensions", func() {
			_, err := pgvector.NewStore(ctx, pgvector.Config{
				ConnString: "postgres://localhost:5432/folio",
			}, zap.NewNop())
			Expect(err).To(MatchError(ContainSubstring("dimensions")))
		})

		It("rejects malformed connection strings", func() {
			_, err := pgvector.NewStore(ctx, pgvector.Config{
				ConnString: "://not-a-conn-string",
				Dimensions: 4,
			}, zap.NewNop())
			Expect(err).To(MatchError(ContainSubstring("parsing connection string")))
		})
	})
})
