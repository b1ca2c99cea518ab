package vectorutils_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliodocs/folio/pkg/logger"
	"github.com/foliodocs/folio/pkg/vector/memory"
	vectorutils "github.com/foliodocs/folio/pkg/vector/utils"
)

var _ = Describe("NewStore", func() {
	It("builds a memory store", func() {
		store, err := vectorutils.NewStore(context.Background(), &vectorutils.NewStoreOpts{
			ProviderType: "memory",
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(store).To(BeAssignableToTypeOf(&memory.Store{}))
	})

	It("rejects unknown providers", func() {
		_, err := vectorutils.NewStore(context.Background(), &vectorutils.NewStoreOpts{
			ProviderType: "pinecone",
			Logger:       logger.Nop(),
		})
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider")))
	})

	It("passes the configured collection to the weaviate store", func() {
		var looked bool
		mux := http.NewServeMux()
		mux.HandleFunc("GET /v1/schema/Handbook", func(w http.ResponseWriter, r *http.Request) {
			looked = true
			json.NewEncoder(w).Encode(map[string]string{"class": "Handbook"})
		})

		srv := httptest.NewServer(mux)
		defer srv.Close()

		store, err := vectorutils.NewStore(context.Background(), &vectorutils.NewStoreOpts{
			ProviderType: "weaviate",
			TargetURL:    srv.URL,
			Collection:   "handbook",
			Dimensions:   768,
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Initialize(context.Background())).To(Succeed())
		Expect(looked).To(BeTrue())
	})

	It("passes the configured collection to the chroma store", func() {
		var looked bool
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v2/tenants/default_tenant/databases/default_database/collections/handbook",
			func(w http.ResponseWriter, r *http.Request) {
				looked = true
				json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "handbook"})
			})

		srv := httptest.NewServer(mux)
		defer srv.Close()

		store, err := vectorutils.NewStore(context.Background(), &vectorutils.NewStoreOpts{
			ProviderType: "chroma",
			TargetURL:    srv.URL,
			Collection:   "handbook",
			Dimensions:   768,
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Initialize(context.Background())).To(Succeed())
		Expect(looked).To(BeTrue())
	})
})
