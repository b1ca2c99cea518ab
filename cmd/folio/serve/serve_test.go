package servecmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	servecmder "github.com/foliodocs/folio/cmd/folio/serve"
)

var _ = Describe("NewServeCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
	})

	It("has a listen flag with the default address", func() {
		cmd := servecmder.NewServeCmd()
		f := cmd.Flags().Lookup("listen")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(":8084"))
	})

	It("has vector store provider and target flags", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Flags().Lookup("vector-store-provider")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("vector-store-target")).NotTo(BeNil())
	})

	It("has a sqlite flag with shorthand", func() {
		cmd := servecmder.NewServeCmd()
		f := cmd.Flags().Lookup("sqlite")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("s"))
	})
})
