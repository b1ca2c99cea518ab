package querycmder

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliodocs/folio/pkg/query"
)

var _ = Describe("NewQueryCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := NewQueryCmd()
		Expect(cmd.Use).To(Equal("query <question>"))
	})

	It("requires at least one argument", func() {
		cmd := NewQueryCmd()
		err := cmd.Args(cmd, []string{})
		Expect(err).To(HaveOccurred())
	})

	It("has a collection flag with shorthand", func() {
		cmd := NewQueryCmd()
		f := cmd.Flags().Lookup("collection")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("c"))
	})

	It("has a max-sources flag with shorthand", func() {
		cmd := NewQueryCmd()
		f := cmd.Flags().Lookup("max-sources")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("k"))
	})
})

var _ = Describe("renderAnswer", func() {
	It("includes the answer text", func() {
		out := renderAnswer(&query.Answer{
			Text:       "Employees receive twenty days of vacation.",
			Confidence: 0.85,
		})
		Expect(out).To(ContainSubstring("twenty days"))
	})

	It("lists each source with its document and score", func() {
		out := renderAnswer(&query.Answer{
			Text: "answer",
			Sources: []query.Source{
				{DocumentID: "doc-1", ChunkIndex: 2, Score: 0.9, Text: "relevant passage"},
			},
			Confidence: 0.9,
		})
		Expect(out).To(ContainSubstring("doc-1"))
		Expect(out).To(ContainSubstring("Sources"))
	})

	It("flags degraded answers", func() {
		out := renderAnswer(&query.Answer{
			Text:       "answer",
			Confidence: 0.4,
			Degraded:   true,
		})
		Expect(out).To(ContainSubstring("keyword fallback"))
	})
})
