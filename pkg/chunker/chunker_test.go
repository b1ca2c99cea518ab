package chunker_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliodocs/folio/pkg/chunker"
)

var _ = Describe("Chunker", func() {
	Describe("Chunk", func() {
		It("returns ErrEmptyInput for empty input", func() {
			c := chunker.New(100, 20)
			_, err := c.Chunk("")
			Expect(err).To(MatchError(chunker.ErrEmptyInput))
		})

		It("returns ErrEmptyInput for whitespace-only input", func() {
			c := chunker.New(100, 20)
			_, err := c.Chunk("  \n\n\t  \n")
			Expect(err).To(MatchError(chunker.ErrEmptyInput))
		})

		It("yields exactly one chunk when input fits the chunk size", func() {
			c := chunker.New(100, 20)
			text := "Remote work is allowed for eligible employees. Employees must maintain regular communication."

			chunks, err := c.Chunk(text)
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].Text).To(Equal(text))
			Expect(chunks[0].Index).To(Equal(0))
		})

		It("is deterministic for identical input and parameters", func() {
			c := chunker.New(80, 16)
			text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 30)

			first, err := c.Chunk(text)
			Expect(err).NotTo(HaveOccurred())

			second, err := c.Chunk(text)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})

		It("produces contiguous indices starting at zero", func() {
			c := chunker.New(60, 12)
			text := strings.Repeat("Sentence one here. Sentence two here. ", 20)

			chunks, err := c.Chunk(text)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(chunks)).To(BeNumerically(">", 1))
			for i, ch := range chunks {
				Expect(ch.Index).To(Equal(i))
			}
		})

		It("shares a non-empty suffix/prefix window between adjacent chunks", func() {
			c := chunker.New(120, 40)
			text := strings.Repeat("Alpha beta gamma delta epsilon zeta. ", 25)

			chunks, err := c.Chunk(text)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(chunks)).To(BeNumerically(">", 1))

			for i := 1; i < len(chunks); i++ {
				prev := chunks[i-1].Text
				cur := chunks[i].Text

				// Find the longest prefix of cur that is a suffix of prev.
				shared := 0
				for n := 1; n <= len(cur) && n <= len(prev); n++ {
					if strings.HasSuffix(prev, cur[:n]) {
						shared = n
					}
				}
				Expect(shared).To(BeNumerically(">", 0),
					"chunk %d should share a window with its predecessor", i)
			}
		})

		It("respects the chunk size budget", func() {
			c := chunker.New(100, 20)
			text := strings.Repeat("Short sentence here. ", 50)

			chunks, err := c.Chunk(text)
			Expect(err).NotTo(HaveOccurred())
			for _, ch := range chunks {
				Expect(ch.CharCount).To(BeNumerically("<=", 100+20))
			}
		})

		It("does not seed overlap when overlap is zero", func() {
			c := chunker.New(60, 0)
			text := strings.Repeat("One two three four five six. ", 15)

			chunks, err := c.Chunk(text)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(chunks)).To(BeNumerically(">", 1))

			joined := ""
			for _, ch := range chunks {
				joined += ch.Text + " "
			}
			// No sentence should appear twice when overlap is disabled.
			Expect(strings.Count(joined, "One two three four five six.")).To(Equal(15))
		})

		It("records word and char counts", func() {
			c := chunker.New(200, 20)
			chunks, err := c.Chunk("Four words right here.")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].WordCount).To(Equal(4))
			Expect(chunks[0].CharCount).To(Equal(len("Four words right here.")))
		})
	})

	Describe("page markers", func() {
		It("attaches page metadata instead of emitting marker text", func() {
			c := chunker.New(200, 20)
			text := "[[page=1]]\n\nFirst page content goes here.\n\n[[page=2]]\n\nSecond page content goes here."

			chunks, err := c.Chunk(text)
			Expect(err).NotTo(HaveOccurred())
			for _, ch := range chunks {
				Expect(ch.Text).NotTo(ContainSubstring("[[page="))
			}
			Expect(chunks[0].Page).To(Equal(1))
		})

		It("tracks the page in effect across chunk boundaries", func() {
			c := chunker.New(60, 0)
			text := "[[page=3]]\n\n" + strings.Repeat("Page three sentence content. ", 10)

			chunks, err := c.Chunk(text)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(chunks)).To(BeNumerically(">", 1))
			for _, ch := range chunks {
				Expect(ch.Page).To(Equal(3))
			}
		})

		It("leaves page zero when no markers are present", func() {
			c := chunker.New(100, 10)
			chunks, err := c.Chunk("No markers in this text.")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks[0].Page).To(Equal(0))
		})
	})
})
