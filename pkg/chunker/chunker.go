// Package chunker splits document text into overlapping, page-aware segments
// suitable for embedding and retrieval. Chunking is pure and deterministic:
// identical input and parameters always yield identical chunk boundaries.
package chunker

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrEmptyInput is returned when the input text contains no indexable content.
// Callers must treat this as a processing failure, not a silent success.
var ErrEmptyInput = errors.New("chunker: empty input")

// Chunk is one segment of a document produced by the chunker. Identity and
// ownership (document id, collection id) are assigned by the indexing
// pipeline, not here.
type Chunk struct {
	// Index is the zero-based sequential position within the document.
	Index int

	// Text is the chunk content. Never empty.
	Text string

	// Page is the page marker in effect where the chunk starts, or 0 when
	// the source text carries no page markers.
	Page int

	// WordCount and CharCount describe Text.
	WordCount int
	CharCount int
}

// Chunker accumulates paragraphs (falling back to sentences for oversized
// paragraphs) into chunks of at most chunkSize characters, seeding each chunk
// after the first with the trailing sentences of its predecessor.
type Chunker struct {
	chunkSize int
	overlap   int
}

// pageMarker matches the [[page=N]] markers emitted by upstream text
// extraction. Markers are consumed into chunk metadata, never into content.
var pageMarker = regexp.MustCompile(`\[\[page=(\d+)\]\]`)

// sentenceSplitter matches sentence-shaped spans ending in . ! or ?.
var sentenceSplitter = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// New creates a Chunker. chunkSize is the maximum chunk length in characters;
// overlap bounds the seed window shared between adjacent chunks.
func New(chunkSize, overlap uint) *Chunker {
	size := int(chunkSize)
	if size <= 0 {
		size = 1000
	}

	ov := int(overlap)
	if ov >= size {
		ov = size / 5
	}

	return &Chunker{
		chunkSize: size,
		overlap:   ov,
	}
}

// unit is a logical accumulation unit: a paragraph, a sentence of an
// oversized paragraph, or an overlap seed carried over from the prior chunk.
type unit struct {
	text      string
	page      int
	sentences []string
}

// Chunk splits text into ordered chunks. Empty or whitespace-only input
// returns ErrEmptyInput. Input that fits within the chunk size yields exactly
// one chunk equal to the trimmed input.
func (c *Chunker) Chunk(text string) ([]Chunk, error) {
	units := c.split(text)
	if len(units) == 0 {
		return nil, ErrEmptyInput
	}

	var chunks []Chunk
	var buf []unit
	bufLen := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}

		parts := make([]string, len(buf))
		for i, u := range buf {
			parts[i] = u.text
		}
		content := strings.TrimSpace(strings.Join(parts, " "))
		if content == "" {
			buf = nil
			bufLen = 0
			return
		}

		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Text:      content,
			Page:      buf[0].page,
			WordCount: len(strings.Fields(content)),
			CharCount: len(content),
		})

		seed := c.overlapSeed(buf)
		buf = nil
		bufLen = 0
		if seed.text != "" {
			buf = append(buf, seed)
			bufLen = len(seed.text)
		}
	}

	for _, u := range units {
		if bufLen > 0 && bufLen+1+len(u.text) > c.chunkSize {
			flush()
		}
		buf = append(buf, u)
		bufLen += len(u.text)
		if len(buf) > 1 {
			bufLen++ // joining space
		}
	}
	flush()

	if len(chunks) == 0 {
		return nil, ErrEmptyInput
	}

	return chunks, nil
}

// split breaks text into accumulation units with page attribution. Paragraphs
// longer than the chunk size fall back to their sentences.
func (c *Chunker) split(text string) []unit {
	page := 0
	var units []unit

	for _, para := range strings.Split(text, "\n\n") {
		if markers := pageMarker.FindAllStringSubmatch(para, -1); len(markers) > 0 {
			if n, err := strconv.Atoi(markers[len(markers)-1][1]); err == nil {
				page = n
			}
			para = pageMarker.ReplaceAllString(para, "")
		}

		para = strings.TrimSpace(strings.Join(strings.Fields(para), " "))
		if para == "" {
			continue
		}

		if len(para) <= c.chunkSize {
			units = append(units, unit{
				text:      para,
				page:      page,
				sentences: splitSentences(para),
			})
			continue
		}

		for _, sent := range splitSentences(para) {
			units = append(units, unit{
				text:      sent,
				page:      page,
				sentences: []string{sent},
			})
		}
	}

	return units
}

// overlapSeed returns the unit that seeds the next chunk: the trailing ~20%
// of the flushed chunk's sentences, bounded by the overlap window. Returns a
// zero unit when overlap is disabled.
func (c *Chunker) overlapSeed(buf []unit) unit {
	if c.overlap <= 0 {
		return unit{}
	}

	var sentences []string
	for _, u := range buf {
		sentences = append(sentences, u.sentences...)
	}
	if len(sentences) == 0 {
		return unit{}
	}

	take := int(math.Ceil(float64(len(sentences)) * 0.2))
	if take < 1 {
		take = 1
	}
	tail := sentences[len(sentences)-take:]

	// Shrink the window until it fits the overlap budget.
	for len(tail) > 1 && len(strings.Join(tail, " ")) > c.overlap {
		tail = tail[1:]
	}

	seed := strings.Join(tail, " ")
	if len(seed) > c.overlap {
		// A single oversized sentence: keep its exact trailing suffix so the
		// shared window remains a suffix of the prior chunk.
		seed = seed[len(seed)-c.overlap:]
	}
	seed = strings.TrimLeft(seed, " ")
	if seed == "" {
		return unit{}
	}

	return unit{
		text:      seed,
		page:      buf[len(buf)-1].page,
		sentences: []string{seed},
	}
}

// splitSentences splits a paragraph into sentence-shaped spans. Text without
// terminal punctuation is returned as a single sentence.
func splitSentences(para string) []string {
	matches := sentenceSplitter.FindAllString(para, -1)
	if len(matches) == 0 {
		return []string{para}
	}

	sentences := make([]string, 0, len(matches)+1)
	consumed := 0
	for _, m := range matches {
		consumed += len(m)
		if s := strings.TrimSpace(m); s != "" {
			sentences = append(sentences, s)
		}
	}

	// Keep any unterminated trailing span.
	if rest := strings.TrimSpace(para[consumed:]); rest != "" {
		sentences = append(sentences, rest)
	}

	return sentences
}
