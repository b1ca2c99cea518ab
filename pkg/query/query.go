// Package query answers questions against indexed collections. It owns the
// read path: query expansion, multi-store retrieval, merging, reranking and
// answer synthesis, with a keyword fallback when every vector store is down.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/embeddings"
	"github.com/foliodocs/folio/pkg/embeddings/ratelimit"
	"github.com/foliodocs/folio/pkg/generation"
	"github.com/foliodocs/folio/pkg/storage"
	"github.com/foliodocs/folio/pkg/vector"
)

// NotFoundAnswer is the fixed answer returned when no source clears the
// confidence threshold. It is a valid terminal answer, not an error.
const NotFoundAnswer = "No relevant information found in the indexed documents."

const maxConfidence = 0.99

// Source is one retrieved chunk backing an answer.
type Source struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Page       int     `json:"page,omitempty"`
	Score      float64 `json:"score"`
}

// Answer is the terminal result of a query.
type Answer struct {
	Question   string        `json:"question"`
	Text       string        `json:"text"`
	Sources    []Source      `json:"sources"`
	Confidence float64       `json:"confidence"`
	Degraded   bool          `json:"degraded"`
	TokensIn   int           `json:"tokens_in"`
	TokensOut  int           `json:"tokens_out"`
	Duration   time.Duration `json:"-"`
}

// Options are per-query overrides.
type Options struct {
	// MaxSources overrides the configured source budget when positive.
	MaxSources int

	// DocumentID restricts retrieval to one document when set.
	DocumentID string
}

// Config holds the collaborators and tuning of the query pipeline.
type Config struct {
	Embedder  embeddings.Embedder
	Stores    []vector.Store
	Storage   storage.Driver
	Generator generation.Generator

	MaxSources          int
	ConfidenceThreshold float64
	ExpansionEnabled    bool
	RerankEnabled       bool
	RerankBoostCap      float64
	MaxContextChars     int

	Logger *zap.Logger
}

// Pipeline answers questions against a collection.
type Pipeline struct {
	embedder  embeddings.Embedder
	stores    []vector.Store
	storage   storage.Driver
	generator generation.Generator

	maxSources          int
	confidenceThreshold float64
	expansionEnabled    bool
	rerankEnabled       bool
	rerankBoostCap      float64
	maxContextChars     int

	logger *zap.Logger
}

// NewPipeline creates a query pipeline.
func NewPipeline(c Config) (*Pipeline, error) {
	if c.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if len(c.Stores) == 0 {
		return nil, fmt.Errorf("at least one vector store is required")
	}
	if c.Storage == nil {
		return nil, fmt.Errorf("storage driver is required")
	}
	if c.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}

	if c.MaxSources <= 0 {
		c.MaxSources = 5
	}
	if c.RerankBoostCap <= 1 {
		c.RerankBoostCap = 2.0
	}
	if c.MaxContextChars <= 0 {
		c.MaxContextChars = 4000
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		embedder:            c.Embedder,
		stores:              c.Stores,
		storage:             c.Storage,
		generator:           c.Generator,
		maxSources:          c.MaxSources,
		confidenceThreshold: c.ConfidenceThreshold,
		expansionEnabled:    c.ExpansionEnabled,
		rerankEnabled:       c.RerankEnabled,
		rerankBoostCap:      c.RerankBoostCap,
		maxContextChars:     c.MaxContextChars,
		logger:              logger,
	}, nil
}

// Query runs the full pipeline for one question. It always returns an
// answer: "no sources" yields the fixed not-found answer.
func (p *Pipeline) Query(ctx context.Context, text, collectionID string, opts Options) (*Answer, error) {
	start := time.Now()

	question := strings.TrimSpace(text)
	if question == "" {
		return nil, fmt.Errorf("question is empty")
	}
	if collectionID == "" {
		return nil, fmt.Errorf("collection id is required")
	}

	maxSources := p.maxSources
	if opts.MaxSources > 0 {
		maxSources = opts.MaxSources
	}

	merged, degraded, err := p.retrieve(ctx, question, collectionID, opts)
	if err != nil {
		return nil, err
	}

	var sources []Source
	if degraded {
		// Fallback scores are term-overlap ratios, already 0..1 and on a
		// different scale than similarities: the threshold does not apply.
		sources = merged
	} else {
		sources = p.filter(merged)
		if p.rerankEnabled {
			sources = p.rerank(question, sources)
		}
	}

	if len(sources) > maxSources {
		sources = sources[:maxSources]
	}

	answer := p.synthesize(ctx, question, sources)
	answer.Degraded = degraded
	answer.Duration = time.Since(start)

	p.record(ctx, collectionID, answer)

	p.logger.Debug("query answered",
		zap.String("collection_id", collectionID),
		zap.Int("sources", len(answer.Sources)),
		zap.Float64("confidence", answer.Confidence),
		zap.Bool("degraded", answer.Degraded),
	)

	return answer, nil
}

// retrieve embeds each query variant and searches every configured store,
// merging hits by chunk id at their maximum similarity. When every search
// fails it degrades to the keyword fallback instead of erroring.
func (p *Pipeline) retrieve(ctx context.Context, question, collectionID string, opts Options) ([]Source, bool, error) {
	variants := []string{question}
	if p.expansionEnabled {
		variants = expand(question)
	}

	filter := vector.Filter{
		CollectionID: collectionID,
		DocumentID:   opts.DocumentID,
	}

	// Fetch more than the source budget so filtering and reranking have
	// candidates to work with. A per-query override raises the budget.
	maxSources := p.maxSources
	if opts.MaxSources > 0 {
		maxSources = opts.MaxSources
	}
	k := maxSources * 3

	embedCtx := ratelimit.WithCaller(ctx, "query")

	best := make(map[string]vector.SearchResult)
	var order []string
	searches, failures := 0, 0

	for _, variant := range variants {
		emb, err := p.embedder.Embed(embedCtx, variant)
		if err != nil {
			p.logger.Warn("query variant embedding failed",
				zap.String("variant", variant),
				zap.Error(err),
			)
			continue
		}

		for _, store := range p.stores {
			searches++
			results, err := store.SimilaritySearch(ctx, emb, k, filter)
			if err != nil {
				failures++
				p.logger.Warn("vector search failed",
					zap.Error(err),
				)
				continue
			}

			for _, res := range results {
				prev, seen := best[res.Record.ID]
				if !seen {
					order = append(order, res.Record.ID)
				}
				if !seen || res.Score > prev.Score {
					best[res.Record.ID] = res
				}
			}
		}
	}

	if searches == 0 || failures == searches {
		sources, err := p.keywordFallback(ctx, question, collectionID)
		if err != nil {
			return nil, true, err
		}
		return sources, true, nil
	}

	sources := make([]Source, 0, len(order))
	for _, id := range order {
		res := best[id]
		sources = append(sources, Source{
			ChunkID:    res.Record.ID,
			DocumentID: res.Record.DocumentID,
			ChunkIndex: res.Record.ChunkIndex,
			Text:       res.Record.ChunkText,
			Page:       res.Record.Metadata.Page,
			Score:      float64(res.Score),
		})
	}

	// Merged hits arrive grouped by variant; order by similarity before
	// thresholding so truncation keeps the best.
	stableSortByScore(sources)

	return sources, false, nil
}

// filter drops sources below the confidence threshold.
func (p *Pipeline) filter(sources []Source) []Source {
	kept := sources[:0]
	for _, s := range sources {
		if s.Score >= p.confidenceThreshold {
			kept = append(kept, s)
		}
	}
	return kept
}

// synthesize builds the final answer from the truncated sources.
func (p *Pipeline) synthesize(ctx context.Context, question string, sources []Source) *Answer {
	answer := &Answer{
		Question: question,
		Sources:  sources,
	}

	if len(sources) == 0 {
		answer.Text = NotFoundAnswer
		answer.Sources = []Source{}
		return answer
	}

	var sum float64
	for _, s := range sources {
		sum += s.Score
	}
	answer.Confidence = sum / float64(len(sources))
	if answer.Confidence > maxConfidence {
		answer.Confidence = maxConfidence
	}

	result, err := p.generator.Generate(ctx, generation.Prompt{
		Question: question,
		Context:  p.buildContext(sources),
	})
	if err != nil {
		// Sources stand even when synthesis fails: degrade to quoting them.
		p.logger.Warn("generation failed, using extractive answer",
			zap.Error(err),
		)
		answer.Text = "Based on the indexed documents: " + firstExcerpt(sources[0].Text)
		return answer
	}

	answer.Text = result.Text
	answer.TokensIn = result.TokensIn
	answer.TokensOut = result.TokensOut
	return answer
}

// buildContext joins source texts under the context character budget.
func (p *Pipeline) buildContext(sources []Source) string {
	var b strings.Builder
	for _, s := range sources {
		if b.Len() > 0 {
			if b.Len()+2+len(s.Text) > p.maxContextChars {
				break
			}
			b.WriteString("\n\n")
		} else if len(s.Text) > p.maxContextChars {
			b.WriteString(s.Text[:p.maxContextChars])
			break
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// record writes the query audit entry. Audit failures never affect the answer.
func (p *Pipeline) record(ctx context.Context, collectionID string, answer *Answer) {
	chunkIDs := make([]string, len(answer.Sources))
	for i, s := range answer.Sources {
		chunkIDs[i] = s.ChunkID
	}

	rec := &storage.QueryRecord{
		ID:             uuid.NewString(),
		CollectionID:   collectionID,
		Question:       answer.Question,
		Answer:         answer.Text,
		Confidence:     answer.Confidence,
		SourceCount:    len(answer.Sources),
		SourceChunkIDs: chunkIDs,
		Degraded:       answer.Degraded,
		TokensIn:       answer.TokensIn,
		TokensOut:      answer.TokensOut,
		DurationMs:     answer.Duration.Milliseconds(),
		CreatedAt:      time.Now().UTC(),
	}

	if err := p.storage.RecordQuery(ctx, rec); err != nil {
		p.logger.Error("failed to record query",
			zap.Error(err),
		)
	}
}

func firstExcerpt(text string) string {
	const max = 600
	if len(text) <= max {
		return text
	}
	cut := strings.LastIndex(text[:max], " ")
	if cut <= 0 {
		cut = max
	}
	return strings.TrimSpace(text[:cut]) + "…"
}
