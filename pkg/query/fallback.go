package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// keywordFallback answers retrieval when every vector store search failed.
// It scans the persisted chunks of the collection and scores them by term
// overlap with the question. It never consults the vector stores.
func (p *Pipeline) keywordFallback(ctx context.Context, question, collectionID string) ([]Source, error) {
	p.logger.Warn("all vector searches failed, falling back to keyword scan",
		zap.String("collection_id", collectionID),
	)

	chunks, err := p.storage.ListChunksByCollection(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("keyword fallback: listing chunks: %w", err)
	}

	terms := tokenize(question)
	if len(terms) == 0 {
		return nil, nil
	}

	var sources []Source
	for _, c := range chunks {
		contentTerms := make(map[string]struct{})
		for _, t := range tokenize(c.Text) {
			contentTerms[t] = struct{}{}
		}

		matched := 0
		for _, t := range terms {
			if _, ok := contentTerms[t]; ok {
				matched++
			}
		}
		if matched == 0 {
			continue
		}

		sources = append(sources, Source{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			ChunkIndex: c.Index,
			Text:       c.Text,
			Page:       c.Page,
			Score:      float64(matched) / float64(len(terms)),
		})
	}

	stableSortByScore(sources)
	return sources, nil
}
