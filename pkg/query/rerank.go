package query

import (
	"regexp"
	"sort"
	"strings"
)

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// rerank orders sources by similarity multiplied by a term-overlap boost
// against the original question. The sort is stable: equal reranked scores
// keep their incoming order.
func (p *Pipeline) rerank(question string, sources []Source) []Source {
	terms := tokenize(question)
	if len(terms) == 0 {
		return sources
	}

	keys := make([]float64, len(sources))
	for i, s := range sources {
		keys[i] = s.Score * p.termOverlapBoost(terms, s.Text)
	}

	idx := make([]int, len(sources))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]] > keys[idx[b]]
	})

	reranked := make([]Source, len(sources))
	for i, j := range idx {
		reranked[i] = sources[j]
	}
	return reranked
}

// termOverlapBoost is 1 plus the fraction of question terms present in the
// content, capped by the configured boost ceiling.
func (p *Pipeline) termOverlapBoost(terms []string, content string) float64 {
	contentTerms := make(map[string]struct{})
	for _, t := range tokenize(content) {
		contentTerms[t] = struct{}{}
	}

	matched := 0
	for _, t := range terms {
		if _, ok := contentTerms[t]; ok {
			matched++
		}
	}

	boost := 1.0 + float64(matched)/float64(len(terms))
	if boost > p.rerankBoostCap {
		boost = p.rerankBoostCap
	}
	return boost
}

// tokenize lowercases and splits text into alphanumeric terms, skipping
// one- and two-letter words.
func tokenize(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	terms := words[:0]
	for _, w := range words {
		if len(w) > 2 {
			terms = append(terms, w)
		}
	}
	return terms
}

// stableSortByScore orders sources descending by score, preserving the
// incoming order of ties.
func stableSortByScore(sources []Source) {
	sort.SliceStable(sources, func(a, b int) bool {
		return sources[a].Score > sources[b].Score
	})
}
