// Package extractive provides a generator that answers without a model by
// quoting the retrieved context directly. It is the fallback when no
// generation backend is configured or the configured one fails.
package extractive

import (
	"context"
	"strings"

	"github.com/foliodocs/folio/pkg/generation"
)

// MaxAnswerChars bounds how much of the top source is quoted.
const MaxAnswerChars = 600

// Generator answers by excerpting the leading content of the context.
type Generator struct{}

// NewGenerator creates a new extractive generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns the leading content of the context with attribution.
// It never fails and costs no tokens.
func (g *Generator) Generate(_ context.Context, prompt generation.Prompt) (generation.Result, error) {
	text := strings.TrimSpace(prompt.Context)
	if text == "" {
		return generation.Result{Text: "No relevant information found."}, nil
	}

	// Quote only the first section of the joined context.
	if idx := strings.Index(text, "\n\n"); idx > 0 {
		text = text[:idx]
	}
	if len(text) > MaxAnswerChars {
		cut := strings.LastIndex(text[:MaxAnswerChars], " ")
		if cut <= 0 {
			cut = MaxAnswerChars
		}
		text = strings.TrimSpace(text[:cut]) + "…"
	}

	return generation.Result{
		Text: "Based on the indexed documents: " + text,
	}, nil
}

// Close is a no-op.
func (g *Generator) Close() error {
	return nil
}

var _ generation.Generator = (*Generator)(nil)
