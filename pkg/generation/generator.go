// Package generation defines the answer synthesis interface used by the
// query pipeline.
package generation

import "context"

// Prompt carries the question and its supporting context into a generator.
type Prompt struct {
	// Question is the user's original question.
	Question string

	// Context is the separator-joined source text the answer must be
	// grounded in.
	Context string
}

// Result is a synthesized answer plus token accounting where the backend
// reports it.
type Result struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// Generator synthesizes an answer to a question from retrieved context.
type Generator interface {
	// Generate produces an answer grounded in the prompt's context.
	Generate(ctx context.Context, prompt Prompt) (Result, error)

	// Close releases any resources held by the generator.
	Close() error
}
