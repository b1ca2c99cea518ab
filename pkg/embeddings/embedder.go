// Package embeddings provides text embedding acquisition for the folio engine.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding. It never returns a
	// zero-vector placeholder: failure is failure.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
