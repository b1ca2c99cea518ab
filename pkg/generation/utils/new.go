// Package generationutils is the generation utility package
package generationutils

import (
	"fmt"

	"github.com/foliodocs/folio/pkg/generation"
	"github.com/foliodocs/folio/pkg/generation/extractive"
	"github.com/foliodocs/folio/pkg/generation/ollama"
	"github.com/foliodocs/folio/pkg/generation/openai"
)

type NewGeneratorOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKeyEnv    string
}

// NewGenerator constructs the configured generator. An empty provider maps
// to the extractive generator so the query pipeline always has one.
func NewGenerator(o *NewGeneratorOpts) (generation.Generator, error) {
	switch o.ProviderType {
	case "", "extractive":
		return extractive.NewGenerator(), nil
	case "ollama":
		return ollama.NewGenerator(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "openai":
		return openai.NewGenerator(openai.Config{
			BaseURL:   o.TargetURL,
			Model:     o.Model,
			APIKeyEnv: o.APIKeyEnv,
		})
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", o.ProviderType)
	}
}
