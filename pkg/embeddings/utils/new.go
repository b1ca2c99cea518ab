// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/embeddings"
	"github.com/foliodocs/folio/pkg/embeddings/ollama"
	"github.com/foliodocs/folio/pkg/embeddings/openai"
	"github.com/foliodocs/folio/pkg/embeddings/ratelimit"
	"github.com/foliodocs/folio/pkg/embeddings/retry"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKeyEnv    string

	// Retry policy applied around the provider.
	MaxRetries       uint
	RetryBaseDelayMS uint

	// Rate limit gate applied outside the retry loop.
	RateLimitRPS   float64
	RateLimitBurst uint

	Logger *zap.Logger
}

// NewEmbedder constructs the configured provider and wraps it with the retry
// and rate-limit decorators. Provider selection happens here, never at call
// sites.
func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	var (
		inner embeddings.Embedder
		err   error
	)

	switch o.ProviderType {
	case "ollama":
		inner, err = ollama.NewEmbedder(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "openai":
		inner, err = openai.NewEmbedder(openai.Config{
			BaseURL:   o.TargetURL,
			Model:     o.Model,
			APIKeyEnv: o.APIKeyEnv,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
	if err != nil {
		return nil, err
	}

	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	wrapped := retry.Wrap(inner, retry.Config{
		MaxAttempts: o.MaxRetries,
		BaseDelay:   time.Duration(o.RetryBaseDelayMS) * time.Millisecond,
	}, logger)

	return ratelimit.Wrap(wrapped, ratelimit.Config{
		RPS:   o.RateLimitRPS,
		Burst: o.RateLimitBurst,
	}), nil
}
