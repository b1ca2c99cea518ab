// Package retry wraps an Embedder with exponential-backoff retries.
// Retry-with-backoff is a cross-cutting policy: it lives here as a decorator
// so individual providers never duplicate backoff logic.
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/embeddings"
)

const (
	// DefaultMaxAttempts is the attempt ceiling when none is configured.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the first backoff delay; it doubles per attempt.
	DefaultBaseDelay = 250 * time.Millisecond

	// maxDelay caps the backoff growth.
	maxDelay = 8 * time.Second
)

// Embedder decorates an inner embedder with retries on retryable failures.
// Permanent failures (4xx-class, malformed responses) fail immediately.
type Embedder struct {
	inner       embeddings.Embedder
	maxAttempts int
	baseDelay   time.Duration
	logger      *zap.Logger
}

// Config holds retry policy knobs.
type Config struct {
	// MaxAttempts is the total attempt ceiling, including the first call.
	MaxAttempts uint

	// BaseDelay is the initial backoff delay, doubling per attempt.
	BaseDelay time.Duration
}

// Wrap decorates inner with the given retry policy.
func Wrap(inner embeddings.Embedder, cfg Config, logger *zap.Logger) *Embedder {
	attempts := int(cfg.MaxAttempts)
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	delay := cfg.BaseDelay
	if delay <= 0 {
		delay = DefaultBaseDelay
	}

	return &Embedder{
		inner:       inner,
		maxAttempts: attempts,
		baseDelay:   delay,
		logger:      logger,
	}
}

// Embed calls the inner embedder, retrying retryable failures with
// exponential backoff until the attempt ceiling is reached. Context
// cancellation aborts the wait immediately.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error

	delay := e.baseDelay
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		vec, err := e.inner.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		if !embeddings.IsRetryable(err) {
			return nil, err
		}
		if attempt == e.maxAttempts {
			break
		}

		e.logger.Warn("embedding call failed, backing off",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", e.maxAttempts, lastErr)
}

// Close releases the inner embedder's resources.
func (e *Embedder) Close() error {
	return e.inner.Close()
}

var _ embeddings.Embedder = (*Embedder)(nil)
