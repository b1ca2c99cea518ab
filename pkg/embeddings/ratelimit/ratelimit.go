// Package ratelimit gates outbound embedding calls with a token bucket,
// independently of the pipeline's own concurrency. Buckets are keyed by
// caller identity so one noisy caller cannot starve the others.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/foliodocs/folio/pkg/embeddings"
)

const (
	// DefaultRPS is the per-caller sustained request rate when unconfigured.
	DefaultRPS = 10

	// DefaultBurst is the per-caller burst allowance when unconfigured.
	DefaultBurst = 20
)

type callerKey struct{}

// WithCaller tags ctx with a caller identity for per-caller buckets.
// Untagged contexts share a single default bucket.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom extracts the caller identity from ctx, if any.
func CallerFrom(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}

// Embedder decorates an inner embedder with per-caller token buckets.
type Embedder struct {
	inner embeddings.Embedder
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// Config holds rate limit knobs.
type Config struct {
	// RPS is the sustained requests-per-second allowance per caller.
	RPS float64

	// Burst is the burst allowance per caller.
	Burst uint
}

// Wrap decorates inner with the given rate limit policy.
func Wrap(inner embeddings.Embedder, cfg Config) *Embedder {
	rps := cfg.RPS
	if rps <= 0 {
		rps = DefaultRPS
	}

	burst := int(cfg.Burst)
	if burst <= 0 {
		burst = DefaultBurst
	}

	return &Embedder{
		inner:   inner,
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Embed waits for bucket capacity, then calls the inner embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter(CallerFrom(ctx)).Wait(ctx); err != nil {
		return nil, err
	}
	return e.inner.Embed(ctx, text)
}

// limiter returns the bucket for the given caller, creating it on first use.
func (e *Embedder) limiter(caller string) *rate.Limiter {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.buckets[caller]
	if !ok {
		l = rate.NewLimiter(e.rps, e.burst)
		e.buckets[caller] = l
	}
	return l
}

// Close releases the inner embedder's resources.
func (e *Embedder) Close() error {
	return e.inner.Close()
}

var _ embeddings.Embedder = (*Embedder)(nil)
