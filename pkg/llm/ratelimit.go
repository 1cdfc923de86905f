package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Provider with a token-bucket rate limiter.
// Complete and Stream block until the limiter grants a slot or the context
// is cancelled. Useful when many concurrent orchestrations share one
// provider account.
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimitedProvider wraps a provider, allowing requestsPerSecond
// sustained requests with the given burst size.
func NewRateLimitedProvider(provider Provider, requestsPerSecond float64, burst int) *RateLimitedProvider {
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Name returns the wrapped provider's name.
func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

// Capabilities returns the wrapped provider's capabilities.
func (r *RateLimitedProvider) Capabilities() Capabilities {
	return r.provider.Capabilities()
}

// Complete waits for a rate-limiter slot, then delegates to the wrapped provider.
func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

// Stream waits for a rate-limiter slot, then delegates to the wrapped provider.
func (r *RateLimitedProvider) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Stream(ctx, req)
}
