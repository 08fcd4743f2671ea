// Package middleware provides decorators for planner.ModelClient
// implementations.
package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/enerflow/enerflow/runtime/planner"
)

// RateLimited wraps a ModelClient with a process-local token bucket. Calls
// block until a token is available or the context is done.
type RateLimited struct {
	next    planner.ModelClient
	limiter *rate.Limiter
}

// NewRateLimited constructs the decorator. rps is the sustained request rate;
// burst is the bucket size.
func NewRateLimited(next planner.ModelClient, rps rate.Limit, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rps, burst)}
}

// Generate waits for a token and delegates to the wrapped client.
func (r *RateLimited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("model rate limit wait: %w", err)
	}
	return r.next.Generate(ctx, prompt)
}
