// Package ratelimit provides a shared request limiter so bursts of Graph
// calls (group expansion, per-team owner lookups) stay under the service
// throttling thresholds.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerSecond keeps well under the Graph large-tenant limit.
const DefaultRequestsPerSecond = 10

// Limiter wraps a token-bucket limiter for outbound API requests.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a limiter allowing requestsPerSecond sustained requests
// with a burst of the same size. A non-positive value falls back to
// DefaultRequestsPerSecond.
func NewLimiter(requestsPerSecond int) *Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// Wait blocks until a request slot is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
