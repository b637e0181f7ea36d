package notify

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// NewLimiter returns a token bucket for rps sends per second, or nil when
// rps <= 0 (unlimited). burst is raised to 1 if lower.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// RateLimited makes every Send wait for a token before delegating. Several
// RateLimited senders may share one Limiter.
type RateLimited struct {
	Next    Sender
	Limiter *rate.Limiter
}

// Limit wraps s with l. A nil limiter returns s unchanged.
func Limit(s Sender, l *rate.Limiter) Sender {
	if l == nil {
		return s
	}
	return &RateLimited{Next: s, Limiter: l}
}

// Send waits for the limiter and then sends. If ctx ends first the wait error
// is returned and nothing is sent.
func (r *RateLimited) Send(ctx context.Context, to, subject, body string) error {
	if err := r.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return r.Next.Send(ctx, to, subject, body)
}
