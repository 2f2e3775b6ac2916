// Package acquire holds the HTTP plumbing shared by the source collectors:
// a fixed-interval limiter, robots.txt checks and a response cache.
package acquire

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces requests by a fixed delay with no bursting, so at most one
// request is released per interval.
type Limiter struct {
	limiter *rate.Limiter
	delay   time.Duration
}

// NewLimiter creates a limiter releasing one request per delay. A zero delay
// never blocks.
func NewLimiter(delay time.Duration) *Limiter {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Limiter{limiter: rate.NewLimiter(limit, 1), delay: delay}
}

// Wait blocks until the next request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// SetDelay widens the interval, e.g. when robots.txt asks for a longer crawl
// delay. Shorter delays are ignored.
func (l *Limiter) SetDelay(delay time.Duration) {
	if delay <= l.delay {
		return
	}
	l.delay = delay
	l.limiter.SetLimit(rate.Every(delay))
}

// Delay returns the current interval.
func (l *Limiter) Delay() time.Duration {
	return l.delay
}
