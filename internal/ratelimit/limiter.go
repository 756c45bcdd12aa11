// Package ratelimit paces calls to external collaborators. Every
// outbound API (model, search, calendar, chat) gets its own token
// bucket so a chatty stage cannot starve the others.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter is a set of named token buckets sharing one rate
// configuration. Buckets are created on first use.
type Limiter struct {
	buckets map[string]*rate.Limiter
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
}

func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// Wait blocks until the named bucket permits one call or the context
// is cancelled.
func (l *Limiter) Wait(ctx context.Context, name string) error {
	l.mu.Lock()
	bucket, ok := l.buckets[name]
	if !ok {
		bucket = rate.NewLimiter(l.rps, l.burst)
		l.buckets[name] = bucket
	}
	l.mu.Unlock()

	return bucket.Wait(ctx)
}
