package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// ServiceLimit configures the token bucket for one upstream service.
type ServiceLimit struct {
	// Rate is the sustained request rate in requests per second.
	Rate float64
	// Burst is the number of requests that may proceed immediately.
	Burst int
}

// Limiter gates calls to upstream services with independent per-service
// token buckets. It is safe for use from many concurrent callers; waiters
// are served in request order as tokens become available.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLimiter creates a Limiter from per-service limits. A non-positive rate
// or burst is a configuration error.
func NewLimiter(limits map[string]ServiceLimit) (*Limiter, error) {
	limiters := make(map[string]*rate.Limiter, len(limits))
	for service, l := range limits {
		if l.Rate <= 0 {
			return nil, fmt.Errorf("rate for service %q must be positive, got %v", service, l.Rate)
		}
		if l.Burst <= 0 {
			return nil, fmt.Errorf("burst for service %q must be positive, got %d", service, l.Burst)
		}
		limiters[service] = rate.NewLimiter(rate.Limit(l.Rate), l.Burst)
	}
	return &Limiter{limiters: limiters}, nil
}

// Acquire blocks until the caller may proceed under the service's configured
// rate, or until ctx is done. Acquiring for an unconfigured service is an
// error: every upstream service must have an explicit budget.
func (l *Limiter) Acquire(ctx context.Context, service string) error {
	l.mu.Lock()
	limiter, ok := l.limiters[service]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("no rate limit configured for service %q", service)
	}
	return limiter.Wait(ctx)
}
