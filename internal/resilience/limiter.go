package resilience

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter keeps one token bucket per upstream host so a burst of article
// fetches cannot hammer a single site.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewHostLimiter allows requestsPerMinute per host. Zero or negative disables limiting.
func NewHostLimiter(requestsPerMinute int) *HostLimiter {
	if requestsPerMinute <= 0 {
		return &HostLimiter{limit: rate.Inf, burst: 1, limiters: make(map[string]*rate.Limiter)}
	}
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		limit:    rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (h *HostLimiter) get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(h.limit, h.burst)
		h.limiters[host] = l
	}
	return l
}

// Wait blocks until a request to host is allowed or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil {
		return nil
	}
	if err := h.get(host).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter %s: %w", host, err)
	}
	return nil
}

// Allow reports whether a request to host may proceed now without waiting.
func (h *HostLimiter) Allow(host string) bool {
	if h == nil {
		return true
	}
	return h.get(host).Allow()
}
