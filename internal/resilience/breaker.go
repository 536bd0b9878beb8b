// Package resilience provides circuit breakers and rate limiters shared by the
// scrapers and the LLM client. Neither retries: a breaker only fails fast
// once an upstream has been failing.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/internal/config"
	"github.com/seenimoa/stockanalyzer/internal/logger"
	"github.com/seenimoa/stockanalyzer/internal/metrics"
)

// BreakerConfig holds configuration for every breaker in a registry.
type BreakerConfig struct {
	MaxRequests  uint32        // requests allowed in half-open state
	Interval     time.Duration // cyclic period of the closed state to clear counts
	Timeout      time.Duration // period of the open state before going half-open
	MinRequests  uint32        // requests observed before the failure ratio is considered
	FailureRatio float64       // trip when failures/requests reaches this
}

// DefaultBreakerConfig trips after half of at least five requests fail.
var DefaultBreakerConfig = BreakerConfig{
	MaxRequests:  1,
	Interval:     time.Minute,
	Timeout:      30 * time.Second,
	MinRequests:  5,
	FailureRatio: 0.5,
}

// BreakerConfigFrom overlays the non-zero fields of a config section on the defaults.
func BreakerConfigFrom(c config.BreakerConfig) BreakerConfig {
	bc := DefaultBreakerConfig
	if c.MinRequests > 0 {
		bc.MinRequests = c.MinRequests
	}
	if c.FailureRatio > 0 {
		bc.FailureRatio = c.FailureRatio
	}
	if c.OpenSec > 0 {
		bc.Timeout = c.OpenDuration()
	}
	return bc
}

// BreakerRegistry hands out one breaker per upstream name.
type BreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
	config   BreakerConfig
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewBreakerRegistry creates an empty registry.
func NewBreakerRegistry(cfg BreakerConfig, log *logger.Logger, m *metrics.Metrics) *BreakerRegistry {
	return &BreakerRegistry{
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
		config:   cfg,
		log:      logger.OrNop(log),
		metrics:  m,
	}
}

// Get returns (or creates) the breaker for name.
func (r *BreakerRegistry) Get(name string) *gobreaker.CircuitBreaker[any] {
	r.mu.RLock()
	cb, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok = r.breakers[name]; ok {
		return cb
	}

	cfg := r.config
	cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < cfg.MinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// caller-side problems say nothing about upstream health
			if err == nil {
				return true
			}
			switch apperr.KindOf(err) {
			case apperr.KindNotFound, apperr.KindInvalidSymbol, apperr.KindBadRequest:
				return true
			}
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.log.Warnw("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			r.metrics.SetBreakerState(name, stateToInt(to), to == gobreaker.StateOpen)
		},
	})
	r.breakers[name] = cb
	return cb
}

// Status returns the current state name of every breaker.
func (r *BreakerRegistry) Status() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.breakers))
	for name, cb := range r.breakers {
		out[name] = cb.State().String()
	}
	return out
}

// Execute runs fn through the named breaker. An open breaker yields unavailKind.
func Execute[T any](ctx context.Context, r *BreakerRegistry, name string, unavailKind apperr.Kind, fn func() (T, error)) (T, error) {
	var zero T
	if r == nil {
		return fn()
	}
	res, err := r.Get(name).Execute(func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, apperr.E(unavailKind, name, "circuit breaker open", err)
		}
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	return res.(T), nil
}

// stateToInt converts a breaker state for the gauge: 0=closed, 1=half-open, 2=open.
func stateToInt(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
