package llm

import (
	"context"
	"errors"
	"time"

	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/internal/config"
	"github.com/seenimoa/stockanalyzer/internal/logger"
	"github.com/seenimoa/stockanalyzer/internal/metrics"
	"github.com/seenimoa/stockanalyzer/internal/resilience"
)

// breakerName is the breaker and metric label for completions.
const breakerName = "llm"

// Client guards a Provider with a per-call deadline and a circuit breaker.
// It is safe for concurrent use.
type Client struct {
	provider Provider
	timeout  time.Duration
	breakers *resilience.BreakerRegistry
	metrics  *metrics.Metrics
	log      *logger.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-completion deadline.
func WithTimeout(d time.Duration) ClientOption { return func(c *Client) { c.timeout = d } }

// WithBreakers shares a breaker registry.
func WithBreakers(r *resilience.BreakerRegistry) ClientOption {
	return func(c *Client) { c.breakers = r }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) ClientOption { return func(c *Client) { c.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) ClientOption { return func(c *Client) { c.log = l } }

// NewClient wraps p. Without WithBreakers the client gets its own registry
// with default settings.
func NewClient(p Provider, opts ...ClientOption) *Client {
	c := &Client{provider: p, timeout: 2 * time.Minute}
	for _, o := range opts {
		o(c)
	}
	c.log = logger.OrNop(c.log).Named("llm")
	if c.breakers == nil {
		c.breakers = resilience.NewBreakerRegistry(resilience.DefaultBreakerConfig, c.log, c.metrics)
	}
	return c
}

// NewClientFromConfig builds the configured provider and wraps it.
func NewClientFromConfig(cfg config.LLMConfig, log *logger.Logger, m *metrics.Metrics) (*Client, error) {
	p, err := NewOpenAIProvider(OpenAIConfig{
		Provider:   cfg.Provider,
		APIKey:     cfg.APIKey,
		Endpoint:   cfg.Endpoint,
		APIVersion: cfg.APIVersion,
		Model:      cfg.Model,
		BaseURL:    cfg.BaseURL,
	})
	if err != nil {
		return nil, apperr.E(apperr.KindLLMUnavailable, "llm.NewClientFromConfig", "provider not configured", err)
	}
	breakers := resilience.NewBreakerRegistry(resilience.BreakerConfigFrom(cfg.Breaker), log, m)
	return NewClient(p,
		WithTimeout(cfg.Timeout()),
		WithBreakers(breakers),
		WithMetrics(m),
		WithLogger(log),
	), nil
}

// Provider returns the wrapped provider.
func (c *Client) Provider() Provider { return c.provider }

// Breakers exposes breaker states for the status endpoint.
func (c *Client) Breakers() map[string]string { return c.breakers.Status() }

// Chat runs one completion. Failures are classified as LLMTimeout or
// LLMUnavailable unless the provider already classified them.
func (c *Client) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	const op = "llm.Chat"

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := resilience.Execute(ctx, c.breakers, breakerName, apperr.KindLLMUnavailable, func() (*Response, error) {
		return c.provider.Chat(ctx, messages, opts)
	})
	c.metrics.RecordUpstream(breakerName, err, time.Since(start))

	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
			err = apperr.Wrap(apperr.KindLLMTimeout, op, err)
		case errors.Is(err, context.Canceled):
			return nil, err
		default:
			err = apperr.Wrap(apperr.KindLLMUnavailable, op, err)
		}
		c.log.Warnw("completion failed", "provider", c.provider.Name(), "error", err)
		return nil, err
	}
	if resp.Content == "" {
		return nil, apperr.E(apperr.KindLLMUnavailable, op, "empty completion", ErrEmptyResponse)
	}
	c.log.Debugw("completion", "provider", resp.Provider, "model", resp.Model,
		"tokens", resp.Usage.TotalTokens, "latency", resp.Latency)
	return resp, nil
}

// Complete sends a system prompt and one user message.
func (c *Client) Complete(ctx context.Context, system, user string, opts *ChatOptions) (*Response, error) {
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, SystemMessage(system))
	}
	msgs = append(msgs, UserMessage(user))
	return c.Chat(ctx, msgs, opts)
}
