// Package datasource scrapes quotes, price history, financial statements,
// analyst forecasts and news for US-listed symbols. Every fetch is bounded
// by a timeout, rate limited per host and guarded by a circuit breaker; none
// is retried.
package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/internal/config"
	"github.com/seenimoa/stockanalyzer/internal/logger"
	"github.com/seenimoa/stockanalyzer/internal/metrics"
	"github.com/seenimoa/stockanalyzer/internal/resilience"
	"github.com/seenimoa/stockanalyzer/pkg/models"
)

// Source is everything the orchestrator and HTTP layer need from the scrapers.
type Source interface {
	// ValidateSymbol resolves the listing exchange of a well-formed symbol.
	ValidateSymbol(ctx context.Context, symbol string) (models.Exchange, error)

	// FetchSnapshot returns the current quote.
	FetchSnapshot(ctx context.Context, symbol string, exchange models.Exchange) (*models.StockSnapshot, error)

	// FetchHistory returns up to days daily bars, most recent first.
	FetchHistory(ctx context.Context, symbol string, days int) (models.History, error)

	// FetchFinancials returns nil when no statement page yielded rows.
	FetchFinancials(ctx context.Context, symbol string) (*models.FinancialProfile, error)

	// FetchForecast returns nil when the forecast page matched nothing.
	FetchForecast(ctx context.Context, symbol string) (*models.ForecastSummary, error)

	// FetchNews returns up to max articles with bodies where retrievable.
	FetchNews(ctx context.Context, symbol string, max int) ([]models.NewsItem, error)

	// FetchLogo downloads an image; callers treat failure as non-fatal.
	FetchLogo(ctx context.Context, logoURL string) ([]byte, error)
}

// Breaker / metric names per upstream.
const (
	sourceGoogle   = "google-finance"
	sourceSA       = "stockanalysis"
	sourceArticles = "articles"
	sourceRSS      = "yahoo-rss"
	sourceLogo     = "logo"
)

// maxBodyBytes caps any page read into memory.
const maxBodyBytes = 8 << 20

// Client implements Source against the public sites.
type Client struct {
	cfg         config.DataSourceConfig
	http        *http.Client
	limiter     *resilience.HostLimiter
	breakers    *resilience.BreakerRegistry
	articleGate *rate.Limiter
	parser      *gofeed.Parser
	metrics     *metrics.Metrics
	log         *logger.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option { return func(c *Client) { c.log = l } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option { return func(c *Client) { c.metrics = m } }

// WithBreakers shares a breaker registry.
func WithBreakers(r *resilience.BreakerRegistry) Option { return func(c *Client) { c.breakers = r } }

// New creates a scraper client.
func New(cfg config.DataSourceConfig, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout()},
		limiter: resilience.NewHostLimiter(cfg.RequestsPerMinute),
		parser:  gofeed.NewParser(),
		log:     logger.Nop(),
	}
	if d := cfg.ArticleDelay(); d > 0 {
		c.articleGate = rate.NewLimiter(rate.Every(d), 1)
	}
	for _, o := range opts {
		o(c)
	}
	c.log = logger.OrNop(c.log).Named("datasource")
	if c.breakers == nil {
		c.breakers = resilience.NewBreakerRegistry(resilience.BreakerConfigFrom(cfg.Breaker), c.log, c.metrics)
	}
	return c
}

// Breakers exposes breaker states for the status endpoint.
func (c *Client) Breakers() map[string]string { return c.breakers.Status() }

// headers are extra request headers for a fetch.
type headers map[string]string

// get fetches rawURL through the limiter and breaker for source, returning the body.
func (c *Client) get(ctx context.Context, source, rawURL string, h headers) ([]byte, error) {
	op := source + " GET"
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperr.E(apperr.KindInternal, op, "bad url "+rawURL, err)
	}
	if err := c.limiter.Wait(ctx, u.Host); err != nil {
		return nil, classify(op, rawURL, err)
	}

	start := time.Now()
	body, err := resilience.Execute(ctx, c.breakers, source, apperr.KindUpstreamUnavailable, func() ([]byte, error) {
		return c.do(ctx, op, rawURL, h)
	})
	c.metrics.RecordUpstream(source, err, time.Since(start))
	if err != nil {
		c.log.Debugw("upstream fetch failed", "source", source, "url", rawURL, "error", err)
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, op, rawURL string, h headers) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperr.E(apperr.KindInternal, op, "create request", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range h {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(op, rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperr.E(apperr.KindNotFound, op, rawURL+" returned 404", nil)
	case resp.StatusCode >= 400:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, apperr.E(apperr.KindUpstreamUnavailable, op,
			fmt.Sprintf("%s returned %s", rawURL, resp.Status), errors.New(strings.TrimSpace(string(snippet))))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classify(op, rawURL, err)
	}
	return body, nil
}

// classify maps transport errors onto the error taxonomy.
func classify(op, rawURL string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return apperr.E(apperr.KindUpstreamTimeout, op, rawURL+" timed out", err)
	}
	return apperr.E(apperr.KindUpstreamUnavailable, op, rawURL+" unreachable", err)
}

// document fetches and parses an HTML page.
func (c *Client) document(ctx context.Context, source, rawURL string, h headers) (*goquery.Document, error) {
	body, err := c.get(ctx, source, rawURL, h)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, apperr.E(apperr.KindParse, source, "parse html from "+rawURL, err)
	}
	return doc, nil
}

// saURL builds a stockanalysis.com URL for symbol and an optional sub-page.
func (c *Client) saURL(symbol, page string) string {
	base := strings.TrimRight(c.cfg.StockAnalysisURL, "/")
	u := fmt.Sprintf("%s/stocks/%s/", base, strings.ToLower(symbol))
	if page != "" {
		u += strings.Trim(page, "/") + "/"
	}
	return u
}

// cellText returns the whitespace-collapsed text of a selection.
func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
