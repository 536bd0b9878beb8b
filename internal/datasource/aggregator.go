package datasource

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stockanalyzer/internal/logger"
	"github.com/seenimoa/stockanalyzer/pkg/models"
	"github.com/seenimoa/stockanalyzer/pkg/utils"
)

// MarketData is everything fetched for one analysis.
type MarketData struct {
	Symbol     string
	Exchange   models.Exchange
	Snapshot   *models.StockSnapshot
	History    models.History
	Financials *models.FinancialProfile
	Forecast   *models.ForecastSummary
	News       []models.NewsItem

	// Degraded lists optional sources that failed, e.g. "forecast: ...".
	Degraded []string
}

// Aggregator fans the per-symbol fetches out over a Source.
type Aggregator struct {
	src         Source
	historyDays int
	maxNews     int
	concurrency int
	log         *logger.Logger
}

// NewAggregator creates an aggregator. Non-positive sizes fall back to
// 30 bars, 10 articles and 5 concurrent fetches.
func NewAggregator(src Source, historyDays, maxNews, concurrency int, log *logger.Logger) *Aggregator {
	if historyDays <= 0 {
		historyDays = 30
	}
	if maxNews <= 0 {
		maxNews = 10
	}
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Aggregator{
		src:         src,
		historyDays: historyDays,
		maxNews:     maxNews,
		concurrency: concurrency,
		log:         logger.OrNop(log).Named("aggregator"),
	}
}

// Source returns the underlying fetchers.
func (a *Aggregator) Source() Source { return a.src }

// HistoryDays is the number of bars Collect requests.
func (a *Aggregator) HistoryDays() int { return a.historyDays }

// MaxNews is the number of articles Collect requests.
func (a *Aggregator) MaxNews() int { return a.maxNews }

// Collect fetches snapshot, history, financials, forecast and news
// concurrently. Snapshot or history failure aborts the whole collection;
// the optional sources degrade to absent data.
func (a *Aggregator) Collect(ctx context.Context, symbol string, exchange models.Exchange) (*MarketData, error) {
	symbol = utils.NormalizeTicker(symbol)
	md := &MarketData{Symbol: symbol, Exchange: exchange}

	var mu sync.Mutex
	var errs []error
	optional := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
		md.Degraded = append(md.Degraded, fmt.Sprintf("%s: %v", name, err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	g.Go(func() error {
		snap, err := a.src.FetchSnapshot(gctx, symbol, exchange)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		md.Snapshot = snap
		return nil
	})
	g.Go(func() error {
		hist, err := a.src.FetchHistory(gctx, symbol, a.historyDays)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		md.History = hist
		return nil
	})
	g.Go(func() error {
		fin, err := a.src.FetchFinancials(gctx, symbol)
		if err != nil {
			optional("financials", err)
			return nil
		}
		md.Financials = fin
		return nil
	})
	g.Go(func() error {
		fc, err := a.src.FetchForecast(gctx, symbol)
		if err != nil {
			optional("forecast", err)
			return nil
		}
		md.Forecast = fc
		return nil
	})
	g.Go(func() error {
		news, err := a.src.FetchNews(gctx, symbol, a.maxNews)
		if err != nil {
			optional("news", err)
			return nil
		}
		md.News = news
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		a.log.Warnw("optional sources unavailable", "symbol", symbol, "error", errors.Join(errs...))
	}
	if md.News == nil {
		md.News = []models.NewsItem{}
	}
	return md, nil
}
