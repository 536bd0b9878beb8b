package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/pkg/models"
	"github.com/seenimoa/stockanalyzer/pkg/utils"
)

// Google Finance quote page selectors.
const (
	priceSelector = "div.YMlKec.fxKbKc"
	statSelector  = "div.P6K39c"
)

// exchanges are tried in order when resolving a symbol.
var exchanges = []models.Exchange{models.ExchangeNASDAQ, models.ExchangeNYSE}

func (c *Client) quoteURL(symbol string, ex models.Exchange) string {
	return fmt.Sprintf("%s/quote/%s:%s", strings.TrimRight(c.cfg.GoogleFinanceURL, "/"), symbol, ex)
}

// ValidateSymbol checks the symbol's format, then looks for a quote price on
// each exchange. NotFound when every exchange answered without a price;
// the upstream error when no exchange answered at all.
func (c *Client) ValidateSymbol(ctx context.Context, symbol string) (models.Exchange, error) {
	const op = "datasource.ValidateSymbol"

	symbol = utils.NormalizeTicker(symbol)
	if !utils.IsValidSymbol(symbol) {
		return "", apperr.E(apperr.KindInvalidSymbol, op, fmt.Sprintf("%q is not a valid ticker symbol", symbol), nil)
	}

	var lastErr error
	answered := false
	for _, ex := range exchanges {
		doc, err := c.document(ctx, sourceGoogle, c.quoteURL(symbol, ex), nil)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return "", err
			}
			if errors.Is(err, apperr.NotFound) {
				answered = true
			}
			lastErr = err
			continue
		}
		answered = true
		if doc.Find(priceSelector).Length() > 0 {
			return ex, nil
		}
	}
	if !answered && lastErr != nil {
		return "", lastErr
	}
	return "", apperr.E(apperr.KindNotFound, op,
		fmt.Sprintf("stock symbol %q not found on NASDAQ or NYSE", symbol), nil)
}

// FetchSnapshot scrapes price and headline statistics from the quote page.
func (c *Client) FetchSnapshot(ctx context.Context, symbol string, exchange models.Exchange) (*models.StockSnapshot, error) {
	const op = "datasource.FetchSnapshot"

	symbol = utils.NormalizeTicker(symbol)
	if exchange == "" {
		exchange = models.ExchangeNASDAQ
	}
	doc, err := c.document(ctx, sourceGoogle, c.quoteURL(symbol, exchange), nil)
	if err != nil {
		return nil, err
	}
	return parseSnapshot(doc, symbol, exchange, op)
}

func parseSnapshot(doc *goquery.Document, symbol string, exchange models.Exchange, op string) (*models.StockSnapshot, error) {
	priceText := cellText(doc.Find(priceSelector).First())
	if priceText == "" {
		return nil, apperr.E(apperr.KindNotFound, op, fmt.Sprintf("no quote for %s on %s", symbol, exchange), nil)
	}

	snap := &models.StockSnapshot{
		Symbol:    symbol,
		Exchange:  exchange,
		PriceText: priceText,
		FetchedAt: time.Now().UTC(),
	}
	if d, ok := utils.ParseDecimal(priceText); ok {
		snap.Price = d
	}

	doc.Find(statSelector).Each(func(_ int, s *goquery.Selection) {
		text := cellText(s)
		switch {
		case snap.MarketCap == "" && strings.Contains(text, "Market cap"):
			snap.MarketCap = valueAfter(text, "Market cap")
		case snap.PERatio == "" && strings.Contains(text, "P/E ratio"):
			snap.PERatio = valueAfter(text, "P/E ratio")
		case snap.DividendYield == "" && strings.Contains(text, "Dividend yield"):
			snap.DividendYield = valueAfter(text, "Dividend yield")
		}
	})
	return snap, nil
}

// valueAfter returns the text following label.
func valueAfter(text, label string) string {
	_, after, _ := strings.Cut(text, label)
	return strings.TrimSpace(after)
}
