// Package models defines the core data structures used throughout the stock analyzer.
// Every value is request-scoped: built once per analysis and never mutated afterwards.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Exchange is the US listing venue a symbol resolved against.
type Exchange string

const (
	ExchangeNASDAQ Exchange = "NASDAQ"
	ExchangeNYSE   Exchange = "NYSE"
)

// StockSnapshot is the current quote for a symbol.
type StockSnapshot struct {
	Symbol        string          `json:"symbol"        yaml:"symbol"`
	Exchange      Exchange        `json:"exchange"      yaml:"exchange"`
	Price         decimal.Decimal `json:"price"         yaml:"price"`
	PriceText     string          `json:"current_price" yaml:"current_price"` // as displayed, e.g. "$189.50"
	MarketCap     string          `json:"market_cap,omitempty"     yaml:"market_cap,omitempty"`
	PERatio       string          `json:"pe_ratio,omitempty"       yaml:"pe_ratio,omitempty"`
	DividendYield string          `json:"dividend_yield,omitempty" yaml:"dividend_yield,omitempty"`
	FetchedAt     time.Time       `json:"fetched_at"    yaml:"fetched_at"`
}

// DisplayPrice returns the scraped price text, falling back to the parsed decimal.
func (s *StockSnapshot) DisplayPrice() string {
	if s == nil {
		return "N/A"
	}
	if s.PriceText != "" {
		return s.PriceText
	}
	if s.Price.IsZero() {
		return "N/A"
	}
	return "$" + s.Price.StringFixed(2)
}

// HistoricalBar is one daily OHLCV record.
type HistoricalBar struct {
	Date   string  `json:"date"   yaml:"date"` // as published, e.g. "Oct 17, 2025"
	Open   float64 `json:"open"   yaml:"open"`
	High   float64 `json:"high"   yaml:"high"`
	Low    float64 `json:"low"    yaml:"low"`
	Close  float64 `json:"close"  yaml:"close"`
	Volume int64   `json:"volume" yaml:"volume"`
}

// History is a bar sequence ordered most recent first.
type History []HistoricalBar

// Closes returns closing prices in chronological (oldest first) order.
func (h History) Closes() []float64 {
	out := make([]float64, len(h))
	for i, b := range h {
		out[len(h)-1-i] = b.Close
	}
	return out
}

// Latest returns the most recent bar, or false when the history is empty.
func (h History) Latest() (HistoricalBar, bool) {
	if len(h) == 0 {
		return HistoricalBar{}, false
	}
	return h[0], true
}

// Head returns at most n of the most recent bars.
func (h History) Head(n int) History {
	if n < 0 || n >= len(h) {
		return h
	}
	return h[:n]
}

// CompanyInfo identifies the issuer behind a ticker.
type CompanyInfo struct {
	Name    string `json:"company_name" yaml:"company_name"`
	Domain  string `json:"domain"       yaml:"domain"`
	LogoURL string `json:"logo_url"     yaml:"logo_url"`
}
