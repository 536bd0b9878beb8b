package models

import (
	"time"

	"github.com/google/uuid"
)

// AgentResult is the output of one agent run. It is never mutated after the run returns.
type AgentResult struct {
	Agent       string         `json:"agent"                yaml:"agent"`        // registry name, e.g. "technical-analysis"
	DisplayName string         `json:"display_name"         yaml:"display_name"` // e.g. "Technical Analysis Agent"
	Symbol      string         `json:"stock_symbol"         yaml:"stock_symbol"`
	OutputKey   string         `json:"output_key"           yaml:"output_key"` // legacy response field, e.g. "indicators"
	Content     string         `json:"content"              yaml:"content"`
	Structured  map[string]any `json:"structured,omitempty" yaml:"structured,omitempty"`
	Tokens      int            `json:"tokens,omitempty"     yaml:"tokens,omitempty"`
	Duration    time.Duration  `json:"duration_ns"          yaml:"duration_ns"`

	// Data carries a typed payload for in-process callers, e.g. *FraudIndicators.
	Data any `json:"-" yaml:"-"`
}

// AgentDescriptor is the static description published by /api/agents/list.
type AgentDescriptor struct {
	ID           int    `json:"id"            yaml:"id"`
	Name         string `json:"name"          yaml:"name"`
	Slug         string `json:"slug"          yaml:"slug"`
	Endpoint     string `json:"endpoint"      yaml:"endpoint"`
	Description  string `json:"description"   yaml:"description"`
	UsesLLM      bool   `json:"uses_llm"      yaml:"uses_llm"`
	NeedsContext bool   `json:"needs_context" yaml:"needs_context"`
}

// ReferenceIndicators are indicators computed locally from the price history.
type ReferenceIndicators struct {
	SMA20          *float64 `json:"sma_20,omitempty"          yaml:"sma_20,omitempty"`
	SMA50          *float64 `json:"sma_50,omitempty"          yaml:"sma_50,omitempty"`
	EMA12          *float64 `json:"ema_12,omitempty"          yaml:"ema_12,omitempty"`
	EMA26          *float64 `json:"ema_26,omitempty"          yaml:"ema_26,omitempty"`
	RSI14          *float64 `json:"rsi_14,omitempty"          yaml:"rsi_14,omitempty"`
	MACD           *float64 `json:"macd,omitempty"            yaml:"macd,omitempty"`
	MACDSignal     *float64 `json:"macd_signal,omitempty"     yaml:"macd_signal,omitempty"`
	MACDHistogram  *float64 `json:"macd_histogram,omitempty"  yaml:"macd_histogram,omitempty"`
	BollingerUpper *float64 `json:"bollinger_upper,omitempty" yaml:"bollinger_upper,omitempty"`
	BollingerMid   *float64 `json:"bollinger_middle,omitempty" yaml:"bollinger_middle,omitempty"`
	BollingerLower *float64 `json:"bollinger_lower,omitempty" yaml:"bollinger_lower,omitempty"`
	Points         int      `json:"data_points"               yaml:"data_points"`
}

// AnalysisBundle aggregates everything produced for one symbol in one request.
type AnalysisBundle struct {
	ID          uuid.UUID  `json:"id"           yaml:"id"`
	Symbol      string     `json:"symbol"       yaml:"symbol"`
	Exchange    Exchange   `json:"exchange"     yaml:"exchange"`
	GeneratedAt time.Time  `json:"timestamp"    yaml:"timestamp"`
	AgentsRun   int        `json:"agents_deployed" yaml:"agents_deployed"`

	Snapshot   *StockSnapshot    `json:"stock_data"               yaml:"stock_data"`
	History    History           `json:"historical_data"          yaml:"historical_data"`
	Financials *FinancialProfile `json:"financial_data,omitempty" yaml:"financial_data,omitempty"`
	Forecast   *ForecastSummary  `json:"forecast_data,omitempty"  yaml:"forecast_data,omitempty"`
	News       []NewsItem        `json:"news"                     yaml:"news"`
	NewsCount  int               `json:"news_count"               yaml:"news_count"`

	Fraud     *FraudIndicators     `json:"fraud_indicators,omitempty"     yaml:"fraud_indicators,omitempty"`
	Company   *CompanyInfo         `json:"company_info,omitempty"         yaml:"company_info,omitempty"`
	Reference *ReferenceIndicators `json:"reference_indicators,omitempty" yaml:"reference_indicators,omitempty"`

	// Results is keyed by agent registry name.
	Results     map[string]*AgentResult `json:"analysis"               yaml:"analysis"`
	AgentErrors map[string]string       `json:"agent_errors,omitempty" yaml:"agent_errors,omitempty"`

	PDFAvailable bool   `json:"pdf_available,omitempty" yaml:"pdf_available,omitempty"`
	PDFEndpoint  string `json:"pdf_endpoint,omitempty"  yaml:"pdf_endpoint,omitempty"`
}

// NewAnalysisBundle returns an empty bundle with a fresh ID.
func NewAnalysisBundle(symbol string) *AnalysisBundle {
	return &AnalysisBundle{
		ID:          uuid.New(),
		Symbol:      symbol,
		GeneratedAt: time.Now(),
		Results:     make(map[string]*AgentResult),
	}
}

// Result returns the named agent result, or nil.
func (b *AnalysisBundle) Result(agent string) *AgentResult {
	if b == nil || b.Results == nil {
		return nil
	}
	return b.Results[agent]
}
