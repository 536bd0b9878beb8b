package models

import "github.com/shopspring/decimal"

// FinancialProfile holds the most recent column of the income statement,
// balance sheet and ratio tables, keyed by row label.
type FinancialProfile struct {
	IncomeStatement map[string]string `json:"income_statement" yaml:"income_statement"`
	BalanceSheet    map[string]string `json:"balance_sheet"    yaml:"balance_sheet"`
	Ratios          map[string]string `json:"ratios"           yaml:"ratios"`
}

// Empty reports whether no section produced any rows.
func (f *FinancialProfile) Empty() bool {
	return f == nil || (len(f.IncomeStatement) == 0 && len(f.BalanceSheet) == 0 && len(f.Ratios) == 0)
}

// Highlight row labels surfaced to the fundamental agent, in display order.
var (
	IncomeHighlights = []string{
		"Revenue", "Revenue Growth (YoY)", "Net Income", "EPS (Diluted)",
		"Gross Margin", "Operating Margin", "Profit Margin", "Free Cash Flow",
	}
	BalanceHighlights = []string{
		"Total Assets", "Total Liabilities", "Shareholders' Equity",
		"Total Debt", "Total Current Assets", "Total Current Liabilities", "Working Capital",
	}
	RatioHighlights = []string{
		"PE Ratio", "PB Ratio", "PS Ratio", "Return on Equity (ROE)",
		"Return on Assets (ROA)", "Debt / Equity Ratio", "Current Ratio",
		"Quick Ratio", "Dividend Yield",
	}
)

// ForecastSummary is the analyst consensus for a symbol.
type ForecastSummary struct {
	AnalystCount    int              `json:"num_analysts,omitempty"      yaml:"num_analysts,omitempty"`
	Consensus       string           `json:"analyst_consensus,omitempty" yaml:"analyst_consensus,omitempty"`
	AvgPriceTarget  *decimal.Decimal `json:"avg_price_target,omitempty"  yaml:"avg_price_target,omitempty"`
	LowPriceTarget  *decimal.Decimal `json:"low_price_target,omitempty"  yaml:"low_price_target,omitempty"`
	HighPriceTarget *decimal.Decimal `json:"high_price_target,omitempty" yaml:"high_price_target,omitempty"`
	UpsidePercent   string           `json:"upside_percent,omitempty"    yaml:"upside_percent,omitempty"`
	RevenueThisYear string           `json:"revenue_this_year,omitempty" yaml:"revenue_this_year,omitempty"`
	RevenueNextYear string           `json:"revenue_next_year,omitempty" yaml:"revenue_next_year,omitempty"`
	EPSThisYear     string           `json:"eps_this_year,omitempty"     yaml:"eps_this_year,omitempty"`
	EPSNextYear     string           `json:"eps_next_year,omitempty"     yaml:"eps_next_year,omitempty"`
}
