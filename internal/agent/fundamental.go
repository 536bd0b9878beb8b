package agent

import (
	"fmt"
	"strings"

	"github.com/seenimoa/stockanalyzer/internal/agent/prompts"
	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/internal/llm"
	"github.com/seenimoa/stockanalyzer/pkg/models"
)

// NewFundamentalAgent creates the fundamental-metrics agent. It reads the
// snapshot, the statement highlights and the analyst forecast.
func NewFundamentalAgent(c Completer) *PromptAgent {
	return NewPromptAgent(Spec{
		ID:           2,
		Name:         prompts.AgentFundamental,
		DisplayName:  "Fundamental Analysis Agent",
		Description:  "Analyzes fundamental metrics using real financial data",
		OutputKey:    "fundamentals",
		SystemPrompt: prompts.FundamentalSystemPrompt,
		User:         fundamentalData,
		MaxTokens:    800,
		Temperature:  llm.Temperature(0),
		Structured:   true,
	}, c)
}

func fundamentalData(in Input) (string, error) {
	snap := in.Snapshot
	if snap == nil {
		return "", apperr.E(apperr.KindBadRequest, "agent."+prompts.AgentFundamental, "Could not fetch stock data", nil)
	}

	var b strings.Builder
	b.WriteString("CURRENT STOCK DATA:\n")
	fmt.Fprintf(&b, "Symbol: %s\n", orNA(snap.Symbol))
	fmt.Fprintf(&b, "Current Price: %s\n", snap.DisplayPrice())
	fmt.Fprintf(&b, "Market Cap: %s\n", orNA(snap.MarketCap))
	fmt.Fprintf(&b, "P/E Ratio: %s\n", orNA(snap.PERatio))
	fmt.Fprintf(&b, "Dividend Yield: %s\n", orNA(snap.DividendYield))

	if f := in.Financials; !f.Empty() {
		b.WriteString("\n\nFINANCIAL DATA FROM STOCKANALYSIS.COM:\n\n")
		writeHighlights(&b, "Income Statement (Most Recent Year):", f.IncomeStatement, models.IncomeHighlights)
		writeHighlights(&b, "Balance Sheet (Most Recent):", f.BalanceSheet, models.BalanceHighlights)
		writeHighlights(&b, "Financial Ratios (Most Recent):", f.Ratios, models.RatioHighlights)
	}

	if fc := in.Forecast; fc != nil {
		b.WriteString("\nANALYST FORECASTS:\n")
		writeIf(&b, "Revenue This Year", fc.RevenueThisYear)
		writeIf(&b, "Revenue Next Year", fc.RevenueNextYear)
		writeIf(&b, "EPS This Year", fc.EPSThisYear)
		writeIf(&b, "EPS Next Year", fc.EPSNextYear)
	}
	return b.String(), nil
}

// writeHighlights writes the listed rows of section that are present.
func writeHighlights(b *strings.Builder, title string, section map[string]string, keys []string) {
	if len(section) == 0 {
		return
	}
	b.WriteString(title + "\n")
	for _, k := range keys {
		if v, ok := section[k]; ok {
			fmt.Fprintf(b, "  %s: %s\n", k, v)
		}
	}
	b.WriteString("\n")
}

func writeIf(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
