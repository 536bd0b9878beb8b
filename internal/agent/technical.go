package agent

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/seenimoa/stockanalyzer/internal/agent/prompts"
	"github.com/seenimoa/stockanalyzer/internal/analysis/technical"
	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/internal/llm"
)

// technicalBars is how many of the most recent bars are shown to the model.
const technicalBars = 30

// NewTechnicalAgent creates the indicator agent. The model computes SMA,
// EMA, RSI, MACD and Bollinger values from the price table; locally computed
// reference values are appended so it can check its arithmetic.
func NewTechnicalAgent(c Completer) *PromptAgent {
	return NewPromptAgent(Spec{
		ID:          1,
		Name:        prompts.AgentTechnical,
		DisplayName: "Technical Analysis Agent",
		Description: "Calculates technical indicators (SMA, EMA, RSI, MACD, Bollinger Bands)",
		OutputKey:   "indicators",
		System: func(in Input) string {
			return prompts.TechnicalSystemPrompt(price(in.History[0].Close))
		},
		User:        technicalData,
		MaxTokens:   1000,
		Temperature: llm.Temperature(0),
		Structured:  true,
	}, c)
}

// technicalData renders the price table. It runs before System, so it also
// guards the history length.
func technicalData(in Input) (string, error) {
	if len(in.History) < 2 {
		return "", apperr.E(apperr.KindInsufficientData, "agent."+prompts.AgentTechnical, "Insufficient historical data", nil)
	}

	var b strings.Builder
	b.WriteString("HISTORICAL PRICE DATA (Most Recent First):\n")
	b.WriteString("Date | Open | High | Low | Close | Volume\n")
	b.WriteString(strings.Repeat("-", 80) + "\n")
	for _, bar := range in.History.Head(technicalBars) {
		fmt.Fprintf(&b, "%s | $%s | $%s | $%s | $%s | %d\n",
			bar.Date, price(bar.Open), price(bar.High), price(bar.Low), price(bar.Close), bar.Volume)
	}

	if ref := technical.Describe(technical.Compute(in.History), in.History[0].Close); ref != "" {
		b.WriteString("\n")
		b.WriteString(ref)
	}
	return b.String(), nil
}

// price formats a float with the shortest exact representation.
func price(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
