package agent

import (
	"fmt"
	"strings"

	"github.com/seenimoa/stockanalyzer/internal/fraud"
	"github.com/seenimoa/stockanalyzer/pkg/models"
	"github.com/seenimoa/stockanalyzer/pkg/utils"
)

// ContextNewsChars caps each article body in the shared context.
const ContextNewsChars = 500

// BuildContext renders the shared analysis text read by the synthesis
// agents. technical and fundamental are the structured outputs of those
// agents and may be nil. fraudAssessment is the fraud-analysis reply.
// Sections without data are omitted.
func BuildContext(in Input, technical, fundamental map[string]any, fraudAssessment string) string {
	var b strings.Builder

	snap := in.Snapshot
	if snap == nil {
		snap = &models.StockSnapshot{Symbol: in.Symbol}
	}
	fmt.Fprintf(&b, "STOCK: %s\n", orNA(in.Symbol))
	fmt.Fprintf(&b, "Current Price: %s\n", snap.DisplayPrice())
	fmt.Fprintf(&b, "Change: %s\n", dailyChange(in.History))
	fmt.Fprintf(&b, "Market Cap: %s\n", orNA(snap.MarketCap))
	fmt.Fprintf(&b, "P/E Ratio: %s\n", orNA(snap.PERatio))

	writeTechnical(&b, technical)
	b.WriteString("\n")
	writeForecast(&b, in.Forecast)
	writeFundamentals(&b, fundamental)
	writeHistory(&b, in.History)

	if brief := fraud.Brief(in.Fraud); brief != "" {
		b.WriteString("\n")
		b.WriteString(brief)
	}
	if assessment := strings.TrimSpace(fraudAssessment); assessment != "" {
		b.WriteString("\nFRAUD RISK ASSESSMENT:\n")
		b.WriteString(assessment)
		b.WriteString("\n")
	}

	if len(in.News) > 0 {
		fmt.Fprintf(&b, "\nRECENT NEWS (%d articles):\n", len(in.News))
		for i, n := range in.News {
			fmt.Fprintf(&b, "%d. %s\n", i+1, n.Title)
			fmt.Fprintf(&b, "   Source: %s\n", orNA(n.Source))
			if n.Body != "" {
				fmt.Fprintf(&b, "   Content: %s...\n", models.TruncateRunes(n.Body, ContextNewsChars))
			}
		}
	}
	return b.String()
}

// dailyChange compares the two most recent closes.
func dailyChange(h models.History) string {
	if len(h) < 2 || h[1].Close == 0 {
		return "N/A"
	}
	diff := h[0].Close - h[1].Close
	pct := diff / h[1].Close * 100
	sign := "+"
	if diff < 0 {
		sign = ""
	}
	return fmt.Sprintf("%s%s (%s)", sign, utils.FormatUSD(diff), utils.FormatPct(pct))
}

func writeTechnical(b *strings.Builder, t map[string]any) {
	if len(t) == 0 {
		return
	}
	b.WriteString("\nTECHNICAL INDICATORS:\n")
	if v, ok := num(t, "sma_20"); ok {
		fmt.Fprintf(b, "20-Day SMA: $%.2f (%s)\n", v, text(t, "sma_20_signal"))
	}
	if v, ok := num(t, "sma_50"); ok {
		fmt.Fprintf(b, "50-Day SMA: $%.2f (%s)\n", v, text(t, "sma_50_signal"))
	}
	if cross, ok := t["golden_cross"].(bool); ok {
		kind := "Death Cross (Bearish)"
		if cross {
			kind = "Golden Cross (Bullish)"
		}
		fmt.Fprintf(b, "SMA Cross Signal: %s\n", kind)
	}
	if v, ok := num(t, "ema_12"); ok {
		fmt.Fprintf(b, "12-Day EMA: $%.2f\n", v)
	}
	if v, ok := num(t, "ema_26"); ok {
		fmt.Fprintf(b, "26-Day EMA: $%.2f\n", v)
	}
	if v, ok := num(t, "rsi"); ok {
		fmt.Fprintf(b, "RSI (14-day): %.2f (%s)\n", v, text(t, "rsi_signal"))
	}
	if macd, ok := t["macd"].(map[string]any); ok {
		if v, ok := num(macd, "macd_line"); ok {
			fmt.Fprintf(b, "MACD Line: %.2f\n", v)
			fmt.Fprintf(b, "MACD Signal: %s\n", text(t, "macd_signal"))
		}
	}
	if bb, ok := t["bollinger_bands"].(map[string]any); ok {
		upper, okU := num(bb, "upper")
		middle, okM := num(bb, "middle")
		lower, okL := num(bb, "lower")
		if okU && okM && okL {
			b.WriteString("Bollinger Bands (20-day, 2σ):\n")
			fmt.Fprintf(b, "  Upper: $%.2f\n", upper)
			fmt.Fprintf(b, "  Middle: $%.2f\n", middle)
			fmt.Fprintf(b, "  Lower: $%.2f\n", lower)
			fmt.Fprintf(b, "  Signal: %s\n", text(t, "bollinger_signal"))
		}
	}
}

func writeForecast(b *strings.Builder, f *models.ForecastSummary) {
	if f == nil {
		return
	}
	b.WriteString("\nANALYST FORECASTS:\n")
	if f.AnalystCount > 0 {
		fmt.Fprintf(b, "Number of Analysts: %d\n", f.AnalystCount)
	}
	writeIf(b, "Consensus Rating", f.Consensus)
	if f.AvgPriceTarget != nil {
		fmt.Fprintf(b, "Average Price Target: $%s", f.AvgPriceTarget.String())
		if f.UpsidePercent != "" {
			fmt.Fprintf(b, " (%s%% upside)", f.UpsidePercent)
		}
		b.WriteString("\n")
	}
	if f.LowPriceTarget != nil && f.HighPriceTarget != nil {
		fmt.Fprintf(b, "Price Target Range: $%s - $%s\n", f.LowPriceTarget.String(), f.HighPriceTarget.String())
	}
	writeIf(b, "Revenue Forecast (This Year)", f.RevenueThisYear)
	writeIf(b, "Revenue Forecast (Next Year)", f.RevenueNextYear)
	writeIf(b, "EPS Forecast (This Year)", f.EPSThisYear)
	writeIf(b, "EPS Forecast (Next Year)", f.EPSNextYear)
}

// fundamentalLines lists the metrics surfaced from the fundamental agent.
var fundamentalLines = []struct {
	key, format string
}{
	{"pe_ratio", "P/E Ratio: %.2f\n"},
	{"price_to_book", "P/B Ratio: %.2f\n"},
	{"eps_current", "EPS (Current): $%.2f\n"},
	{"roe_percent", "ROE: %.2f%%\n"},
	{"revenue_growth_percent", "Revenue Growth: %.2f%%\n"},
	{"debt_to_equity", "Debt-to-Equity: %.2f\n"},
	{"operating_margin_percent", "Operating Margin: %.2f%%\n"},
	{"current_ratio", "Current Ratio: %.2f\n"},
}

func writeFundamentals(b *strings.Builder, f map[string]any) {
	if len(f) == 0 {
		return
	}
	b.WriteString("\nFUNDAMENTAL METRICS:\n")
	for _, l := range fundamentalLines {
		if v, ok := num(f, l.key); ok && v != 0 {
			fmt.Fprintf(b, l.format, v)
		}
	}
	if v := f["free_cash_flow"]; v != nil && v != "" {
		fmt.Fprintf(b, "Free Cash Flow: %v\n", v)
	}
	if s := text(f, "valuation_assessment"); s != "N/A" {
		fmt.Fprintf(b, "Valuation: %s\n", s)
	}
	if s := text(f, "quality_score"); s != "N/A" {
		fmt.Fprintf(b, "Quality Score: %s\n", s)
	}
}

func writeHistory(b *strings.Builder, h models.History) {
	if len(h) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%d-DAY PRICE HISTORY WITH VOLUME:\n", len(h))
	for _, bar := range h {
		fmt.Fprintf(b, "%s: Open $%s, Close $%s, High $%s, Low $%s, Volume %d\n",
			bar.Date, price(bar.Open), price(bar.Close), price(bar.High), price(bar.Low), bar.Volume)
	}
	fmt.Fprintf(b, "Month-over-month change: $%s → $%s\n", price(h[len(h)-1].Close), price(h[0].Close))
}

// num reads a JSON number.
func num(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// text reads a JSON string, or "N/A".
func text(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return "N/A"
}
