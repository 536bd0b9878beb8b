package technical

import (
	"fmt"
	"strings"

	"github.com/seenimoa/stockanalyzer/pkg/models"
)

// Signal labels.
const (
	Bullish    = "Bullish"
	Bearish    = "Bearish"
	Neutral    = "Neutral"
	Overbought = "Overbought"
	Oversold   = "Oversold"
)

// RSISignal classifies an RSI reading on the usual 30/70 bands.
func RSISignal(rsi float64) string {
	switch {
	case rsi > 70:
		return Overbought
	case rsi < 30:
		return Oversold
	default:
		return Neutral
	}
}

// TrendSignal compares a price with a moving average.
func TrendSignal(price, average float64) string {
	switch {
	case price > average:
		return Bullish
	case price < average:
		return Bearish
	default:
		return Neutral
	}
}

// BollingerSignal places price relative to the bands.
func BollingerSignal(price, upper, lower float64) string {
	switch {
	case price >= upper:
		return Overbought
	case price <= lower:
		return Oversold
	default:
		return Neutral
	}
}

// Describe renders the reference values as prompt text. Indicators the
// history was too short for are listed as unavailable.
func Describe(ref *models.ReferenceIndicators, price float64) string {
	if ref == nil || ref.Points == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "REFERENCE INDICATORS (computed locally from %d closes):\n", ref.Points)

	line := func(label string, v *float64, signal func(float64) string) {
		if v == nil {
			fmt.Fprintf(&b, "%s: unavailable (insufficient history)\n", label)
			return
		}
		if signal != nil {
			fmt.Fprintf(&b, "%s: %.2f (%s)\n", label, *v, signal(*v))
			return
		}
		fmt.Fprintf(&b, "%s: %.2f\n", label, *v)
	}
	trend := func(avg float64) string { return TrendSignal(price, avg) }

	line("20-Day SMA", ref.SMA20, trend)
	line("50-Day SMA", ref.SMA50, trend)
	line("12-Day EMA", ref.EMA12, nil)
	line("26-Day EMA", ref.EMA26, nil)
	line("RSI (14-day)", ref.RSI14, RSISignal)
	line("MACD Line", ref.MACD, nil)
	line("MACD Signal", ref.MACDSignal, nil)
	line("MACD Histogram", ref.MACDHistogram, nil)

	if ref.BollingerUpper != nil && ref.BollingerLower != nil && ref.BollingerMid != nil {
		fmt.Fprintf(&b, "Bollinger Bands (20-day, 2 std): upper %.2f, middle %.2f, lower %.2f (%s)\n",
			*ref.BollingerUpper, *ref.BollingerMid, *ref.BollingerLower,
			BollingerSignal(price, *ref.BollingerUpper, *ref.BollingerLower))
	} else {
		b.WriteString("Bollinger Bands: unavailable (insufficient history)\n")
	}
	return b.String()
}
