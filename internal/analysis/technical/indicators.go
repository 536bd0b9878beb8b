// Package technical computes reference indicators from daily price history
// with go-talib. The values are appended to the technical-analysis prompt so
// the model's own numbers can be cross-checked; they are never a substitute
// for the agent's output.
package technical

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/seenimoa/stockanalyzer/pkg/models"
	"github.com/seenimoa/stockanalyzer/pkg/utils"
)

// Standard periods.
const (
	ShortSMA     = 20
	LongSMA      = 50
	FastEMA      = 12
	SlowEMA      = 26
	SignalPeriod = 9
	RSIPeriod    = 14
	BBPeriod     = 20
	BBDeviations = 2.0
)

// Compute returns every indicator the history is long enough for.
// history is ordered most recent first; talib wants oldest first.
func Compute(history models.History) *models.ReferenceIndicators {
	closes := history.Closes()
	ref := &models.ReferenceIndicators{Points: len(closes)}
	if len(closes) == 0 {
		return ref
	}

	ref.SMA20 = last(closes, ShortSMA, func() []float64 { return talib.Sma(closes, ShortSMA) })
	ref.SMA50 = last(closes, LongSMA, func() []float64 { return talib.Sma(closes, LongSMA) })
	ref.EMA12 = last(closes, FastEMA, func() []float64 { return talib.Ema(closes, FastEMA) })
	ref.EMA26 = last(closes, SlowEMA, func() []float64 { return talib.Ema(closes, SlowEMA) })
	ref.RSI14 = last(closes, RSIPeriod+1, func() []float64 { return talib.Rsi(closes, RSIPeriod) })

	if len(closes) >= SlowEMA+SignalPeriod-1 {
		macd, signal, hist := talib.Macd(closes, FastEMA, SlowEMA, SignalPeriod)
		ref.MACD = tail(macd)
		ref.MACDSignal = tail(signal)
		ref.MACDHistogram = tail(hist)
	}

	if len(closes) >= BBPeriod {
		upper, mid, lower := talib.BBands(closes, BBPeriod, BBDeviations, BBDeviations, talib.SMA)
		ref.BollingerUpper = tail(upper)
		ref.BollingerMid = tail(mid)
		ref.BollingerLower = tail(lower)
	}
	return ref
}

// last runs fn only when closes holds at least need values.
func last(closes []float64, need int, fn func() []float64) *float64 {
	if len(closes) < need {
		return nil
	}
	return tail(fn())
}

func tail(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := values[len(values)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	v = utils.Round(v, 2)
	return &v
}

// SMASeries returns the period-day moving average for every bar, oldest
// first. Bars before the first full window are zero; nil when the history
// is shorter than period.
func SMASeries(history models.History, period int) []float64 {
	closes := history.Closes()
	if period <= 0 || len(closes) < period {
		return nil
	}
	return talib.Sma(closes, period)
}
