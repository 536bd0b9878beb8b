// Package fraud implements the volume-spike and abnormal-return heuristic
// over daily OHLCV history. It is a pure function of its input: no clock,
// no map iteration, no I/O.
package fraud

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/pkg/models"
	"github.com/seenimoa/stockanalyzer/pkg/utils"
)

// Thresholds used by Analyze.
const (
	MinBars = 20 // shortest history accepted

	BaselineSkip = 5  // most recent bars excluded from baselines
	ScanWindow   = 10 // most recent bars / returns inspected for flags
	RecentWindow = 5  // flags inside this window raise a red flag

	SpikeRatio     = 3.0 // TVR at or above this is a spike
	HighSpikeRatio = 5.0 // TVR at or above this is HIGH severity

	MinAbnormalPct  = 2.0 // |AR| must exceed this (percentage points)
	SigmaMultiple   = 2.0 // and exceed this many standard deviations
	HighAbnormalPct = 5.0 // |AR| above this is HIGH severity

	MultipleSpikes = 3    // spike count that raises a manipulation flag
	HighCAR        = 10.0 // CAR above this raises a flag
)

type dailyReturn struct {
	index int // bar index the return ends on
	pct   float64
}

// Analyze computes FraudIndicators from bars ordered most recent first.
func Analyze(bars models.History) (*models.FraudIndicators, error) {
	const op = "fraud.Analyze"

	if len(bars) < MinBars {
		return nil, apperr.E(apperr.KindInsufficientData, op,
			fmt.Sprintf("need at least %d bars of history, got %d", MinBars, len(bars)), nil)
	}

	baseline := baselineVolume(bars)
	if baseline <= 0 {
		return nil, apperr.E(apperr.KindInsufficientData, op, "no volume data outside the most recent bars", nil)
	}

	returns := dailyReturns(bars)
	if len(returns) <= BaselineSkip {
		return nil, apperr.E(apperr.KindInsufficientData, op, "not enough closing prices to compute returns", nil)
	}
	expected, sigma := meanStd(returns[BaselineSkip:])

	out := &models.FraudIndicators{
		VolumeSpikes:    []models.VolumeSpike{},
		AbnormalReturns: []models.AbnormalReturn{},
		RedFlags:        []string{},
		BaselineVolume:  utils.Round(baseline, 2),
		ExpectedReturn:  utils.Round(expected, 4),
		ReturnStdDev:    utils.Round(sigma, 4),
		BarsAnalyzed:    len(bars),
	}

	avgText := humanize.Comma(int64(baseline))
	for i := 0; i < ScanWindow && i < len(bars); i++ {
		bar := bars[i]
		tvr := float64(bar.Volume) / baseline
		if tvr < SpikeRatio {
			continue
		}
		sev := models.SeverityMedium
		if tvr >= HighSpikeRatio {
			sev = models.SeverityHigh
		}
		out.VolumeSpikes = append(out.VolumeSpikes, models.VolumeSpike{
			Date:      bar.Date,
			TVR:       utils.Round(tvr, 2),
			Volume:    bar.Volume,
			AvgVolume: avgText,
			Severity:  sev,
		})
		if i < RecentWindow {
			out.RedFlags = append(out.RedFlags,
				fmt.Sprintf("Volume spike detected on %s: %.1fx normal volume", bar.Date, tvr))
		}
	}

	var car float64
	for n, r := range returns {
		if n >= ScanWindow {
			break
		}
		ar := r.pct - expected
		mag := math.Abs(ar)
		if mag <= MinAbnormalPct || mag <= SigmaMultiple*sigma {
			continue
		}
		sev := models.SeverityMedium
		if mag > HighAbnormalPct {
			sev = models.SeverityHigh
		}
		date := bars[r.index].Date
		out.AbnormalReturns = append(out.AbnormalReturns, models.AbnormalReturn{
			Date:           date,
			ActualReturn:   utils.Round(r.pct, 2),
			ExpectedReturn: utils.Round(expected, 2),
			AbnormalReturn: utils.Round(ar, 2),
			Severity:       sev,
		})
		if n < RecentWindow {
			direction := "gain"
			if ar < 0 {
				direction = "drop"
			}
			out.RedFlags = append(out.RedFlags,
				fmt.Sprintf("Abnormal %s on %s: %.2f%% (expected %.2f%%)", direction, date, mag, expected))
		}
		car += mag
	}
	out.CumulativeAbnormalReturn = utils.Round(car, 2)

	if len(out.VolumeSpikes) >= MultipleSpikes {
		out.RedFlags = append(out.RedFlags,
			fmt.Sprintf("Multiple volume spikes detected (%d days) - potential manipulation", len(out.VolumeSpikes)))
	}
	if car > HighCAR {
		out.RedFlags = append(out.RedFlags,
			fmt.Sprintf("High Cumulative Abnormal Return (%.2f%%) - unusual price pattern", car))
	}
	for _, vs := range out.VolumeSpikes {
		for _, ar := range out.AbnormalReturns {
			if vs.Date == ar.Date {
				out.RedFlags = append(out.RedFlags,
					fmt.Sprintf("CRITICAL: Volume spike + Abnormal return on %s - possible insider trading", vs.Date))
				break
			}
		}
	}

	out.RiskLevel = riskLevel(out)
	return out, nil
}

// baselineVolume is the mean volume of bars older than the most recent five.
func baselineVolume(bars models.History) float64 {
	var sum float64
	var n int
	for _, b := range bars[BaselineSkip:] {
		if b.Volume <= 0 {
			continue
		}
		sum += float64(b.Volume)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// dailyReturns yields percent close-to-close returns, most recent first.
// Pairs whose prior close is not positive are skipped.
func dailyReturns(bars models.History) []dailyReturn {
	out := make([]dailyReturn, 0, len(bars)-1)
	for i := 0; i+1 < len(bars); i++ {
		prev := bars[i+1].Close
		if prev <= 0 {
			continue
		}
		out = append(out, dailyReturn{index: i, pct: (bars[i].Close - prev) / prev * 100})
	}
	return out
}

// meanStd returns the mean and population standard deviation.
func meanStd(rs []dailyReturn) (mean, std float64) {
	if len(rs) == 0 {
		return 0, 0
	}
	for _, r := range rs {
		mean += r.pct
	}
	mean /= float64(len(rs))
	var ss float64
	for _, r := range rs {
		d := r.pct - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(rs)))
}

func riskLevel(ind *models.FraudIndicators) models.RiskLevel {
	level := models.RiskLow
	for _, s := range ind.VolumeSpikes {
		if s.Severity == models.SeverityHigh {
			return models.RiskHigh
		}
		level = models.RiskMedium
	}
	for _, a := range ind.AbnormalReturns {
		if a.Severity == models.SeverityHigh {
			return models.RiskHigh
		}
		level = models.RiskMedium
	}
	return level
}
