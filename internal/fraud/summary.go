package fraud

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/seenimoa/stockanalyzer/pkg/models"
)

// MaxHeadlines caps the news headlines appended to a detailed summary.
const MaxHeadlines = 5

// Summary renders indicators as the plain-text block the fraud-analysis
// prompt is built around. snap and news may be nil.
func Summary(symbol string, snap *models.StockSnapshot, ind *models.FraudIndicators, news []models.NewsItem) string {
	var b strings.Builder

	fmt.Fprintf(&b, "FRAUD DETECTION ANALYSIS FOR %s:\n\n", symbol)
	if snap != nil {
		fmt.Fprintf(&b, "Current Price: %s\n", orNA(snap.DisplayPrice()))
		fmt.Fprintf(&b, "Market Cap: %s\n", orNA(snap.MarketCap))
	}
	b.WriteString("\nFRAUD INDICATORS DETECTED:\n")

	if ind == nil {
		b.WriteString("\nNo fraud indicators available\n")
		return b.String()
	}

	if len(ind.VolumeSpikes) > 0 {
		fmt.Fprintf(&b, "\nVOLUME SPIKE RATIO (TVR) - %d instances:\n", len(ind.VolumeSpikes))
		for _, s := range ind.VolumeSpikes {
			fmt.Fprintf(&b, "  • %s: %.2fx normal volume (Severity: %s)\n", s.Date, s.TVR, s.Severity)
			fmt.Fprintf(&b, "    Volume: %s vs Avg: %s\n", humanize.Comma(s.Volume), s.AvgVolume)
		}
	} else {
		b.WriteString("\nVOLUME SPIKE RATIO (TVR): No significant spikes detected\n")
	}

	if len(ind.AbnormalReturns) > 0 {
		fmt.Fprintf(&b, "\nABNORMAL RETURNS (AR) - %d instances:\n", len(ind.AbnormalReturns))
		for _, a := range ind.AbnormalReturns {
			fmt.Fprintf(&b, "  • %s: %+.2f%% abnormal (Severity: %s)\n", a.Date, a.AbnormalReturn, a.Severity)
			fmt.Fprintf(&b, "    Actual: %+.2f%% | Expected: %+.2f%%\n", a.ActualReturn, a.ExpectedReturn)
		}
	} else {
		b.WriteString("\nABNORMAL RETURNS (AR): No significant abnormalities detected\n")
	}

	fmt.Fprintf(&b, "\nCUMULATIVE ABNORMAL RETURN (CAR): %+.2f%%\n", ind.CumulativeAbnormalReturn)
	fmt.Fprintf(&b, "OVERALL RISK LEVEL: %s\n", ind.RiskLevel)

	if len(ind.RedFlags) > 0 {
		b.WriteString("\nRED FLAGS:\n")
		for _, f := range ind.RedFlags {
			fmt.Fprintf(&b, "  • %s\n", f)
		}
	} else {
		b.WriteString("\nNo critical red flags identified\n")
	}

	if len(news) > 0 {
		b.WriteString("\nRECENT NEWS HEADLINES (for context):\n")
		for i, n := range news {
			if i >= MaxHeadlines {
				break
			}
			fmt.Fprintf(&b, "  • %s (%s)\n", orNA(n.Title), orNA(n.Source))
		}
	}
	return b.String()
}

// Brief is the short form used inside the shared synthesis context.
func Brief(ind *models.FraudIndicators) string {
	if ind == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("FRAUD DETECTION SUMMARY:\n")
	fmt.Fprintf(&b, "Risk Level: %s\n", ind.RiskLevel)
	fmt.Fprintf(&b, "Volume Spikes: %d\n", len(ind.VolumeSpikes))
	fmt.Fprintf(&b, "Abnormal Returns: %d\n", len(ind.AbnormalReturns))
	fmt.Fprintf(&b, "Cumulative Abnormal Return: %.2f%%\n", ind.CumulativeAbnormalReturn)
	for _, f := range ind.RedFlags {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
