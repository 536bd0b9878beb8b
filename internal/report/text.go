package report

import (
	"fmt"
	"strings"

	"github.com/seenimoa/stockanalyzer/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer
// ════════════════════════════════════════════════════════════════════

// RenderText renders the bundle for a terminal.
func RenderText(b *models.AnalysisBundle, opts Options) string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	line := strings.Repeat("═", 70)
	thinLine := strings.Repeat("─", 70)

	sb.WriteString("\n" + line + "\n")
	fmt.Fprintf(&sb, "  %s\n", opts.heading(b.Symbol))
	if name := companyName(b); name != "" {
		fmt.Fprintf(&sb, "  %s\n", name)
	}
	fmt.Fprintf(&sb, "  Generated: %s\n", generatedAt(opts.now()))
	sb.WriteString(line + "\n")

	for _, r := range stockRows(b) {
		fmt.Fprintf(&sb, "  %-16s %s\n", r.Label, r.Value)
	}
	sb.WriteString(thinLine + "\n")

	if rows := forecastRows(b.Forecast); len(rows) > 0 {
		sb.WriteString("\n  ■ ANALYST FORECAST\n")
		for _, r := range rows {
			fmt.Fprintf(&sb, "    %-20s %s\n", r.Label, r.Value)
		}
		sb.WriteString(thinLine + "\n")
	}

	if rows := historyRows(b.History); len(rows) > 0 {
		sb.WriteString("\n  ■ RECENT PRICES\n")
		fmt.Fprintf(&sb, "    %-14s %12s %12s %12s %12s %14s\n", toAny(HistoryHeader)...)
		for _, r := range rows {
			fmt.Fprintf(&sb, "    %-14s %12s %12s %12s %12s %14s\n", toAny(r)...)
		}
		sb.WriteString(thinLine + "\n")
	}

	for _, s := range Sections {
		res := b.Result(s.Agent)
		if res == nil || res.Content == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n  ■ %s\n", strings.ToUpper(s.Title))
		for _, l := range strings.Split(strings.TrimSpace(res.Content), "\n") {
			fmt.Fprintf(&sb, "  %s\n", strings.TrimRight(l, " \t"))
		}
		sb.WriteString(thinLine + "\n")
	}

	if f := b.Fraud; f != nil {
		sb.WriteString("\n  ■ FRAUD INDICATORS\n")
		fmt.Fprintf(&sb, "    Risk Level: %s | Volume Spikes: %d | Abnormal Returns: %d | CAR: %.2f%%\n",
			f.RiskLevel, len(f.VolumeSpikes), len(f.AbnormalReturns), f.CumulativeAbnormalReturn)
		for _, flag := range f.RedFlags {
			fmt.Fprintf(&sb, "    • %s\n", flag)
		}
		sb.WriteString(thinLine + "\n")
	}

	for _, e := range errorRows(b.AgentErrors) {
		fmt.Fprintf(&sb, "  ! %s unavailable: %s\n", e.Label, e.Value)
	}

	sb.WriteString("\n" + line + "\n")
	sb.WriteString("  Disclaimer: This report is AI-generated for educational purposes.\n")
	sb.WriteString("  Not financial advice.\n")
	sb.WriteString(line + "\n")
	return sb.String()
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
