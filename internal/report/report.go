// Package report renders an AnalysisBundle as a PDF, an HTML page or plain
// text. Rendering is pure formatting: every number shown was computed
// upstream.
package report

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/seenimoa/stockanalyzer/internal/agent/prompts"
	"github.com/seenimoa/stockanalyzer/internal/config"
	"github.com/seenimoa/stockanalyzer/internal/logger"
	"github.com/seenimoa/stockanalyzer/pkg/models"
	"github.com/seenimoa/stockanalyzer/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Options
// ════════════════════════════════════════════════════════════════════

// HistoryRows is the number of recent bars shown in the price table.
const HistoryRows = 10

// Options controls report rendering.
type Options struct {
	Title  string // heading prefix, e.g. "Stock Analysis Report"
	Author string
	Logo   []byte // company logo image; nil renders without one

	// Now stamps the report; zero means time.Now.
	Now time.Time
}

// DefaultOptions returns the built-in title and author.
func DefaultOptions() Options {
	return Options{
		Title:  "Stock Analysis Report",
		Author: "Multi-Agent Stock Analyzer",
	}
}

// OptionsFrom builds Options from the report configuration.
func OptionsFrom(cfg config.ReportConfig) Options {
	o := DefaultOptions()
	if cfg.Title != "" {
		o.Title = cfg.Title
	}
	if cfg.Author != "" {
		o.Author = cfg.Author
	}
	return o
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

func (o Options) heading(symbol string) string {
	title := o.Title
	if title == "" {
		title = DefaultOptions().Title
	}
	return fmt.Sprintf("%s: %s", title, symbol)
}

// generatedAt formats the report timestamp, e.g. "October 17, 2025 at 04:05 PM".
func generatedAt(t time.Time) string {
	return t.Format("January 02, 2006 at 03:04 PM")
}

// Filename returns the attachment name for a PDF report.
func Filename(symbol string, t time.Time) string {
	return fmt.Sprintf("stock_analysis_%s_%s.pdf", utils.NormalizeTicker(symbol), t.Format("20060102_150405"))
}

// ════════════════════════════════════════════════════════════════════
// Sections
// ════════════════════════════════════════════════════════════════════

// Section maps an agent result to a labeled report section.
type Section struct {
	Agent string
	Title string
	Mono  bool // data output: kept line by line, fixed-width in HTML
}

// Sections lists agent sections in display order. The company-name result
// appears on the title page instead.
var Sections = []Section{
	{Agent: prompts.AgentTechnical, Title: "Technical Analysis", Mono: true},
	{Agent: prompts.AgentFundamental, Title: "Fundamental Analysis", Mono: true},
	{Agent: prompts.AgentFraudDetection, Title: "Fraud Detection"},
	{Agent: prompts.AgentFraudAnalysis, Title: "Fraud Risk Assessment"},
	{Agent: prompts.AgentSummary, Title: "Executive Summary"},
	{Agent: prompts.AgentExecutive, Title: "Detailed Executive Summary"},
	{Agent: prompts.AgentDetailed, Title: "Detailed Analysis"},
	{Agent: prompts.AgentRecommendation, Title: "Investment Recommendations"},
	{Agent: prompts.AgentAnalyst, Title: "Analyst Synthesis"},
	{Agent: prompts.AgentMeta, Title: "Meta-Analysis"},
}

// ════════════════════════════════════════════════════════════════════
// Text blocks
// ════════════════════════════════════════════════════════════════════

// BlockKind classifies one line of agent output.
type BlockKind int

const (
	BlockBody BlockKind = iota
	BlockHeading
	BlockBullet
	BlockNumbered
	BlockTable
)

// Block is one non-empty line of agent output, ready for layout. Text is the
// line as written, trimmed of surrounding whitespace.
type Block struct {
	Kind BlockKind
	Text string
}

var (
	reNumbered = regexp.MustCompile(`^\d+[.)]\s`)
	reBold     = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// Blocks splits agent output into classified lines. Markers are kept so the
// rendered text matches what the agent wrote.
func Blocks(text string) []Block {
	var out []Block
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kind := BlockBody
		switch {
		case strings.HasPrefix(line, "|"):
			kind = BlockTable
		case strings.HasPrefix(line, "#"):
			kind = BlockHeading
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "), strings.HasPrefix(line, "• "):
			kind = BlockBullet
		case reNumbered.MatchString(line):
			kind = BlockNumbered
		}
		out = append(out, Block{Kind: kind, Text: line})
	}
	return out
}

// Plain returns the block text for display without markdown: emphasis and
// heading markers are removed and bullets become "• ".
func (b Block) Plain() string {
	switch b.Kind {
	case BlockTable:
		return b.Text
	case BlockHeading:
		return reBold.ReplaceAllString(strings.TrimLeft(b.Text, "# "), "$1")
	case BlockBullet:
		_, rest, _ := strings.Cut(b.Text, " ")
		return "• " + reBold.ReplaceAllString(strings.TrimSpace(rest), "$1")
	default:
		return reBold.ReplaceAllString(b.Text, "$1")
	}
}

// ════════════════════════════════════════════════════════════════════
// Tables
// ════════════════════════════════════════════════════════════════════

// Row is a label/value pair.
type Row struct {
	Label string
	Value string
}

// stockRows is the current-quote table.
func stockRows(b *models.AnalysisBundle) []Row {
	s := b.Snapshot
	if s == nil {
		s = &models.StockSnapshot{Symbol: b.Symbol}
	}
	rows := []Row{
		{"Symbol", b.Symbol},
		{"Current Price", s.DisplayPrice()},
		{"Market Cap", orNA(s.MarketCap)},
		{"P/E Ratio", orNA(s.PERatio)},
		{"Dividend Yield", orNA(s.DividendYield)},
	}
	if b.Exchange != "" {
		rows = append(rows, Row{"Exchange", string(b.Exchange)})
	}
	return rows
}

// forecastRows lists the populated forecast fields.
func forecastRows(f *models.ForecastSummary) []Row {
	if f == nil {
		return nil
	}
	var rows []Row
	add := func(label, v string) {
		if v != "" {
			rows = append(rows, Row{label, v})
		}
	}
	if f.AnalystCount > 0 {
		add("Analysts", fmt.Sprint(f.AnalystCount))
	}
	add("Consensus", f.Consensus)
	if f.AvgPriceTarget != nil {
		add("Average Target", "$"+f.AvgPriceTarget.StringFixed(2))
	}
	if f.LowPriceTarget != nil {
		add("Low Target", "$"+f.LowPriceTarget.StringFixed(2))
	}
	if f.HighPriceTarget != nil {
		add("High Target", "$"+f.HighPriceTarget.StringFixed(2))
	}
	if f.UpsidePercent != "" {
		add("Upside", f.UpsidePercent+"%")
	}
	add("Revenue This Year", f.RevenueThisYear)
	add("Revenue Next Year", f.RevenueNextYear)
	add("EPS This Year", f.EPSThisYear)
	add("EPS Next Year", f.EPSNextYear)
	return rows
}

// HistoryHeader is the column header of the price table.
var HistoryHeader = []string{"Date", "Open", "High", "Low", "Close", "Volume"}

// historyRows formats the most recent bars for the price table.
func historyRows(h models.History) [][]string {
	recent := h.Head(HistoryRows)
	rows := make([][]string, len(recent))
	for i, bar := range recent {
		rows[i] = []string{
			bar.Date,
			utils.FormatUSD(bar.Open),
			utils.FormatUSD(bar.High),
			utils.FormatUSD(bar.Low),
			utils.FormatUSD(bar.Close),
			utils.FormatVolume(bar.Volume),
		}
	}
	return rows
}

// companyName prefers the bundle's company info, then the company-name result.
func companyName(b *models.AnalysisBundle) string {
	if b.Company != nil && b.Company.Name != "" {
		return b.Company.Name
	}
	if r := b.Result(prompts.AgentCompanyName); r != nil {
		return r.Content
	}
	return ""
}

// errorRows lists failed agents by name.
func errorRows(errs map[string]string) []Row {
	rows := make([]Row, 0, len(errs))
	for name, msg := range errs {
		rows = append(rows, Row{name, msg})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Label < rows[j].Label })
	return rows
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// ════════════════════════════════════════════════════════════════════
// Logo
// ════════════════════════════════════════════════════════════════════

// LogoFetcher downloads a logo image.
type LogoFetcher interface {
	FetchLogo(ctx context.Context, logoURL string) ([]byte, error)
}

// FetchLogo downloads the company logo when one is known. Failure is
// logged and yields nil.
func FetchLogo(ctx context.Context, f LogoFetcher, company *models.CompanyInfo, log *logger.Logger) []byte {
	if f == nil || company == nil || company.LogoURL == "" {
		return nil
	}
	img, err := f.FetchLogo(ctx, company.LogoURL)
	if err != nil {
		logger.OrNop(log).Infow("logo unavailable, rendering without it", "url", company.LogoURL, "error", err)
		return nil
	}
	return img
}
