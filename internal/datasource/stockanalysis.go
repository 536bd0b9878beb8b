package datasource

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/pkg/models"
	"github.com/seenimoa/stockanalyzer/pkg/utils"
)

// FetchHistory parses the first table of the history page. Rows that fail to
// parse are skipped; at most days bars are returned, most recent first.
func (c *Client) FetchHistory(ctx context.Context, symbol string, days int) (models.History, error) {
	const op = "datasource.FetchHistory"

	symbol = utils.NormalizeTicker(symbol)
	if days <= 0 {
		days = c.cfg.HistoryDays
	}
	doc, err := c.document(ctx, sourceSA, c.saURL(symbol, "history"), nil)
	if err != nil {
		return nil, err
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, apperr.E(apperr.KindNotFound, op, "no price history table for "+symbol, nil)
	}

	volCol := 5
	table.Find("tr").First().Find("th, td").Each(func(i int, s *goquery.Selection) {
		if strings.EqualFold(cellText(s), "Volume") {
			volCol = i
		}
	})

	history := make(models.History, 0, days)
	table.Find("tr").Slice(1, goquery.ToEnd).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if bar, ok := parseHistoryRow(row, volCol); ok {
			history = append(history, bar)
		}
		return len(history) < days
	})

	if len(history) == 0 {
		return nil, apperr.E(apperr.KindNotFound, op, "no parseable price history for "+symbol, nil)
	}
	return history, nil
}

func parseHistoryRow(row *goquery.Selection, volCol int) (models.HistoricalBar, bool) {
	cells := row.Find("td")
	if cells.Length() < 5 {
		return models.HistoricalBar{}, false
	}
	text := func(i int) string { return cellText(cells.Eq(i)) }

	bar := models.HistoricalBar{Date: text(0)}
	var ok bool
	for i, dst := range []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close} {
		if *dst, ok = utils.ParseNumber(text(i + 1)); !ok {
			return models.HistoricalBar{}, false
		}
	}
	if volCol < cells.Length() {
		bar.Volume, _ = utils.ParseVolume(text(volCol))
	}
	return bar, bar.Date != ""
}

// financialPages maps profile sections to their sub-page.
var financialPages = []struct {
	page string
	set  func(*models.FinancialProfile, map[string]string)
}{
	{"financials", func(p *models.FinancialProfile, m map[string]string) { p.IncomeStatement = m }},
	{"financials/balance-sheet", func(p *models.FinancialProfile, m map[string]string) { p.BalanceSheet = m }},
	{"financials/ratios", func(p *models.FinancialProfile, m map[string]string) { p.Ratios = m }},
}

// FetchFinancials reads the most recent column of the income statement,
// balance sheet and ratio tables concurrently. A failing page leaves its
// section empty; nil is returned when every section is empty.
func (c *Client) FetchFinancials(ctx context.Context, symbol string) (*models.FinancialProfile, error) {
	symbol = utils.NormalizeTicker(symbol)
	sections := make([]map[string]string, len(financialPages))

	g, gctx := errgroup.WithContext(ctx)
	for i, fp := range financialPages {
		g.Go(func() error {
			doc, err := c.document(gctx, sourceSA, c.saURL(symbol, fp.page), nil)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				c.log.Infow("financial page unavailable", "symbol", symbol, "page", fp.page, "error", err)
				return nil
			}
			sections[i] = parseFirstColumn(doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	profile := &models.FinancialProfile{}
	for i, fp := range financialPages {
		m := sections[i]
		if m == nil {
			m = map[string]string{}
		}
		fp.set(profile, m)
	}
	if profile.Empty() {
		return nil, nil
	}
	return profile, nil
}

// parseFirstColumn maps the first cell of every row to its second cell.
func parseFirstColumn(doc *goquery.Document) map[string]string {
	out := make(map[string]string)
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		name := cellText(cells.Eq(0))
		if name == "" {
			return
		}
		if _, seen := out[name]; !seen {
			out[name] = cellText(cells.Eq(1))
		}
	})
	return out
}

// Forecast page patterns.
var (
	reAvgTarget   = regexp.MustCompile(`average price target of \$([\d,\.]+)`)
	reLowTarget   = regexp.MustCompile(`lowest target is \$([\d,\.]+)`)
	reHighTarget  = regexp.MustCompile(`highest is \$([\d,\.]+)`)
	reConsensus   = regexp.MustCompile(`consensus rating of "([^"]+)"`)
	reAnalysts    = regexp.MustCompile(`(\d+) analysts that cover`)
	reRevThisYear = regexp.MustCompile(`(?i)revenue.*?this year.*?\$([\d,\.]+[BMK]?)`)
	reRevNextYear = regexp.MustCompile(`(?i)revenue.*?next year.*?\$([\d,\.]+[BMK]?)`)
	reEPSThisYear = regexp.MustCompile(`(?i)EPS.*?this year.*?\$([\d,\.]+)`)
	reEPSNextYear = regexp.MustCompile(`(?i)EPS.*?next year.*?\$([\d,\.]+)`)
	reUpside      = regexp.MustCompile(`([\d\.]+)%\s+upside`)
)

// FetchForecast extracts the analyst consensus from the forecast page text.
func (c *Client) FetchForecast(ctx context.Context, symbol string) (*models.ForecastSummary, error) {
	symbol = utils.NormalizeTicker(symbol)
	doc, err := c.document(ctx, sourceSA, c.saURL(symbol, "forecast"), nil)
	if err != nil {
		return nil, err
	}
	return parseForecast(doc.Text()), nil
}

func parseForecast(text string) *models.ForecastSummary {
	match := func(re *regexp.Regexp) string {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimRight(m[1], ".,")
		}
		return ""
	}
	target := func(re *regexp.Regexp) *decimal.Decimal {
		if s := match(re); s != "" {
			if d, ok := utils.ParseDecimal(s); ok {
				return &d
			}
		}
		return nil
	}

	f := &models.ForecastSummary{
		Consensus:       match(reConsensus),
		AvgPriceTarget:  target(reAvgTarget),
		LowPriceTarget:  target(reLowTarget),
		HighPriceTarget: target(reHighTarget),
		UpsidePercent:   match(reUpside),
		RevenueThisYear: match(reRevThisYear),
		RevenueNextYear: match(reRevNextYear),
		EPSThisYear:     match(reEPSThisYear),
		EPSNextYear:     match(reEPSNextYear),
	}
	if n, err := strconv.Atoi(match(reAnalysts)); err == nil {
		f.AnalystCount = n
	}

	if *f == (models.ForecastSummary{}) {
		return nil
	}
	return f
}

// newsDomains are the publishers whose links are followed.
var newsDomains = []string{
	"marketwatch.com", "cnbc.com", "reuters.com", "forbes.com", "barrons.com",
	"benzinga.com", "fool.com", "bloomberg.com", "invezz.com",
}

// minTitleLen filters navigation links out of the anchor scan.
const minTitleLen = 20

// FetchNewsLinks collects publisher links from the symbol overview page.
func (c *Client) FetchNewsLinks(ctx context.Context, symbol string, max int) ([]models.NewsItem, error) {
	symbol = utils.NormalizeTicker(symbol)
	if max <= 0 {
		max = c.cfg.MaxNews
	}
	doc, err := c.document(ctx, sourceSA, c.saURL(symbol, ""), nil)
	if err != nil {
		return nil, err
	}
	return parseNewsLinks(doc, max), nil
}

func parseNewsLinks(doc *goquery.Document, max int) []models.NewsItem {
	items := make([]models.NewsItem, 0, max)
	seen := make(map[string]bool)
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		title := cellText(a)
		if href == "" || utf8.RuneCountInString(title) <= minTitleLen || seen[href] || !isNewsDomain(href) {
			return true
		}
		seen[href] = true
		items = append(items, models.NewsItem{Title: title, URL: href, Source: hostOf(href)})
		return len(items) < max
	})
	return items
}

func isNewsDomain(href string) bool {
	for _, d := range newsDomains {
		if strings.Contains(href, d) {
			return true
		}
	}
	return false
}

// hostOf returns the URL host without "www.", or "Unknown".
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "Unknown"
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
