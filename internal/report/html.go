package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/http"

	"github.com/seenimoa/stockanalyzer/internal/analysis/technical"
	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/pkg/models"
	"github.com/seenimoa/stockanalyzer/pkg/utils"
)

// reportTemplate is parsed once; execution is goroutine-safe.
var reportTemplate = template.Must(template.New("report").Parse(ReportTemplate))

// htmlData is the model passed to ReportTemplate.
type htmlData struct {
	Title       string
	Symbol      string
	Company     string
	Exchange    string
	GeneratedAt string
	Author      string
	Logo        template.URL

	Stock         []Row
	Forecast      []Row
	HistoryHeader []string
	History       [][]string
	HistoryTitle  string
	PriceChart    template.HTML

	Sections []htmlSection
	Fraud    *fraudView
	Errors   []Row
}

type htmlSection struct {
	Title  string
	Mono   bool
	Raw    string
	Blocks []htmlBlock
}

type htmlBlock struct {
	Class string
	Text  string
}

type fraudView struct {
	Summary         []Row
	VolumeSpikes    []models.VolumeSpike
	AbnormalReturns []models.AbnormalReturn
	RedFlags        []string
}

// RenderHTML renders the bundle as a standalone HTML page with an embedded
// SVG price chart.
func RenderHTML(b *models.AnalysisBundle, opts Options) ([]byte, error) {
	const op = "report.RenderHTML"
	if b == nil {
		return nil, apperr.E(apperr.KindRenderFailure, op, "nothing to render", nil)
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, buildHTMLData(b, opts)); err != nil {
		return nil, apperr.E(apperr.KindRenderFailure, op, "render html for "+b.Symbol, err)
	}
	return buf.Bytes(), nil
}

func buildHTMLData(b *models.AnalysisBundle, opts Options) htmlData {
	d := htmlData{
		Title:         opts.heading(b.Symbol),
		Symbol:        b.Symbol,
		Company:       companyName(b),
		Exchange:      string(b.Exchange),
		GeneratedAt:   generatedAt(opts.now()),
		Author:        opts.Author,
		Logo:          logoURI(opts.Logo, b.Company),
		Stock:         stockRows(b),
		Forecast:      forecastRows(b.Forecast),
		HistoryHeader: HistoryHeader,
		History:       historyRows(b.History),
	}

	if len(b.History) > 0 {
		d.HistoryTitle = fmt.Sprintf("Recent Historical Data (Last %d Days)", min(len(b.History), HistoryRows))
		cfg := DefaultChartConfig()
		cfg.Title = fmt.Sprintf("%s Price Chart", b.Symbol)
		overlays := map[string][]float64{}
		if sma := technical.SMASeries(b.History, technical.ShortSMA); sma != nil {
			overlays["SMA 20"] = sma
		}
		d.PriceChart = template.HTML(CandlestickChart(b.History, overlays, cfg))
	}

	for _, s := range Sections {
		res := b.Result(s.Agent)
		if res == nil || res.Content == "" {
			continue
		}
		sec := htmlSection{Title: s.Title, Mono: s.Mono}
		if s.Mono {
			sec.Raw = res.Content
		} else {
			for _, blk := range Blocks(res.Content) {
				sec.Blocks = append(sec.Blocks, htmlBlock{Class: blockClass(blk.Kind), Text: blk.Plain()})
			}
		}
		d.Sections = append(d.Sections, sec)
	}

	if f := b.Fraud; f != nil {
		d.Fraud = &fraudView{
			Summary: []Row{
				{"Risk Level", string(f.RiskLevel)},
				{"Bars Analyzed", fmt.Sprint(f.BarsAnalyzed)},
				{"Baseline Volume", utils.FormatVolume(int64(f.BaselineVolume))},
				{"Cumulative Abnormal Return", fmt.Sprintf("%.2f%%", f.CumulativeAbnormalReturn)},
			},
			VolumeSpikes:    f.VolumeSpikes,
			AbnormalReturns: f.AbnormalReturns,
			RedFlags:        f.RedFlags,
		}
	}

	d.Errors = errorRows(b.AgentErrors)
	return d
}

// logoURI embeds supplied image bytes, falling back to the remote logo URL.
func logoURI(img []byte, company *models.CompanyInfo) template.URL {
	if len(img) > 0 {
		return template.URL("data:" + http.DetectContentType(img) + ";base64," + base64.StdEncoding.EncodeToString(img))
	}
	if company != nil && company.LogoURL != "" {
		return template.URL(company.LogoURL)
	}
	return ""
}

func blockClass(k BlockKind) string {
	switch k {
	case BlockHeading:
		return "subheading"
	case BlockBullet:
		return "bullet"
	case BlockNumbered:
		return "numbered"
	case BlockTable:
		return "mono"
	default:
		return "body"
	}
}
