package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"

	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/pkg/models"
	"github.com/seenimoa/stockanalyzer/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// PDF Renderer: go-pdf/fpdf, embedded DejaVu fonts, uncompressed content
// ════════════════════════════════════════════════════════════════════

// DejaVu Sans Condensed covers Latin, Greek, Cyrillic, arrows and math
// operators, so agent text is written as-is.
var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	fontRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	fontBold []byte
)

const fontFamily = "DejaVu"

// Page geometry in millimetres (US Letter).
const (
	pageMargin = 19.0
	logoWidth  = 38.0
	lineHeight = 5.0
)

// Palette.
var (
	colorTitle   = [3]int{31, 71, 136}
	colorHeading = [3]int{37, 99, 235}
	colorHeader  = [3]int{59, 130, 246}
	colorText    = [3]int{26, 26, 46}
	colorMuted   = [3]int{107, 114, 128}
)

// RenderPDF lays out the bundle as a PDF document: title block with the
// optional logo, current stock data, recent price history, one section per
// agent result, then the fraud indicators.
func RenderPDF(b *models.AnalysisBundle, opts Options) ([]byte, error) {
	const op = "report.RenderPDF"
	if b == nil {
		return nil, apperr.E(apperr.KindRenderFailure, op, "nothing to render", nil)
	}

	r := newPDFRenderer(opts)
	r.titlePage(b, opts)
	r.table("Current Stock Information", []string{"Metric", "Value"}, rowsToCells(stockRows(b)), []float64{0.4, 0.6})
	if rows := forecastRows(b.Forecast); len(rows) > 0 {
		r.table("Analyst Forecast", []string{"Metric", "Value"}, rowsToCells(rows), []float64{0.4, 0.6})
	}
	if len(b.History) > 0 {
		title := fmt.Sprintf("Recent Historical Data (Last %d Days)", min(len(b.History), HistoryRows))
		r.table(title, HistoryHeader, historyRows(b.History), []float64{0.22, 0.14, 0.14, 0.14, 0.14, 0.22})
	}

	for _, s := range Sections {
		res := b.Result(s.Agent)
		if res == nil || strings.TrimSpace(res.Content) == "" {
			continue
		}
		r.section(s.Title, res.Content, s.Mono)
	}
	r.fraud(b.Fraud)
	r.unavailable(b.AgentErrors)

	var buf bytes.Buffer
	if err := r.pdf.Output(&buf); err != nil {
		return nil, apperr.E(apperr.KindRenderFailure, op, "render pdf for "+b.Symbol, err)
	}
	return buf.Bytes(), nil
}

type pdfRenderer struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	width float64 // printable width
}

func newPDFRenderer(opts Options) *pdfRenderer {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetCompression(false)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetCreationDate(opts.now())
	pdf.SetCreator(opts.Author, true)
	pdf.SetAuthor(opts.Author, true)
	pdf.AddUTF8FontFromBytes(fontFamily, "", fontRegular)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", fontBold)
	pdf.AddPage()

	w, _ := pdf.GetPageSize()
	return &pdfRenderer{
		pdf:   pdf,
		tr:    glyphSafe,
		width: w - 2*pageMargin,
	}
}

// glyphSafe prepares a string for a UTF-8 font. fpdf addresses glyphs in the
// Basic Multilingual Plane only; other runes and invalid bytes become U+FFFD.
func glyphSafe(s string) string {
	clean := true
	for _, r := range s {
		if r > 0xFFFF || r == utf8.RuneError {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r > 0xFFFF {
			r = utf8.RuneError
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (r *pdfRenderer) font(style string, size float64) { r.pdf.SetFont(fontFamily, style, size) }

func (r *pdfRenderer) color(c [3]int) { r.pdf.SetTextColor(c[0], c[1], c[2]) }

func (r *pdfRenderer) titlePage(b *models.AnalysisBundle, opts Options) {
	r.pdf.SetTitle(opts.heading(b.Symbol), true)
	r.logo(opts.Logo)

	r.font("B", 22)
	r.color(colorTitle)
	r.pdf.MultiCell(0, 11, r.tr(opts.heading(b.Symbol)), "", "C", false)

	r.font("", 11)
	r.color(colorText)
	if name := companyName(b); name != "" {
		r.pdf.MultiCell(0, 6, r.tr(name), "", "C", false)
	}
	r.color(colorMuted)
	r.pdf.MultiCell(0, 6, r.tr("Generated: "+generatedAt(opts.now())), "", "C", false)
	r.pdf.Ln(8)
}

// logo places the image centered above the title. Images that do not
// decode completely are skipped.
func (r *pdfRenderer) logo(img []byte) {
	kind := logoType(img)
	if kind == "" {
		return
	}
	opt := fpdf.ImageOptions{ImageType: kind}
	if !r.registerImage("logo", opt, img) {
		return
	}
	pageW, _ := r.pdf.GetPageSize()
	r.pdf.ImageOptions("logo", (pageW-logoWidth)/2, r.pdf.GetY(), logoWidth, 0, true, opt, 0, "")
	r.pdf.Ln(4)
}

// logoType returns the fpdf image type of img, or "" when img is not a
// complete PNG, JPEG or GIF.
func logoType(img []byte) string {
	if len(img) == 0 {
		return ""
	}
	if _, format, err := image.Decode(bytes.NewReader(img)); err == nil {
		switch format {
		case "png":
			return "PNG"
		case "jpeg":
			return "JPG"
		case "gif":
			return "GIF"
		}
	}
	return ""
}

// registerImage reports whether fpdf accepted the image. fpdf's parsers
// panic on some malformed streams; those count as rejected.
func (r *pdfRenderer) registerImage(name string, opt fpdf.ImageOptions, img []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
		if r.pdf.Err() {
			r.pdf.ClearError()
			ok = false
		}
	}()
	r.pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(img))
	return true
}

func (r *pdfRenderer) heading(title string) {
	r.pdf.Ln(3)
	r.font("B", 14)
	r.color(colorHeading)
	r.pdf.CellFormat(0, 9, r.tr(title), "", 1, "L", false, 0, "")
	r.color(colorText)
}

// table draws a grid with a filled header row. widths are fractions of the
// printable width.
func (r *pdfRenderer) table(title string, header []string, rows [][]string, widths []float64) {
	r.heading(title)
	cols := make([]float64, len(widths))
	for i, f := range widths {
		cols[i] = f * r.width
	}

	r.font("B", 10)
	r.pdf.SetFillColor(colorHeader[0], colorHeader[1], colorHeader[2])
	r.pdf.SetTextColor(255, 255, 255)
	r.pdf.SetDrawColor(160, 160, 160)
	for i, h := range header {
		r.pdf.CellFormat(cols[i], 7, r.tr(h), "1", 0, "C", true, 0, "")
	}
	r.pdf.Ln(-1)

	r.font("", 9)
	r.color(colorText)
	for _, row := range rows {
		for i, cell := range row {
			align := "L"
			if i > 0 && len(header) > 2 {
				align = "R"
			}
			r.pdf.CellFormat(cols[i], 6, r.tr(cell), "1", 0, align, false, 0, "")
		}
		r.pdf.Ln(-1)
	}
	r.pdf.Ln(2)
}

// section renders one agent result. Data sections keep every line as
// written; prose is laid out block by block.
func (r *pdfRenderer) section(title, content string, mono bool) {
	r.heading(title)
	if mono {
		r.font("", 8)
		for _, line := range strings.Split(content, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			r.pdf.MultiCell(0, 4, r.tr(strings.TrimRight(line, " \t")), "", "L", false)
		}
		r.pdf.Ln(2)
		return
	}

	left := r.pdf.GetX()
	for _, blk := range Blocks(content) {
		switch blk.Kind {
		case BlockHeading:
			r.font("B", 11)
			r.pdf.MultiCell(0, 6, r.tr(blk.Text), "", "L", false)
		case BlockBullet, BlockNumbered:
			r.font("", 10)
			r.pdf.SetX(left + 6)
			r.pdf.MultiCell(r.width-6, lineHeight, r.tr(blk.Text), "", "L", false)
			r.pdf.SetX(left)
		case BlockTable:
			r.font("", 8)
			r.pdf.MultiCell(0, 4, r.tr(blk.Text), "", "L", false)
		default:
			r.font("", 10)
			r.pdf.MultiCell(0, lineHeight, r.tr(blk.Text), "", "L", false)
			r.pdf.Ln(1.5)
		}
	}
	r.pdf.Ln(2)
}

func (r *pdfRenderer) fraud(f *models.FraudIndicators) {
	if f == nil {
		return
	}
	r.table("Fraud Indicators", []string{"Measure", "Value"}, [][]string{
		{"Risk Level", string(f.RiskLevel)},
		{"Bars Analyzed", fmt.Sprint(f.BarsAnalyzed)},
		{"Baseline Volume", utils.FormatVolume(int64(f.BaselineVolume))},
		{"Volume Spikes", fmt.Sprint(len(f.VolumeSpikes))},
		{"Abnormal Returns", fmt.Sprint(len(f.AbnormalReturns))},
		{"Cumulative Abnormal Return", fmt.Sprintf("%.2f%%", f.CumulativeAbnormalReturn)},
	}, []float64{0.5, 0.5})

	if len(f.VolumeSpikes) > 0 {
		rows := make([][]string, len(f.VolumeSpikes))
		for i, s := range f.VolumeSpikes {
			rows[i] = []string{s.Date, utils.FormatVolume(s.Volume), fmt.Sprintf("%.2fx", s.TVR), string(s.Severity)}
		}
		r.table("Volume Spikes", []string{"Date", "Volume", "Ratio", "Severity"}, rows, []float64{0.3, 0.3, 0.2, 0.2})
	}
	if len(f.AbnormalReturns) > 0 {
		rows := make([][]string, len(f.AbnormalReturns))
		for i, a := range f.AbnormalReturns {
			rows[i] = []string{
				a.Date,
				fmt.Sprintf("%.2f%%", a.ActualReturn),
				fmt.Sprintf("%.2f%%", a.ExpectedReturn),
				fmt.Sprintf("%.2f%%", a.AbnormalReturn),
				string(a.Severity),
			}
		}
		r.table("Abnormal Returns", []string{"Date", "Actual", "Expected", "Abnormal", "Severity"}, rows,
			[]float64{0.24, 0.19, 0.19, 0.19, 0.19})
	}
	if len(f.RedFlags) > 0 {
		r.section("Red Flags", "• "+strings.Join(f.RedFlags, "\n• "), false)
	}
}

func (r *pdfRenderer) unavailable(errs map[string]string) {
	if len(errs) == 0 {
		return
	}
	var lines []string
	for _, row := range errorRows(errs) {
		lines = append(lines, fmt.Sprintf("• %s: %s", row.Label, row.Value))
	}
	r.section("Unavailable Sections", strings.Join(lines, "\n"), false)
}

func rowsToCells(rows []Row) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = []string{row.Label, row.Value}
	}
	return out
}
