package report

// ReportTemplate is the HTML template for the analysis report.
// It is embedded as a Go constant, no external file dependencies.
const ReportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --title: #1f4788;
    --red: #dc2626;
    --orange: #ea580c;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
  }
  h1, h2, h3 { font-weight: 600; }
  h1 { font-size: 1.6rem; color: var(--title); }
  h2 { font-size: 1.2rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); color: var(--accent); }
  h3 { font-size: 1rem; margin: 16px 0 8px; }
  p { margin: 6px 0; }
  .muted { color: var(--muted); font-size: 0.85rem; }

  /* Header */
  .header { text-align: center; border-bottom: 3px solid var(--accent); padding-bottom: 12px; margin-bottom: 16px; }
  .header img { max-width: 110px; max-height: 110px; margin-bottom: 8px; }
  .ticker-badge {
    display: inline-block;
    background: var(--accent);
    color: white;
    padding: 2px 12px;
    border-radius: 4px;
    font-weight: 700;
    font-size: 1.1rem;
    margin-right: 8px;
  }

  /* Tables */
  table { width: 100%; border-collapse: collapse; margin: 8px 0 16px; font-size: 0.9rem; }
  th { background: #3b82f6; color: white; text-align: left; padding: 8px; font-weight: 600; }
  td { padding: 8px; border-bottom: 1px solid var(--border); }
  td.num { text-align: right; font-variant-numeric: tabular-nums; }
  .sev-HIGH { color: var(--red); font-weight: 600; }
  .sev-MEDIUM { color: var(--orange); font-weight: 600; }

  /* Chart container */
  .chart-container { margin: 12px 0; overflow-x: auto; }
  .chart-container svg { max-width: 100%; height: auto; }

  /* Sections */
  .section { margin: 20px 0; }
  .section p.body { text-align: justify; }
  .section p.bullet, .section p.numbered { margin-left: 20px; }
  .section p.subheading { font-weight: 600; margin-top: 12px; }
  .section p.mono, pre {
    font-family: 'SFMono-Regular', Consolas, monospace;
    font-size: 0.8rem;
    white-space: pre-wrap;
  }
  pre { background: var(--section-bg); padding: 12px; border-radius: 6px; }

  /* Footer */
  .footer {
    margin-top: 30px;
    padding-top: 12px;
    border-top: 2px solid var(--border);
    font-size: 0.8rem;
    color: var(--muted);
    text-align: center;
  }

  @media print {
    body { max-width: 100%; padding: 10px; }
    .section { page-break-inside: avoid; }
  }
</style>
</head>
<body>

<!-- ═══════ HEADER ═══════ -->
<div class="header">
  {{if .Logo}}<img src="{{.Logo}}" alt="{{.Symbol}} logo">{{end}}
  <h1>{{.Title}}</h1>
  <p><span class="ticker-badge">{{.Symbol}}</span>{{.Company}}{{if .Exchange}} · {{.Exchange}}{{end}}</p>
  <p class="muted">Generated: {{.GeneratedAt}}</p>
</div>

<!-- ═══════ STOCK DATA ═══════ -->
<div class="section">
  <h2>Current Stock Information</h2>
  <table>
    <thead><tr><th>Metric</th><th>Value</th></tr></thead>
    <tbody>
    {{range .Stock}}<tr><td>{{.Label}}</td><td>{{.Value}}</td></tr>
    {{end}}
    </tbody>
  </table>
</div>

{{if .Forecast}}
<div class="section">
  <h2>Analyst Forecast</h2>
  <table>
    <tbody>
    {{range .Forecast}}<tr><td>{{.Label}}</td><td>{{.Value}}</td></tr>
    {{end}}
    </tbody>
  </table>
</div>
{{end}}

<!-- ═══════ PRICE HISTORY ═══════ -->
{{if .History}}
<div class="section">
  <h2>{{.HistoryTitle}}</h2>
  {{if .PriceChart}}<div class="chart-container">{{.PriceChart}}</div>{{end}}
  <table>
    <thead><tr>{{range .HistoryHeader}}<th>{{.}}</th>{{end}}</tr></thead>
    <tbody>
    {{range .History}}<tr>{{range $i, $c := .}}<td{{if $i}} class="num"{{end}}>{{$c}}</td>{{end}}</tr>
    {{end}}
    </tbody>
  </table>
</div>
{{end}}

<!-- ═══════ AGENT SECTIONS ═══════ -->
{{range .Sections}}
<div class="section">
  <h2>{{.Title}}</h2>
  {{if .Mono}}<pre>{{.Raw}}</pre>{{else}}{{range .Blocks}}
  <p class="{{.Class}}">{{.Text}}</p>{{end}}{{end}}
</div>
{{end}}

<!-- ═══════ FRAUD INDICATORS ═══════ -->
{{with .Fraud}}
<div class="section">
  <h2>Fraud Indicators</h2>
  <table>
    <tbody>
    {{range .Summary}}<tr><td>{{.Label}}</td><td>{{.Value}}</td></tr>
    {{end}}
    </tbody>
  </table>

  {{if .VolumeSpikes}}
  <h3>Volume Spikes</h3>
  <table>
    <thead><tr><th>Date</th><th>Volume</th><th>Ratio</th><th>Severity</th></tr></thead>
    <tbody>
    {{range .VolumeSpikes}}<tr><td>{{.Date}}</td><td class="num">{{.Volume}}</td><td class="num">{{printf "%.2fx" .TVR}}</td><td class="sev-{{.Severity}}">{{.Severity}}</td></tr>
    {{end}}
    </tbody>
  </table>
  {{end}}

  {{if .AbnormalReturns}}
  <h3>Abnormal Returns</h3>
  <table>
    <thead><tr><th>Date</th><th>Actual</th><th>Expected</th><th>Abnormal</th><th>Severity</th></tr></thead>
    <tbody>
    {{range .AbnormalReturns}}<tr><td>{{.Date}}</td><td class="num">{{printf "%.2f%%" .ActualReturn}}</td><td class="num">{{printf "%.2f%%" .ExpectedReturn}}</td><td class="num">{{printf "%.2f%%" .AbnormalReturn}}</td><td class="sev-{{.Severity}}">{{.Severity}}</td></tr>
    {{end}}
    </tbody>
  </table>
  {{end}}

  {{if .RedFlags}}
  <h3>Red Flags</h3>
  {{range .RedFlags}}<p class="bullet">• {{.}}</p>
  {{end}}
  {{end}}
</div>
{{end}}

{{if .Errors}}
<div class="section">
  <h2>Unavailable Sections</h2>
  {{range .Errors}}<p class="bullet">• {{.Label}}: {{.Value}}</p>
  {{end}}
</div>
{{end}}

<!-- ═══════ FOOTER ═══════ -->
<div class="footer">
  <p><strong>Disclaimer:</strong> This report is AI-generated for educational and informational purposes only.
  It does not constitute financial advice.</p>
  <p>{{.Author}} · Generated on {{.GeneratedAt}}</p>
</div>

</body>
</html>`
