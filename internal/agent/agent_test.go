package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/seenimoa/stockanalyzer/internal/agent/prompts"
	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/internal/llm"
	"github.com/seenimoa/stockanalyzer/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Fixtures
// ════════════════════════════════════════════════════════════════════

const technicalJSON = `{"sma_20": 101.25, "sma_20_signal": "Bullish", "sma_50": null, "golden_cross": null,
"ema_12": 101.9, "ema_26": 101.1, "rsi": 58.4, "rsi_signal": "Neutral",
"macd": {"macd_line": 0.8, "signal_line": 0.72, "histogram": 0.08}, "macd_signal": "Bullish",
"bollinger_bands": {"upper": 104.2, "middle": 101.25, "lower": 98.3}, "bollinger_signal": "Normal Range",
"current_price": 102.5}`

const fundamentalJSON = `{"pe_ratio": 28.5, "eps_current": 6.42, "eps_next_year": 7.1, "revenue_growth_percent": 8.2,
"roe_percent": 31.4, "debt_to_equity": 1.2, "price_to_book": 9.8, "dividend_yield_percent": 0.5,
"free_cash_flow": "$98.5B", "operating_margin_percent": 30.1, "current_ratio": 1.1,
"quality_score": "Average", "valuation_assessment": "Fair Value"}`

// scriptedReply answers each prompt the way a well-behaved model would.
func scriptedReply(messages []llm.Message, _ *llm.ChatOptions) (string, error) {
	system := ""
	if messages[0].Role == llm.RoleSystem {
		system = messages[0].Content
	}
	user := messages[len(messages)-1].Content

	switch {
	case strings.HasSuffix(user, "Company name:"):
		return "Acme Corporation\n", nil
	case strings.HasSuffix(user, "Domain:"):
		return "https://www.acme.com/", nil
	case strings.HasPrefix(system, "You are a technical analysis expert"):
		return "Here are the values:\n" + technicalJSON + "\nLet me know if you need more.", nil
	case strings.HasPrefix(system, "You are a financial analyst. Calculate"):
		return fundamentalJSON, nil
	}
	first, _, _ := strings.Cut(system, ".")
	return "Reply from: " + first, nil
}

func newScriptedClient() (*llm.Client, *llm.MockProvider) {
	p := &llm.MockProvider{Reply: scriptedReply}
	return llm.NewClient(p), p
}

// testHistory returns 30 bars, most recent first, with a 6x volume spike on
// the second most recent bar.
func testHistory() models.History {
	h := make(models.History, 30)
	for i := range h {
		c := 100.0 + float64(30-i)*0.1
		if i%2 == 0 {
			c += 0.4
		}
		h[i] = models.HistoricalBar{
			Date:   fmt.Sprintf("Oct %d, 2025", 30-i),
			Open:   c - 0.3,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	h[1].Volume = 6_000_000
	return h
}

func testInput() Input {
	return Input{
		Symbol:   "ACME",
		Snapshot: &models.StockSnapshot{Symbol: "ACME", Exchange: models.ExchangeNASDAQ, PriceText: "$103.40", MarketCap: "1.2T USD", PERatio: "28.50"},
		History:  testHistory(),
		Financials: &models.FinancialProfile{
			IncomeStatement: map[string]string{"Revenue": "391,035", "EPS (Diluted)": "6.08", "Ignored Row": "1"},
			BalanceSheet:    map[string]string{"Total Debt": "106,629"},
			Ratios:          map[string]string{"PE Ratio": "37.29", "Current Ratio": "0.87"},
		},
		Forecast: &models.ForecastSummary{AnalystCount: 28, Consensus: "Buy", EPSNextYear: "8.49", RevenueThisYear: "416.06B"},
		News: []models.NewsItem{
			{Title: "Acme unveils a new product line at its annual event", Source: "reuters.com", Body: strings.Repeat("x", 800)},
			{Title: "Analysts weigh in on Acme's quarterly results", Source: "cnbc.com"},
		},
	}
}

// ════════════════════════════════════════════════════════════════════
// ExtractJSON
// ════════════════════════════════════════════════════════════════════

func TestExtractJSONWithSurroundingProse(t *testing.T) {
	obj, err := ExtractJSON("Sure! ```json\n{\"rsi\": 55.5, \"macd\": {\"histogram\": -0.2}}\n``` Done.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj["rsi"] != 55.5 {
		t.Errorf("rsi: got %v", obj["rsi"])
	}
	macd, ok := obj["macd"].(map[string]any)
	if !ok || macd["histogram"] != -0.2 {
		t.Errorf("nested object not decoded: %v", obj["macd"])
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	for _, s := range []string{"", "no braces here", "} backwards {"} {
		if _, err := ExtractJSON(s); err == nil {
			t.Errorf("ExtractJSON(%q) should fail", s)
		}
	}
}

func TestExtractJSONInvalid(t *testing.T) {
	if _, err := ExtractJSON(`{"rsi": 55.5,}`); err == nil {
		t.Error("trailing comma should fail to decode")
	}
}

func TestTruncateUTF8(t *testing.T) {
	s := "ab→cd" // → is 3 bytes
	if got := truncateUTF8(s, 3); got != "ab" {
		t.Errorf("should not split a rune: got %q", got)
	}
	if got := truncateUTF8(s, 5); got != "ab→" {
		t.Errorf("got %q", got)
	}
	if got := truncateUTF8(s, 100); got != s {
		t.Errorf("short input should be unchanged: %q", got)
	}
}

// ════════════════════════════════════════════════════════════════════
// Structured Agents
// ════════════════════════════════════════════════════════════════════

func TestTechnicalAgentRun(t *testing.T) {
	client, mock := newScriptedClient()
	a := NewTechnicalAgent(client)

	res, err := a.Run(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Agent != prompts.AgentTechnical || res.OutputKey != "indicators" || res.Symbol != "ACME" {
		t.Errorf("unexpected identity: %+v", res)
	}
	if res.Structured["rsi_signal"] != "Neutral" {
		t.Errorf("structured output not parsed: %v", res.Structured)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	c := calls[0]
	if c.Options.MaxTokens != 1000 || c.Options.Temperature == nil || *c.Options.Temperature != 0 {
		t.Errorf("options: %+v", c.Options)
	}
	system, user := c.Messages[0].Content, c.Messages[1].Content
	latest := testHistory()[0].Close
	if !strings.Contains(system, "Current Price: "+price(latest)+"\n") {
		t.Errorf("system prompt should carry the latest close %v", latest)
	}
	if !strings.HasPrefix(user, "HISTORICAL PRICE DATA (Most Recent First):\nDate | Open | High | Low | Close | Volume\n"+strings.Repeat("-", 80)) {
		t.Errorf("user message header wrong:\n%s", user[:120])
	}
	if !strings.Contains(user, "Oct 29, 2025 | $") || !strings.Contains(user, "| 6000000\n") {
		t.Error("price rows missing")
	}
	if !strings.Contains(user, "REFERENCE INDICATORS") {
		t.Error("reference indicators should be appended")
	}
}

func TestTechnicalAgentInsufficientHistory(t *testing.T) {
	client, mock := newScriptedClient()
	in := testInput()
	in.History = in.History[:1]

	_, err := NewTechnicalAgent(client).Run(context.Background(), in)
	if !errors.Is(err, apperr.InsufficientData) {
		t.Fatalf("expected InsufficientData, got %v", err)
	}
	if len(mock.Calls()) != 0 {
		t.Error("no model call expected")
	}
}

func TestStructuredAgentParseError(t *testing.T) {
	client := llm.NewClient(llm.NewMockProvider("I cannot compute that."))
	_, err := NewTechnicalAgent(client).Run(context.Background(), testInput())
	if !errors.Is(err, apperr.ParseError) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestFundamentalAgentRun(t *testing.T) {
	client, mock := newScriptedClient()
	res, err := NewFundamentalAgent(client).Run(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OutputKey != "fundamentals" || res.Structured["quality_score"] != "Average" {
		t.Errorf("unexpected result: %+v", res)
	}

	c := mock.Calls()[0]
	if c.Options.MaxTokens != 800 || *c.Options.Temperature != 0 {
		t.Errorf("options: %+v", c.Options)
	}
	user := c.Messages[1].Content
	for _, want := range []string{
		"CURRENT STOCK DATA:\nSymbol: ACME\nCurrent Price: $103.40\nMarket Cap: 1.2T USD\nP/E Ratio: 28.50\nDividend Yield: N/A\n",
		"FINANCIAL DATA FROM STOCKANALYSIS.COM:",
		"Income Statement (Most Recent Year):\n  Revenue: 391,035\n  EPS (Diluted): 6.08\n\n",
		"Balance Sheet (Most Recent):\n  Total Debt: 106,629\n",
		"Financial Ratios (Most Recent):\n  PE Ratio: 37.29\n  Current Ratio: 0.87\n",
		"ANALYST FORECASTS:\nRevenue This Year: 416.06B\nEPS Next Year: 8.49\n",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("fundamental data missing %q in:\n%s", want, user)
		}
	}
	if strings.Contains(user, "Ignored Row") {
		t.Error("only highlight rows should be sent")
	}
}

func TestFundamentalAgentNeedsSnapshot(t *testing.T) {
	client, _ := newScriptedClient()
	in := testInput()
	in.Snapshot = nil
	if _, err := NewFundamentalAgent(client).Run(context.Background(), in); !errors.Is(err, apperr.BadRequest) {
		t.Fatalf("expected BadRequest, got %v", err)
	}
}

// ════════════════════════════════════════════════════════════════════
// Company Name Agent
// ════════════════════════════════════════════════════════════════════

func TestCompanyAgentRun(t *testing.T) {
	client, mock := newScriptedClient()
	res, err := NewCompanyAgent(client).Run(context.Background(), Input{Symbol: " acme "})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	info := CompanyFrom(res)
	if info == nil {
		t.Fatal("company info missing")
	}
	if info.Name != "Acme Corporation" || info.Domain != "acme.com" || info.LogoURL != "https://logo.clearbit.com/acme.com" {
		t.Errorf("unexpected company: %+v", info)
	}
	if res.Structured["logo_url"] != info.LogoURL || res.Content != "Acme Corporation" {
		t.Errorf("structured output: %v", res.Structured)
	}

	calls := mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if len(calls[0].Messages) != 1 || !strings.Contains(calls[0].Messages[0].Content, "'ACME'") {
		t.Error("first call should be a single user message naming the symbol")
	}
	if calls[0].Options.MaxTokens != 50 || *calls[0].Options.Temperature != 0.1 {
		t.Errorf("name call options: %+v", calls[0].Options)
	}
	if !strings.Contains(calls[1].Messages[0].Content, `"Acme Corporation"`) || calls[1].Options.MaxTokens != 20 {
		t.Error("second call should ask for the domain of the resolved name")
	}
}

func TestCompanyFromStructuredOnly(t *testing.T) {
	r := &models.AgentResult{Structured: map[string]any{"company_name": "Apple Inc.", "domain": "apple.com", "logo_url": "u"}}
	info := CompanyFrom(r)
	if info == nil || info.Name != "Apple Inc." || info.Domain != "apple.com" {
		t.Errorf("got %+v", info)
	}
	if CompanyFrom(nil) != nil || CompanyFrom(&models.AgentResult{}) != nil {
		t.Error("missing company should be nil")
	}
}

func TestStaticCompanyInfo(t *testing.T) {
	info := StaticCompanyInfo("aapl")
	if info.Name != "AAPL" || info.Domain != "apple.com" || info.LogoURL != "https://logo.clearbit.com/apple.com" {
		t.Errorf("got %+v", info)
	}
	if unknown := StaticCompanyInfo("ZZZZ"); unknown.Domain != "" || unknown.LogoURL != "" {
		t.Errorf("unknown symbol should have no domain: %+v", unknown)
	}
}

// ════════════════════════════════════════════════════════════════════
// Fraud Agents
// ════════════════════════════════════════════════════════════════════

func TestFraudDetectionAgentRun(t *testing.T) {
	a := NewFraudDetectionAgent()
	res, err := a.Run(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	ind := FraudFrom(res)
	if ind == nil {
		t.Fatal("indicators missing from Data")
	}
	if len(ind.VolumeSpikes) != 1 || ind.VolumeSpikes[0].Severity != models.SeverityHigh {
		t.Errorf("expected one HIGH spike, got %+v", ind.VolumeSpikes)
	}
	if ind.RiskLevel != models.RiskHigh {
		t.Errorf("risk: got %s", ind.RiskLevel)
	}
	if res.Structured["risk_level"] != "High" || res.OutputKey != "fraud_indicators" {
		t.Errorf("structured output: %v", res.Structured)
	}
	if !strings.HasPrefix(res.Content, "FRAUD DETECTION SUMMARY:") {
		t.Errorf("content: %q", res.Content)
	}
	if a.Descriptor().UsesLLM {
		t.Error("fraud detection makes no model call")
	}
}

func TestFraudDetectionAgentInsufficientData(t *testing.T) {
	in := testInput()
	in.History = in.History[:19]
	if _, err := NewFraudDetectionAgent().Run(context.Background(), in); !errors.Is(err, apperr.InsufficientData) {
		t.Fatalf("expected InsufficientData, got %v", err)
	}
}

func TestFraudAnalysisAgentRun(t *testing.T) {
	client, mock := newScriptedClient()
	res, err := NewFraudAnalysisAgent(client).Run(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OutputKey != "fraud_risk_assessment" || res.Structured != nil {
		t.Errorf("unexpected result: %+v", res)
	}

	c := mock.Calls()[0]
	if c.Messages[0].Content != prompts.FraudAnalystSystemPrompt {
		t.Error("system prompt mismatch")
	}
	if c.Options.MaxTokens != 2000 || *c.Options.Temperature != 0.3 {
		t.Errorf("options: %+v", c.Options)
	}
	user := c.Messages[1].Content
	for _, want := range []string{
		"FRAUD DETECTION ANALYSIS FOR ACME:",
		"VOLUME SPIKE RATIO (TVR) - 1 instances:",
		"RECENT NEWS HEADLINES (for context):",
		"FRAUD DETECTION METRICS REFERENCE:",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("fraud prompt missing %q", want)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// Synthesis Agents
// ════════════════════════════════════════════════════════════════════

func TestSynthesisAgentsRequireContext(t *testing.T) {
	client, mock := newScriptedClient()
	for _, a := range NewSynthesisAgents(client) {
		_, err := a.Run(context.Background(), Input{Symbol: "ACME"})
		if !errors.Is(err, apperr.BadRequest) || !strings.Contains(err.Error(), "stock_symbol and context required") {
			t.Errorf("%s: expected BadRequest, got %v", a.Name(), err)
		}
		_, err = a.Run(context.Background(), Input{Context: "ctx"})
		if !errors.Is(err, apperr.BadRequest) {
			t.Errorf("%s: missing symbol should be BadRequest, got %v", a.Name(), err)
		}
	}
	if n := len(mock.Calls()); n != 0 {
		t.Errorf("no model calls expected, got %d", n)
	}
}

func TestSynthesisAgentsMessages(t *testing.T) {
	client, mock := newScriptedClient()
	agents := NewSynthesisAgents(client)
	wantTokens := map[string]int{
		prompts.AgentSummary: 200, prompts.AgentExecutive: 800, prompts.AgentDetailed: 1500,
		prompts.AgentRecommendation: 2000, prompts.AgentAnalyst: 1500, prompts.AgentMeta: 2000,
	}

	for i, a := range agents {
		if a.Name() != prompts.Synthesis[i] {
			t.Errorf("agent %d: got %s, want %s", i, a.Name(), prompts.Synthesis[i])
		}
		res, err := a.Run(context.Background(), Input{Symbol: "ACME", Context: "STOCK: ACME\n"})
		if err != nil {
			t.Fatalf("%s: %v", a.Name(), err)
		}
		if !strings.HasPrefix(res.Content, "Reply from: ") {
			t.Errorf("%s: content %q", a.Name(), res.Content)
		}
		c := mock.Calls()[i]
		if c.Options.MaxTokens != wantTokens[a.Name()] {
			t.Errorf("%s: max tokens %d", a.Name(), c.Options.MaxTokens)
		}
		if c.Options.Temperature != nil {
			t.Errorf("%s: synthesis agents use the model's default temperature", a.Name())
		}
		if !strings.HasSuffix(c.Messages[1].Content, ":\n\nSTOCK: ACME\n") {
			t.Errorf("%s: user message %q", a.Name(), c.Messages[1].Content)
		}
	}
}

func TestSummaryAgentTruncatesContext(t *testing.T) {
	client, mock := newScriptedClient()
	summary := NewSynthesisAgents(client)[0]
	if _, err := summary.Run(context.Background(), Input{Symbol: "ACME", Context: strings.Repeat("a", 5000)}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	user := mock.Calls()[0].Messages[1].Content
	if want := len(prompts.SummaryUserPrefix) + summaryContextLimit; len(user) != want {
		t.Errorf("user message length: got %d, want %d", len(user), want)
	}
}

func TestPromptAgentLLMFailure(t *testing.T) {
	p := &llm.MockProvider{Reply: func([]llm.Message, *llm.ChatOptions) (string, error) {
		return "", errors.New("connection reset")
	}}
	_, err := NewSynthesisAgents(llm.NewClient(p))[1].Run(context.Background(), Input{Symbol: "ACME", Context: "c"})
	if !errors.Is(err, apperr.LLMUnavailable) {
		t.Fatalf("expected LLMUnavailable, got %v", err)
	}
}

// ════════════════════════════════════════════════════════════════════
// Registry
// ════════════════════════════════════════════════════════════════════

func TestRegistryEmpty(t *testing.T) {
	r := NewRegistry()
	if r.Count() != 0 || len(r.List()) != 0 || len(r.Names()) != 0 {
		t.Error("new registry should be empty")
	}
	if _, ok := r.Get("summary"); ok {
		t.Error("Get on empty registry should fail")
	}
}

func TestDefaultRegistry(t *testing.T) {
	client, _ := newScriptedClient()
	r := NewDefaultRegistry(client)

	if r.Count() != 11 {
		t.Fatalf("expected 11 agents, got %d", r.Count())
	}
	want := []string{
		"technical-analysis", "fundamental-analysis", "company-name", "fraud-detection", "fraud-analysis",
		"summary", "executive-summary", "detailed-analysis", "investment-recommendation", "analyst-synthesis", "meta-analysis",
	}
	names := r.Names()
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d]: got %s, want %s", i, names[i], want[i])
		}
	}

	for i, d := range r.Descriptors() {
		if d.ID != i+1 {
			t.Errorf("%s: ID %d, want %d", d.Slug, d.ID, i+1)
		}
		if d.Endpoint != "/api/agents/"+d.Slug {
			t.Errorf("%s: endpoint %s", d.Slug, d.Endpoint)
		}
		if d.Name == "" || d.Description == "" {
			t.Errorf("%s: descriptor incomplete: %+v", d.Slug, d)
		}
		if wantCtx := i >= 5; d.NeedsContext != wantCtx {
			t.Errorf("%s: NeedsContext %v", d.Slug, d.NeedsContext)
		}
	}
}

func TestRegistryOverwrite(t *testing.T) {
	client, _ := newScriptedClient()
	r := NewRegistry()
	r.Register(NewTechnicalAgent(client))
	r.Register(NewTechnicalAgent(client))
	if r.Count() != 1 {
		t.Errorf("re-registering should replace, got %d agents", r.Count())
	}
}

func TestRegistryConcurrency(t *testing.T) {
	client, _ := newScriptedClient()
	r := NewRegistry()
	var wg sync.WaitGroup
	for _, a := range NewSynthesisAgents(client) {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register(a)
		}()
		go func() {
			defer wg.Done()
			_ = r.List()
			_, _ = r.Get(a.Name())
		}()
	}
	wg.Wait()
	if r.Count() != 6 {
		t.Errorf("expected 6 agents, got %d", r.Count())
	}
}
