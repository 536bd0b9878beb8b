package agent

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/seenimoa/stockanalyzer/internal/agent/prompts"
	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/internal/config"
	"github.com/seenimoa/stockanalyzer/internal/datasource"
	"github.com/seenimoa/stockanalyzer/internal/llm"
	"github.com/seenimoa/stockanalyzer/internal/metrics"
	"github.com/seenimoa/stockanalyzer/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Fake Source
// ════════════════════════════════════════════════════════════════════

// fakeSource serves the fixtures from testInput. Only ACME resolves.
type fakeSource struct {
	histErr      error
	histBars     int // serve at most this many bars when positive
	validations  atomic.Int32
	historyCalls atomic.Int32
}

func (f *fakeSource) ValidateSymbol(_ context.Context, sym string) (models.Exchange, error) {
	f.validations.Add(1)
	if sym != "ACME" {
		return "", apperr.E(apperr.KindNotFound, "fake", "stock symbol "+sym+" not found", nil)
	}
	return models.ExchangeNASDAQ, nil
}

func (f *fakeSource) FetchSnapshot(context.Context, string, models.Exchange) (*models.StockSnapshot, error) {
	return testInput().Snapshot, nil
}

func (f *fakeSource) FetchHistory(_ context.Context, _ string, days int) (models.History, error) {
	f.historyCalls.Add(1)
	if f.histErr != nil {
		return nil, f.histErr
	}
	if f.histBars > 0 {
		days = min(days, f.histBars)
	}
	return testHistory().Head(days), nil
}

func (f *fakeSource) FetchFinancials(context.Context, string) (*models.FinancialProfile, error) {
	return testInput().Financials, nil
}

func (f *fakeSource) FetchForecast(context.Context, string) (*models.ForecastSummary, error) {
	return testInput().Forecast, nil
}

func (f *fakeSource) FetchNews(context.Context, string, int) ([]models.NewsItem, error) {
	return testInput().News, nil
}

func (f *fakeSource) FetchLogo(context.Context, string) ([]byte, error) { return nil, nil }

type harness struct {
	orch    *Orchestrator
	src     *fakeSource
	mock    *llm.MockProvider
	metrics *metrics.Metrics
}

func newHarness(reply func([]llm.Message, *llm.ChatOptions) (string, error), policy string) *harness {
	src := &fakeSource{}
	mock := &llm.MockProvider{Reply: reply}
	m := metrics.New(prometheus.NewRegistry())
	orch := NewOrchestrator(OrchestratorConfig{
		Aggregator:       datasource.NewAggregator(src, 30, 10, 5, nil),
		Registry:         NewDefaultRegistry(llm.NewClient(mock)),
		SynthesisFailure: policy,
		Metrics:          m,
	})
	return &harness{orch: orch, src: src, mock: mock, metrics: m}
}

// failFor wraps scriptedReply so that prompts starting with systemPrefix fail.
func failFor(systemPrefix string) func([]llm.Message, *llm.ChatOptions) (string, error) {
	return func(msgs []llm.Message, opts *llm.ChatOptions) (string, error) {
		if msgs[0].Role == llm.RoleSystem && strings.HasPrefix(msgs[0].Content, systemPrefix) {
			return "", errors.New("model overloaded")
		}
		return scriptedReply(msgs, opts)
	}
}

// ════════════════════════════════════════════════════════════════════
// Full Pipeline
// ════════════════════════════════════════════════════════════════════

func TestAnalyzeFullPipeline(t *testing.T) {
	h := newHarness(scriptedReply, config.SynthesisFatal)

	b, err := h.orch.Analyze(context.Background(), " acme ")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if b.Symbol != "ACME" || b.Exchange != models.ExchangeNASDAQ {
		t.Errorf("identity: %s %s", b.Symbol, b.Exchange)
	}
	if len(b.Results) != 11 || b.AgentsRun != 11 {
		t.Errorf("expected 11 results, got %d (AgentsRun %d)", len(b.Results), b.AgentsRun)
	}
	for _, name := range NewDefaultRegistry(nil).Names() {
		if b.Result(name) == nil {
			t.Errorf("missing result for %s", name)
		}
	}
	if len(b.AgentErrors) != 0 {
		t.Errorf("unexpected agent errors: %v", b.AgentErrors)
	}
	if b.Company == nil || b.Company.Domain != "acme.com" {
		t.Errorf("company: %+v", b.Company)
	}
	if b.Fraud == nil || b.Fraud.RiskLevel != models.RiskHigh {
		t.Errorf("fraud: %+v", b.Fraud)
	}
	if b.Reference == nil || b.Reference.Points != 30 {
		t.Errorf("reference indicators: %+v", b.Reference)
	}
	if len(b.History) != 30 || b.NewsCount != 2 {
		t.Errorf("history %d, news %d", len(b.History), b.NewsCount)
	}
	if b.ID.String() == "" || b.GeneratedAt.IsZero() {
		t.Error("bundle should carry an ID and timestamp")
	}

	// 4 data-agent calls (company-name makes 2) + fraud analysis + 6 synthesis
	if n := len(h.mock.Calls()); n != 11 {
		t.Errorf("expected 11 model calls, got %d", n)
	}
	if got := testutil.ToFloat64(h.metrics.AgentRunsTotal.WithLabelValues(prompts.AgentMeta, metrics.OutcomeSuccess)); got != 1 {
		t.Errorf("meta-analysis runs: got %v", got)
	}
	if got := testutil.ToFloat64(h.metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeSuccess, "")); got != 1 {
		t.Errorf("analyses: got %v", got)
	}
}

func TestAnalyzeSharedContext(t *testing.T) {
	h := newHarness(scriptedReply, config.SynthesisFatal)
	if _, err := h.orch.Analyze(context.Background(), "ACME"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	var metaUser string
	for _, c := range h.mock.Calls() {
		if c.Messages[0].Content == prompts.MetaSystemPrompt {
			metaUser = c.Messages[1].Content
		}
	}
	for _, want := range []string{
		prompts.MetaUserPrefix + "STOCK: ACME\n",
		"TECHNICAL INDICATORS:\n20-Day SMA: $101.25 (Bullish)\n",
		"RSI (14-day): 58.40 (Neutral)",
		"ANALYST FORECASTS:\nNumber of Analysts: 28\nConsensus Rating: Buy\n",
		"FUNDAMENTAL METRICS:\nP/E Ratio: 28.50\n",
		"Quality Score: Average",
		"30-DAY PRICE HISTORY WITH VOLUME:",
		"FRAUD DETECTION SUMMARY:\nRisk Level: High\n",
		"FRAUD RISK ASSESSMENT:\nReply from: You are an expert securities fraud analyst specializing in market manipulation detection and forensic analysis of trading patterns\n",
		"RECENT NEWS (2 articles):\n1. Acme unveils",
	} {
		if !strings.Contains(metaUser, want) {
			t.Errorf("shared context missing %q", want)
		}
	}
}

// Temperature-0 agents are deterministic given a deterministic model.
func TestAnalyzeDeterministic(t *testing.T) {
	h := newHarness(scriptedReply, config.SynthesisFatal)
	a, err := h.orch.Analyze(context.Background(), "ACME")
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.orch.Analyze(context.Background(), "ACME")
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{prompts.AgentTechnical, prompts.AgentFundamental, prompts.AgentFraudDetection} {
		if !reflect.DeepEqual(a.Result(name).Structured, b.Result(name).Structured) {
			t.Errorf("%s output differs between runs", name)
		}
	}
	if !reflect.DeepEqual(a.Fraud, b.Fraud) {
		t.Error("fraud indicators differ between runs")
	}
	if a.ID == b.ID {
		t.Error("each bundle needs its own ID")
	}
}

// ════════════════════════════════════════════════════════════════════
// Failures
// ════════════════════════════════════════════════════════════════════

func TestAnalyzeInvalidSymbol(t *testing.T) {
	h := newHarness(scriptedReply, config.SynthesisFatal)
	for _, sym := range []string{"123", "TOO-LONG-SYMBOL", "A B"} {
		_, err := h.orch.Analyze(context.Background(), sym)
		if !errors.Is(err, apperr.InvalidSymbol) {
			t.Errorf("%q: expected InvalidSymbol, got %v", sym, err)
		}
	}
	if _, err := h.orch.Analyze(context.Background(), "  "); !errors.Is(err, apperr.BadRequest) {
		t.Errorf("blank symbol: expected BadRequest, got %v", err)
	}
	if n := h.src.validations.Load(); n != 0 {
		t.Errorf("malformed symbols should not reach upstream, got %d validations", n)
	}
}

func TestAnalyzeUnknownSymbol(t *testing.T) {
	h := newHarness(scriptedReply, config.SynthesisFatal)
	_, err := h.orch.Analyze(context.Background(), "INVALID123")
	if !errors.Is(err, apperr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if len(h.mock.Calls()) != 0 {
		t.Error("no model calls expected")
	}
	if got := testutil.ToFloat64(h.metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeError, string(apperr.KindNotFound))); got != 1 {
		t.Errorf("failed analyses: got %v", got)
	}
}

func TestAnalyzeHistoryFailureAborts(t *testing.T) {
	h := newHarness(scriptedReply, config.SynthesisFatal)
	h.src.histErr = apperr.E(apperr.KindUpstreamTimeout, "fake", "history timed out", nil)

	_, err := h.orch.Analyze(context.Background(), "ACME")
	if !errors.Is(err, apperr.UpstreamTimeout) {
		t.Fatalf("expected UpstreamTimeout, got %v", err)
	}
	if len(h.mock.Calls()) != 0 {
		t.Error("no agent should run without history")
	}
}

func TestAnalyzeShortHistoryNotFound(t *testing.T) {
	h := newHarness(scriptedReply, config.SynthesisFatal)
	h.src.histBars = 12

	_, err := h.orch.Analyze(context.Background(), "ACME")
	if !errors.Is(err, apperr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if len(h.mock.Calls()) != 0 {
		t.Error("no agent should run on a short history")
	}
}

func TestAnalyzeDataAgentFailureAborts(t *testing.T) {
	h := newHarness(func(msgs []llm.Message, opts *llm.ChatOptions) (string, error) {
		if strings.HasPrefix(msgs[0].Content, "You are a technical analysis expert") {
			return "not json", nil
		}
		return scriptedReply(msgs, opts)
	}, config.SynthesisIsolate)

	_, err := h.orch.Analyze(context.Background(), "ACME")
	if !errors.Is(err, apperr.ParseError) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	for _, c := range h.mock.Calls() {
		if c.Messages[0].Content == prompts.SummarySystemPrompt {
			t.Error("synthesis should not run after a data-agent failure")
		}
	}
}

func TestAnalyzeFraudAnalysisFailureAborts(t *testing.T) {
	h := newHarness(failFor(prompts.FraudAnalystSystemPrompt), config.SynthesisIsolate)
	_, err := h.orch.Analyze(context.Background(), "ACME")
	if !errors.Is(err, apperr.LLMUnavailable) {
		t.Fatalf("expected LLMUnavailable, got %v", err)
	}
}

func TestSynthesisFailureFatal(t *testing.T) {
	h := newHarness(failFor("You are an AI-powered investment research platform"), config.SynthesisFatal)
	_, err := h.orch.Analyze(context.Background(), "ACME")
	if !errors.Is(err, apperr.LLMUnavailable) {
		t.Fatalf("expected LLMUnavailable, got %v", err)
	}
}

func TestSynthesisFailureIsolated(t *testing.T) {
	h := newHarness(failFor("You are an AI-powered investment research platform"), config.SynthesisIsolate)
	b, err := h.orch.Analyze(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if b.Result(prompts.AgentMeta) != nil {
		t.Error("failed agent should have no result")
	}
	if msg := b.AgentErrors[prompts.AgentMeta]; msg == "" {
		t.Errorf("meta-analysis failure not recorded: %v", b.AgentErrors)
	}
	if len(b.Results) != 10 || b.AgentsRun != 10 {
		t.Errorf("expected 10 results, got %d", len(b.Results))
	}
	if got := testutil.ToFloat64(h.metrics.AgentRunsTotal.WithLabelValues(prompts.AgentMeta, metrics.OutcomeError)); got != 1 {
		t.Errorf("failed meta-analysis runs: got %v", got)
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	h := newHarness(scriptedReply, config.SynthesisIsolate)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.orch.Analyze(ctx, "ACME"); err == nil {
		t.Fatal("cancelled analysis should fail")
	}
}

// ════════════════════════════════════════════════════════════════════
// RunAgent
// ════════════════════════════════════════════════════════════════════

func TestRunAgentUnknown(t *testing.T) {
	h := newHarness(scriptedReply, config.SynthesisFatal)
	_, err := h.orch.RunAgent(context.Background(), "crystal-ball", "ACME", "")
	if !errors.Is(err, apperr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestRunAgentMissingSymbol(t *testing.T) {
	h := newHarness(scriptedReply, config.SynthesisFatal)
	_, err := h.orch.RunAgent(context.Background(), prompts.AgentTechnical, "", "")
	if !errors.Is(err, apperr.BadRequest) {
		t.Fatalf("expected BadRequest, got %v", err)
	}
}

func TestRunAgentSynthesisUsesSuppliedContext(t *testing.T) {
	h := newHarness(scriptedReply, config.SynthesisFatal)

	_, err := h.orch.RunAgent(context.Background(), prompts.AgentSummary, "ACME", "")
	if !errors.Is(err, apperr.BadRequest) {
		t.Fatalf("expected BadRequest without context, got %v", err)
	}

	res, err := h.orch.RunAgent(context.Background(), prompts.AgentSummary, "acme", "STOCK: ACME\nCurrent Price: $1")
	if err != nil {
		t.Fatalf("RunAgent: %v", err)
	}
	if res.Symbol != "ACME" || res.OutputKey != "summary" {
		t.Errorf("unexpected result: %+v", res)
	}
	if h.src.validations.Load() != 0 || h.src.historyCalls.Load() != 0 {
		t.Error("synthesis agents should not fetch market data")
	}
}

func TestRunAgentTechnicalFetchesHistory(t *testing.T) {
	h := newHarness(scriptedReply, config.SynthesisFatal)
	res, err := h.orch.RunAgent(context.Background(), prompts.AgentTechnical, "ACME", "")
	if err != nil {
		t.Fatalf("RunAgent: %v", err)
	}
	if res.Structured["rsi"] != 58.4 {
		t.Errorf("structured: %v", res.Structured)
	}
	if h.src.historyCalls.Load() != 1 {
		t.Errorf("expected one history fetch, got %d", h.src.historyCalls.Load())
	}
}

func TestRunAgentUnknownSymbol(t *testing.T) {
	h := newHarness(scriptedReply, config.SynthesisFatal)
	_, err := h.orch.RunAgent(context.Background(), prompts.AgentFraudAnalysis, "NOPE", "")
	if !errors.Is(err, apperr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestRunAgentFraudAnalysisComputesIndicators(t *testing.T) {
	h := newHarness(scriptedReply, config.SynthesisFatal)
	res, err := h.orch.RunAgent(context.Background(), prompts.AgentFraudAnalysis, "ACME", "")
	if err != nil {
		t.Fatalf("RunAgent: %v", err)
	}
	if !strings.HasPrefix(res.Content, "Reply from: You are an expert securities fraud analyst") {
		t.Errorf("content: %q", res.Content)
	}
}
