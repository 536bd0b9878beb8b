package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/stockanalyzer/internal/agent"
	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/internal/config"
	"github.com/seenimoa/stockanalyzer/internal/datasource"
	"github.com/seenimoa/stockanalyzer/internal/llm"
	"github.com/seenimoa/stockanalyzer/internal/metrics"
	"github.com/seenimoa/stockanalyzer/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

// stubSource resolves only ACME and serves fixed market data.
type stubSource struct{}

func (stubSource) ValidateSymbol(_ context.Context, sym string) (models.Exchange, error) {
	if sym != "ACME" {
		return "", apperr.E(apperr.KindNotFound, "stub", "stock symbol "+sym+" not found", nil)
	}
	return models.ExchangeNYSE, nil
}

func (stubSource) FetchSnapshot(_ context.Context, sym string, ex models.Exchange) (*models.StockSnapshot, error) {
	return &models.StockSnapshot{Symbol: sym, Exchange: ex, PriceText: "$103.40", MarketCap: "1.2T USD", PERatio: "28.50"}, nil
}

func (stubSource) FetchHistory(_ context.Context, _ string, days int) (models.History, error) {
	h := make(models.History, 30)
	for i := range h {
		c := 100 + float64(30-i)*0.1
		h[i] = models.HistoricalBar{Date: fmt.Sprintf("Oct %d, 2025", 30-i), Open: c - 0.2, High: c + 1, Low: c - 1, Close: c, Volume: 1_000_000}
	}
	return h.Head(days), nil
}

func (stubSource) FetchFinancials(context.Context, string) (*models.FinancialProfile, error) {
	return &models.FinancialProfile{Ratios: map[string]string{"PE Ratio": "28.50"}}, nil
}

func (stubSource) FetchForecast(context.Context, string) (*models.ForecastSummary, error) {
	return &models.ForecastSummary{AnalystCount: 12, Consensus: "Buy"}, nil
}

func (stubSource) FetchNews(context.Context, string, int) ([]models.NewsItem, error) {
	return []models.NewsItem{
		{Title: "Acme unveils a new product line at its annual event", Source: "reuters.com", Body: strings.Repeat("y", 900)},
	}, nil
}

func (stubSource) FetchLogo(context.Context, string) ([]byte, error) { return nil, nil }

// modelReply answers each prompt the way a well-behaved model would.
func modelReply(messages []llm.Message, _ *llm.ChatOptions) (string, error) {
	system := messages[0].Content
	user := messages[len(messages)-1].Content
	switch {
	case strings.HasSuffix(user, "Company name:"):
		return "Acme Corporation", nil
	case strings.HasSuffix(user, "Domain:"):
		return "acme.com", nil
	case strings.HasPrefix(system, "You are a technical analysis expert"):
		return `{"sma_20": 101.2, "rsi": 58.4, "rsi_signal": "Neutral"}`, nil
	case strings.HasPrefix(system, "You are a financial analyst. Calculate"):
		return `{"pe_ratio": 28.5, "quality_score": "Average"}`, nil
	}
	first, _, _ := strings.Cut(system, ".")
	return "- Reply from: " + first, nil
}

type testEnv struct {
	srv  *Server
	mock *llm.MockProvider
	reg  *prometheus.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mock := &llm.MockProvider{Reply: modelReply}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	cfg := config.Default()
	orch := agent.NewOrchestrator(agent.OrchestratorConfig{
		Aggregator: datasource.NewAggregator(stubSource{}, 30, 10, 5, nil),
		Registry:   agent.NewDefaultRegistry(llm.NewClient(mock)),
		Metrics:    m,
	})
	return &testEnv{
		srv:  NewServer(cfg, orch, WithMetrics(m, reg)),
		mock: mock,
		reg:  reg,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

// ════════════════════════════════════════════════════════════════════
// Health / Listing
// ════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, ServiceName, resp.Service)
	assert.Equal(t, 11, resp.AgentsAvailable)
	assert.Equal(t, "2.0", resp.Version)
	assert.False(t, resp.Timestamp.IsZero())
	assert.Empty(t, e.mock.Calls(), "health must not call the model")
}

func TestHealthUpstreams(t *testing.T) {
	e := newTestEnv(t)
	e.srv = NewServer(config.Default(), e.srv.orch, WithUpstreams(func() map[string]string {
		return map[string]string{"google-finance": "open", "llm": "closed"}
	}))
	rec := e.do(t, http.MethodGet, "/api/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "open", resp.Upstreams["google-finance"])
}

func TestListAgents(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/agents/list", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[AgentList](t, rec)
	require.Len(t, resp.Agents, 11)
	for i, a := range resp.Agents {
		assert.Equal(t, i+1, a.ID)
		assert.Equal(t, "/api/agents/"+a.Slug, a.Endpoint)
	}
	assert.Equal(t, "/api/orchestrator/full-analysis", resp.Orchestrator.Endpoint)
	assert.Equal(t, "/api/pdf/generate", resp.PDF.Endpoint)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodGet, "/api/health", nil)

	rec := e.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "stockanalyzer_http_requests_total")
	assert.Contains(t, body, `route="/api/health"`)
	assert.Contains(t, body, `status="200"`)
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

// ════════════════════════════════════════════════════════════════════
// Analyze
// ════════════════════════════════════════════════════════════════════

func TestAnalyzeMissingSymbol(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/analyze", "{}")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Stock symbol is required", decode[ErrorResponse](t, rec).Error)
	assert.Empty(t, e.mock.Calls())
}

func TestAnalyzeInvalidBody(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/analyze", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeMalformedSymbol(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/analyze", AnalyzeRequest{Symbol: "123"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
}

func TestAnalyzeUnknownSymbol(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/analyze", AnalyzeRequest{Symbol: "INVALID123"})

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "Invalid stock symbol: INVALID123", resp.Error)
	assert.NotEmpty(t, resp.Message)
	assert.Equal(t, []string{"NVDA", "AAPL", "MSFT", "TSLA", "GOOGL"}, resp.Examples)
	assert.Empty(t, e.mock.Calls(), "no agent may run for an unknown symbol")
}

func TestAnalyzeTrimsResponse(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/analyze", AnalyzeRequest{Symbol: "acme"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	b := decode[models.AnalysisBundle](t, rec)
	assert.Equal(t, "ACME", b.Symbol)
	assert.Equal(t, models.ExchangeNYSE, b.Exchange)
	assert.Len(t, b.History, 10)
	assert.Equal(t, "Oct 30, 2025", b.History[0].Date)
	require.Len(t, b.News, 1)
	assert.Len(t, b.News[0].Body, 500)
	assert.Len(t, b.Results, 11)
	assert.False(t, b.PDFAvailable)
	assert.Empty(t, b.PDFEndpoint)
}

func TestAnalyzeIncludePDF(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/analyze", AnalyzeRequest{Symbol: "ACME", IncludePDF: true})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	b := decode[models.AnalysisBundle](t, rec)
	assert.True(t, b.PDFAvailable)
	assert.Equal(t, "/api/analyze/ACME/pdf", b.PDFEndpoint)
}

func TestAnalyzePDF(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/analyze/acme/pdf", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="stock_analysis_ACME_`)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestAnalyzePDFUnknownSymbol(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/analyze/NOPE/pdf", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuickSummary(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/quick-summary/acme", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[QuickSummary](t, rec)
	assert.Equal(t, "ACME", resp.Symbol)
	assert.Equal(t, "$103.40", resp.CurrentPrice)
	assert.Equal(t, "1.2T USD", resp.MarketCap)
	assert.Len(t, resp.RecentPrices, 7)
	assert.Empty(t, e.mock.Calls())
}

func TestQuickSummaryErrors(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/quick-summary/NOPE", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/quick-summary/1ABC", nil).Code)
}

// ════════════════════════════════════════════════════════════════════
// Agents
// ════════════════════════════════════════════════════════════════════

func TestRunAgentUnknown(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/agents/astrology", AgentRequest{StockSymbol: "ACME"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunAgentMissingSymbol(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/agents/technical-analysis", "{}")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "stock_symbol required", decode[ErrorResponse](t, rec).Error)
}

func TestRunAgentSynthesisNeedsContext(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/agents/summary", AgentRequest{StockSymbol: "ACME"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "stock_symbol and context required", decode[ErrorResponse](t, rec).Error)
	assert.Empty(t, e.mock.Calls())
}

func TestRunAgentSynthesis(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/agents/summary", AgentRequest{StockSymbol: "ACME", Context: "Stock: ACME\nPrice: $103.40"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, "Summary Agent", resp["agent"])
	assert.Equal(t, "ACME", resp["stock_symbol"])
	assert.Contains(t, resp["summary"], "Reply from:")

	calls := e.mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Messages[1].Content, "Price: $103.40")
}

func TestRunAgentTechnical(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/agents/technical-analysis", AgentRequest{StockSymbol: "acme"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[map[string]any](t, rec)
	indicators, ok := resp["indicators"].(map[string]any)
	require.True(t, ok, "indicators should be an object: %v", resp)
	assert.Equal(t, 58.4, indicators["rsi"])
}

func TestRunAgentUnknownSymbol(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/agents/fundamental-analysis", AgentRequest{StockSymbol: "NOPE"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, e.mock.Calls())
}

func TestRunAgentModelFailure(t *testing.T) {
	e := newTestEnv(t)
	e.mock.Reply = func([]llm.Message, *llm.ChatOptions) (string, error) {
		return "", fmt.Errorf("upstream 503")
	}
	rec := e.do(t, http.MethodPost, "/api/agents/meta-analysis", AgentRequest{StockSymbol: "ACME", Context: "ctx"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFullAnalysis(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/orchestrator/full-analysis", AgentRequest{StockSymbol: "ACME"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	b := decode[models.AnalysisBundle](t, rec)
	assert.Len(t, b.Results, 11)
	assert.Len(t, b.History, 30)
	require.NotNil(t, b.Company)
	assert.Equal(t, "acme.com", b.Company.Domain)
	require.NotNil(t, b.Fraud)
}

func TestFullAnalysisMissingSymbol(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/orchestrator/full-analysis", "{}").Code)
}

// ════════════════════════════════════════════════════════════════════
// PDF Generation
// ════════════════════════════════════════════════════════════════════

func TestGeneratePDFMissingSymbol(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/pdf/generate", "{}").Code)
}

func TestGeneratePDFRunsAnalysis(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/pdf/generate", PDFRequest{StockSymbol: "acme"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
	assert.Len(t, e.mock.Calls(), 11, "technical, fundamental, company-name twice, fraud analysis, 6 synthesis")
}

func TestGeneratePDFWithSuppliedResults(t *testing.T) {
	e := newTestEnv(t)
	bundle := models.NewAnalysisBundle("ACME")
	bundle.Results["summary"] = &models.AgentResult{Agent: "summary", Content: "Acme looks steady."}

	rec := e.do(t, http.MethodPost, "/api/pdf/generate", PDFRequest{StockSymbol: "ACME", AnalysisResults: bundle})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
	// Only the company-name agent runs (name and domain prompts).
	assert.Len(t, e.mock.Calls(), 2)
}

func TestGeneratePDFStaticCompanyFallback(t *testing.T) {
	e := newTestEnv(t)
	e.mock.Reply = func([]llm.Message, *llm.ChatOptions) (string, error) {
		return "", fmt.Errorf("model offline")
	}
	bundle := models.NewAnalysisBundle("ACME")
	bundle.Results["summary"] = &models.AgentResult{Agent: "summary", Content: "Acme looks steady."}

	rec := e.do(t, http.MethodPost, "/api/pdf/generate", PDFRequest{StockSymbol: "ACME", AnalysisResults: bundle})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestGeneratePDFAnalysisFailure(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/pdf/generate", PDFRequest{StockSymbol: "NOPE"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch analysis data", decode[ErrorResponse](t, rec).Error)
}
