package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stockanalyzer/internal/agent"
	"github.com/seenimoa/stockanalyzer/internal/agent/prompts"
	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/internal/report"
	"github.com/seenimoa/stockanalyzer/pkg/models"
	"github.com/seenimoa/stockanalyzer/pkg/utils"
)

// Response trimming for /api/analyze.
const (
	responseHistoryBars = 10
	responseNewsChars   = 500
	quickSummaryBars    = 7
)

// ============================================================
// Request / Response types
// ============================================================

// AnalyzeRequest is the body for POST /api/analyze.
type AnalyzeRequest struct {
	Symbol     string `json:"symbol"`
	IncludePDF bool   `json:"include_pdf,omitempty"`
}

// AgentRequest is the body for POST /api/agents/{name} and
// POST /api/orchestrator/full-analysis.
type AgentRequest struct {
	StockSymbol string `json:"stock_symbol"`
	Context     string `json:"context,omitempty"`
}

// PDFRequest is the body for POST /api/pdf/generate. AnalysisResults is a
// previously returned bundle; when absent the full analysis runs first.
type PDFRequest struct {
	StockSymbol     string                 `json:"stock_symbol"`
	AnalysisResults *models.AnalysisBundle `json:"analysis_results,omitempty"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status          string    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
	Service         string    `json:"service"`
	AgentsAvailable int       `json:"agents_available"`
	Version         string    `json:"version"`

	// Upstreams maps each breaker that has seen traffic to its state.
	Upstreams map[string]string `json:"upstreams,omitempty"`
}

// QuickSummary is returned by GET /api/quick-summary/{symbol}.
type QuickSummary struct {
	Symbol       string                `json:"symbol"`
	Exchange     models.Exchange       `json:"exchange"`
	Timestamp    time.Time             `json:"timestamp"`
	CurrentPrice string                `json:"current_price"`
	MarketCap    string                `json:"market_cap"`
	PERatio      string                `json:"pe_ratio"`
	StockData    *models.StockSnapshot `json:"stock_data"`
	RecentPrices models.History        `json:"recent_prices"`
}

// Endpoint names a non-agent route in the agent listing.
type Endpoint struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
}

// AgentList is returned by GET /api/agents/list.
type AgentList struct {
	Agents       []models.AgentDescriptor `json:"agents"`
	Orchestrator Endpoint                 `json:"orchestrator"`
	PDF          Endpoint                 `json:"pdf"`
}

// ErrorResponse is the body of every failed request. Message and Examples
// are set only for symbols that could not be resolved.
type ErrorResponse struct {
	Error    string   `json:"error"`
	Message  string   `json:"message,omitempty"`
	Examples []string `json:"examples,omitempty"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:          "healthy",
		Timestamp:       time.Now(),
		Service:         ServiceName,
		AgentsAvailable: s.orch.Registry().Count(),
		Version:         Version,
	}
	if s.upstreams != nil {
		resp.Upstreams = s.upstreams()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuickSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := chi.URLParam(r, "symbol")

	symbol, exchange, err := s.orch.Resolve(ctx, raw)
	if err != nil {
		s.writeSymbolError(w, raw, err)
		return
	}

	src := s.orch.Source()
	var (
		snap *models.StockSnapshot
		hist models.History
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap, err = src.FetchSnapshot(gctx, symbol, exchange)
		return err
	})
	g.Go(func() error {
		var err error
		hist, err = src.FetchHistory(gctx, symbol, quickSummaryBars)
		return err
	})
	if err := g.Wait(); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, QuickSummary{
		Symbol:       symbol,
		Exchange:     exchange,
		Timestamp:    time.Now(),
		CurrentPrice: snap.DisplayPrice(),
		MarketCap:    snap.MarketCap,
		PERatio:      snap.PERatio,
		StockData:    snap,
		RecentPrices: hist.Head(quickSummaryBars),
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Stock symbol is required"})
		return
	}

	bundle, err := s.orch.Analyze(r.Context(), req.Symbol)
	if err != nil {
		s.writeSymbolError(w, req.Symbol, err)
		return
	}

	if req.IncludePDF {
		if _, err := report.RenderPDF(bundle, s.reportOptions(r, bundle)); err != nil {
			s.log.Warnw("pdf render failed", "symbol", bundle.Symbol, "error", err)
		} else {
			bundle.PDFAvailable = true
			bundle.PDFEndpoint = fmt.Sprintf("/api/analyze/%s/pdf", bundle.Symbol)
		}
	}
	writeJSON(w, http.StatusOK, trimForResponse(bundle))
}

func (s *Server) handleAnalyzePDF(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "symbol")
	bundle, err := s.orch.Analyze(r.Context(), raw)
	if err != nil {
		s.writeSymbolError(w, raw, err)
		return
	}
	s.writePDF(w, r, bundle)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AgentList{
		Agents:       s.orch.Registry().Descriptors(),
		Orchestrator: Endpoint{Name: "Multi-Agent Orchestrator", Endpoint: "/api/orchestrator/full-analysis"},
		PDF:          Endpoint{Name: "PDF Report Generator", Endpoint: "/api/pdf/generate"},
	})
}

// handleRunAgent answers in the per-agent shape: the agent's display name,
// the symbol and the output under the agent's own key.
func (s *Server) handleRunAgent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	a, ok := s.orch.Registry().Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("agent %q not found", name)})
		return
	}

	var req AgentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.StockSymbol) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "stock_symbol required"})
		return
	}
	if a.Descriptor().NeedsContext && strings.TrimSpace(req.Context) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "stock_symbol and context required"})
		return
	}

	res, err := s.orch.RunAgent(r.Context(), name, req.StockSymbol, req.Context)
	if err != nil {
		s.writeSymbolError(w, req.StockSymbol, err)
		return
	}
	writeJSON(w, http.StatusOK, agentResponse(res))
}

func (s *Server) handleFullAnalysis(w http.ResponseWriter, r *http.Request) {
	var req AgentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.StockSymbol) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "stock_symbol required"})
		return
	}

	bundle, err := s.orch.Analyze(r.Context(), req.StockSymbol)
	if err != nil {
		s.writeSymbolError(w, req.StockSymbol, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req PDFRequest
	if !decodeBody(w, r, &req) {
		return
	}
	symbol := utils.NormalizeTicker(req.StockSymbol)
	if symbol == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "stock_symbol required"})
		return
	}

	bundle := req.AnalysisResults
	if bundle == nil || len(bundle.Results) == 0 {
		b, err := s.orch.Analyze(ctx, symbol)
		if err != nil {
			s.log.Warnw("analysis for pdf failed", "symbol", symbol, "error", err)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch analysis data"})
			return
		}
		bundle = b
	}
	if bundle.Symbol == "" {
		bundle.Symbol = symbol
	}

	if bundle.Company == nil {
		bundle.Company = agent.CompanyFrom(bundle.Result(prompts.AgentCompanyName))
	}
	if bundle.Company == nil {
		res, err := s.orch.RunAgent(ctx, prompts.AgentCompanyName, bundle.Symbol, "")
		if err != nil {
			s.log.Infow("company lookup failed, using built-in table", "symbol", bundle.Symbol, "error", err)
			bundle.Company = agent.StaticCompanyInfo(bundle.Symbol)
		} else {
			bundle.Company = agent.CompanyFrom(res)
		}
	}
	s.writePDF(w, r, bundle)
}

// ============================================================
// Helpers
// ============================================================

func (s *Server) reportOptions(r *http.Request, b *models.AnalysisBundle) report.Options {
	opts := report.OptionsFrom(s.cfg.Report)
	if s.cfg.Report.FetchLogos {
		opts.Logo = report.FetchLogo(r.Context(), s.orch.Source(), b.Company, s.log)
	}
	return opts
}

func (s *Server) writePDF(w http.ResponseWriter, r *http.Request, b *models.AnalysisBundle) {
	opts := s.reportOptions(r, b)
	pdf, err := report.RenderPDF(b, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(b.Symbol, time.Now())))
	w.Header().Set("Content-Length", fmt.Sprint(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := bytes.NewReader(pdf).WriteTo(w); err != nil {
		s.log.Warnw("failed to write pdf response", "symbol", b.Symbol, "error", err)
	}
}

// trimForResponse returns a shallow copy of b with the history cut to the
// most recent bars and article bodies shortened.
func trimForResponse(b *models.AnalysisBundle) *models.AnalysisBundle {
	out := *b
	out.History = b.History.Head(responseHistoryBars)
	if len(b.News) > 0 {
		out.News = make([]models.NewsItem, len(b.News))
		for i, n := range b.News {
			out.News[i] = n.Truncated(responseNewsChars)
		}
	}
	return &out
}

func agentResponse(res *models.AgentResult) map[string]any {
	var output any = res.Content
	if res.Structured != nil {
		output = res.Structured
	}
	key := res.OutputKey
	if key == "" {
		key = "content"
	}
	return map[string]any{
		"agent":        res.DisplayName,
		"stock_symbol": res.Symbol,
		key:            output,
	}
}

// decodeBody reads a JSON request body into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Errorw("request error", "kind", apperr.KindOf(err), "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: apperr.Message(err)})
}

// writeSymbolError is writeError with the extra guidance returned for
// symbols no exchange recognised.
func (s *Server) writeSymbolError(w http.ResponseWriter, symbol string, err error) {
	if apperr.KindOf(err) != apperr.KindNotFound {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:    "Invalid stock symbol: " + utils.NormalizeTicker(symbol),
		Message:  "Please provide a valid NASDAQ or NYSE stock symbol",
		Examples: utils.ExampleSymbols,
	})
}
