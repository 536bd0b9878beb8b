package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stockanalyzer/internal/agent/prompts"
	"github.com/seenimoa/stockanalyzer/internal/analysis/technical"
	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/internal/config"
	"github.com/seenimoa/stockanalyzer/internal/datasource"
	"github.com/seenimoa/stockanalyzer/internal/fraud"
	"github.com/seenimoa/stockanalyzer/internal/logger"
	"github.com/seenimoa/stockanalyzer/internal/metrics"
	"github.com/seenimoa/stockanalyzer/pkg/models"
	"github.com/seenimoa/stockanalyzer/pkg/utils"
)

// dataAgents run in parallel once market data is in.
var dataAgents = []string{
	prompts.AgentTechnical, prompts.AgentFundamental, prompts.AgentFraudDetection, prompts.AgentCompanyName,
}

// Orchestrator runs the analysis pipeline:
//
//  1. validate the symbol, then resolve it upstream
//  2. fetch market data in parallel; fewer than fraud.MinBars bars is NotFound
//  3. technical, fundamental, fraud detection and company name in parallel
//  4. fraud analysis over the heuristic output
//  5. build the shared context, including the fraud assessment
//  6. the six synthesis agents in parallel
//  7. assemble the bundle
//
// Any failure in steps 1-4 aborts the run. Step 6 follows the synthesis
// failure policy.
type Orchestrator struct {
	agg      *datasource.Aggregator
	registry *Registry
	isolate  bool
	metrics  *metrics.Metrics
	log      *logger.Logger
}

// OrchestratorConfig holds configuration for creating an Orchestrator.
type OrchestratorConfig struct {
	Aggregator *datasource.Aggregator
	Registry   *Registry

	// SynthesisFailure is config.SynthesisFatal (default) or config.SynthesisIsolate.
	SynthesisFailure string

	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		agg:      cfg.Aggregator,
		registry: cfg.Registry,
		isolate:  cfg.SynthesisFailure == config.SynthesisIsolate,
		metrics:  cfg.Metrics,
		log:      logger.OrNop(cfg.Logger).Named("orchestrator"),
	}
}

// Registry returns the agents the orchestrator runs.
func (o *Orchestrator) Registry() *Registry { return o.registry }

// Source returns the fetchers behind the orchestrator.
func (o *Orchestrator) Source() datasource.Source { return o.agg.Source() }

// Resolve normalizes and validates symbol and finds its exchange.
func (o *Orchestrator) Resolve(ctx context.Context, symbol string) (string, models.Exchange, error) {
	const op = "orchestrator.Resolve"

	symbol = utils.NormalizeTicker(symbol)
	if symbol == "" {
		return "", "", apperr.E(apperr.KindBadRequest, op, "stock symbol is required", nil)
	}
	if !utils.IsValidSymbol(symbol) {
		return "", "", apperr.E(apperr.KindInvalidSymbol, op, fmt.Sprintf("%q is not a valid ticker symbol", symbol), nil)
	}
	exchange, err := o.agg.Source().ValidateSymbol(ctx, symbol)
	if err != nil {
		return "", "", err
	}
	return symbol, exchange, nil
}

// Analyze runs the full pipeline for symbol.
func (o *Orchestrator) Analyze(ctx context.Context, symbol string) (bundle *models.AnalysisBundle, err error) {
	start := time.Now()
	defer func() {
		o.metrics.RecordAnalysis(string(apperr.KindOf(err)), err, time.Since(start))
		if err != nil {
			o.log.Warnw("analysis failed", "symbol", symbol, "error", err, "duration", time.Since(start))
		}
	}()

	// Phase 1: symbol
	symbol, exchange, err := o.Resolve(ctx, symbol)
	if err != nil {
		return nil, err
	}
	log := o.log.With("symbol", symbol)

	// Phase 2: market data
	md, err := o.agg.Collect(ctx, symbol, exchange)
	if err != nil {
		return nil, err
	}
	if len(md.History) < fraud.MinBars {
		return nil, apperr.E(apperr.KindNotFound, "orchestrator.Analyze",
			fmt.Sprintf("only %d bars of price history for %s, need %d", len(md.History), symbol, fraud.MinBars), nil)
	}
	in := Input{
		Symbol:     symbol,
		Snapshot:   md.Snapshot,
		History:    md.History,
		Financials: md.Financials,
		Forecast:   md.Forecast,
		News:       md.News,
	}
	log.Infow("market data collected", "bars", len(md.History), "news", len(md.News), "degraded", len(md.Degraded))

	// Phase 3: data agents
	first := make([]*models.AgentResult, len(dataAgents))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range dataAgents {
		g.Go(func() error {
			r, err := o.run(gctx, name, in)
			first[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	techRes, fundRes, fraudRes, companyRes := first[0], first[1], first[2], first[3]

	// Phase 4: fraud analysis
	in.Fraud = FraudFrom(fraudRes)
	fraudAnalysis, err := o.run(ctx, prompts.AgentFraudAnalysis, in)
	if err != nil {
		return nil, err
	}

	// Phase 5: shared context
	in.Context = BuildContext(in, techRes.Structured, fundRes.Structured, fraudAnalysis.Content)

	// Phase 6: synthesis
	synth, failures, err := o.synthesize(ctx, in)
	if err != nil {
		return nil, err
	}

	// Phase 7: assemble
	bundle = models.NewAnalysisBundle(symbol)
	bundle.Exchange = exchange
	bundle.Snapshot = md.Snapshot
	bundle.History = md.History
	bundle.Financials = md.Financials
	bundle.Forecast = md.Forecast
	bundle.News = md.News
	bundle.NewsCount = len(md.News)
	bundle.Fraud = in.Fraud
	bundle.Company = CompanyFrom(companyRes)
	bundle.Reference = technical.Compute(md.History)

	for _, r := range append(first, fraudAnalysis) {
		bundle.Results[r.Agent] = r
	}
	for _, r := range synth {
		if r != nil {
			bundle.Results[r.Agent] = r
		}
	}
	if len(failures) > 0 {
		bundle.AgentErrors = failures
	}
	bundle.AgentsRun = len(bundle.Results)

	log.Infow("analysis complete", "agents", bundle.AgentsRun, "failed", len(failures), "duration", time.Since(start))
	return bundle, nil
}

// synthesize runs the six synthesis agents. Under the fatal policy the first
// failure cancels the rest and is returned; under isolate failures are
// collected by agent name.
func (o *Orchestrator) synthesize(ctx context.Context, in Input) ([]*models.AgentResult, map[string]string, error) {
	results := make([]*models.AgentResult, len(prompts.Synthesis))
	failures := make(map[string]string)
	var mu sync.Mutex

	var g *errgroup.Group
	gctx := ctx
	if o.isolate {
		g = new(errgroup.Group)
	} else {
		g, gctx = errgroup.WithContext(ctx)
	}

	for i, name := range prompts.Synthesis {
		g.Go(func() error {
			r, err := o.run(gctx, name, in)
			if err == nil {
				results[i] = r
				return nil
			}
			if !o.isolate {
				return err
			}
			mu.Lock()
			failures[name] = apperr.Message(err)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return results, failures, nil
}

// RunAgent runs one agent for a direct request. Synthesis agents read
// only context; the others fetch what they need for symbol first.
func (o *Orchestrator) RunAgent(ctx context.Context, name, symbol, analysisContext string) (*models.AgentResult, error) {
	const op = "orchestrator.RunAgent"

	a, ok := o.registry.Get(name)
	if !ok {
		return nil, apperr.E(apperr.KindNotFound, op, fmt.Sprintf("agent %q not found", name), nil)
	}
	symbol = utils.NormalizeTicker(symbol)
	if symbol == "" {
		return nil, apperr.E(apperr.KindBadRequest, op, "stock_symbol required", nil)
	}

	in := Input{Symbol: symbol, Context: analysisContext}
	switch {
	case a.Descriptor().NeedsContext, name == prompts.AgentCompanyName:
		// nothing to fetch
	case name == prompts.AgentTechnical, name == prompts.AgentFraudDetection:
		if _, _, err := o.Resolve(ctx, symbol); err != nil {
			return nil, err
		}
		h, err := o.agg.Source().FetchHistory(ctx, symbol, o.agg.HistoryDays())
		if err != nil {
			return nil, err
		}
		in.History = h
	default:
		sym, exchange, err := o.Resolve(ctx, symbol)
		if err != nil {
			return nil, err
		}
		md, err := o.agg.Collect(ctx, sym, exchange)
		if err != nil {
			return nil, err
		}
		in.Snapshot, in.History, in.Financials, in.Forecast, in.News = md.Snapshot, md.History, md.Financials, md.Forecast, md.News
	}
	return o.run(ctx, name, in)
}

// run executes one registered agent and records its outcome.
func (o *Orchestrator) run(ctx context.Context, name string, in Input) (*models.AgentResult, error) {
	a, ok := o.registry.Get(name)
	if !ok {
		return nil, apperr.E(apperr.KindInternal, "orchestrator.run", fmt.Sprintf("agent %q is not registered", name), nil)
	}

	start := time.Now()
	r, err := a.Run(ctx, in)
	tokens := 0
	if r != nil {
		tokens = r.Tokens
	}
	o.metrics.RecordAgentRun(name, err, time.Since(start), tokens)
	if err != nil {
		o.log.Warnw("agent failed", "agent", name, "symbol", in.Symbol, "error", err)
		return nil, err
	}
	o.log.Debugw("agent finished", "agent", name, "symbol", in.Symbol, "tokens", tokens, "duration", r.Duration)
	return r, nil
}
