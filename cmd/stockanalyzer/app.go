package main

import (
	"fmt"

	"github.com/seenimoa/stockanalyzer/internal/agent"
	"github.com/seenimoa/stockanalyzer/internal/datasource"
	"github.com/seenimoa/stockanalyzer/internal/llm"
	"github.com/seenimoa/stockanalyzer/internal/metrics"
)

// app is the wired analysis stack shared by serve, analyze and agent.
type app struct {
	src  *datasource.Client
	llm  *llm.Client
	orch *agent.Orchestrator
}

// newApp builds the scrapers, the LLM client and the orchestrator from the
// loaded config. m may be nil.
func newApp(m *metrics.Metrics) (*app, error) {
	src := datasource.New(cfg.DataSource,
		datasource.WithLogger(log),
		datasource.WithMetrics(m),
	)

	client, err := llm.NewClientFromConfig(cfg.LLM, log, m)
	if err != nil {
		return nil, fmt.Errorf("LLM setup failed: %w", err)
	}

	agg := datasource.NewAggregator(src, cfg.DataSource.HistoryDays, cfg.DataSource.MaxNews, cfg.Analysis.ConcurrentFetches, log)
	orch := agent.NewOrchestrator(agent.OrchestratorConfig{
		Aggregator:       agg,
		Registry:         agent.NewDefaultRegistry(client),
		SynthesisFailure: cfg.Analysis.SynthesisFailure,
		Metrics:          m,
		Logger:           log,
	})
	return &app{src: src, llm: client, orch: orch}, nil
}
