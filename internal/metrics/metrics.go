// Package metrics holds the Prometheus instruments for the HTTP surface,
// agents, the LLM client and upstream scrapers. All Record* methods are
// safe on a nil *Metrics so collaborators can run uninstrumented in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stockanalyzer"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec

	AgentRunsTotal *prometheus.CounterVec
	AgentDuration  *prometheus.HistogramVec
	LLMTokensTotal *prometheus.CounterVec

	UpstreamRequestsTotal *prometheus.CounterVec
	UpstreamDuration      *prometheus.HistogramVec

	BreakerState *prometheus.GaugeVec
	BreakerTrips *prometheus.CounterVec
}

// defaultBuckets cover fast scrapes through multi-second LLM completions.
var defaultBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}

// New creates and registers all metrics on reg (the default registerer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests by route and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "route"},
		),
		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "orchestrator",
				Name:      "analyses_total",
				Help:      "Full analyses run, by outcome and error kind",
			},
			[]string{"outcome", "kind"},
		),
		AnalysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "orchestrator",
				Name:      "analysis_duration_seconds",
				Help:      "End-to-end duration of a full analysis",
				Buckets:   defaultBuckets,
			},
			[]string{"outcome"},
		),
		AgentRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "agent",
				Name:      "runs_total",
				Help:      "Agent invocations by agent and outcome",
			},
			[]string{"agent", "outcome"},
		),
		AgentDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "agent",
				Name:      "duration_seconds",
				Help:      "Agent run latency",
				Buckets:   defaultBuckets,
			},
			[]string{"agent"},
		),
		LLMTokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "tokens_total",
				Help:      "Tokens consumed per agent",
			},
			[]string{"agent"},
		),
		UpstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "requests_total",
				Help:      "Outbound scrape / LLM requests by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		UpstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "duration_seconds",
				Help:      "Outbound request latency by source",
				Buckets:   defaultBuckets,
			},
			[]string{"source"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "breaker",
				Name:      "state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		BreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "breaker",
				Name:      "trips_total",
				Help:      "Times a circuit breaker opened",
			},
			[]string{"name"},
		),
	}
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordAnalysis records one orchestrator run; kind is the error kind or "".
func (m *Metrics) RecordAnalysis(kind string, err error, d time.Duration) {
	if m == nil {
		return
	}
	o := outcome(err)
	m.AnalysesTotal.WithLabelValues(o, kind).Inc()
	m.AnalysisDuration.WithLabelValues(o).Observe(d.Seconds())
}

// RecordAgentRun records one agent invocation.
func (m *Metrics) RecordAgentRun(agent string, err error, d time.Duration, tokens int) {
	if m == nil {
		return
	}
	m.AgentRunsTotal.WithLabelValues(agent, outcome(err)).Inc()
	m.AgentDuration.WithLabelValues(agent).Observe(d.Seconds())
	if tokens > 0 {
		m.LLMTokensTotal.WithLabelValues(agent).Add(float64(tokens))
	}
}

// RecordUpstream records one outbound request.
func (m *Metrics) RecordUpstream(source string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequestsTotal.WithLabelValues(source, outcome(err)).Inc()
	m.UpstreamDuration.WithLabelValues(source).Observe(d.Seconds())
}

// SetBreakerState records a breaker transition.
func (m *Metrics) SetBreakerState(name string, state int, tripped bool) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
	if tripped {
		m.BreakerTrips.WithLabelValues(name).Inc()
	}
}
