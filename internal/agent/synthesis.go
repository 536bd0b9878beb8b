package agent

import (
	"github.com/seenimoa/stockanalyzer/internal/agent/prompts"
)

// summaryContextLimit caps the context the summary agent reads.
const summaryContextLimit = 2000

// synthesisSpecs describe the agents that read only the shared context.
var synthesisSpecs = []Spec{
	{
		ID:           6,
		Name:         prompts.AgentSummary,
		DisplayName:  "Summary Agent",
		Description:  "Two to three sentence summary of the stock's status",
		OutputKey:    "summary",
		SystemPrompt: prompts.SummarySystemPrompt,
		UserPrefix:   prompts.SummaryUserPrefix,
		ContextLimit: summaryContextLimit,
		MaxTokens:    200,
	},
	{
		ID:           7,
		Name:         prompts.AgentExecutive,
		DisplayName:  "Executive Summary Agent",
		Description:  "Investor-facing executive summary (8-12 sentences)",
		OutputKey:    "executive_summary",
		SystemPrompt: prompts.ExecutiveSystemPrompt,
		UserPrefix:   prompts.ExecutiveUserPrefix,
		MaxTokens:    800,
	},
	{
		ID:           8,
		Name:         prompts.AgentDetailed,
		DisplayName:  "Detailed Analysis Agent",
		Description:  "Performance, news impact, fundamentals and risk-reward narrative",
		OutputKey:    "detailed_analysis",
		SystemPrompt: prompts.DetailedSystemPrompt,
		UserPrefix:   prompts.DetailedUserPrefix,
		MaxTokens:    1500,
	},
	{
		ID:           9,
		Name:         prompts.AgentRecommendation,
		DisplayName:  "Investment Recommendation Agent",
		Description:  "BUY/SELL/HOLD for one week, six months and two years",
		OutputKey:    "recommendations",
		SystemPrompt: prompts.RecommendationSystemPrompt,
		UserPrefix:   prompts.RecommendationUserPrefix,
		MaxTokens:    2000,
	},
	{
		ID:           10,
		Name:         prompts.AgentAnalyst,
		DisplayName:  "Analyst Synthesis Agent",
		Description:  "Analyst consensus, price targets and earnings outlook",
		OutputKey:    "analyst_synthesis",
		SystemPrompt: prompts.AnalystSystemPrompt,
		UserPrefix:   prompts.AnalystUserPrefix,
		MaxTokens:    1500,
	},
	{
		ID:           11,
		Name:         prompts.AgentMeta,
		DisplayName:  "Meta-Analysis Agent",
		Description:  "Cross-validates all signals and rates overall confidence",
		OutputKey:    "meta_analysis",
		SystemPrompt: prompts.MetaSystemPrompt,
		UserPrefix:   prompts.MetaUserPrefix,
		MaxTokens:    2000,
	},
}

// NewSynthesisAgents creates the six context-driven agents in report order.
func NewSynthesisAgents(c Completer) []*PromptAgent {
	out := make([]*PromptAgent, len(synthesisSpecs))
	for i, s := range synthesisSpecs {
		out[i] = NewPromptAgent(s, c)
	}
	return out
}

// NewDefaultRegistry registers all eleven agents against c.
func NewDefaultRegistry(c Completer) *Registry {
	r := NewRegistry()
	r.Register(NewTechnicalAgent(c))
	r.Register(NewFundamentalAgent(c))
	r.Register(NewCompanyAgent(c))
	r.Register(NewFraudDetectionAgent())
	r.Register(NewFraudAnalysisAgent(c))
	for _, a := range NewSynthesisAgents(c) {
		r.Register(a)
	}
	return r
}
