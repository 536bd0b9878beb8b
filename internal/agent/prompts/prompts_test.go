package prompts

import (
	"strings"
	"testing"
)

// ── Agent Name Constants ──

func TestAgentNameConstants(t *testing.T) {
	names := []string{
		AgentTechnical, AgentFundamental, AgentCompanyName, AgentFraudDetection, AgentFraudAnalysis,
		AgentSummary, AgentExecutive, AgentDetailed, AgentRecommendation, AgentAnalyst, AgentMeta,
	}
	seen := make(map[string]bool)
	for _, name := range names {
		if name == "" || strings.ContainsAny(name, " _/") {
			t.Errorf("agent name %q should be a non-empty kebab-case path segment", name)
		}
		if seen[name] {
			t.Errorf("duplicate agent name %q", name)
		}
		seen[name] = true
	}
	if len(seen) != 11 {
		t.Errorf("expected 11 agents, got %d", len(seen))
	}
}

func TestSynthesisOrder(t *testing.T) {
	want := []string{"summary", "executive-summary", "detailed-analysis", "investment-recommendation", "analyst-synthesis", "meta-analysis"}
	if len(Synthesis) != len(want) {
		t.Fatalf("Synthesis: got %d agents, want %d", len(Synthesis), len(want))
	}
	for i := range want {
		if Synthesis[i] != want[i] {
			t.Errorf("Synthesis[%d]: got %q, want %q", i, Synthesis[i], want[i])
		}
	}
}

// ── System Prompts ──

func TestTechnicalSystemPromptEmbedsPrice(t *testing.T) {
	p := TechnicalSystemPrompt("189.5")
	if !strings.Contains(p, "Current Price: 189.5\n") {
		t.Error("price line missing")
	}
	if !strings.Contains(p, `"current_price": 189.5`) {
		t.Error("price missing from JSON template")
	}
	if strings.Contains(p, "%!") || strings.Contains(p, "%[") {
		t.Error("unexpanded format verb")
	}
	for _, key := range []string{`"sma_20"`, `"golden_cross"`, `"rsi_signal"`, `"macd_line"`, `"bollinger_bands"`} {
		if !strings.Contains(p, key) {
			t.Errorf("technical prompt missing %s", key)
		}
	}
}

func TestFundamentalSystemPromptKeys(t *testing.T) {
	for _, key := range []string{
		"pe_ratio", "eps_current", "eps_next_year", "revenue_growth_percent", "roe_percent",
		"debt_to_equity", "price_to_book", "dividend_yield_percent", "free_cash_flow",
		"operating_margin_percent", "current_ratio", "quality_score", "valuation_assessment",
	} {
		if !strings.Contains(FundamentalSystemPrompt, `"`+key+`"`) {
			t.Errorf("fundamental prompt missing %q", key)
		}
	}
	if !strings.Contains(FundamentalSystemPrompt, "QUALITY SCORE:") || !strings.Contains(FundamentalSystemPrompt, "VALUATION ASSESSMENT:") {
		t.Error("fundamental prompt missing scoring rules")
	}
}

func TestSynthesisPromptsContainKeywords(t *testing.T) {
	tests := []struct {
		name     string
		prompt   string
		keywords []string
	}{
		{"summary", SummarySystemPrompt, []string{"2-3 sentences", "market cap"}},
		{"executive", ExecutiveSystemPrompt, []string{"8-12 sentences", "Risk factors"}},
		{"detailed", DetailedSystemPrompt, []string{"NEWS IMPACT ASSESSMENT", "RISK-REWARD ANALYSIS"}},
		{"recommendation", RecommendationSystemPrompt, []string{"ONE WEEK", "SIX MONTHS", "TWO YEARS"}},
		{"analyst", AnalystSystemPrompt, []string{"ANALYST CONSENSUS OVERVIEW", "PRICE TARGET ANALYSIS"}},
		{"meta", MetaSystemPrompt, []string{"META-ANALYSIS", "KEY INSIGHTS SUMMARY"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, kw := range tt.keywords {
				if !strings.Contains(tt.prompt, kw) {
					t.Errorf("%s prompt missing %q", tt.name, kw)
				}
			}
		})
	}
}

func TestUserPrefixesEndWithBlankLine(t *testing.T) {
	for _, p := range []string{
		SummaryUserPrefix, ExecutiveUserPrefix, DetailedUserPrefix,
		RecommendationUserPrefix, AnalystUserPrefix, MetaUserPrefix,
	} {
		if !strings.HasSuffix(p, ":\n\n") {
			t.Errorf("prefix %q should end with a colon and a blank line", p)
		}
	}
}

// ── Task Prompts ──

func TestCompanyNameContainsSymbol(t *testing.T) {
	p := CompanyName("NVDA")
	if !strings.Contains(p, "'NVDA'") {
		t.Error("symbol missing")
	}
	if !strings.HasSuffix(p, "Company name:") {
		t.Error("prompt should end with the answer cue")
	}
}

func TestDomainContainsName(t *testing.T) {
	p := Domain("NVIDIA Corporation")
	if !strings.Contains(p, `"NVIDIA Corporation"`) {
		t.Error("company name missing")
	}
	if !strings.HasSuffix(p, "Domain:") {
		t.Error("prompt should end with the answer cue")
	}
}

func TestFraudAnalysisEmbedsSummary(t *testing.T) {
	p := FraudAnalysis("FRAUD DETECTION ANALYSIS FOR ACME:")
	if !strings.Contains(p, "\n\nFRAUD DETECTION ANALYSIS FOR ACME:\n\nFRAUD DETECTION METRICS REFERENCE:") {
		t.Error("summary should sit between the preamble and the metrics reference")
	}
	for _, kw := range []string{"LOW / MODERATE / HIGH / CRITICAL", "Rule 10b-5", "6. RECOMMENDATIONS:"} {
		if !strings.Contains(p, kw) {
			t.Errorf("fraud prompt missing %q", kw)
		}
	}
}
