package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/seenimoa/stockanalyzer/internal/agent/prompts"
	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/internal/fraud"
	"github.com/seenimoa/stockanalyzer/internal/llm"
	"github.com/seenimoa/stockanalyzer/pkg/models"
)

// ── Fraud Detection (deterministic) ──

// FraudDetectionAgent runs the volume-spike / abnormal-return heuristic.
// It makes no model call.
type FraudDetectionAgent struct{}

// NewFraudDetectionAgent creates the heuristic agent.
func NewFraudDetectionAgent() *FraudDetectionAgent { return &FraudDetectionAgent{} }

func (a *FraudDetectionAgent) Name() string { return prompts.AgentFraudDetection }

func (a *FraudDetectionAgent) Descriptor() models.AgentDescriptor {
	return models.AgentDescriptor{
		ID:          4,
		Name:        "Fraud Detection Agent",
		Slug:        prompts.AgentFraudDetection,
		Endpoint:    Endpoint(prompts.AgentFraudDetection),
		Description: "Computes volume spike ratios, abnormal returns and red flags",
	}
}

// Run returns the indicators both as Structured JSON and as
// *models.FraudIndicators in Data.
func (a *FraudDetectionAgent) Run(ctx context.Context, in Input) (*models.AgentResult, error) {
	const op = "agent.fraud-detection"
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ind, err := fraud.Analyze(in.History)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(ind)
	if err != nil {
		return nil, apperr.E(apperr.KindInternal, op, "encode indicators", err)
	}
	var structured map[string]any
	if err := json.Unmarshal(raw, &structured); err != nil {
		return nil, apperr.E(apperr.KindInternal, op, "decode indicators", err)
	}

	return &models.AgentResult{
		Agent:       prompts.AgentFraudDetection,
		DisplayName: "Fraud Detection Agent",
		Symbol:      in.Symbol,
		OutputKey:   "fraud_indicators",
		Content:     fraud.Brief(ind),
		Structured:  structured,
		Duration:    time.Since(start),
		Data:        ind,
	}, nil
}

// FraudFrom returns the indicators carried by a fraud-detection result, or nil.
func FraudFrom(r *models.AgentResult) *models.FraudIndicators {
	if r == nil {
		return nil
	}
	ind, _ := r.Data.(*models.FraudIndicators)
	return ind
}

// ── Fraud Analysis (LLM) ──

// NewFraudAnalysisAgent creates the forensic review agent. It reads
// Input.Fraud, computing it from the history when absent.
func NewFraudAnalysisAgent(c Completer) *PromptAgent {
	return NewPromptAgent(Spec{
		ID:           5,
		Name:         prompts.AgentFraudAnalysis,
		DisplayName:  "Fraud Analysis Agent",
		Description:  "LLM forensic assessment of the fraud indicators",
		OutputKey:    "fraud_risk_assessment",
		SystemPrompt: prompts.FraudAnalystSystemPrompt,
		User:         fraudReview,
		MaxTokens:    2000,
		Temperature:  llm.Temperature(0.3),
	}, c)
}

func fraudReview(in Input) (string, error) {
	ind := in.Fraud
	if ind == nil {
		var err error
		if ind, err = fraud.Analyze(in.History); err != nil {
			return "", err
		}
	}
	return prompts.FraudAnalysis(fraud.Summary(in.Symbol, in.Snapshot, ind, in.News)), nil
}
