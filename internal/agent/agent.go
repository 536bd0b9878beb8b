// Package agent implements the prompt agents of the stock analyzer and the
// orchestrator that runs them as a phased pipeline. Every agent is a single
// prompt template (or, for fraud detection, a deterministic heuristic)
// behind the same Agent interface, registered by name.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/internal/llm"
	"github.com/seenimoa/stockanalyzer/pkg/models"
)

// ── Agent Interface ──

// Agent is one analysis step.
type Agent interface {
	// Name returns the registry identifier (e.g., "technical-analysis").
	Name() string

	// Descriptor returns the static description published by the agents list.
	Descriptor() models.AgentDescriptor

	// Run executes the agent against in. Missing inputs are reported as
	// BadRequest or InsufficientData; model failures as LLMUnavailable or LLMTimeout.
	Run(ctx context.Context, in Input) (*models.AgentResult, error)
}

// Input is everything an agent may read. Agents ignore fields they do not use.
type Input struct {
	Symbol     string
	Snapshot   *models.StockSnapshot
	History    models.History
	Financials *models.FinancialProfile
	Forecast   *models.ForecastSummary
	News       []models.NewsItem
	Fraud      *models.FraudIndicators

	// Context is the shared analysis text read by the synthesis agents.
	Context string
}

// Completer is the part of the LLM client the agents use.
type Completer interface {
	Complete(ctx context.Context, system, user string, opts *llm.ChatOptions) (*llm.Response, error)
}

// ── PromptAgent ──

// Spec configures a PromptAgent.
type Spec struct {
	ID          int
	Name        string
	DisplayName string
	Description string
	OutputKey   string

	// SystemPrompt is used as is unless System is set.
	SystemPrompt string
	System       func(Input) string

	// User builds the user message. When nil the message is UserPrefix
	// followed by the shared context, cut to ContextLimit bytes if positive.
	User         func(Input) (string, error)
	UserPrefix   string
	ContextLimit int

	MaxTokens   int
	Temperature *float64

	// Structured agents reply with a JSON object.
	Structured bool
}

// PromptAgent renders a Spec into one chat completion.
type PromptAgent struct {
	spec Spec
	llm  Completer
}

// NewPromptAgent creates an agent from spec.
func NewPromptAgent(spec Spec, c Completer) *PromptAgent {
	return &PromptAgent{spec: spec, llm: c}
}

func (a *PromptAgent) Name() string { return a.spec.Name }

// Spec returns a copy of the agent's configuration.
func (a *PromptAgent) Spec() Spec { return a.spec }

func (a *PromptAgent) Descriptor() models.AgentDescriptor {
	return models.AgentDescriptor{
		ID:           a.spec.ID,
		Name:         a.spec.DisplayName,
		Slug:         a.spec.Name,
		Endpoint:     Endpoint(a.spec.Name),
		Description:  a.spec.Description,
		UsesLLM:      true,
		NeedsContext: a.spec.User == nil,
	}
}

// Run builds the messages, calls the model and, for structured agents,
// extracts the JSON object from the reply.
func (a *PromptAgent) Run(ctx context.Context, in Input) (*models.AgentResult, error) {
	op := "agent." + a.spec.Name
	start := time.Now()

	if strings.TrimSpace(in.Symbol) == "" {
		return nil, apperr.E(apperr.KindBadRequest, op, "stock_symbol required", nil)
	}
	user, err := a.userMessage(in)
	if err != nil {
		return nil, err
	}
	system := a.spec.SystemPrompt
	if a.spec.System != nil {
		system = a.spec.System(in)
	}

	resp, err := a.llm.Complete(ctx, system, user, &llm.ChatOptions{
		MaxTokens:   a.spec.MaxTokens,
		Temperature: a.spec.Temperature,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindLLMUnavailable, op, err)
	}

	result := &models.AgentResult{
		Agent:       a.spec.Name,
		DisplayName: a.spec.DisplayName,
		Symbol:      in.Symbol,
		OutputKey:   a.spec.OutputKey,
		Content:     strings.TrimSpace(resp.Content),
		Tokens:      resp.Usage.TotalTokens,
	}
	if a.spec.Structured {
		obj, err := ExtractJSON(result.Content)
		if err != nil {
			return nil, apperr.E(apperr.KindParse, op, "model reply is not a JSON object", err)
		}
		result.Structured = obj
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (a *PromptAgent) userMessage(in Input) (string, error) {
	if a.spec.User != nil {
		return a.spec.User(in)
	}
	if strings.TrimSpace(in.Context) == "" {
		return "", apperr.E(apperr.KindBadRequest, "agent."+a.spec.Name, "stock_symbol and context required", nil)
	}
	text := in.Context
	if a.spec.ContextLimit > 0 {
		text = truncateUTF8(text, a.spec.ContextLimit)
	}
	return a.spec.UserPrefix + text, nil
}

// ── Helpers ──

// Endpoint returns the HTTP path an agent is served on.
func Endpoint(name string) string { return "/api/agents/" + name }

// ExtractJSON decodes the object between the first '{' and the last '}' of content.
func ExtractJSON(content string) (map[string]any, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in %d bytes of output", len(content))
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(content[start:end+1]), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// ── Agent Registry ──

// Registry holds the agents by name.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds an agent, replacing any agent with the same name.
func (r *Registry) Register(agent Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.Name()] = agent
}

// Get retrieves an agent by name.
func (r *Registry) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// List returns all registered agents ordered by descriptor ID.
func (r *Registry) List() []Agent {
	r.mu.RLock()
	result := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		result = append(result, a)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		di, dj := result[i].Descriptor(), result[j].Descriptor()
		if di.ID != dj.ID {
			return di.ID < dj.ID
		}
		return di.Slug < dj.Slug
	})
	return result
}

// Names returns the agent names in List order.
func (r *Registry) Names() []string {
	agents := r.List()
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name()
	}
	return names
}

// Descriptors returns every agent's descriptor in List order.
func (r *Registry) Descriptors() []models.AgentDescriptor {
	agents := r.List()
	out := make([]models.AgentDescriptor, len(agents))
	for i, a := range agents {
		out[i] = a.Descriptor()
	}
	return out
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
