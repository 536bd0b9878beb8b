package agent

import (
	"context"
	"strings"
	"time"

	"github.com/seenimoa/stockanalyzer/internal/agent/prompts"
	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/internal/llm"
	"github.com/seenimoa/stockanalyzer/pkg/models"
	"github.com/seenimoa/stockanalyzer/pkg/utils"
)

// CompanyAgent resolves a ticker to the issuer's name, web domain and logo
// URL with two short completions: name first, then domain from the name.
type CompanyAgent struct {
	llm Completer
}

// NewCompanyAgent creates the company-name agent.
func NewCompanyAgent(c Completer) *CompanyAgent { return &CompanyAgent{llm: c} }

func (a *CompanyAgent) Name() string { return prompts.AgentCompanyName }

func (a *CompanyAgent) Descriptor() models.AgentDescriptor {
	return models.AgentDescriptor{
		ID:          3,
		Name:        "Company Name Agent",
		Slug:        prompts.AgentCompanyName,
		Endpoint:    Endpoint(prompts.AgentCompanyName),
		Description: "Resolves the official company name, website domain and logo URL",
		UsesLLM:     true,
	}
}

// Run returns the company as Structured {company_name, domain, logo_url}
// and as a *models.CompanyInfo in Data.
func (a *CompanyAgent) Run(ctx context.Context, in Input) (*models.AgentResult, error) {
	const op = "agent.company-name"
	start := time.Now()

	symbol := utils.NormalizeTicker(in.Symbol)
	if symbol == "" {
		return nil, apperr.E(apperr.KindBadRequest, op, "stock_symbol required", nil)
	}

	nameResp, err := a.llm.Complete(ctx, "", prompts.CompanyName(symbol), &llm.ChatOptions{
		MaxTokens: 50, Temperature: llm.Temperature(0.1),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindLLMUnavailable, op, err)
	}
	name := firstLine(nameResp.Content)

	domainResp, err := a.llm.Complete(ctx, "", prompts.Domain(name), &llm.ChatOptions{
		MaxTokens: 20, Temperature: llm.Temperature(0.1),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindLLMUnavailable, op, err)
	}
	domain := utils.CleanDomain(firstLine(domainResp.Content))
	if domain == "" {
		domain, _ = utils.CompanyDomain(symbol)
	}

	info := &models.CompanyInfo{Name: name, Domain: domain, LogoURL: utils.LogoURL(domain)}
	return &models.AgentResult{
		Agent:       prompts.AgentCompanyName,
		DisplayName: "Company Name Agent",
		Symbol:      symbol,
		OutputKey:   "company_name",
		Content:     name,
		Structured: map[string]any{
			"company_name": info.Name,
			"domain":       info.Domain,
			"logo_url":     info.LogoURL,
		},
		Tokens:   nameResp.Usage.TotalTokens + domainResp.Usage.TotalTokens,
		Duration: time.Since(start),
		Data:     info,
	}, nil
}

// StaticCompanyInfo describes symbol from the built-in domain table, for
// callers that cannot run the company-name agent. Name is the symbol itself.
func StaticCompanyInfo(symbol string) *models.CompanyInfo {
	symbol = utils.NormalizeTicker(symbol)
	domain, _ := utils.CompanyDomain(symbol)
	return &models.CompanyInfo{Name: symbol, Domain: domain, LogoURL: utils.LogoURL(domain)}
}

// CompanyFrom returns the company carried by a company-name result, or nil.
func CompanyFrom(r *models.AgentResult) *models.CompanyInfo {
	if r == nil {
		return nil
	}
	if info, ok := r.Data.(*models.CompanyInfo); ok {
		return info
	}
	str := func(k string) string {
		s, _ := r.Structured[k].(string)
		return s
	}
	if str("company_name") == "" {
		return nil
	}
	return &models.CompanyInfo{Name: str("company_name"), Domain: str("domain"), LogoURL: str("logo_url")}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(strings.TrimSpace(s), `"`)
}
