package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"

	"github.com/seenimoa/stockanalyzer/internal/apperr"
)

// completer is the slice of the SDK the provider calls. Tests substitute it.
type completer interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIProvider implements Provider for OpenAI and Azure OpenAI chat completions.
type OpenAIProvider struct {
	name  string
	model string
	chat  completer
}

// OpenAIConfig configures NewOpenAIProvider.
type OpenAIConfig struct {
	Provider   string // "openai" or "azure"
	APIKey     string
	Endpoint   string // Azure resource endpoint
	APIVersion string // Azure API version
	Model      string // deployment name on Azure
	BaseURL    string // OpenAI-compatible base URL override
	HTTPClient *http.Client
}

// NewOpenAIProvider creates a provider backed by the official SDK. SDK
// retries are disabled.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.ChatModelGPT4o)
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	name := ProviderOpenAI
	switch strings.ToLower(cfg.Provider) {
	case ProviderAzure:
		if cfg.Endpoint == "" {
			return nil, ErrNoEndpoint
		}
		name = ProviderAzure
		opts = append(opts,
			azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	case ProviderOpenAI, "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}

	client := openai.NewClient(opts...)
	return &OpenAIProvider{name: name, model: cfg.Model, chat: &client.Chat.Completions}, nil
}

func (p *OpenAIProvider) Name() string { return p.name }

// Chat sends a chat completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	params := p.buildParams(messages, opts)

	completion, err := p.chat.New(ctx, params)
	if err != nil {
		return nil, p.classify(err)
	}
	if len(completion.Choices) == 0 {
		return nil, apperr.E(apperr.KindLLMUnavailable, p.name, "no choices returned", ErrEmptyResponse)
	}

	return &Response{
		Content: completion.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
		Model:    string(params.Model),
		Provider: p.name,
		Latency:  time.Since(start),
	}, nil
}

func (p *OpenAIProvider) buildParams(messages []Message, opts *ChatOptions) openai.ChatCompletionNewParams {
	model := p.model
	if opts != nil && opts.Model != "" {
		model = opts.Model
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: msgs,
	}
	if opts != nil {
		if opts.MaxTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
		}
		if opts.Temperature != nil {
			params.Temperature = openai.Float(*opts.Temperature)
		}
	}
	return params
}

// classify maps SDK and transport errors onto the error taxonomy.
func (p *OpenAIProvider) classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.E(apperr.KindLLMTimeout, p.name, "completion timed out", err)
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return apperr.E(apperr.KindLLMTimeout, p.name, "completion timed out", err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperr.E(apperr.KindLLMUnavailable, p.name, "credentials rejected", err)
		case http.StatusTooManyRequests:
			return apperr.E(apperr.KindLLMUnavailable, p.name, "rate limited", err)
		}
		return apperr.E(apperr.KindLLMUnavailable, p.name, fmt.Sprintf("status %d", apiErr.StatusCode), err)
	}
	return apperr.E(apperr.KindLLMUnavailable, p.name, "request failed", err)
}
