package llm

import (
	"context"
	"sync"
)

// MockProvider is a scripted Provider for tests and offline runs. Reply
// computes each answer; calls are recorded in order.
type MockProvider struct {
	Reply func(messages []Message, opts *ChatOptions) (string, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall is one recorded Chat invocation.
type MockCall struct {
	Messages []Message
	Options  ChatOptions
}

// NewMockProvider returns a provider that always answers reply.
func NewMockProvider(reply string) *MockProvider {
	return &MockProvider{Reply: func([]Message, *ChatOptions) (string, error) { return reply, nil }}
}

func (m *MockProvider) Name() string { return "mock" }

// Chat records the call and returns Reply's answer.
func (m *MockProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	call := MockCall{Messages: append([]Message(nil), messages...)}
	if opts != nil {
		call.Options = *opts
	}
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := m.Reply(messages, opts)
	if err != nil {
		return nil, err
	}
	return &Response{
		Content:  content,
		Usage:    Usage{TotalTokens: len(content) / 4},
		Model:    "mock-model",
		Provider: "mock",
	}, nil
}

// Calls returns a copy of the recorded calls.
func (m *MockProvider) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}
