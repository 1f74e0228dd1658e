package provider

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a scripted provider for tests and offline runs.
type MockProvider struct {
	mu        sync.Mutex
	responses map[string]string
	script    []MockReply
	requests  []ChatRequest
}

// MockReply is one scripted answer. Err takes precedence over Content.
type MockReply struct {
	Content string
	Err     error
}

// NewMockProvider creates a new mock provider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		responses: make(map[string]string),
	}
}

// SetResponse sets a mock response for a given prompt
func (m *MockProvider) SetResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Script queues replies returned in order before falling back to SetResponse.
func (m *MockProvider) Script(replies ...MockReply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, replies...)
}

// Requests returns every request received so far.
func (m *MockProvider) Requests() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatRequest(nil), m.requests...)
}

// Chat performs a non-streaming chat completion
func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}

	if len(m.script) > 0 {
		reply := m.script[0]
		m.script = m.script[1:]
		if reply.Err != nil {
			return "", reply.Err
		}
		if reply.Content == "" {
			return "", ErrEmptyResponse
		}
		return reply.Content, nil
	}

	// Get the last user message
	var prompt string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			prompt = req.Messages[i].Content
			break
		}
	}

	response, ok := m.responses[prompt]
	if !ok {
		response = "Mock response for: " + prompt
	}

	return response, nil
}
