package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenRouterBaseURL is the OpenAI-compatible endpoint of OpenRouter.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenAIProvider implements Provider for any OpenAI-compatible API.
// It talks to OpenRouter by default.
type OpenAIProvider struct {
	client *openai.Client
}

type OpenAIOptions struct {
	BaseURL string
	// Headers are added to every request (OpenRouter reads HTTP-Referer and X-Title).
	Headers    map[string]string
	HTTPClient *http.Client
}

// NewOpenAIProvider creates a new OpenAI-compatible provider
func NewOpenAIProvider(apiKey string, opts OpenAIOptions) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = OpenRouterBaseURL
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	if len(opts.Headers) > 0 {
		transport := base.Transport
		if transport == nil {
			transport = http.DefaultTransport
		}
		client := *base
		client.Transport = &headerTransport{headers: opts.Headers, next: transport}
		base = &client
	}
	cfg.HTTPClient = base

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
	}, nil
}

// headerTransport sets fixed headers on every request.
type headerTransport struct {
	headers map[string]string
	next    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return t.next.RoundTrip(req)
}

// Chat performs a non-streaming chat completion
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (string, error) {
	openaiMessages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		openaiMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    openaiMessages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", withStatus(err))
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func withStatus(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &StatusError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return err
}
