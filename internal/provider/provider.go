package provider

import (
	"context"
	"errors"
)

// Provider defines the interface for chat-completion backends (OpenRouter, Anthropic, etc.)
type Provider interface {
	// Chat performs a non-streaming chat completion
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// ChatRequest is a single completion request.
type ChatRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Message represents a chat message
type Message struct {
	Role    string
	Content string
}

// Role constants
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ErrEmptyResponse is returned when the backend answers without content.
var ErrEmptyResponse = errors.New("no response from API")

// StatusError carries the HTTP status of a failed request.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status carried by err, or 0.
func HTTPStatus(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
