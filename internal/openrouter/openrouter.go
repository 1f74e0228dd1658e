// Package openrouter asks an AI model to explain a medical term.
package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/sirupsen/logrus"

	"github.com/maximbilan/medtr/internal/config"
	"github.com/maximbilan/medtr/internal/logging"
	"github.com/maximbilan/medtr/internal/provider"
	"github.com/maximbilan/medtr/internal/ratelimit"
)

const (
	DefaultModel       = "meta-llama/llama-3-8b-instruct:free"
	DefaultTimeout     = 20 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = time.Second
	DefaultMaxTokens   = 150
	DefaultTemperature = 0.7
)

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("AI source is not configured")

type Options struct {
	Model        string
	SystemPrompt string
	CustomPrompt string
	MaxTokens    int
	Temperature  float64
	// Timeout bounds each attempt.
	Timeout    time.Duration
	MaxRetries uint
	RetryDelay time.Duration
	Limiter    *ratelimit.RateLimiter
	Logger     logrus.FieldLogger
}

type Client struct {
	provider provider.Provider
	opts     Options
	logger   logrus.FieldLogger

	mu           sync.RWMutex
	systemPrompt string
	customPrompt string
}

// New creates a client. A nil provider yields a client whose Explain
// always fails with ErrNotConfigured.
func New(p provider.Provider, opts Options) *Client {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = config.DefaultSystemPrompt
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Client{
		provider:     p,
		opts:         opts,
		logger:       logging.OrStandard(opts.Logger),
		systemPrompt: opts.SystemPrompt,
		customPrompt: opts.CustomPrompt,
	}
}

// Configured reports whether Explain can reach a backend.
func (c *Client) Configured() bool {
	return c.provider != nil
}

// UpdatePrompts replaces the prompts. An empty system prompt restores the default.
func (c *Client) UpdatePrompts(systemPrompt, customPrompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if systemPrompt == "" {
		systemPrompt = config.DefaultSystemPrompt
	}
	c.systemPrompt = systemPrompt
	c.customPrompt = customPrompt
}

// Prompt builds the single user message sent for term. Some free models
// ignore system messages, so the instructions travel with the term.
func (c *Client) Prompt(term string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	prompt := c.systemPrompt
	if c.customPrompt != "" {
		prompt += "\n\nAdditional instructions: " + c.customPrompt
	}
	return prompt + "\n\nTerm to explain: " + term
}

// Explain returns the model's explanation of term. Empty answers, rate
// limiting and server errors are retried with exponential backoff.
func (c *Client) Explain(ctx context.Context, term string) (string, error) {
	if c.provider == nil {
		return "", ErrNotConfigured
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return "", fmt.Errorf("term cannot be empty")
	}

	req := provider.ChatRequest{
		Model:       c.opts.Model,
		Messages:    []provider.Message{{Role: provider.RoleUser, Content: c.Prompt(term)}},
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	}

	var result string
	err := retry.Do(
		func() error {
			if err := c.opts.Limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(fmt.Errorf("rate limit error: %w", err))
			}
			content, err := c.attempt(ctx, req)
			if err != nil {
				if !isRetryableError(ctx, err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			result = content
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.opts.MaxRetries+1),
		retry.Delay(c.opts.RetryDelay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			delay := retry.BackOffDelay(n, err, config)
			// Rate-limited requests wait twice as long.
			if provider.HTTPStatus(err) == http.StatusTooManyRequests {
				delay *= 2
			}
			return delay
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.WithFields(logrus.Fields{"attempt": n + 1, "error": err}).Warn("AI request failed, retrying")
		}),
	)
	if err != nil {
		return "", err
	}
	return result, nil
}

func (c *Client) attempt(ctx context.Context, req provider.ChatRequest) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	return c.provider.Chat(attemptCtx, req)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	// The caller gave up; only a per-attempt timeout is worth retrying.
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, provider.ErrEmptyResponse) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	status := provider.HTTPStatus(err)
	if status == http.StatusTooManyRequests || status >= 500 {
		return true
	}
	if status != 0 {
		return false
	}

	// Retry on network-related errors
	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "EOF")
}
