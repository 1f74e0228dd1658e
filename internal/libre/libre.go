// Package libre translates text through a LibreTranslate server, falling
// back to the public Google Translate endpoint when the server fails.
package libre

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"resty.dev/v3"

	"github.com/maximbilan/medtr/internal/logging"
	"github.com/maximbilan/medtr/internal/ratelimit"
)

const (
	DefaultURL       = "https://libretranslate.com"
	DefaultGoogleURL = "https://translate.googleapis.com"
	DefaultTimeout   = 5 * time.Second
	// ProbeTimeout bounds the availability check.
	ProbeTimeout = 2 * time.Second
)

// ErrEmptyTranslation is returned when a backend answers with no text.
var ErrEmptyTranslation = errors.New("empty translation")

type Options struct {
	URL    string
	APIKey string
	// GoogleFallback enables the public Google endpoint after LibreTranslate fails.
	GoogleFallback bool
	GoogleURL      string
	Timeout        time.Duration
	RetryAttempts  uint
	Limiter        *ratelimit.RateLimiter
	Logger         logrus.FieldLogger
}

type Client struct {
	libre  *resty.Client
	google *resty.Client
	opts   Options
	logger logrus.FieldLogger
}

func New(opts Options) *Client {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.GoogleURL == "" {
		opts.GoogleURL = DefaultGoogleURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	libre := resty.New()
	libre.SetBaseURL(strings.TrimRight(opts.URL, "/"))
	libre.SetTimeout(opts.Timeout)
	libre.SetHeader("Content-Type", "application/json")

	google := resty.New()
	google.SetBaseURL(strings.TrimRight(opts.GoogleURL, "/"))
	google.SetTimeout(opts.Timeout)
	google.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	return &Client{
		libre:  libre,
		google: google,
		opts:   opts,
		logger: logging.OrStandard(opts.Logger),
	}
}

func (c *Client) Close() error {
	return errors.Join(c.libre.Close(), c.google.Close())
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

// Translate translates text from sourceLang to targetLang. sourceLang may be "auto".
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("text cannot be empty")
	}
	source, err := baseCode(sourceLang)
	if err != nil {
		return "", err
	}
	target, err := baseCode(targetLang)
	if err != nil {
		return "", err
	}
	if target == "auto" {
		return "", fmt.Errorf("target language cannot be auto")
	}

	if err := c.opts.Limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	translated, libreErr := c.withRetry(ctx, func() (string, error) {
		return c.translateLibre(ctx, text, source, target)
	})
	if libreErr == nil {
		return translated, nil
	}
	if !c.opts.GoogleFallback || ctx.Err() != nil {
		return "", libreErr
	}

	c.logger.WithError(libreErr).Warn("LibreTranslate failed, trying Google fallback")
	translated, googleErr := c.withRetry(ctx, func() (string, error) {
		return c.translateGoogle(ctx, text, source, target)
	})
	if googleErr != nil {
		return "", fmt.Errorf("libre: %w; google: %w", libreErr, googleErr)
	}
	return translated, nil
}

// Available reports whether the LibreTranslate server answers within ProbeTimeout.
func (c *Client) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	response, err := c.libre.R().
		SetContext(probeCtx).
		Get("/languages")
	if err != nil {
		c.logger.WithError(err).Debug("LibreTranslate probe failed")
		return false
	}
	return !response.IsError()
}

func (c *Client) withRetry(ctx context.Context, fn func() (string, error)) (string, error) {
	var result string
	err := retry.Do(
		func() error {
			translated, err := fn()
			if err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			result = translated
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.opts.RetryAttempts+1),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	)
	return result, err
}

func (c *Client) translateLibre(ctx context.Context, text, source, target string) (string, error) {
	response, err := c.libre.R().
		SetContext(ctx).
		SetBody(translateRequest{
			Q:      text,
			Source: source,
			Target: target,
			Format: "text",
			APIKey: c.opts.APIKey,
		}).
		SetResult(&translateResponse{}).
		Post("/translate")
	if err != nil {
		return "", fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		return "", fmt.Errorf("response error %d: %s", response.StatusCode(), response.String())
	}

	body, ok := response.Result().(*translateResponse)
	if !ok || body == nil {
		return "", fmt.Errorf("unexpected response: %s", response.String())
	}
	if body.Error != "" {
		return "", fmt.Errorf("libretranslate: %s", body.Error)
	}
	translated := strings.TrimSpace(body.TranslatedText)
	if translated == "" {
		return "", ErrEmptyTranslation
	}
	return translated, nil
}

func (c *Client) translateGoogle(ctx context.Context, text, source, target string) (string, error) {
	response, err := c.google.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client": "gtx",
			"sl":     source,
			"tl":     target,
			"dt":     "t",
			"q":      text,
		}).
		Get("/translate_a/single")
	if err != nil {
		return "", fmt.Errorf("httpClient.Get > %w", err)
	}
	if response.IsError() {
		return "", fmt.Errorf("response error %d: %s", response.StatusCode(), response.String())
	}
	return parseGoogleResponse([]byte(response.String()))
}

// parseGoogleResponse extracts translated text from Google's JSON array response.
func parseGoogleResponse(body []byte) (string, error) {
	var raw []any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("parse google json: %w", err)
	}
	if len(raw) == 0 {
		return "", ErrEmptyTranslation
	}
	sentences, ok := raw[0].([]any)
	if !ok {
		return "", fmt.Errorf("unexpected response format")
	}

	var sb strings.Builder
	for _, s := range sentences {
		parts, ok := s.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if translated, ok := parts[0].(string); ok {
			sb.WriteString(translated)
		}
	}
	result := strings.TrimSpace(sb.String())
	if result == "" {
		return "", ErrEmptyTranslation
	}
	return result, nil
}

// baseCode reduces a BCP 47 tag such as "en-US" to its base language.
func baseCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, "auto") {
		return "auto", nil
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("invalid language code %q: %w", code, err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	errStr := err.Error()
	// Retry on network-related errors
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "connection reset") {
		return true
	}
	// Retry on 5xx errors (server errors)
	if strings.Contains(errStr, "response error 5") {
		return true
	}
	// Retry on rate limiting (429)
	return strings.Contains(errStr, "response error 429")
}
