package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxInputLength is the maximum number of characters accepted for translation.
	// Longer clipboard contents are almost always documents, not terms.
	MaxInputLength = 200
)

var (
	ErrEmptyText = errors.New("text cannot be empty")
	ErrTooLong   = errors.New("text exceeds maximum length")
	ErrURL       = errors.New("text contains a URL")
)

var urlPattern = regexp.MustCompile(`https?://|www\.|\.com|\.org|\.net`)

// ValidateTextInput checks text before it is routed to any translation source.
// maxLength <= 0 means MaxInputLength.
func ValidateTextInput(text string, maxLength int) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if maxLength <= 0 {
		maxLength = MaxInputLength
	}
	if n := utf8.RuneCountInString(text); n > maxLength {
		return fmt.Errorf("%w of %d characters (got %d)", ErrTooLong, maxLength, n)
	}
	if ContainsURL(text) {
		return ErrURL
	}
	return nil
}

// ContainsURL reports whether text has a URL-like substring.
func ContainsURL(text string) bool {
	return urlPattern.MatchString(strings.ToLower(text))
}

// ValidateAPIKey checks the shape of an OpenRouter or Anthropic API key
func ValidateAPIKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("API key is required")
	}
	// OpenRouter keys start with "sk-or-", Anthropic with "sk-ant-".
	// Be lenient: at least 20 chars and the common "sk-" prefix.
	if len(apiKey) < 20 {
		return fmt.Errorf("API key appears to be invalid (too short)")
	}
	if !strings.HasPrefix(apiKey, "sk-") {
		return fmt.Errorf("API key must start with 'sk-'")
	}
	return nil
}
