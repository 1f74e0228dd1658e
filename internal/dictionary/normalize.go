package dictionary

import (
	"strings"
	"unicode"
)

// Normalizer turns a term or query into its lookup key.
type Normalizer func(string) string

// DefaultNormalizer lower-cases text and drops everything that is not a
// letter, digit, underscore or whitespace.
func DefaultNormalizer(text string) string {
	text = strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// StripNormalizer lower-cases text and drops only the runes in chars.
func StripNormalizer(chars string) Normalizer {
	return func(text string) string {
		text = strings.ToLower(text)
		text = strings.Map(func(r rune) rune {
			if strings.ContainsRune(chars, r) {
				return -1
			}
			return r
		}, text)
		return strings.TrimSpace(text)
	}
}
