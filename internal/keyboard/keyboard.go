// Package keyboard detects text typed on the wrong keyboard layout
// (Arabic typed with US keys, or English typed with Arabic keys) and remaps it.
package keyboard

import (
	"strings"
	"unicode"
)

// Kind is the direction of a layout fix.
type Kind string

const (
	KindNone   Kind = "none"
	KindEnToAr Kind = "en_to_ar"
	KindArToEn Kind = "ar_to_en"
)

// Detection thresholds. All comparisons are inclusive.
const (
	// EnToArThreshold is the minimum share of suspicious characters.
	EnToArThreshold = 0.30
	// ArToEnThreshold is the minimum share of Arabic letters.
	ArToEnThreshold = 0.50
	// EnglishThreshold is the minimum share of ASCII letters in a converted result.
	EnglishThreshold = 0.60
)

// Fix is the outcome of DetectAndFix.
type Fix struct {
	Fixed bool
	Text  string
	Kind  Kind
}

type Fixer struct {
	enToAr map[rune]rune
	arToEn map[rune]rune
}

func New() *Fixer {
	return &Fixer{
		enToAr: enToAr,
		arToEn: buildArToEn(),
	}
}

// DetectAndFix checks both directions, English-to-Arabic first, and returns
// the remapped text when one of them clears its threshold. Unmapped
// characters pass through unchanged.
func (f *Fixer) DetectAndFix(text string) Fix {
	if text == "" {
		return Fix{Text: text, Kind: KindNone}
	}

	if f.suspiciousScore(text) >= EnToArThreshold {
		return Fix{Fixed: true, Text: f.ToArabic(text), Kind: KindEnToAr}
	}

	if arabicScore(text) >= ArToEnThreshold {
		converted := f.ToEnglish(text)
		if f.looksLikeEnglish(converted) {
			return Fix{Fixed: true, Text: converted, Kind: KindArToEn}
		}
	}

	return Fix{Text: text, Kind: KindNone}
}

// IsKeyboardError reports whether DetectAndFix would change text.
func (f *Fixer) IsKeyboardError(text string) bool {
	return f.DetectAndFix(text).Fixed
}

// ToArabic remaps every US-layout key to the Arabic rune on the same key.
func (f *Fixer) ToArabic(text string) string {
	return convert(text, f.enToAr)
}

// ToEnglish remaps every Arabic rune to the US-layout key that produces it.
func (f *Fixer) ToEnglish(text string) string {
	return convert(text, f.arToEn)
}

func convert(text string, mapping map[rune]rune) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if m, ok := mapping[r]; ok {
			b.WriteRune(m)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// suspiciousScore is the share of characters that point at Arabic typed on a
// US layout: every suspicious punctuation key, plus the letters of words
// shaped like garbled Arabic. A word is garbled when it starts with a
// suspicious key (";jhf") or carries at least two of them ("[ldv;").
func (f *Fixer) suspiciousScore(text string) float64 {
	total := 0
	hasLetter := false
	for _, r := range text {
		total++
		if isASCIILetter(r) {
			hasLetter = true
		}
	}
	// Pure punctuation such as "..." is never a layout mistake.
	if total == 0 || !hasLetter {
		return 0
	}

	count := 0
	for _, field := range strings.Fields(text) {
		word := []rune(field)
		if isAbbreviation(word) {
			continue
		}
		wrapped := isWrapped(word)
		keys, leading := 0, false
		for i, r := range word {
			if !isSuspicious(r) || isBenignPunct(word, i) {
				continue
			}
			if wrapped && (i == 0 || i == len(word)-1) {
				continue
			}
			keys++
			if i == 0 && len(word) > 1 {
				leading = true
			}
		}
		count += keys
		if leading || keys >= 2 {
			for _, r := range word {
				if isASCIILetter(r) {
					count++
				}
			}
		}
	}
	return float64(count) / float64(total)
}

// isBenignPunct reports punctuation that is normal inside English words:
// digit separators (3.5, 1,000), apostrophes (don't) and slashes or dots
// joining words (mg/kg, and/or, hello.world).
func isBenignPunct(word []rune, i int) bool {
	if i == 0 || i == len(word)-1 {
		return false
	}
	r, prev, next := word[i], word[i-1], word[i+1]
	if (r == '.' || r == ',') && unicode.IsDigit(prev) && unicode.IsDigit(next) {
		return true
	}
	if r == '/' || r == '.' {
		return i >= 2 && i+2 < len(word) &&
			isASCIILetter(word[i-2]) && isASCIILetter(prev) &&
			isASCIILetter(next) && isASCIILetter(word[i+2])
	}
	return r == '\'' && isASCIILetter(prev) && isASCIILetter(next)
}

// isWrapped matches words enclosed in quotes or brackets, such as 'heart' or [sic].
func isWrapped(word []rune) bool {
	if len(word) < 3 {
		return false
	}
	first, last := word[0], word[len(word)-1]
	switch first {
	case '\'', '`':
		return last == first
	case '[':
		return last == ']'
	}
	return false
}

// isAbbreviation matches dotted abbreviations such as "e.g." and "U.S.".
func isAbbreviation(word []rune) bool {
	if len(word) < 2 || len(word)%2 != 0 {
		return false
	}
	for i := 0; i < len(word); i += 2 {
		if !isASCIILetter(word[i]) || word[i+1] != '.' {
			return false
		}
	}
	return true
}

// arabicScore is the share of characters that are Arabic letters.
func arabicScore(text string) float64 {
	total, count := 0, 0
	for _, r := range text {
		total++
		if unicode.Is(unicode.Arabic, r) && unicode.IsLetter(r) {
			count++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

// looksLikeEnglish requires mostly ASCII letters and rejects results that
// are themselves Arabic garbled onto a US layout (genuine Arabic such as
// "كتاب" converts to ";jhf").
func (f *Fixer) looksLikeEnglish(text string) bool {
	total, count := 0, 0
	for _, r := range text {
		total++
		if isASCIILetter(r) {
			count++
		}
	}
	if total == 0 || float64(count)/float64(total) < EnglishThreshold {
		return false
	}
	return f.suspiciousScore(text) < EnToArThreshold
}

func isSuspicious(r rune) bool {
	return strings.ContainsRune(suspiciousChars, r)
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
