package keyboard

// enToAr is the Arabic (101) layout: the Arabic rune produced by each key
// of a US keyboard. The lam-alef keys produce single presentation-form runes
// so the map stays invertible.
var enToAr = map[rune]rune{
	// unshifted
	'q': 'ض', 'w': 'ص', 'e': 'ث', 'r': 'ق', 't': 'ف', 'y': 'غ', 'u': 'ع',
	'i': 'ه', 'o': 'خ', 'p': 'ح', '[': 'ج', ']': 'د',
	'a': 'ش', 's': 'س', 'd': 'ي', 'f': 'ب', 'g': 'ل', 'h': 'ا', 'j': 'ت',
	'k': 'ن', 'l': 'م', ';': 'ك', '\'': 'ط',
	'z': 'ئ', 'x': 'ء', 'c': 'ؤ', 'v': 'ر', 'b': 'ﻻ', 'n': 'ى', 'm': 'ة',
	',': 'و', '.': 'ز', '/': 'ظ', '`': 'ذ',

	// shifted keys that produce Arabic
	'Q': 'َ', 'W': 'ً', 'E': 'ُ', 'R': 'ٌ', 'T': 'ﻹ',
	'Y': 'إ', 'U': '‘', 'I': '÷', 'O': '×', 'P': '؛',
	'A': 'ِ', 'S': 'ٍ', 'G': 'ﻷ', 'H': 'أ', 'J': 'ـ', 'K': '،',
	'X': 'ْ', 'B': 'ﻵ', 'N': 'آ', 'M': '’', '?': '؟', '~': 'ّ',
}

// ligatureOverrides maps the final forms of lam-alef, which some input
// methods emit instead of the isolated forms, back to their keys.
var ligatureOverrides = map[rune]rune{
	'ﻼ': 'b',
	'ﻺ': 'T',
	'ﻸ': 'G',
	'ﻶ': 'B',
}

// suspiciousChars are the US-layout punctuation keys that carry Arabic
// letters. A word built around them is most likely Arabic typed on the
// wrong layout.
const suspiciousChars = ";'[]`,./"

func buildArToEn() map[rune]rune {
	m := make(map[rune]rune, len(enToAr)+len(ligatureOverrides))
	for en, ar := range enToAr {
		if ar < 0x80 {
			continue
		}
		m[ar] = en
	}
	for ar, en := range ligatureOverrides {
		m[ar] = en
	}
	return m
}
