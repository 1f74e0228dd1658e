package dictionary

import (
	"github.com/pmezard/go-difflib/difflib"
)

// closeMatch returns the candidate most similar to word whose similarity
// ratio is at least cutoff. Ties go to the lexically greater candidate.
func closeMatch(word string, candidates []string, cutoff float64) (string, bool) {
	wordSeq := splitRunes(word)
	best, bestScore := "", -1.0
	for _, candidate := range candidates {
		m := difflib.NewMatcher(splitRunes(candidate), wordSeq)
		if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
			continue
		}
		score := m.Ratio()
		if score < cutoff {
			continue
		}
		if score > bestScore || (score == bestScore && candidate > best) {
			best, bestScore = candidate, score
		}
	}
	return best, bestScore >= 0
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
