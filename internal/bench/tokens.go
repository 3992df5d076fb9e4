package bench

import (
	"math"
	"unicode"
)

// Per-rune weights of the token estimate. Dense scripts (CJK) average more
// than one token per character; other text averages about four characters
// per token.
const (
	denseRuneTokens = 1.5
	otherRuneTokens = 0.25
)

// EstimateTokens is the running token estimate for a fragment of text.
func EstimateTokens(s string) float64 {
	var n float64
	for _, r := range s {
		if isDense(r) {
			n += denseRuneTokens
		} else {
			n += otherRuneTokens
		}
	}
	return n
}

func isDense(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

func roundTokens(f float64) int { return int(math.Round(f)) }
