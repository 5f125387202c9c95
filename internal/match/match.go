package match

import "strings"

// DefaultThreshold is the similarity cutoff used when callers have no
// reason to tune it.
const DefaultThreshold = 0.8

// Similar reports whether a and b are approximately equal at the given
// threshold. Case and spacing differences never cause a mismatch on their
// own: both inputs are lower-cased and stripped of whitespace before
// comparison.
func Similar(a, b string, threshold float64) bool {
	return Similarity(a, b) >= threshold
}

// Similarity returns the Dice coefficient over character bigrams of the
// normalized inputs: 2*|common| / (|bigramsA| + |bigramsB|). Two equal
// normalized strings (including two empty ones) score 1.0; a string shorter
// than one bigram can only match exactly.
func Similarity(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	if a == b {
		return 1
	}

	ra := []rune(a)
	rb := []rune(b)
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	counts := make(map[string]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		counts[string(ra[i:i+2])]++
	}

	common := 0
	for i := 0; i < len(rb)-1; i++ {
		bigram := string(rb[i : i+2])
		if counts[bigram] > 0 {
			counts[bigram]--
			common++
		}
	}

	return 2 * float64(common) / float64(len(ra)-1+len(rb)-1)
}

// normalize lower-cases and removes all whitespace so "Blink-182" and
// "blink 182" compare on the same footing.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}
