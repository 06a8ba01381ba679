package analyzer

import (
	"sort"
	"strings"
)

// levenshtein returns the edit distance between a and b, operating on
// runes rather than bytes so multi-byte FHIRPath identifiers compare
// correctly.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// similarity maps levenshtein distance into [0,1], 1 meaning identical, used
// only to rank qualifying candidates against each other, not to decide
// qualification (see qualifies).
func similarity(input, candidate string) float64 {
	if input == "" && candidate == "" {
		return 1
	}
	if input == "" || candidate == "" {
		return 0
	}
	dist := levenshtein(input, candidate)
	maxLen := len([]rune(input))
	if l := len([]rune(candidate)); l > maxLen {
		maxLen = l
	}
	return 1 - float64(dist)/float64(maxLen)
}

// qualifies implements the literal "did you mean" rule: a candidate
// qualifies when its lowercase edit distance from input is at most 2, or
// one of input/candidate is a prefix or substring of the other (also
// case-folded). This accepts short, obviously-related typos that a
// length-normalized similarity ratio would drop — a single-character input
// like "a" against "address" has edit distance 6, failing any reasonable
// ratio cutoff, but qualifies here as a prefix.
func qualifies(input, candidate string) bool {
	li, lc := strings.ToLower(input), strings.ToLower(candidate)
	if levenshtein(li, lc) <= 2 {
		return true
	}
	return strings.Contains(li, lc) || strings.Contains(lc, li)
}

// Suggestion is a single "did you mean" candidate.
type Suggestion struct {
	Replacement string
	Confidence  float64
}

// findBestMatches returns up to maxResults qualifying candidates (per
// qualifies), ranked descending by similarity.
func findBestMatches(input string, candidates []string, maxResults int) []Suggestion {
	matches := make([]Suggestion, 0, len(candidates))
	for _, c := range candidates {
		if qualifies(input, c) {
			matches = append(matches, Suggestion{Replacement: c, Confidence: similarity(input, c)})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Confidence > matches[j].Confidence })
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches
}
