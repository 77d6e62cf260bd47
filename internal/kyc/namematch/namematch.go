// Package namematch scores the similarity between a submitted name and a
// provider-verified name. The score is the single numeric tie-break for
// "close enough" identity matches across all verification types and the
// document workflow.
package namematch

import "strings"

// Normalize lowercases a name and collapses all runs of whitespace to
// single spaces.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Score returns a 0-100 similarity percentage between two names, computed
// as the longest-common-subsequence ratio over the normalized strings:
//
//	2 * lcs(a, b) / (len(a) + len(b)) * 100
//
// The score is symmetric and insensitive to case and whitespace. Two empty
// names score 100; an empty name against a non-empty one scores 0.
func Score(submitted, verified string) float64 {
	a := Normalize(submitted)
	b := Normalize(verified)

	if len(a) == 0 && len(b) == 0 {
		return 100.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	return 200.0 * float64(lcs(a, b)) / float64(len(a)+len(b))
}

// lcs computes the longest common subsequence length with a rolling
// single-row table. Names are short, so quadratic time is fine.
func lcs(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
