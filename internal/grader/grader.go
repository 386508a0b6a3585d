// Package grader normalizes and compares submitted answers against the
// expected answer for a question. Comparison is case-insensitive and
// width-insensitive (full-width Latin letters and digits are folded to their
// half-width forms before comparing), with a fuzzy fallback for near misses.
package grader

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"golang.org/x/text/width"
)

// FuzzyThreshold is the minimum Levenshtein-ratio similarity (0-100) at which
// a non-exact submission is still graded correct. Game balance depends on
// this value; override with care.
const FuzzyThreshold = 85

// Normalize folds width variants, lowercases and trims the given text.
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	folded := width.Fold.String(text)
	return strings.TrimSpace(strings.ToLower(folded))
}

// Grade reports whether submitted should be accepted as a match for expected.
// Exact match after normalization wins immediately; otherwise the two
// normalized strings are compared with an edit-distance ratio and the
// submission passes iff the ratio reaches FuzzyThreshold.
func Grade(expected, submitted string) bool {
	want := Normalize(expected)
	got := Normalize(submitted)

	if want == got {
		return true
	}
	if want == "" || got == "" {
		return false
	}

	return fuzzy.Ratio(want, got) >= FuzzyThreshold
}
