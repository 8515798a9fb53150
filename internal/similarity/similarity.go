// Package similarity scores and ranks catalog text by fuzzy similarity.
//
// Scores are the Ratcliff/Obershelp matching ratio over case-folded,
// whitespace-normalized strings: twice the matched character count divided
// by the combined length. Scores order suggestion lists and flag likely
// duplicates; they are advisory and carry no hard cutoff of their own.
package similarity

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"cantina/internal/textutil"
)

// Match pairs a candidate with its similarity score against a query.
// Index is the candidate's position in the caller's slice, so a match can
// be traced back to whatever record the text came from.
type Match struct {
	Candidate string
	Index     int
	Score     float64
}

// Similarity returns the similarity of a and b in [0, 1].
//
// Both inputs are whitespace-normalized and case-folded before comparison.
// If either normalized input is empty the score is 0. The score is
// symmetric and equals 1 exactly when the normalized inputs are identical.
func Similarity(a, b string) float64 {
	fa := textutil.FoldKey(a)
	fb := textutil.FoldKey(b)
	if fa == "" || fb == "" {
		return 0
	}
	// The greedy matcher is order-sensitive for tied blocks; orienting the
	// pair canonically keeps the score symmetric.
	if fa > fb {
		fa, fb = fb, fa
	}
	m := difflib.NewMatcherWithJunk(splitRunes(fa), splitRunes(fb), false, nil)
	return m.Ratio()
}

// Rank scores every candidate against the query and returns all of them
// ordered by descending score. Ties keep the original candidate order.
func Rank(query string, candidates []string) []Match {
	matches := make([]Match, len(candidates))
	for i, c := range candidates {
		matches[i] = Match{Candidate: c, Index: i, Score: Similarity(query, c)}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// RankTop is Rank truncated to the limit best matches. A non-positive limit
// returns an empty slice.
func RankTop(query string, candidates []string, limit int) []Match {
	if limit <= 0 {
		return []Match{}
	}
	matches := Rank(query, candidates)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// splitRunes splits s into one-rune strings so the sequence matcher works
// at character granularity.
func splitRunes(s string) []string {
	return strings.Split(s, "")
}
