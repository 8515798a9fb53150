// Package textutil provides the text normalization helpers shared across the
// catalog: cell-value cleaning, whitespace normalization, Unicode case
// folding and composed display lines. Filters, distinct-value listing and
// similarity scoring all compare values through FoldKey so that spelling
// variants of the same value ("Barolo", " barolo ") collapse together.
package textutil

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// reIntegralDecimal matches decimal literals whose fractional part is all
// zeros ("2020.0", "-3.00"). Numeric catalog cells round-trip through
// float-typed spreadsheet columns and pick up a spurious fractional suffix.
var reIntegralDecimal = regexp.MustCompile(`^-?[0-9]+\.0+$`)

// CleanValue normalizes a raw cell value.
//
// The cleaning pipeline:
//  1. Strip ASCII control characters (except \n and \t)
//  2. Trim leading/trailing whitespace
//  3. Map bare NaN literals ("nan", "NAN", ...) to ""
//  4. Rewrite integral decimals ("2020.0") without the fractional part
func CleanValue(v string) string {
	s := stripControlChars(v)
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.EqualFold(s, "nan") {
		return ""
	}
	if reIntegralDecimal.MatchString(s) {
		return s[:strings.IndexByte(s, '.')]
	}
	return s
}

// NormalizeSpaces collapses every whitespace run in s to a single space and
// trims leading/trailing whitespace.
func NormalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Fold applies Unicode case folding, the caseless-comparison form of s.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// FoldKey returns the canonical comparison key for a value: whitespace
// normalized, then case folded. Two values with equal FoldKeys are treated
// as the same value throughout the catalog.
func FoldKey(s string) string {
	return Fold(NormalizeSpaces(s))
}

// UniqueFold deduplicates values case-insensitively, keeping the first-seen
// spelling of each, and returns them sorted by folded form. Empty values are
// dropped.
func UniqueFold(values []string) []string {
	seen := make(map[string]string, len(values))
	for _, v := range values {
		v = NormalizeSpaces(v)
		if v == "" {
			continue
		}
		key := Fold(v)
		if _, ok := seen[key]; !ok {
			seen[key] = v
		}
	}
	out := make([]string, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return Fold(out[i]) < Fold(out[j]) })
	return out
}

// ConcatLine joins the non-empty cleaned parts with " - ", composing a
// single display line from a row's descriptive fields.
func ConcatLine(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = NormalizeSpaces(CleanValue(p))
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " - ")
}

// stripControlChars removes ASCII control characters (0x00-0x1F) from the
// string, except for newline and tab which are preserved.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
