package catalog

import (
	"strings"

	"cantina/internal/textutil"
)

// Filter selects rows for listing and search. The zero value matches every
// row.
type Filter struct {
	// Contains is a case- and whitespace-insensitive substring test across
	// the row's key, descriptions and select-field values.
	Contains string
	// ModifiedOnly keeps only rows whose modified flag is set.
	ModifiedOnly bool
	// MissingImage keeps only rows without an image URL.
	MissingImage bool
}

// Match reports whether the row passes the filter.
func (f Filter) Match(r Row) bool {
	if f.ModifiedOnly && !r.Modified {
		return false
	}
	if f.MissingImage && r.ImageURL != "" {
		return false
	}
	if q := textutil.FoldKey(f.Contains); q != "" {
		if !strings.Contains(searchText(r), q) {
			return false
		}
	}
	return true
}

// Apply returns the rows passing the filter, preserving order.
func (f Filter) Apply(rows []Row) []Row {
	kept := make([]Row, 0, len(rows))
	for _, r := range rows {
		if f.Match(r) {
			kept = append(kept, r)
		}
	}
	return kept
}

// searchText folds the row's searchable values into one haystack.
func searchText(r Row) string {
	parts := make([]string, 0, 3+len(r.Fields))
	parts = append(parts, r.Key, r.Description, r.Refined)
	for _, v := range r.Fields {
		parts = append(parts, v)
	}
	return textutil.FoldKey(strings.Join(parts, " "))
}
