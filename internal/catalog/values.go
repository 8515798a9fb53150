package catalog

import (
	"fmt"

	"cantina/internal/textutil"
)

// DistinctValues collects the distinct values of one column across rows,
// deduplicated case-insensitively with the first-seen spelling kept. Feeds
// dropdown option lists.
func DistinctValues(rows []Row, s Schema, column string) ([]string, error) {
	if s.Role(column) == RoleUnknown {
		return nil, fmt.Errorf("unknown column %q", column)
	}
	values := make([]string, 0, len(rows))
	for _, r := range rows {
		v, _ := r.Value(s, column)
		values = append(values, v)
	}
	return textutil.UniqueFold(values), nil
}

// ComposedLine builds the single-line display form of a row: the description
// followed by the select-field values in schema order, joined with " - ",
// empty values skipped.
func ComposedLine(r Row, s Schema) string {
	parts := make([]string, 0, 1+len(s.SelectFields))
	parts = append(parts, r.Description)
	for _, f := range s.SelectFields {
		parts = append(parts, r.Field(f))
	}
	return textutil.ConcatLine(parts...)
}
