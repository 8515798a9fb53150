// Package catalog defines the row model and column schema for a product
// catalog. A schema maps the catalog's column headers onto fixed roles (key,
// description, previous description, modified flag, image URL) plus a
// configurable list of select fields, so the rest of the tool never hard
// codes column names.
package catalog

import (
	"fmt"
	"strings"

	"cantina/internal/constants"
	"cantina/internal/textutil"
)

// Row is one catalog entry. Fields holds the values of the schema's select
// fields by column name; the named members hold the fixed-role columns.
type Row struct {
	Key         string
	Description string
	Refined     string
	Previous    string
	Modified    bool
	ImageURL    string
	Fields      map[string]string
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	c := r
	if r.Fields != nil {
		c.Fields = make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			c.Fields[k] = v
		}
	}
	return c
}

// Field returns the select-field value for column, or "" when unset.
func (r Row) Field(column string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[column]
}

// FieldRole identifies how a named column is used by the catalog.
type FieldRole int

const (
	RoleUnknown FieldRole = iota
	RoleKey
	RoleDescription
	RoleRefined
	RolePrevious
	RoleModified
	RoleImageURL
	RoleSelect
)

// Schema maps column headers onto row roles.
type Schema struct {
	KeyColumn         string
	DescriptionColumn string
	RefinedColumn     string
	PreviousColumn    string
	ModifiedColumn    string
	ImageURLColumn    string
	SelectFields      []string
	CopyFields        []string
}

// Validate checks that the schema names the required columns and has no
// column claimed by two roles.
func (s Schema) Validate() error {
	if s.KeyColumn == "" {
		return fmt.Errorf("schema: key column is required")
	}
	if s.DescriptionColumn == "" {
		return fmt.Errorf("schema: description column is required")
	}
	seen := map[string]string{}
	claim := func(column, role string) error {
		if column == "" {
			return nil
		}
		if prev, ok := seen[column]; ok {
			return fmt.Errorf("schema: column %q claimed by both %s and %s", column, prev, role)
		}
		seen[column] = role
		return nil
	}
	fixed := []struct{ column, role string }{
		{s.KeyColumn, "key"},
		{s.DescriptionColumn, "description"},
		{s.RefinedColumn, "refined"},
		{s.PreviousColumn, "previous"},
		{s.ModifiedColumn, "modified"},
		{s.ImageURLColumn, "image_url"},
	}
	for _, f := range fixed {
		if err := claim(f.column, f.role); err != nil {
			return err
		}
	}
	for _, f := range s.SelectFields {
		if err := claim(f, "select"); err != nil {
			return err
		}
	}
	return nil
}

// Role returns the role of a column header under this schema.
func (s Schema) Role(column string) FieldRole {
	switch column {
	case "":
		return RoleUnknown
	case s.KeyColumn:
		return RoleKey
	case s.DescriptionColumn:
		return RoleDescription
	case s.RefinedColumn:
		return RoleRefined
	case s.PreviousColumn:
		return RolePrevious
	case s.ModifiedColumn:
		return RoleModified
	case s.ImageURLColumn:
		return RoleImageURL
	}
	for _, f := range s.SelectFields {
		if column == f {
			return RoleSelect
		}
	}
	return RoleUnknown
}

// Editable reports whether operators may set the column directly. The key,
// previous-description and modified columns are managed by the tool.
func (s Schema) Editable(column string) bool {
	switch s.Role(column) {
	case RoleDescription, RoleRefined, RoleImageURL, RoleSelect:
		return true
	}
	return false
}

// Columns returns the canonical header order for import/export: the fixed
// role columns that are configured, followed by the select fields.
func (s Schema) Columns() []string {
	cols := make([]string, 0, 6+len(s.SelectFields))
	for _, c := range []string{
		s.KeyColumn,
		s.DescriptionColumn,
		s.RefinedColumn,
		s.PreviousColumn,
		s.ModifiedColumn,
		s.ImageURLColumn,
	} {
		if c != "" {
			cols = append(cols, c)
		}
	}
	return append(cols, s.SelectFields...)
}

// Value reads the column's value from a row. The second result is false for
// columns outside the schema.
func (r Row) Value(s Schema, column string) (string, bool) {
	switch s.Role(column) {
	case RoleKey:
		return r.Key, true
	case RoleDescription:
		return r.Description, true
	case RoleRefined:
		return r.Refined, true
	case RolePrevious:
		return r.Previous, true
	case RoleModified:
		return FormatFlag(r.Modified), true
	case RoleImageURL:
		return r.ImageURL, true
	case RoleSelect:
		return r.Field(column), true
	}
	return "", false
}

// SetValue writes the column's value into the row, returning false for
// columns that are not editable under the schema. Values are cleaned first.
func (r *Row) SetValue(s Schema, column, value string) bool {
	value = textutil.CleanValue(value)
	switch s.Role(column) {
	case RoleDescription:
		r.Description = value
	case RoleRefined:
		r.Refined = value
	case RoleImageURL:
		r.ImageURL = value
	case RoleSelect:
		if r.Fields == nil {
			r.Fields = make(map[string]string)
		}
		r.Fields[column] = value
	default:
		return false
	}
	return true
}

// ParseFlag reads a modified-flag cell. The catalog convention marks edited
// rows with "SI"; comparison is case-insensitive.
func ParseFlag(v string) bool {
	return strings.EqualFold(textutil.CleanValue(v), constants.ModifiedFlagSet)
}

// FormatFlag renders a modified flag back into its cell value.
func FormatFlag(modified bool) string {
	if modified {
		return constants.ModifiedFlagSet
	}
	return constants.ModifiedFlagClear
}
