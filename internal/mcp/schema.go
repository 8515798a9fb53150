// Package mcp provides an MCP (Model Context Protocol) server for the catalog.
package mcp

import (
	"cantina/internal/suggest"
)

// CatalogSearchInput defines the input for the catalog_search tool.
type CatalogSearchInput struct {
	Contains     string `json:"contains,omitempty" jsonschema:"description=Case-insensitive substring matched against keys, descriptions, and detail fields"`
	ModifiedOnly bool   `json:"modified_only,omitempty" jsonschema:"description=Only rows whose refined description was edited"`
	MissingImage bool   `json:"missing_image,omitempty" jsonschema:"description=Only rows without an image URL"`
	Limit        int    `json:"limit,omitempty" jsonschema:"description=Maximum number of rows to return (default: 50)"`
}

// CatalogSearchOutput defines the output for the catalog_search tool.
type CatalogSearchOutput struct {
	Rows  []RowSummary `json:"rows" jsonschema:"description=Matching rows, in catalog order"`
	Count int          `json:"count" jsonschema:"description=Number of rows matched before the limit was applied"`
}

// RowSummary provides a compact view of a catalog row.
type RowSummary struct {
	Key         string `json:"key"`
	Description string `json:"description"`
	Refined     string `json:"refined,omitempty"`
	Modified    bool   `json:"modified"`
	ImageURL    string `json:"image_url,omitempty"`
}

// CatalogSuggestInput defines the input for the catalog_suggest tool.
type CatalogSuggestInput struct {
	Key   string `json:"key,omitempty" jsonschema:"description=Article key of the row to find reference descriptions for"`
	Text  string `json:"text,omitempty" jsonschema:"description=Free text to rank against when no key is given"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum number of suggestions (default from config)"`
}

// CatalogSuggestOutput defines the output for the catalog_suggest tool.
type CatalogSuggestOutput struct {
	Query       string               `json:"query" jsonschema:"description=Description text the suggestions were ranked against"`
	Suggestions []suggest.Suggestion `json:"suggestions" jsonschema:"description=Candidate rows, best match first"`
	Count       int                  `json:"count" jsonschema:"description=Number of suggestions returned"`
}

// CatalogDiffInput defines the input for the catalog_diff tool.
type CatalogDiffInput struct {
	Old string `json:"old,omitempty" jsonschema:"description=Old text to compare"`
	New string `json:"new,omitempty" jsonschema:"description=New text to compare"`
	Key string `json:"key,omitempty" jsonschema:"description=Article key; diffs the row's previous description against its current one"`
}

// CatalogDiffOutput defines the output for the catalog_diff tool.
type CatalogDiffOutput struct {
	Old       string `json:"old" jsonschema:"description=Old text that was compared"`
	New       string `json:"new" jsonschema:"description=New text that was compared"`
	OldMarked string `json:"old_marked" jsonschema:"description=Old text as HTML with deletions marked"`
	NewMarked string `json:"new_marked" jsonschema:"description=New text as HTML with insertions marked"`
}

// CatalogDuplicatesInput defines the input for the catalog_duplicates tool.
type CatalogDuplicatesInput struct {
	Threshold float64 `json:"threshold,omitempty" jsonschema:"description=Similarity threshold in (0.0, 1.0] (default from config)"`
	Limit     int     `json:"limit,omitempty" jsonschema:"description=Maximum number of pairs to return"`
}

// CatalogDuplicatesOutput defines the output for the catalog_duplicates tool.
type CatalogDuplicatesOutput struct {
	Pairs     []suggest.DuplicatePair `json:"pairs" jsonschema:"description=Likely duplicate pairs, highest score first"`
	Count     int                     `json:"count" jsonschema:"description=Number of pairs found before the limit was applied"`
	Threshold float64                 `json:"threshold" jsonschema:"description=Threshold that was applied"`
}
