// Package constants provides named constants used throughout the cantina codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Suggestion ranking constants
const (
	// DefaultSuggestionLimit is the maximum number of ranked suggestions
	// returned for a row. Interactive pickers stay responsive up to a few
	// hundred entries.
	DefaultSuggestionLimit = 300

	// DefaultMinScore is the minimum similarity score for a candidate to
	// appear in a suggestion list. Zero keeps every candidate; ranking
	// still orders them by score.
	DefaultMinScore = 0.0
)

// Duplicate detection constants
const (
	// DefaultDuplicateThreshold is the similarity score at or above which
	// two catalog rows are reported as likely duplicates.
	DefaultDuplicateThreshold = 0.90
)

// Search constants
const (
	// DefaultSearchLimit caps the rows returned by a catalog_search call
	// when the caller does not ask for a limit.
	DefaultSearchLimit = 50
)

// Key lookup constants
const (
	// DidYouMeanMax is the number of alternative keys offered when a
	// lookup by article key finds nothing.
	DidYouMeanMax = 3

	// DidYouMeanMaxDistance is the maximum edit distance between a missed
	// key and an offered alternative.
	DidYouMeanMaxDistance = 3
)

// Score label constants
const (
	// ScoreLabelFormat renders a similarity score inside suggestion and
	// duplicate labels. Two decimals match the score granularity users
	// can act on.
	ScoreLabelFormat = "%.2f"
)

// Backup constants
const (
	// DefaultBackupKeep is the number of catalog snapshots retained when
	// rotation runs after a replace import.
	DefaultBackupKeep = 5
)

// Modified flag values mark rows whose refined description was edited.
// Defined as plain strings so the catalog and store packages share one
// spelling of the flag.
const (
	// ModifiedFlagSet is the stored value for a row flagged as modified.
	ModifiedFlagSet = "SI"

	// ModifiedFlagClear is the stored value for an unflagged row.
	ModifiedFlagClear = ""
)
