// Package suggest builds ranked description suggestions for catalog rows.
//
// Given a row, the engine scores every other row's description against it
// and returns the closest ones, each carrying a display label and the
// copy-field values needed to prefill an edit. The same scoring also backs
// duplicate detection and near-miss key lookups.
package suggest

import (
	"fmt"

	"cantina/internal/catalog"
	"cantina/internal/constants"
	"cantina/internal/similarity"
)

// Suggestion is one candidate row offered as a reference for editing.
type Suggestion struct {
	// Key is the candidate row's article key.
	Key string `json:"key"`
	// Description is the candidate's raw description.
	Description string `json:"description"`
	// Score is the similarity to the queried row's description, in [0, 1].
	Score float64 `json:"score"`
	// Label is the display form: "description — key (score)".
	Label string `json:"label"`
	// Prefill holds the candidate's copy-field values by column.
	Prefill map[string]string `json:"prefill,omitempty"`
}

// Engine ranks candidate rows for a catalog schema.
type Engine struct {
	schema   catalog.Schema
	limit    int
	minScore float64
}

// NewEngine creates a suggestion engine. A non-positive limit falls back to
// the default suggestion cap.
func NewEngine(schema catalog.Schema, limit int, minScore float64) *Engine {
	if limit <= 0 {
		limit = constants.DefaultSuggestionLimit
	}
	return &Engine{schema: schema, limit: limit, minScore: minScore}
}

// ForRow returns suggestions for row drawn from rows, best first. The row
// itself is excluded by key; ties keep catalog order.
func (e *Engine) ForRow(row catalog.Row, rows []catalog.Row) []Suggestion {
	candidates := make([]catalog.Row, 0, len(rows))
	texts := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Key == row.Key {
			continue
		}
		candidates = append(candidates, r)
		texts = append(texts, r.Description)
	}

	matches := similarity.Rank(row.Description, texts)

	suggestions := make([]Suggestion, 0, e.limit)
	for _, m := range matches {
		// Matches are sorted, so the first miss ends the scan.
		if m.Score < e.minScore || len(suggestions) == e.limit {
			break
		}
		cand := candidates[m.Index]
		suggestions = append(suggestions, Suggestion{
			Key:         cand.Key,
			Description: cand.Description,
			Score:       m.Score,
			Label:       label(cand.Description, cand.Key, m.Score),
			Prefill:     e.prefill(cand),
		})
	}
	return suggestions
}

// prefill collects the candidate's copy-field values.
func (e *Engine) prefill(r catalog.Row) map[string]string {
	if len(e.schema.CopyFields) == 0 {
		return nil
	}
	p := make(map[string]string, len(e.schema.CopyFields))
	for _, column := range e.schema.CopyFields {
		v, _ := r.Value(e.schema, column)
		p[column] = v
	}
	return p
}

// label renders the display form of a suggestion.
func label(description, key string, score float64) string {
	return fmt.Sprintf("%s — %s ("+constants.ScoreLabelFormat+")", description, key, score)
}
