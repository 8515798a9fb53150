package suggest

import (
	"sort"

	"cantina/internal/catalog"
	"cantina/internal/similarity"
)

// DuplicatePair flags two rows whose descriptions score at or above the
// duplicate threshold.
type DuplicatePair struct {
	LeftKey          string  `json:"left_key"`
	LeftDescription  string  `json:"left_description"`
	RightKey         string  `json:"right_key"`
	RightDescription string  `json:"right_description"`
	Score            float64 `json:"score"`
}

// Duplicates compares every pair of rows and returns the pairs scoring at
// or above threshold, highest first. Within a pair the row that comes first
// in catalog order lands on the left.
func Duplicates(rows []catalog.Row, threshold float64) []DuplicatePair {
	var pairs []DuplicatePair
	for i := 0; i < len(rows); i++ {
		for j := i + 1; j < len(rows); j++ {
			score := similarity.Similarity(rows[i].Description, rows[j].Description)
			if score < threshold {
				continue
			}
			pairs = append(pairs, DuplicatePair{
				LeftKey:          rows[i].Key,
				LeftDescription:  rows[i].Description,
				RightKey:         rows[j].Key,
				RightDescription: rows[j].Description,
				Score:            score,
			})
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].Score > pairs[b].Score
	})
	return pairs
}
