package suggest

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"cantina/internal/constants"
	"cantina/internal/textutil"
)

// DidYouMean returns stored keys within a small edit distance of a missed
// lookup, nearest first. Comparison is case-insensitive; ties keep catalog
// order. A non-positive max falls back to the default alternative count.
func DidYouMean(miss string, keys []string, max int) []string {
	if max <= 0 {
		max = constants.DidYouMeanMax
	}

	folded := textutil.Fold(strings.TrimSpace(miss))
	if folded == "" {
		return nil
	}

	type scored struct {
		key  string
		dist int
	}
	var near []scored
	for _, k := range keys {
		d := levenshtein.ComputeDistance(folded, textutil.Fold(k))
		if d > constants.DidYouMeanMaxDistance {
			continue
		}
		near = append(near, scored{key: k, dist: d})
	}

	sort.SliceStable(near, func(i, j int) bool {
		return near[i].dist < near[j].dist
	})
	if len(near) > max {
		near = near[:max]
	}

	out := make([]string, len(near))
	for i, s := range near {
		out[i] = s.key
	}
	return out
}
