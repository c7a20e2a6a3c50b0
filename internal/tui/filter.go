package tui

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sahilm "github.com/sahilm/fuzzy"
)

// filterRows returns the indices of labels matching the query, best match
// first. Subsequence matching runs first; when it finds nothing, ranked
// substring matching catches near-misses.
func filterRows(query string, labels []string) []int {
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]int, len(labels))
		for i := range labels {
			out[i] = i
		}
		return out
	}

	lower := make([]string, len(labels))
	for i, l := range labels {
		lower[i] = strings.ToLower(l)
	}

	matches := sahilm.Find(strings.ToLower(query), lower)
	if len(matches) > 0 {
		out := make([]int, len(matches))
		for i, m := range matches {
			out[i] = m.Index
		}
		return out
	}

	ranked := fuzzy.RankFindFold(query, labels)
	out := make([]int, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.OriginalIndex)
	}
	return out
}
