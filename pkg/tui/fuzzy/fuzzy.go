// ABOUTME: Thin wrapper over sahilm/fuzzy for narrowing a candidate list before a picker session
// ABOUTME: Returns matches best-first; an empty pattern keeps every item in its original order

package fuzzy

import "github.com/sahilm/fuzzy"

// Match represents a single fuzzy match result.
type Match struct {
	Str            string
	Index          int
	MatchedIndexes []int
	Score          int
}

// Find performs fuzzy matching of pattern against the given items.
// Returns matches sorted by score (best first).
func Find(pattern string, items []string) []Match {
	results := fuzzy.Find(pattern, items)
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			Str:            r.Str,
			Index:          r.Index,
			MatchedIndexes: r.MatchedIndexes,
			Score:          r.Score,
		}
	}
	return matches
}

// Filter returns the items matching pattern, best match first.
func Filter(pattern string, items []string) []string {
	if pattern == "" {
		return items
	}
	matches := Find(pattern, items)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Str
	}
	return out
}
