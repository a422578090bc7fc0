// Package extractor defines the preference-extraction capability used by
// the preference worker (spec.md §4.7), grounded on
// original_source/backend/scripts/pref_worker.py's extract_prefs_regex /
// extract_prefs_llm split.
package extractor

import "context"

// Extractor pulls structured preference facts out of conversation messages.
// Keys are limited to the set spec.md §4.7 names: budget (int), departure_city
// (string), likes ([]string), avoid_crowds (bool). Unknown facts are omitted,
// never guessed.
type Extractor interface {
	Extract(ctx context.Context, messages []string) (map[string]any, error)
}
