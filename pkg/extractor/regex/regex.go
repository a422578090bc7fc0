// Package regex implements extractor.Extractor with the heuristic
// pattern-matching rules of spec.md §4.7, a direct port of
// original_source/backend/scripts/pref_worker.py's extract_prefs_regex.
// There is no pack library for this: it is a fixed, small set of literal
// patterns, not a general NLP task, so regexp from the standard library is
// the right tool.
package regex

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Valino123/trip-memory/pkg/extractor"
)

var (
	budgetPattern = regexp.MustCompile(`(?i)\b(?:budget|under|around)\s*\$?\s*([0-9]{2,6})\b`)
	fromPattern   = regexp.MustCompile(`\bfrom\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)?)\b`)
	beachPattern  = regexp.MustCompile(`(?i)\b(?:beach|island|coast)`)
	mountainRegex = regexp.MustCompile(`(?i)\b(?:mountain|hiking|trail)`)
	culturePat    = regexp.MustCompile(`(?i)\b(?:museum|art|history)`)
	crowdPattern  = regexp.MustCompile(`(?i)\b(?:crowd|crowded|busy areas)\b`)
)

// maxTextLen caps the joined message text considered, matching pref_worker.py's
// text[:5000] truncation.
const maxTextLen = 5000

// Extractor pulls preferences out of raw message text via fixed heuristics.
type Extractor struct{}

// New returns a regex-based Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract implements extractor.Extractor.
func (e *Extractor) Extract(_ context.Context, messages []string) (map[string]any, error) {
	text := strings.Join(messages, "\n")
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}

	prefs := map[string]any{}

	if m := budgetPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			prefs["budget"] = n
		}
	}

	if m := fromPattern.FindStringSubmatch(text); m != nil {
		prefs["departure_city"] = m[1]
	}

	var likes []string
	if beachPattern.MatchString(text) {
		likes = append(likes, "beach")
	}
	if mountainRegex.MatchString(text) {
		likes = append(likes, "mountain")
	}
	if culturePat.MatchString(text) {
		likes = append(likes, "culture")
	}
	if len(likes) > 0 {
		sort.Strings(likes)
		prefs["likes"] = likes
	}

	if crowdPattern.MatchString(text) {
		prefs["avoid_crowds"] = true
	}

	return prefs, nil
}

var _ extractor.Extractor = (*Extractor)(nil)
