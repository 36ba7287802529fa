// Package filter implements the content matching and moderation decision engine.
package filter

import (
	"fmt"
	"regexp"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"modbot/internal/model"
)

// MatchItem evaluates one item against one filter and returns every match
// it triggers. History filters depend on batch state and never match here;
// Evaluate handles them. Unknown kinds produce no matches.
func MatchItem(item model.ContentItem, f model.Filter) []model.TriggeredMatch {
	switch f.Kind {
	case model.FilterUsers:
		return matchUsers(item, f)
	case model.FilterPatterns:
		return matchPatterns(item, f)
	case model.FilterMediaSource:
		return matchMediaSource(item, f)
	case model.FilterMediaSourceHistory:
		return nil
	default:
		return nil
	}
}

func matchUsers(item model.ContentItem, f model.Filter) []model.TriggeredMatch {
	if item.Author == "" || !slices.Contains(f.Matches, item.Author) {
		return nil
	}
	return []model.TriggeredMatch{newMatch(f, item.Author)}
}

// matchPatterns reports one match per (pattern, field) pair. Submissions
// are checked on title and body, comments on body only.
func matchPatterns(item model.ContentItem, f model.Filter) []model.TriggeredMatch {
	fields := []string{item.Body}
	if item.IsSubmission() {
		fields = []string{item.Title, item.Body}
	}

	var out []model.TriggeredMatch
	for _, pattern := range f.Matches {
		re := compile(pattern)
		if re == nil {
			continue
		}
		for _, text := range fields {
			if text != "" && re.MatchString(text) {
				out = append(out, newMatch(f, pattern))
			}
		}
	}
	return out
}

func matchMediaSource(item model.ContentItem, f model.Filter) []model.TriggeredMatch {
	if !item.IsSubmission() {
		return nil
	}
	src := item.MediaSource()
	if src == "" || !slices.Contains(f.Matches, src) {
		return nil
	}
	return []model.TriggeredMatch{newMatch(f, src)}
}

func newMatch(f model.Filter, flagged string) model.TriggeredMatch {
	return model.TriggeredMatch{
		FilterName: f.Name,
		Kind:       f.Kind,
		Action:     f.Action,
		Notify:     f.Notify,
		Flagged:    flagged,
	}
}

const regexCacheSize = 4096

// reCache maps a pattern to its compiled form, or to nil when the pattern
// is invalid. The LRU is safe for concurrent use.
var reCache, _ = lru.New[string, *regexp.Regexp](regexCacheSize)

// compile returns the cached regexp for pattern, or nil if it does not compile.
func compile(pattern string) *regexp.Regexp {
	if re, ok := reCache.Get(pattern); ok {
		return re
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		re = nil
	}
	reCache.Add(pattern, re)
	return re
}

// ValidateRegex checks whether a pattern is a valid regular expression.
func ValidateRegex(pattern string) error {
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	return nil
}
