package filter

import (
	"fmt"
	"strconv"
	"strings"

	"modbot/internal/model"
)

// RankEntry assigns a severity rank to an action tag. Higher is more severe.
type RankEntry struct {
	Tag  model.ActionTag
	Rank int
}

// RankTable maps action tags to ranks. The zero value knows no actions and
// resolves everything to model.ActionNone.
type RankTable struct {
	entries []RankEntry
	ranks   map[model.ActionTag]int
}

// DefaultRanks returns the built-in action ranking.
func DefaultRanks() RankTable {
	t, _ := NewRankTable(
		RankEntry{Tag: model.ActionMonitor, Rank: 1},
		RankEntry{Tag: model.ActionReview, Rank: 2},
		RankEntry{Tag: model.ActionSpam, Rank: 3},
		RankEntry{Tag: model.ActionRemove, Rank: 4},
		RankEntry{Tag: model.ActionBan, Rank: 5},
	)
	return t
}

// NewRankTable builds a table from entries. Tags must be unique and
// non-empty, ranks must be positive.
func NewRankTable(entries ...RankEntry) (RankTable, error) {
	t := RankTable{ranks: make(map[model.ActionTag]int, len(entries))}
	for _, e := range entries {
		if e.Tag == model.ActionNone {
			return RankTable{}, fmt.Errorf("empty action tag")
		}
		if e.Rank <= 0 {
			return RankTable{}, fmt.Errorf("action %q: rank must be positive, got %d", e.Tag, e.Rank)
		}
		if _, dup := t.ranks[e.Tag]; dup {
			return RankTable{}, fmt.Errorf("action %q: duplicate entry", e.Tag)
		}
		t.ranks[e.Tag] = e.Rank
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// ParseRanks parses a "tag:rank,tag:rank" list.
func ParseRanks(s string) (RankTable, error) {
	var entries []RankEntry
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tag, rankStr, ok := strings.Cut(part, ":")
		if !ok {
			return RankTable{}, fmt.Errorf("invalid rank entry %q, want tag:rank", part)
		}
		rank, err := strconv.Atoi(strings.TrimSpace(rankStr))
		if err != nil {
			return RankTable{}, fmt.Errorf("invalid rank for %q: %w", tag, err)
		}
		entries = append(entries, RankEntry{Tag: model.ActionTag(strings.TrimSpace(tag)), Rank: rank})
	}
	return NewRankTable(entries...)
}

// Rank returns the rank of tag, or 0 if the tag is unknown.
func (t RankTable) Rank(tag model.ActionTag) int {
	return t.ranks[tag]
}

// Entries returns the table in registration order.
func (t RankTable) Entries() []RankEntry {
	out := make([]RankEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Resolve returns the most severe action among matches. Unknown tags are
// ignored. On equal ranks the first match wins. With no recognized action
// the result is model.ActionNone.
func (t RankTable) Resolve(matches []model.TriggeredMatch) model.ActionTag {
	best, bestRank := model.ActionNone, 0
	for _, m := range matches {
		if r := t.Rank(m.Action.Tag); r > bestRank {
			best, bestRank = m.Action.Tag, r
		}
	}
	return best
}
