package filter

import (
	"fmt"
	"slices"
	"time"

	"modbot/internal/model"
)

// UpdateOp is the kind of persistence instruction emitted for a history filter.
type UpdateOp int

// History update operations.
const (
	// UpdateAdd appends Record to the filter's stored history.
	UpdateAdd UpdateOp = iota + 1
	// UpdateReplace overwrites the stored history with Records.
	UpdateReplace
)

func (op UpdateOp) String() string {
	switch op {
	case UpdateAdd:
		return "add"
	case UpdateReplace:
		return "replace"
	default:
		return fmt.Sprintf("UpdateOp(%d)", int(op))
	}
}

// HistoryUpdate is a pending write to a history filter's stored records.
type HistoryUpdate struct {
	Op      UpdateOp
	Filter  string
	Record  model.HistoryRecord
	Records []model.HistoryRecord
}

// historyTracker holds the batch-scoped working copies of history records,
// keyed by filter name. It is created per Evaluate call and never shared.
type historyTracker struct {
	parents map[string]model.Filter
	working map[string][]model.HistoryRecord
	inert   map[string]bool
	updates []HistoryUpdate
}

func newHistoryTracker(filters []model.Filter) *historyTracker {
	t := &historyTracker{
		parents: make(map[string]model.Filter, len(filters)),
		working: make(map[string][]model.HistoryRecord),
		inert:   make(map[string]bool),
	}
	for _, f := range filters {
		if _, dup := t.parents[f.Name]; !dup {
			t.parents[f.Name] = f
		}
	}
	for _, f := range filters {
		if f.Kind != model.FilterMediaSourceHistory {
			continue
		}
		parent, ok := t.parents[f.Parent]
		if f.Parent == "" || !ok || parent.Kind == model.FilterMediaSourceHistory {
			t.inert[f.Name] = true
		}
	}
	return t
}

// records returns the working copy for f, seeding it from the filter's
// stored history on first use.
func (t *historyTracker) records(f model.Filter) []model.HistoryRecord {
	recs, ok := t.working[f.Name]
	if !ok {
		recs = slices.Clone(f.History)
		t.working[f.Name] = recs
	}
	return recs
}

// parentMatches reports whether f's parent fires on item. Inert filters
// never match.
func (t *historyTracker) parentMatches(item model.ContentItem, f model.Filter) bool {
	if t.inert[f.Name] {
		return false
	}
	return len(MatchItem(item, t.parents[f.Parent])) > 0
}

// observe runs the cooldown check of history filter f for one item.
// It returns a violation match, if any.
func (t *historyTracker) observe(item model.ContentItem, f model.Filter) (model.TriggeredMatch, bool) {
	if !item.IsSubmission() || !t.parentMatches(item, f) {
		return model.TriggeredMatch{}, false
	}
	title := item.MediaTitle()
	if title == "" {
		return model.TriggeredMatch{}, false
	}

	recs := t.records(f)
	idx := slices.IndexFunc(recs, func(r model.HistoryRecord) bool { return r.Value == title })
	if idx < 0 {
		rec := model.HistoryRecord{Value: title, LastSeen: item.CreatedUTC}
		t.working[f.Name] = append(recs, rec)
		t.updates = append(t.updates, HistoryUpdate{Op: UpdateAdd, Filter: f.Name, Record: rec})
		return model.TriggeredMatch{}, false
	}

	prev := recs[idx].LastSeen
	elapsed := item.CreatedUTC - prev

	recs[idx].LastSeen = item.CreatedUTC
	t.updates = append(t.updates, HistoryUpdate{
		Op:      UpdateReplace,
		Filter:  f.Name,
		Records: slices.Clone(recs),
	})

	// Compared in seconds: a cooldown in minutes can overflow time.Duration.
	if elapsed >= int64(f.Action.CooldownMinutes)*60 {
		return model.TriggeredMatch{}, false
	}
	m := newMatch(f, formatViolation(prev, item.CreatedUTC, time.Duration(elapsed)*time.Second))
	m.PreviousSeen = prev
	return m, true
}

// inertFilters returns the names of history filters whose parent could not
// be resolved, in sorted order.
func (t *historyTracker) inertFilters() []string {
	if len(t.inert) == 0 {
		return nil
	}
	out := make([]string, 0, len(t.inert))
	for name := range t.inert {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func formatViolation(prev, cur int64, delta time.Duration) string {
	return fmt.Sprintf("previous: %s, current: %s, delta: %s",
		time.Unix(prev, 0).UTC().Format(time.RFC3339),
		time.Unix(cur, 0).UTC().Format(time.RFC3339),
		delta,
	)
}

// dedupeHistory keeps, per history filter, only the match with the most
// recent previous-seen timestamp. Other matches pass through unchanged.
func dedupeHistory(matches []model.TriggeredMatch) []model.TriggeredMatch {
	best := make(map[string]int)
	out := matches[:0:0]
	for _, m := range matches {
		if m.Kind != model.FilterMediaSourceHistory {
			out = append(out, m)
			continue
		}
		i, seen := best[m.FilterName]
		if !seen {
			best[m.FilterName] = len(out)
			out = append(out, m)
			continue
		}
		if m.PreviousSeen > out[i].PreviousSeen {
			out[i] = m
		}
	}
	return out
}
