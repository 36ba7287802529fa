package bot

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"modbot/internal/filter"
	"modbot/internal/model"
)

const (
	maxMessageLength = 4096
	maxBodyLength    = 500
	maxTitleLength   = 80
)

// FormatAlert formats an item and the filters it triggered as an alert
// message headed by the resolved action.
func FormatAlert(im filter.ItemMatches, action model.ActionTag) string {
	it := im.Item
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s", actionLabel(action), it.Platform, it.Kind)
	if it.Source != "" {
		fmt.Fprintf(&b, " in %s", it.Source)
	}
	b.WriteString("\n")
	if it.Author != "" {
		fmt.Fprintf(&b, "Author: %s\n", it.Author)
	}
	if it.Permalink != "" {
		fmt.Fprintf(&b, "%s\n", it.Permalink)
	}
	if it.Title != "" {
		fmt.Fprintf(&b, "\n%s\n", it.Title)
	}
	if it.Body != "" {
		fmt.Fprintf(&b, "\n%s\n", truncate(it.Body, maxBodyLength))
	}

	b.WriteString("\nTriggered filters:\n")
	for _, m := range im.Matches {
		fmt.Fprintf(&b, "- %s (%s, %s): %s\n", m.FilterName, m.Kind, actionLabel(m.Action.Tag), m.Flagged)
		if len(m.Notify) > 0 {
			fmt.Fprintf(&b, "  notify: %s\n", strings.Join(m.Notify, " "))
		}
	}
	return truncate(b.String(), maxMessageLength)
}

// FormatFilterList formats filters for display.
func FormatFilterList(filters []model.Filter) string {
	if len(filters) == 0 {
		return "No filters configured. Use /add_filter to create one."
	}
	var b strings.Builder
	b.WriteString("Filters:\n")
	for _, f := range filters {
		fmt.Fprintf(&b, "\n%s [%s, %s] action: %s\n", f.Name, f.Platform, f.Kind, actionLabel(f.Action.Tag))
		if f.Kind == model.FilterMediaSourceHistory {
			fmt.Fprintf(&b, "   cooldown %d min, parent %s, %d records\n", f.Action.CooldownMinutes, f.Parent, len(f.History))
		} else {
			fmt.Fprintf(&b, "   %d matches\n", len(f.Matches))
		}
		if len(f.Notify) > 0 {
			fmt.Fprintf(&b, "   notify: %s\n", strings.Join(f.Notify, " "))
		}
	}
	return truncate(b.String(), maxMessageLength)
}

// FormatMatches lists the match values of a filter. History filters show
// each recorded value with the time it was last seen.
func FormatMatches(f *model.Filter) string {
	if f.Kind == model.FilterMediaSourceHistory {
		if len(f.History) == 0 {
			return fmt.Sprintf("Filter %s has no history yet.", f.Name)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "History of %s (cooldown %d min):\n", f.Name, f.Action.CooldownMinutes)
		for _, h := range f.History {
			fmt.Fprintf(&b, "- %s (last seen %s)\n", h.Value, formatEpoch(h.LastSeen))
		}
		return truncate(b.String(), maxMessageLength)
	}

	if len(f.Matches) == 0 {
		return fmt.Sprintf("Filter %s has no matches. Use /add_match to add one.", f.Name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Matches of %s (%s):\n", f.Name, f.Kind)
	for _, m := range f.Matches {
		fmt.Fprintf(&b, "- %s\n", m)
	}
	return truncate(b.String(), maxMessageLength)
}

// FormatUserReport formats stored activity and moderator notes for a user.
func FormatUserReport(r *model.UserReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User report: %s\n", r.Username)
	fmt.Fprintf(&b, "Submissions: %d, comments: %d\n", r.SubmissionCount, r.CommentCount)
	if len(r.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(r.Tags, ", "))
	} else {
		b.WriteString("Tags: none\n")
	}

	if len(r.ModComments) > 0 {
		b.WriteString("\nMod comments:\n")
		writeModComments(&b, r.ModComments)
	}

	if len(r.Reports) > 0 {
		b.WriteString("\nReports:\n")
		for _, cr := range r.Reports {
			fmt.Fprintf(&b, "- [%s] %s %s: %s\n", formatEpoch(cr.CreatedUTC), cr.Kind, cr.Source, truncate(cr.Content, maxTitleLength))
			fmt.Fprintf(&b, "  %s\n", formatReasons(cr.Reasons))
		}
	}

	if len(r.Recent) > 0 {
		b.WriteString("\nRecent activity:\n")
		for _, it := range r.Recent {
			text := it.Title
			if text == "" {
				text = it.Body
			}
			fmt.Fprintf(&b, "- [%s] %s %s: %s\n", formatEpoch(it.CreatedUTC), it.Kind, it.Source, truncate(text, maxTitleLength))
			if it.Permalink != "" {
				fmt.Fprintf(&b, "  %s\n", it.Permalink)
			}
		}
	}
	return truncate(b.String(), maxMessageLength)
}

// FormatReport formats a reported item for the report chat.
func FormatReport(r model.ContentReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[REPORTED] %s %s", r.Platform, r.Kind)
	if r.Source != "" {
		fmt.Fprintf(&b, " in %s", r.Source)
	}
	b.WriteString("\n")
	if r.Author != "" {
		fmt.Fprintf(&b, "Author: %s\n", r.Author)
	}
	if r.Permalink != "" {
		fmt.Fprintf(&b, "%s\n", r.Permalink)
	}
	if r.Content != "" {
		fmt.Fprintf(&b, "\n%s\n", truncate(r.Content, maxBodyLength))
	}
	fmt.Fprintf(&b, "\nReports (%d): %s\n", r.Total(), formatReasons(r.Reasons))
	return truncate(b.String(), maxMessageLength)
}

// FormatReposts lists stored submissions sharing the title of key.
func FormatReposts(key string, items []model.ContentItem) string {
	if len(items) == 0 {
		return fmt.Sprintf("No reposts of %s found.", key)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Reposts of %s (%d):\n", key, len(items))
	for _, it := range items {
		fmt.Fprintf(&b, "- [%s] %s by %s\n", formatEpoch(it.CreatedUTC), it.Source, it.Author)
		if it.Permalink != "" {
			fmt.Fprintf(&b, "  %s\n", it.Permalink)
		}
	}
	return truncate(b.String(), maxMessageLength)
}

// formatReasons renders reasons most reported first, ties by name.
func formatReasons(reasons map[string]int) string {
	if len(reasons) == 0 {
		return "no reasons"
	}
	names := make([]string, 0, len(reasons))
	for name := range reasons {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return cmp.Or(cmp.Compare(reasons[b], reasons[a]), cmp.Compare(a, b))
	})
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s x%d", name, reasons[name])
	}
	return strings.Join(parts, ", ")
}

// FormatModComments lists a user's moderator comments, numbered from 1.
func FormatModComments(username string, comments []model.ModComment) string {
	if len(comments) == 0 {
		return fmt.Sprintf("No comments for %s.", username)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Comments for %s:\n", username)
	writeModComments(&b, comments)
	return truncate(b.String(), maxMessageLength)
}

func writeModComments(b *strings.Builder, comments []model.ModComment) {
	for i, c := range comments {
		fmt.Fprintf(b, "%d. %s (by %s, %s)\n", i+1, c.Text, c.Author, c.CreatedAt.Format("2006-01-02"))
	}
}

// FormatReviewRequest formats the message posted to the review chat.
func FormatReviewRequest(r *model.Review, alertText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review requested by %s\n", r.RequestedBy)
	fmt.Fprintf(&b, "Proposed action: %s\n", actionLabel(r.Action))
	fmt.Fprintf(&b, "Item: %s\n", r.ItemKey)
	if alertText != "" {
		fmt.Fprintf(&b, "\n%s", alertText)
	}
	return truncate(b.String(), maxMessageLength)
}

// FormatReviewOutcome summarizes a resolved review and its votes.
func FormatReviewOutcome(r *model.Review, votes []model.Vote) string {
	up, down := voteCounts(votes)
	var b strings.Builder
	fmt.Fprintf(&b, "Review of %s %s by %s\n", r.ItemKey, r.Status, r.ResolvedBy)
	fmt.Fprintf(&b, "Requested by: %s\n", r.RequestedBy)
	fmt.Fprintf(&b, "Proposed action: %s\n", actionLabel(r.Action))
	fmt.Fprintf(&b, "Votes: %+d (%d up, %d down)", up-down, up, down)
	return b.String()
}

// VoteScore returns the sum of all vote values.
func VoteScore(votes []model.Vote) int {
	up, down := voteCounts(votes)
	return up - down
}

func voteCounts(votes []model.Vote) (up, down int) {
	for _, v := range votes {
		switch {
		case v.Value > 0:
			up++
		case v.Value < 0:
			down++
		}
	}
	return up, down
}

func actionLabel(tag model.ActionTag) string {
	if tag == model.ActionNone {
		return "NO ACTION"
	}
	return strings.ToUpper(string(tag))
}

func formatEpoch(sec int64) string {
	return time.Unix(sec, 0).UTC().Format("2006-01-02 15:04 UTC")
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}
