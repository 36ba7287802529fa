package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"modbot/internal/filter"
	"modbot/internal/model"
	"modbot/internal/storage"
)

const recentItems = 5

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID, `Moderation bot is running.

New submissions and comments are checked against your filters and
matches are posted here with the resolved moderation action.

Quick start:
1. /add_filter <name> <platform> <kind> <action> - create a filter
2. /add_match <filter> <value> - add a user, pattern or media source
3. /filters - list configured filters

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID, `Filters:
/filters [platform] - list filters
/matches <filter> - show match values or history
/add_filter <name> <platform> <kind> <action> [cooldown parent] - create a filter
/add_match <filter> <value> - add a match value
/bulk_add_match <filter> <v1> <v2> ... - add several values
/remove_match <filter> <value> - remove a match value
/notify <filter> <handle...> - set notification targets
/ranks - show action precedence

Users:
/user_report <username> - activity, tags and comments
/add_comment <username> <text> - add a moderator comment
/remove_comment <username> <number> - remove a comment
/comments <username> - list moderator comments
/reposts <item_key> - submissions with the same title

Kinds: users | patterns | media_source | media_source_history
Platforms: reddit | rss`)
}

func (b *Bot) handleFilters(ctx context.Context, chatID int64, args string) {
	platform := strings.TrimSpace(args)
	if platform != "" && !isPlatform(platform) {
		b.reply(ctx, chatID, fmt.Sprintf("Unknown platform %q.", platform))
		return
	}
	filters, err := b.store.ListFilters(ctx, platform)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, chatID, FormatFilterList(filters))
}

func (b *Bot) handleMatches(ctx context.Context, chatID int64, args string) {
	name := strings.TrimSpace(args)
	if name == "" {
		b.reply(ctx, chatID, "Usage: /matches <filter>")
		return
	}
	f, ok := b.lookupFilter(ctx, chatID, name)
	if !ok {
		return
	}
	b.reply(ctx, chatID, FormatMatches(f))
}

func (b *Bot) handleAddFilter(ctx context.Context, chatID int64, args string) {
	f, err := ParseAddFilterArgs(args)
	if err != nil {
		b.reply(ctx, chatID, err.Error())
		return
	}

	if _, err := b.store.GetFilter(ctx, f.Name); err == nil {
		b.reply(ctx, chatID, fmt.Sprintf("Filter %s already exists.", f.Name))
		return
	}

	if f.Kind == model.FilterMediaSourceHistory {
		parent, ok := b.lookupFilter(ctx, chatID, f.Parent)
		if !ok {
			return
		}
		switch {
		case parent.Kind == model.FilterMediaSourceHistory:
			b.reply(ctx, chatID, fmt.Sprintf("Parent %s is itself a history filter.", parent.Name))
			return
		case parent.Platform != f.Platform:
			b.reply(ctx, chatID, fmt.Sprintf("Parent %s belongs to platform %s.", parent.Name, parent.Platform))
			return
		}
	}

	if err := b.store.CreateFilter(ctx, &f); err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Failed to create filter: %v", err))
		return
	}
	b.log.Info("filter created", "name", f.Name, "platform", f.Platform, "kind", f.Kind, "action", f.Action.Tag)
	b.reply(ctx, chatID, fmt.Sprintf("Filter %s created (%s, %s, action %s).", f.Name, f.Platform, f.Kind, actionLabel(f.Action.Tag)))
}

func (b *Bot) handleAddMatch(ctx context.Context, chatID int64, args string) {
	name, value, err := ParseNameValue(args, "/add_match <filter> <value>")
	if err != nil {
		b.reply(ctx, chatID, err.Error())
		return
	}
	f, ok := b.lookupFilter(ctx, chatID, name)
	if !ok {
		return
	}
	b.reply(ctx, chatID, b.addMatch(ctx, f, value))
}

func (b *Bot) handleBulkAddMatch(ctx context.Context, chatID int64, args string) {
	name, values, err := ParseBulkArgs(args)
	if err != nil {
		b.reply(ctx, chatID, err.Error())
		return
	}
	f, ok := b.lookupFilter(ctx, chatID, name)
	if !ok {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Bulk add to %s:\n", f.Name)
	for _, v := range values {
		fmt.Fprintf(&sb, "- %s\n", b.addMatch(ctx, f, v))
	}
	b.reply(ctx, chatID, truncate(sb.String(), maxMessageLength))
}

// addMatch validates and stores one match value, returning a status line.
func (b *Bot) addMatch(ctx context.Context, f *model.Filter, value string) string {
	if err := validateMatch(f, value); err != nil {
		return fmt.Sprintf("%s rejected: %v", value, err)
	}
	added, err := b.store.AddMatch(ctx, f.Name, value)
	if err != nil {
		b.log.Error("add match", "filter", f.Name, "value", value, "error", err)
		return fmt.Sprintf("%s failed: %v", value, err)
	}
	if !added {
		return fmt.Sprintf("%s is already in %s.", value, f.Name)
	}
	return fmt.Sprintf("%s added to %s.", value, f.Name)
}

func validateMatch(f *model.Filter, value string) error {
	switch f.Kind {
	case model.FilterMediaSourceHistory:
		return errors.New("history filters are maintained automatically")
	case model.FilterPatterns:
		return filter.ValidateRegex(value)
	case model.FilterUsers, model.FilterMediaSource:
		return nil
	default:
		return fmt.Errorf("unknown filter kind %q", f.Kind)
	}
}

func (b *Bot) handleRemoveMatch(ctx context.Context, chatID int64, args string) {
	name, value, err := ParseNameValue(args, "/remove_match <filter> <value>")
	if err != nil {
		b.reply(ctx, chatID, err.Error())
		return
	}
	removed, err := b.store.RemoveMatch(ctx, name, value)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(ctx, chatID, fmt.Sprintf("Filter %s not found.", name))
		return
	}
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if !removed {
		b.reply(ctx, chatID, fmt.Sprintf("%s is not in %s.", value, name))
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("%s removed from %s.", value, name))
}

func (b *Bot) handleNotify(ctx context.Context, chatID int64, args string) {
	parts := strings.Fields(args)
	if len(parts) < 1 {
		b.reply(ctx, chatID, "Usage: /notify <filter> <handle...>")
		return
	}
	name, targets := parts[0], parts[1:]
	err := b.store.SetNotify(ctx, name, targets)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(ctx, chatID, fmt.Sprintf("Filter %s not found.", name))
		return
	}
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if len(targets) == 0 {
		b.reply(ctx, chatID, fmt.Sprintf("Notifications for %s cleared.", name))
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("%s will notify %s.", name, strings.Join(targets, " ")))
}

func (b *Bot) handleRanks(ctx context.Context, chatID int64) {
	var sb strings.Builder
	sb.WriteString("Action precedence (higher wins):\n")
	for _, e := range b.cfg.Ranks.Entries() {
		fmt.Fprintf(&sb, "%d %s\n", e.Rank, e.Tag)
	}
	b.reply(ctx, chatID, sb.String())
}

func (b *Bot) handleUserReport(ctx context.Context, chatID int64, args string) {
	username := strings.TrimSpace(args)
	if username == "" {
		b.reply(ctx, chatID, "Usage: /user_report <username>")
		return
	}
	b.sendUserReport(ctx, chatID, username)
}

func (b *Bot) sendUserReport(ctx context.Context, chatID int64, username string) {
	report, err := b.store.UserReport(ctx, username, recentItems)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, chatID, FormatUserReport(report))
}

func (b *Bot) handleReposts(ctx context.Context, chatID int64, args string) {
	key := strings.TrimSpace(args)
	if key == "" {
		b.reply(ctx, chatID, "Usage: /reposts <item_key>")
		return
	}
	b.sendReposts(ctx, chatID, key)
}

func (b *Bot) handleAddComment(ctx context.Context, chatID int64, author, args string) {
	username, text, err := ParseNameValue(args, "/add_comment <username> <text>")
	if err != nil {
		b.reply(ctx, chatID, err.Error())
		return
	}
	c := &model.ModComment{Username: username, Author: author, Text: text}
	if err := b.store.AddModComment(ctx, c); err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Failed to save comment: %v", err))
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("Comment added for %s.", username))
}

func (b *Bot) handleRemoveComment(ctx context.Context, chatID int64, args string) {
	username, idx, err := ParseRemoveCommentArgs(args)
	if err != nil {
		b.reply(ctx, chatID, err.Error())
		return
	}
	err = b.store.RemoveModComment(ctx, username, idx)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(ctx, chatID, fmt.Sprintf("%s has no comment #%d.", username, idx))
		return
	}
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("Comment #%d of %s removed.", idx, username))
}

func (b *Bot) handleComments(ctx context.Context, chatID int64, args string) {
	username := strings.TrimSpace(args)
	if username == "" {
		b.reply(ctx, chatID, "Usage: /comments <username>")
		return
	}
	comments, err := b.store.ListModComments(ctx, username)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, chatID, FormatModComments(username, comments))
}

func (b *Bot) lookupFilter(ctx context.Context, chatID int64, name string) (*model.Filter, bool) {
	f, err := b.store.GetFilter(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(ctx, chatID, fmt.Sprintf("Filter %s not found.", name))
		return nil, false
	}
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return nil, false
	}
	return f, true
}
