package bot

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"modbot/internal/model"
)

// maxCallbackData is Telegram's limit for inline button payloads.
const maxCallbackData = 64

// maxCooldownMinutes caps history cooldowns at one year.
const maxCooldownMinutes = 365 * 24 * 60

var platforms = []string{model.PlatformReddit, model.PlatformRSS}

// ParseAddFilterArgs parses /add_filter arguments.
// Format: <name> <platform> <kind> <action> [cooldown_minutes parent]
// History filters require both cooldown and parent; other kinds take neither.
func ParseAddFilterArgs(args string) (model.Filter, error) {
	parts := strings.Fields(args)
	if len(parts) < 4 {
		return model.Filter{}, errors.New("usage: /add_filter <name> <platform> <kind> <action> [cooldown parent]")
	}

	f := model.Filter{
		Name:     parts[0],
		Platform: parts[1],
		Kind:     model.FilterKind(parts[2]),
		Action:   model.Action{Tag: model.ActionTag(parts[3])},
	}
	if !isPlatform(f.Platform) {
		return model.Filter{}, fmt.Errorf("unknown platform %q, use: %s", f.Platform, strings.Join(platforms, ", "))
	}
	if !f.Kind.Valid() {
		return model.Filter{}, fmt.Errorf("unknown kind %q, use: %s", f.Kind, kindList())
	}

	if f.Kind != model.FilterMediaSourceHistory {
		if len(parts) > 4 {
			return model.Filter{}, fmt.Errorf("cooldown and parent are only valid for %s filters", model.FilterMediaSourceHistory)
		}
		return f, nil
	}

	if len(parts) != 6 {
		return model.Filter{}, fmt.Errorf("%s filters need: <cooldown_minutes> <parent>", model.FilterMediaSourceHistory)
	}
	cooldown, err := strconv.Atoi(parts[4])
	if err != nil || cooldown < 1 || cooldown > maxCooldownMinutes {
		return model.Filter{}, fmt.Errorf("cooldown must be between 1 and %d minutes, got %q", maxCooldownMinutes, parts[4])
	}
	f.Action.CooldownMinutes = cooldown
	f.Parent = parts[5]
	if f.Parent == f.Name {
		return model.Filter{}, errors.New("a filter cannot be its own parent")
	}
	return f, nil
}

// ParseNameValue splits arguments into the first word and the remaining
// text, which may contain spaces.
func ParseNameValue(args, usage string) (string, string, error) {
	name, value, _ := strings.Cut(strings.TrimSpace(args), " ")
	value = strings.TrimSpace(value)
	if name == "" || value == "" {
		return "", "", fmt.Errorf("usage: %s", usage)
	}
	return name, value, nil
}

// ParseBulkArgs parses "<filter> <v1> <v2> ...".
func ParseBulkArgs(args string) (string, []string, error) {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		return "", nil, errors.New("usage: /bulk_add_match <filter> <value> [value...]")
	}
	return parts[0], parts[1:], nil
}

// ParseRemoveCommentArgs parses "<username> <index>" with a 1-based index.
func ParseRemoveCommentArgs(args string) (string, int, error) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return "", 0, errors.New("usage: /remove_comment <username> <number>")
	}
	idx, err := strconv.Atoi(parts[1])
	if err != nil || idx < 1 {
		return "", 0, fmt.Errorf("invalid comment number %q", parts[1])
	}
	return parts[0], idx, nil
}

// reviewCallbackData encodes an item key and proposed action for the
// review button. The action is dropped when the payload would not fit.
func reviewCallbackData(key string, action model.ActionTag) string {
	data := cbReview + ":" + key
	if action == model.ActionNone {
		return data
	}
	if withAction := data + ":" + string(action); len(withAction) <= maxCallbackData {
		return withAction
	}
	return data
}

// parseCallbackData splits "<action>:<payload>".
func parseCallbackData(data string) (string, string, bool) {
	action, payload, ok := strings.Cut(data, ":")
	if !ok || action == "" || payload == "" {
		return "", "", false
	}
	return action, payload, true
}

func isPlatform(p string) bool {
	return slices.Contains(platforms, p)
}

func kindList() string {
	names := make([]string, len(model.FilterKinds))
	for i, k := range model.FilterKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
