// Package model defines the domain types used across the application.
package model

import (
	"strings"
	"time"
)

// Supported platforms.
const (
	PlatformReddit = "reddit"
	PlatformRSS    = "rss"
)

// ItemKind distinguishes submissions from comments.
type ItemKind string

// Supported item kinds.
const (
	KindSubmission ItemKind = "submission"
	KindComment    ItemKind = "comment"
)

// SubmissionExtra holds submission-only metadata.
type SubmissionExtra struct {
	MediaSource string
	MediaTitle  string
	Flair       string
}

// ContentItem is one post or comment observed on a platform.
type ContentItem struct {
	ID         string
	Platform   string
	Source     string
	Kind       ItemKind
	Author     string
	Title      string
	Body       string
	Permalink  string
	CreatedUTC int64
	Extra      *SubmissionExtra
}

// Key identifies the item across platforms.
func (c ContentItem) Key() string {
	return c.Platform + "_" + c.ID
}

// ParseItemKey splits a key produced by ContentItem.Key.
func ParseItemKey(key string) (platform, id string, ok bool) {
	platform, id, ok = strings.Cut(key, "_")
	if !ok || platform == "" || id == "" {
		return "", "", false
	}
	return platform, id, true
}

// IsSubmission reports whether the item is a submission.
func (c ContentItem) IsSubmission() bool {
	return c.Kind == KindSubmission
}

// MediaSource returns the item's media source, or "" when unknown.
func (c ContentItem) MediaSource() string {
	if c.Extra == nil {
		return ""
	}
	return c.Extra.MediaSource
}

// MediaTitle returns the item's media title, or "" when unknown.
func (c ContentItem) MediaTitle() string {
	if c.Extra == nil {
		return ""
	}
	return c.Extra.MediaTitle
}

// FilterKind defines the type of filter rule.
type FilterKind string

// Supported filter kinds.
const (
	FilterUsers              FilterKind = "users"
	FilterPatterns           FilterKind = "patterns"
	FilterMediaSource        FilterKind = "media_source"
	FilterMediaSourceHistory FilterKind = "media_source_history"
)

// FilterKinds lists every known kind in display order.
var FilterKinds = []FilterKind{
	FilterUsers,
	FilterPatterns,
	FilterMediaSource,
	FilterMediaSourceHistory,
}

// Valid reports whether k is a known filter kind.
func (k FilterKind) Valid() bool {
	for _, known := range FilterKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ActionTag names a moderation action.
type ActionTag string

// Well-known action tags. Filters may carry other tags.
const (
	ActionNone    ActionTag = ""
	ActionMonitor ActionTag = "monitor"
	ActionReview  ActionTag = "review"
	ActionSpam    ActionTag = "spam"
	ActionRemove  ActionTag = "remove"
	ActionBan     ActionTag = "ban"
)

// Action describes what a filter asks moderators to do.
// CooldownMinutes is only meaningful for history filters.
type Action struct {
	Tag             ActionTag
	CooldownMinutes int
}

// HistoryRecord is one remembered occurrence of a value tracked by a
// history filter.
type HistoryRecord struct {
	Value    string
	LastSeen int64
}

// Filter is a named rule pairing a matching condition with an action.
// Plain kinds keep their values in Matches, history filters in History.
type Filter struct {
	ID          int64
	Name        string
	Platform    string
	Kind        FilterKind
	Action      Action
	Matches     []string
	History     []HistoryRecord
	Parent      string
	Notify      []string
	Description string
	CreatedAt   time.Time
}

// TriggeredMatch is the result of one filter firing against one item.
type TriggeredMatch struct {
	FilterName   string
	Kind         FilterKind
	Action       Action
	Notify       []string
	Flagged      string
	PreviousSeen int64
}

// ModComment is a moderator note attached to a user.
type ModComment struct {
	ID        int64
	Username  string
	Author    string
	Text      string
	CreatedAt time.Time
}

// ContentReport is an item in a platform's reports queue together with
// the number of reports received per reason.
type ContentReport struct {
	ItemID   string
	Platform string
	Source   string
	Kind     ItemKind
	Author   string
	// Content is the title of a submission or the body of a comment.
	Content    string
	Permalink  string
	CreatedUTC int64
	Reasons    map[string]int
}

// Key identifies the reported item the same way ContentItem.Key does.
func (r ContentReport) Key() string {
	return r.Platform + "_" + r.ItemID
}

// Total returns the number of reports across all reasons.
func (r ContentReport) Total() int {
	n := 0
	for _, c := range r.Reasons {
		n += c
	}
	return n
}

// UserReport summarizes what is known about a user.
type UserReport struct {
	Username        string
	SubmissionCount int
	CommentCount    int
	Tags            []string
	ModComments     []ModComment
	Reports         []ContentReport
	Recent          []ContentItem
}

// ReviewStatus is the lifecycle state of a secondary review.
type ReviewStatus string

// Review states.
const (
	ReviewOpen     ReviewStatus = "open"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Review is a secondary moderator decision requested on an alert.
type Review struct {
	ID          string
	ItemKey     string
	Action      ActionTag
	RequestedBy string
	ResolvedBy  string
	Status      ReviewStatus
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

// Vote is one reviewer's +1/-1 on a review.
type Vote struct {
	ReviewID string
	UserID   int64
	Username string
	Value    int
}
