package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"modbot/internal/model"
	"modbot/internal/storage"
)

const (
	cbReview  = "review"
	cbReport  = "report"
	cbIgnore  = "ignore"
	cbApprove = "approve"
	cbReject  = "reject"
	cbUp      = "up"
	cbDown    = "down"
	cbReposts = "reposts"
)

// alertKeyboard offers a reposts lookup only for submissions, which carry
// the title it matches on.
func alertKeyboard(item model.ContentItem, action model.ActionTag) tgbotapi.InlineKeyboardMarkup {
	key := item.Key()
	row := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Review", reviewCallbackData(key, action)),
		tgbotapi.NewInlineKeyboardButtonData("User report", cbReport+":"+key),
		tgbotapi.NewInlineKeyboardButtonData("Ignore", cbIgnore+":"+key),
	)
	if item.IsSubmission() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Reposts", cbReposts+":"+key))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func reviewKeyboard(reviewID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Approve", cbApprove+":"+reviewID),
			tgbotapi.NewInlineKeyboardButtonData("Reject", cbReject+":"+reviewID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("+1", cbUp+":"+reviewID),
			tgbotapi.NewInlineKeyboardButtonData("-1", cbDown+":"+reviewID),
		),
	)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	ack := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Request(ack); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	if cb.Message == nil || cb.From == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	if !b.cfg.IsUserAllowed(cb.From.ID) {
		b.reply(ctx, chatID, "Access denied.")
		return
	}

	action, payload, ok := parseCallbackData(cb.Data)
	if !ok {
		return
	}

	b.log.Info("callback",
		"action", action,
		"payload", payload,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	switch action {
	case cbReview:
		b.requestReview(ctx, chatID, cb.From, payload, cb.Message.Text)
	case cbReport:
		b.reportItemAuthor(ctx, chatID, payload)
	case cbIgnore:
		b.ignoreItem(ctx, chatID, payload)
	case cbReposts:
		b.sendReposts(ctx, chatID, payload)
	case cbApprove:
		b.resolveReview(ctx, chatID, cb.From, payload, model.ReviewApproved)
	case cbReject:
		b.resolveReview(ctx, chatID, cb.From, payload, model.ReviewRejected)
	case cbUp:
		b.vote(ctx, chatID, cb.From, payload, 1)
	case cbDown:
		b.vote(ctx, chatID, cb.From, payload, -1)
	}
}

func (b *Bot) requestReview(ctx context.Context, chatID int64, user *tgbotapi.User, payload, alertText string) {
	key, tag, _ := strings.Cut(payload, ":")
	item, ok := b.lookupItem(ctx, chatID, key)
	if !ok {
		return
	}

	r := &model.Review{
		ItemKey:     item.Key(),
		Action:      model.ActionTag(tag),
		RequestedBy: displayName(user),
	}
	if err := b.store.CreateReview(ctx, r); err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Failed to create review: %v", err))
		return
	}
	b.log.Info("review requested", "review_id", r.ID, "item", r.ItemKey, "by", r.RequestedBy)

	msg := tgbotapi.NewMessage(b.cfg.ReviewChatID, FormatReviewRequest(r, alertText))
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = reviewKeyboard(r.ID)
	if err := b.send(ctx, msg); err != nil {
		b.log.Error("send review request", "review_id", r.ID, "error", err)
		b.reply(ctx, chatID, "Review created but could not be posted to the review chat.")
		return
	}
	if chatID != b.cfg.ReviewChatID {
		b.reply(ctx, chatID, fmt.Sprintf("Review requested for %s.", r.ItemKey))
	}
}

func (b *Bot) reportItemAuthor(ctx context.Context, chatID int64, key string) {
	item, ok := b.lookupItem(ctx, chatID, key)
	if !ok {
		return
	}
	if item.Author == "" {
		b.reply(ctx, chatID, fmt.Sprintf("Item %s has no author.", key))
		return
	}
	b.sendUserReport(ctx, chatID, item.Author)
}

func (b *Bot) sendReposts(ctx context.Context, chatID int64, key string) {
	platform, id, ok := model.ParseItemKey(key)
	if !ok {
		b.reply(ctx, chatID, fmt.Sprintf("Invalid item key %q, expected <platform>_<id>.", key))
		return
	}
	items, err := b.store.FindReposts(ctx, platform, id)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(ctx, chatID, fmt.Sprintf("Item %s is no longer stored.", key))
		return
	}
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, chatID, FormatReposts(key, items))
}

func (b *Bot) ignoreItem(ctx context.Context, chatID int64, key string) {
	if _, _, ok := model.ParseItemKey(key); !ok {
		return
	}
	if err := b.store.IgnoreItem(ctx, key); err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("Item %s ignored until the next maintenance run.", key))
}

func (b *Bot) resolveReview(ctx context.Context, chatID int64, user *tgbotapi.User, id string, status model.ReviewStatus) {
	err := b.store.ResolveReview(ctx, id, status, displayName(user))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		b.reply(ctx, chatID, "Review not found.")
		return
	case errors.Is(err, storage.ErrAlreadyResolved):
		b.reply(ctx, chatID, "Review already resolved.")
		return
	case err != nil:
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	r, err := b.store.GetReview(ctx, id)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	votes, err := b.store.ListVotes(ctx, id)
	if err != nil {
		b.log.Error("list votes", "review_id", id, "error", err)
	}
	b.log.Info("review resolved", "review_id", id, "status", status, "by", r.ResolvedBy, "score", VoteScore(votes))
	b.reply(ctx, chatID, FormatReviewOutcome(r, votes))
}

func (b *Bot) vote(ctx context.Context, chatID int64, user *tgbotapi.User, id string, value int) {
	r, err := b.store.GetReview(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(ctx, chatID, "Review not found.")
		return
	}
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if r.Status != model.ReviewOpen {
		b.reply(ctx, chatID, "Review already resolved.")
		return
	}

	v := model.Vote{ReviewID: id, UserID: user.ID, Username: displayName(user), Value: value}
	if err := b.store.CastVote(ctx, v); err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	votes, err := b.store.ListVotes(ctx, id)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("Vote by %s recorded. Score: %+d", v.Username, VoteScore(votes)))
}

func (b *Bot) lookupItem(ctx context.Context, chatID int64, key string) (*model.ContentItem, bool) {
	platform, id, ok := model.ParseItemKey(key)
	if !ok {
		return nil, false
	}
	item, err := b.store.GetItem(ctx, platform, id)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(ctx, chatID, fmt.Sprintf("Item %s is no longer stored.", key))
		return nil, false
	}
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return nil, false
	}
	return item, true
}
