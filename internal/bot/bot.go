package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"modbot/internal/config"
	"modbot/internal/filter"
	"modbot/internal/model"
	"modbot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram bot that handles moderator commands and sends alerts.
type Bot struct {
	api     telegramAPI
	store   storage.Storage
	cfg     *config.Config
	limiter *rate.Limiter
	log     *slog.Logger
}

// New creates a Bot with the given Telegram token, storage, and config.
func New(token string, store storage.Storage, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:     api,
		store:   store,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.SendRate), 1),
		log:     log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() || update.Message.From == nil {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(ctx, update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendAlert posts an alert for a matched item to the alert chat, with
// buttons for review, user report and ignore.
func (b *Bot) SendAlert(ctx context.Context, im filter.ItemMatches, action model.ActionTag) error {
	msg := tgbotapi.NewMessage(b.cfg.AlertChatID, FormatAlert(im, action))
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = alertKeyboard(im.Item, action)
	return b.send(ctx, msg)
}

// SendReport posts a newly reported item to the report chat.
func (b *Bot) SendReport(ctx context.Context, r model.ContentReport) error {
	msg := tgbotapi.NewMessage(b.cfg.ReportChatID, FormatReport(r))
	msg.DisableWebPagePreview = true
	return b.send(ctx, msg)
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if err := b.send(ctx, msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	b.SendMessage(ctx, chatID, text)
}

// send paces outgoing messages to stay under Telegram's flood limits.
func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for send slot: %w", err)
	}
	if _, err := b.api.Send(c); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(ctx, chatID)
	case "help":
		b.handleHelp(ctx, chatID)
	case "filters":
		b.handleFilters(ctx, chatID, args)
	case "matches":
		b.handleMatches(ctx, chatID, args)
	case "add_filter":
		b.handleAddFilter(ctx, chatID, args)
	case "add_match":
		b.handleAddMatch(ctx, chatID, args)
	case "bulk_add_match":
		b.handleBulkAddMatch(ctx, chatID, args)
	case "remove_match":
		b.handleRemoveMatch(ctx, chatID, args)
	case "notify":
		b.handleNotify(ctx, chatID, args)
	case "ranks":
		b.handleRanks(ctx, chatID)
	case "user_report":
		b.handleUserReport(ctx, chatID, args)
	case "add_comment":
		b.handleAddComment(ctx, chatID, displayName(msg.From), args)
	case "remove_comment":
		b.handleRemoveComment(ctx, chatID, args)
	case "comments":
		b.handleComments(ctx, chatID, args)
	case "reposts":
		b.handleReposts(ctx, chatID, args)
	default:
		b.reply(ctx, chatID, "Unknown command. Use /help for a list of commands.")
	}
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return "unknown"
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return fmt.Sprintf("user %d", u.ID)
}
