// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"modbot/internal/filter"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`
	AlertChatID      int64   `env:"ALERT_CHAT_ID,required,notEmpty"`
	ReviewChatID     int64   `env:"REVIEW_CHAT_ID"`
	ReportChatID     int64   `env:"REPORT_CHAT_ID"`
	DatabasePath     string  `env:"DATABASE_PATH" envDefault:"./data/bot.db"`
	LogLevel         string  `env:"LOG_LEVEL" envDefault:"info"`
	AllowedUsers     UserIDs `env:"ALLOWED_USERS"`

	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"5m"`

	RedditClientID     string   `env:"REDDIT_CLIENT_ID"`
	RedditClientSecret string   `env:"REDDIT_CLIENT_SECRET"`
	RedditUserAgent    string   `env:"REDDIT_USER_AGENT" envDefault:"modbot/1.0"`
	RedditSubreddits   []string `env:"REDDIT_SUBREDDITS" envSeparator:","`
	FeedURLs           []string `env:"FEED_URLS" envSeparator:","`

	// A moderator account enables polling of the reports queue.
	RedditUsername string `env:"REDDIT_USERNAME"`
	RedditPassword string `env:"REDDIT_PASSWORD"`

	ActionRanks string           `env:"ACTION_RANKS" envDefault:"monitor:1,review:2,spam:3,remove:4,ban:5"`
	Ranks       filter.RankTable `env:"-"`

	SendRate            float64       `env:"SEND_RATE" envDefault:"20"`
	HTTPAddr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	MaintenanceSchedule string        `env:"MAINTENANCE_SCHEDULE" envDefault:"@daily"`
	ItemRetention       time.Duration `env:"ITEM_RETENTION" envDefault:"720h"`
}

// UserIDs is a comma-separated list of Telegram user IDs.
type UserIDs []int64

// UnmarshalText parses "1, 2,3". Empty entries are skipped.
func (u *UserIDs) UnmarshalText(text []byte) error {
	var ids UserIDs
	for _, s := range strings.Split(string(text), ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		uid, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user ID %q: %w", s, err)
		}
		ids = append(ids, uid)
	}
	*u = ids
	return nil
}

// Load reads configuration from the environment, after loading an optional
// .env file from the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	ranks, err := filter.ParseRanks(cfg.ActionRanks)
	if err != nil {
		return nil, fmt.Errorf("ACTION_RANKS: %w", err)
	}
	cfg.Ranks = ranks

	if cfg.ReviewChatID == 0 {
		cfg.ReviewChatID = cfg.AlertChatID
	}
	if cfg.ReportChatID == 0 {
		cfg.ReportChatID = cfg.AlertChatID
	}
	if (cfg.RedditUsername == "") != (cfg.RedditPassword == "") {
		return nil, fmt.Errorf("REDDIT_USERNAME and REDDIT_PASSWORD must be set together")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}
	if cfg.SendRate <= 0 {
		return nil, fmt.Errorf("SEND_RATE must be positive, got %v", cfg.SendRate)
	}
	return cfg, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	return slices.Contains(c.AllowedUsers, userID)
}
