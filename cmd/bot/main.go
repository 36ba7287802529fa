package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"modbot/internal/bot"
	"modbot/internal/config"
	"modbot/internal/httpapi"
	"modbot/internal/scheduler"
	"modbot/internal/source"
	"modbot/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	b, err := bot.New(cfg.TelegramBotToken, store, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	sources := buildSources(cfg, log)
	if len(sources) == 0 {
		log.Warn("no content sources configured, set REDDIT_* or FEED_URLS")
	}
	sched := scheduler.New(store, sources, b, cfg.Ranks, cfg.PollInterval, log)

	maint, err := scheduler.NewMaintenance(store, cfg.MaintenanceSchedule, cfg.ItemRetention, log)
	if err != nil {
		log.Error("create maintenance", "error", err)
		os.Exit(1)
	}
	maint.Start()
	defer maint.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var server *http.Server
	if cfg.HTTPAddr != "" {
		server = httpapi.NewServer(cfg.HTTPAddr, httpapi.NewRouter(sched, log))
		go func() {
			log.Info("http server starting", "addr", cfg.HTTPAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server", "error", err)
			}
		}()
	}

	log.Info("starting bot", "sources", len(sources), "poll_interval", cfg.PollInterval)

	go sched.Run(ctx)

	b.Run(ctx)

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown", "error", err)
		}
	}

	log.Info("bot stopped")
}

func buildSources(cfg *config.Config, log *slog.Logger) []source.Source {
	var sources []source.Source

	reddit := source.NewReddit(source.RedditConfig{
		ClientID:     cfg.RedditClientID,
		ClientSecret: cfg.RedditClientSecret,
		UserAgent:    cfg.RedditUserAgent,
		Subreddits:   cfg.RedditSubreddits,
		Username:     cfg.RedditUsername,
		Password:     cfg.RedditPassword,
	}, log.With("source", "reddit"))
	if reddit.IsEnabled() {
		sources = append(sources, reddit)
	}

	client := source.NewHTTPClient(log.With("component", "feed_http"), 3)
	for _, u := range cfg.FeedURLs {
		if u = strings.TrimSpace(u); u == "" {
			continue
		}
		sources = append(sources, source.NewFeed(u, client))
	}
	return sources
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
