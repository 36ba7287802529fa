package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"modbot/migrations"
)

type migrateEnv struct {
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/bot.db"`
}

// command is one migrate subcommand. Commands with a version argument
// receive it parsed; the others get 0.
type command struct {
	usage      string
	needsValue bool
	run        func(db *sql.DB, version int64) error
}

var commands = map[string]command{
	"up":      {usage: "apply all pending migrations", run: func(db *sql.DB, _ int64) error { return goose.Up(db, ".") }},
	"up-to":   {usage: "apply migrations up to <version>", needsValue: true, run: func(db *sql.DB, v int64) error { return goose.UpTo(db, ".", v) }},
	"down":    {usage: "roll back the latest migration", run: func(db *sql.DB, _ int64) error { return goose.Down(db, ".") }},
	"down-to": {usage: "roll back to <version>", needsValue: true, run: func(db *sql.DB, v int64) error { return goose.DownTo(db, ".", v) }},
	"redo":    {usage: "roll back and reapply the latest migration", run: func(db *sql.DB, _ int64) error { return goose.Redo(db, ".") }},
	"status":  {usage: "show applied and pending migrations", run: func(db *sql.DB, _ int64) error { return goose.Status(db, ".") }},
	"version": {usage: "print the schema version", run: func(db *sql.DB, _ int64) error { return goose.Version(db, ".") }},
	"reset":   {usage: "roll back every migration (drops filters, items and reviews)", run: func(db *sql.DB, _ int64) error { return goose.Reset(db, ".") }},
}

var commandOrder = []string{"up", "up-to", "down", "down-to", "redo", "status", "version", "reset"}

func main() {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	var cfg migrateEnv
	if err := env.Parse(&cfg); err != nil {
		slog.Error("parse environment", "error", err)
		os.Exit(1)
	}

	dbPath := flag.String("db", cfg.DatabasePath, "path to the modbot sqlite database")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		slog.Error("open database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := run(db, flag.Args()); err != nil {
		slog.Error("migrate", "db", *dbPath, "error", err)
		os.Exit(1)
	}
}

func run(db *sql.DB, args []string) error {
	if len(args) == 0 {
		return errors.New("missing command")
	}
	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}

	var version int64
	switch {
	case cmd.needsValue && len(args) != 2:
		return fmt.Errorf("%s: expected a version argument", name)
	case cmd.needsValue:
		v, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || v < 0 {
			return fmt.Errorf("%s: invalid version %q", name, args[1])
		}
		version = v
	case len(args) > 1:
		return fmt.Errorf("%s: unexpected arguments %v", name, args[1:])
	}

	if err := migrations.Setup(); err != nil {
		return err
	}
	if err := cmd.run(db, version); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: migrate [-db path] <command> [version]")
	fmt.Fprintln(os.Stderr, "\nManages the modbot schema (filters, content items, users, reviews).")
	fmt.Fprintln(os.Stderr, "\nCommands:")
	for _, name := range commandOrder {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", name, commands[name].usage)
	}
	fmt.Fprintln(os.Stderr, "\nFlags:")
	flag.PrintDefaults()
}
