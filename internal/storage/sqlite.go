package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"modbot/internal/model"
	"modbot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases consistent and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

const filterColumns = `id, name, platform, kind, action, cooldown_minutes, parent, description, created_at`

// CreateFilter inserts a filter with its matches and notify targets.
func (s *SQLite) CreateFilter(ctx context.Context, f *model.Filter) error {
	now := time.Now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO filters (name, platform, kind, action, cooldown_minutes, parent, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Name, f.Platform, string(f.Kind), string(f.Action.Tag), f.Action.CooldownMinutes,
		f.Parent, f.Description, now,
	)
	if err != nil {
		return fmt.Errorf("insert filter: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	for _, v := range f.Matches {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO filter_matches (filter_id, value) VALUES (?, ?)`, id, v,
		); err != nil {
			return fmt.Errorf("insert match: %w", err)
		}
	}
	if err := insertHistory(ctx, tx, id, f.History); err != nil {
		return err
	}
	for _, target := range f.Notify {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO filter_notify (filter_id, target) VALUES (?, ?)`, id, target,
		); err != nil {
			return fmt.Errorf("insert notify target: %w", err)
		}
	}

	if err := commit(tx, "filter"); err != nil {
		return err
	}
	f.ID = id
	f.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetFilter returns a single filter by its name.
func (s *SQLite) GetFilter(ctx context.Context, name string) (*model.Filter, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+filterColumns+` FROM filters WHERE name = ?`, name)
	f, err := scanFilter(row)
	if err != nil {
		return nil, err
	}
	filters := []model.Filter{f}
	if err := s.loadFilterValues(ctx, filters); err != nil {
		return nil, err
	}
	return &filters[0], nil
}

// ListFilters returns filters in creation order.
func (s *SQLite) ListFilters(ctx context.Context, platform string) ([]model.Filter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+filterColumns+` FROM filters WHERE ? = '' OR platform = ? ORDER BY id`,
		platform, platform,
	)
	if err != nil {
		return nil, fmt.Errorf("query filters: %w", err)
	}

	var filters []model.Filter
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		filters = append(filters, f)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate filters: %w", err)
	}
	_ = rows.Close()

	if err := s.loadFilterValues(ctx, filters); err != nil {
		return nil, err
	}
	return filters, nil
}

// loadFilterValues fills Matches, History and Notify of filters in place.
func (s *SQLite) loadFilterValues(ctx context.Context, filters []model.Filter) error {
	if len(filters) == 0 {
		return nil
	}
	index := make(map[int64]int, len(filters))
	for i, f := range filters {
		index[f.ID] = i
	}

	err := s.eachRow(ctx, `SELECT filter_id, value FROM filter_matches ORDER BY id`, func(rows *sql.Rows) error {
		var id int64
		var v string
		if err := rows.Scan(&id, &v); err != nil {
			return fmt.Errorf("scan match: %w", err)
		}
		if i, ok := index[id]; ok {
			filters[i].Matches = append(filters[i].Matches, v)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = s.eachRow(ctx, `SELECT filter_id, value, last_seen FROM filter_history ORDER BY id`, func(rows *sql.Rows) error {
		var id int64
		var rec model.HistoryRecord
		if err := rows.Scan(&id, &rec.Value, &rec.LastSeen); err != nil {
			return fmt.Errorf("scan history: %w", err)
		}
		if i, ok := index[id]; ok {
			filters[i].History = append(filters[i].History, rec)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.eachRow(ctx, `SELECT filter_id, target FROM filter_notify ORDER BY id`, func(rows *sql.Rows) error {
		var id int64
		var target string
		if err := rows.Scan(&id, &target); err != nil {
			return fmt.Errorf("scan notify target: %w", err)
		}
		if i, ok := index[id]; ok {
			filters[i].Notify = append(filters[i].Notify, target)
		}
		return nil
	})
}

// AddMatch appends value to a plain filter's match list. It reports false
// if the value was already present. Adding to a user filter also tags the
// user with the filter name.
func (s *SQLite) AddMatch(ctx context.Context, filterName, value string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, kind, err := filterRef(ctx, tx, filterName)
	if err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO filter_matches (filter_id, value) VALUES (?, ?)`, id, value,
	)
	if err != nil {
		return false, fmt.Errorf("insert match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if kind == model.FilterUsers {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_tags (username, tag) VALUES (?, ?)`, value, filterName,
		); err != nil {
			return false, fmt.Errorf("insert user tag: %w", err)
		}
	}
	if err := commit(tx, "match"); err != nil {
		return false, err
	}
	return n > 0, nil
}

// RemoveMatch deletes value from a filter's match list. It reports false
// if the value was not present.
func (s *SQLite) RemoveMatch(ctx context.Context, filterName, value string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, kind, err := filterRef(ctx, tx, filterName)
	if err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM filter_matches WHERE filter_id = ? AND value = ?`, id, value,
	)
	if err != nil {
		return false, fmt.Errorf("delete match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if kind == model.FilterUsers {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM user_tags WHERE username = ? AND tag = ?`, value, filterName,
		); err != nil {
			return false, fmt.Errorf("delete user tag: %w", err)
		}
	}
	if err := commit(tx, "match"); err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetNotify replaces a filter's notification targets.
func (s *SQLite) SetNotify(ctx context.Context, filterName string, targets []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, _, err := filterRef(ctx, tx, filterName)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM filter_notify WHERE filter_id = ?`, id); err != nil {
		return fmt.Errorf("clear notify targets: %w", err)
	}
	for _, target := range targets {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO filter_notify (filter_id, target) VALUES (?, ?)`, id, target,
		); err != nil {
			return fmt.Errorf("insert notify target: %w", err)
		}
	}
	return commit(tx, "notify targets")
}

// AddHistory records a first occurrence for a history filter. An existing
// record with the same value gets its timestamp refreshed.
func (s *SQLite) AddHistory(ctx context.Context, filterName string, rec model.HistoryRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, _, err := filterRef(ctx, tx, filterName)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO filter_history (filter_id, value, last_seen) VALUES (?, ?, ?)
		 ON CONFLICT (filter_id, value) DO UPDATE SET last_seen = excluded.last_seen`,
		id, rec.Value, rec.LastSeen,
	); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return commit(tx, "history")
}

// ReplaceHistory overwrites a history filter's records.
func (s *SQLite) ReplaceHistory(ctx context.Context, filterName string, recs []model.HistoryRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, _, err := filterRef(ctx, tx, filterName)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM filter_history WHERE filter_id = ?`, id); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	if err := insertHistory(ctx, tx, id, recs); err != nil {
		return err
	}
	return commit(tx, "history")
}

func insertHistory(ctx context.Context, tx *sql.Tx, filterID int64, recs []model.HistoryRecord) error {
	for _, rec := range recs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO filter_history (filter_id, value, last_seen) VALUES (?, ?, ?)`,
			filterID, rec.Value, rec.LastSeen,
		); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
	}
	return nil
}

// committer is the part of *sql.Tx used by commit.
type committer interface {
	Commit() error
}

func commit(tx committer, what string) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", what, err)
	}
	return nil
}

func filterRef(ctx context.Context, tx *sql.Tx, name string) (int64, model.FilterKind, error) {
	var id int64
	var kind string
	err := tx.QueryRowContext(ctx, `SELECT id, kind FROM filters WHERE name = ?`, name).Scan(&id, &kind)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", fmt.Errorf("filter %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return 0, "", fmt.Errorf("lookup filter %q: %w", name, err)
	}
	return id, model.FilterKind(kind), nil
}

// eachRow runs query and calls fn for every row. Rows are closed before it
// returns, so fn must not issue queries of its own.
func (s *SQLite) eachRow(ctx context.Context, query string, fn func(*sql.Rows) error, args ...any) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanFilter(row scannable) (model.Filter, error) {
	var f model.Filter
	var kind, action, created string
	err := row.Scan(&f.ID, &f.Name, &f.Platform, &kind, &action, &f.Action.CooldownMinutes,
		&f.Parent, &f.Description, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return f, fmt.Errorf("scan filter: %w", ErrNotFound)
	}
	if err != nil {
		return f, fmt.Errorf("scan filter: %w", err)
	}
	f.Kind = model.FilterKind(kind)
	f.Action.Tag = model.ActionTag(action)
	f.CreatedAt, _ = time.Parse(timeLayout, created)
	return f, nil
}
