package storage

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"modbot/internal/model"
)

const itemColumns = `platform, id, source, kind, author, title, body, permalink, created_utc,
	media_source, media_title, flair`

// StoreNewItems inserts items that are not stored yet and returns those,
// ordered by creation time. Items with equal timestamps keep input order.
func (s *SQLite) StoreNewItems(ctx context.Context, items []model.ContentItem) ([]model.ContentItem, error) {
	now := time.Now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var fresh []model.ContentItem
	for _, it := range items {
		var mediaSource, mediaTitle, flair sql.NullString
		if it.Extra != nil {
			mediaSource = sql.NullString{String: it.Extra.MediaSource, Valid: true}
			mediaTitle = sql.NullString{String: it.Extra.MediaTitle, Valid: true}
			flair = sql.NullString{String: it.Extra.Flair, Valid: true}
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO content_items (`+itemColumns+`, stored_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.Platform, it.ID, it.Source, string(it.Kind), it.Author, it.Title, it.Body, it.Permalink,
			it.CreatedUTC, mediaSource, mediaTitle, flair, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert item %s: %w", it.Key(), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if n > 0 {
			fresh = append(fresh, it)
		}
	}

	if err := commit(tx, "items"); err != nil {
		return nil, err
	}

	slices.SortStableFunc(fresh, func(a, b model.ContentItem) int {
		return cmp.Compare(a.CreatedUTC, b.CreatedUTC)
	})
	return fresh, nil
}

// GetItem returns a stored item.
func (s *SQLite) GetItem(ctx context.Context, platform, id string) (*model.ContentItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM content_items WHERE platform = ? AND id = ?`, platform, id,
	)
	it, err := scanItem(row)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// PruneItems deletes items stored before the given time.
func (s *SQLite) PruneItems(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM content_items WHERE datetime(stored_at) < datetime(?)`,
		before.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune items: %w", err)
	}
	return res.RowsAffected()
}

// IgnoreItem adds an item key to the ignore buffer.
func (s *SQLite) IgnoreItem(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO ignore_buffer (item_key, added_at) VALUES (?, ?)`,
		key, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("ignore item: %w", err)
	}
	return nil
}

// IsIgnored reports whether an item key is in the ignore buffer.
func (s *SQLite) IsIgnored(ctx context.Context, key string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ignore_buffer WHERE item_key = ?`, key,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check ignored: %w", err)
	}
	return count > 0, nil
}

// ClearIgnoreBuffer empties the ignore buffer and returns how many keys it held.
func (s *SQLite) ClearIgnoreBuffer(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ignore_buffer`)
	if err != nil {
		return 0, fmt.Errorf("clear ignore buffer: %w", err)
	}
	return res.RowsAffected()
}

func scanItem(row scannable) (model.ContentItem, error) {
	var it model.ContentItem
	var kind string
	var mediaSource, mediaTitle, flair sql.NullString
	err := row.Scan(&it.Platform, &it.ID, &it.Source, &kind, &it.Author, &it.Title, &it.Body,
		&it.Permalink, &it.CreatedUTC, &mediaSource, &mediaTitle, &flair)
	if errors.Is(err, sql.ErrNoRows) {
		return it, fmt.Errorf("scan item: %w", ErrNotFound)
	}
	if err != nil {
		return it, fmt.Errorf("scan item: %w", err)
	}
	it.Kind = model.ItemKind(kind)
	if mediaSource.Valid || mediaTitle.Valid || flair.Valid {
		it.Extra = &model.SubmissionExtra{
			MediaSource: mediaSource.String,
			MediaTitle:  mediaTitle.String,
			Flair:       flair.String,
		}
	}
	return it, nil
}
