package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modbot/internal/model"
)

type watermarkKey struct {
	platform, source string
}

// RecordReports stores reported items created after the watermark of their
// platform and source, then advances each watermark to the newest stored
// item. Reason counts replace the stored count of the same reason; other
// stored reasons are kept. The stored reports are returned in input order.
func (s *SQLite) RecordReports(ctx context.Context, reports []model.ContentReport) ([]model.ContentReport, error) {
	if len(reports) == 0 {
		return nil, nil
	}
	now := time.Now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stored := make(map[watermarkKey]int64)
	latest := make(map[watermarkKey]int64)
	var fresh []model.ContentReport
	for _, r := range reports {
		key := watermarkKey{platform: r.Platform, source: r.Source}
		mark, ok := stored[key]
		if !ok {
			if mark, err = watermark(ctx, tx, key); err != nil {
				return nil, err
			}
			stored[key] = mark
			latest[key] = mark
		}
		if r.CreatedUTC <= mark {
			continue
		}

		if err := upsertReport(ctx, tx, r, now); err != nil {
			return nil, err
		}
		fresh = append(fresh, r)
		latest[key] = max(latest[key], r.CreatedUTC)
	}

	for key, ts := range latest {
		if ts == stored[key] {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO report_watermarks (platform, source, latest_utc) VALUES (?, ?, ?)
			 ON CONFLICT (platform, source) DO UPDATE SET latest_utc = excluded.latest_utc`,
			key.platform, key.source, ts,
		); err != nil {
			return nil, fmt.Errorf("update report watermark: %w", err)
		}
	}

	if err := commit(tx, "reports"); err != nil {
		return nil, err
	}
	return fresh, nil
}

// ReportWatermark returns the creation time of the newest reported item
// stored for a platform source, or 0 if none was stored yet.
func (s *SQLite) ReportWatermark(ctx context.Context, platform, source string) (int64, error) {
	return watermark(ctx, s.db, watermarkKey{platform: platform, source: source})
}

// rowQuerier is satisfied by *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func watermark(ctx context.Context, q rowQuerier, key watermarkKey) (int64, error) {
	var ts int64
	err := q.QueryRowContext(ctx,
		`SELECT latest_utc FROM report_watermarks WHERE platform = ? AND source = ?`, key.platform, key.source,
	).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get report watermark: %w", err)
	}
	return ts, nil
}

func upsertReport(ctx context.Context, tx *sql.Tx, r model.ContentReport, now string) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO content_reports
		   (platform, item_id, source, kind, author, content, permalink, created_utc, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (platform, item_id) DO UPDATE SET
		   content = excluded.content, permalink = excluded.permalink, updated_at = excluded.updated_at`,
		r.Platform, r.ItemID, r.Source, string(r.Kind), r.Author, r.Content, r.Permalink, r.CreatedUTC, now,
	); err != nil {
		return fmt.Errorf("insert report %s: %w", r.Key(), err)
	}
	for reason, count := range r.Reasons {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO report_reasons (platform, item_id, reason, count) VALUES (?, ?, ?, ?)
			 ON CONFLICT (platform, item_id, reason) DO UPDATE SET count = excluded.count`,
			r.Platform, r.ItemID, reason, count,
		); err != nil {
			return fmt.Errorf("insert report reason for %s: %w", r.Key(), err)
		}
	}
	return nil
}

// reportsByAuthor returns the stored reports of an author, newest first.
func (s *SQLite) reportsByAuthor(ctx context.Context, author string) ([]model.ContentReport, error) {
	var out []model.ContentReport
	err := s.eachRow(ctx,
		`SELECT r.platform, r.item_id, r.source, r.kind, r.author, r.content, r.permalink, r.created_utc,
		        rr.reason, rr.count
		 FROM content_reports r
		 LEFT JOIN report_reasons rr ON rr.platform = r.platform AND rr.item_id = r.item_id
		 WHERE r.author = ?
		 ORDER BY r.created_utc DESC, r.platform, r.item_id, rr.reason`,
		func(rows *sql.Rows) error {
			var r model.ContentReport
			var kind string
			var reason sql.NullString
			var count sql.NullInt64
			if err := rows.Scan(&r.Platform, &r.ItemID, &r.Source, &kind, &r.Author, &r.Content,
				&r.Permalink, &r.CreatedUTC, &reason, &count); err != nil {
				return fmt.Errorf("scan report: %w", err)
			}
			if n := len(out); n == 0 || out[n-1].Key() != r.Key() {
				r.Kind = model.ItemKind(kind)
				r.Reasons = make(map[string]int)
				out = append(out, r)
			}
			if reason.Valid {
				out[len(out)-1].Reasons[reason.String] = int(count.Int64)
			}
			return nil
		}, author)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

// FindReposts returns stored submissions of the same platform that share
// the title of the given submission, newest first. The submission itself
// is excluded. Comments and untitled items have no reposts.
func (s *SQLite) FindReposts(ctx context.Context, platform, id string) ([]model.ContentItem, error) {
	item, err := s.GetItem(ctx, platform, id)
	if err != nil {
		return nil, err
	}
	if !item.IsSubmission() || item.Title == "" {
		return nil, nil
	}

	var out []model.ContentItem
	err = s.eachRow(ctx,
		`SELECT `+itemColumns+` FROM content_items
		 WHERE platform = ? AND kind = ? AND title = ? AND id <> ?
		 ORDER BY created_utc DESC, id`,
		func(rows *sql.Rows) error {
			it, err := scanItem(rows)
			if err != nil {
				return err
			}
			out = append(out, it)
			return nil
		}, platform, string(model.KindSubmission), item.Title, id)
	if err != nil {
		return nil, fmt.Errorf("find reposts: %w", err)
	}
	return out, nil
}
