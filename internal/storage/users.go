package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"modbot/internal/model"
)

// UserReport collects stored activity, tags, reports and moderator comments
// for a user.
// recent limits how many of the newest items are included.
func (s *SQLite) UserReport(ctx context.Context, username string, recent int) (*model.UserReport, error) {
	report := &model.UserReport{Username: username}

	err := s.eachRow(ctx,
		`SELECT kind, COUNT(*) FROM content_items WHERE author = ? GROUP BY kind`,
		func(rows *sql.Rows) error {
			var kind string
			var n int
			if err := rows.Scan(&kind, &n); err != nil {
				return fmt.Errorf("scan item count: %w", err)
			}
			switch model.ItemKind(kind) {
			case model.KindSubmission:
				report.SubmissionCount = n
			case model.KindComment:
				report.CommentCount = n
			}
			return nil
		}, username)
	if err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}

	err = s.eachRow(ctx, `SELECT tag FROM user_tags WHERE username = ? ORDER BY tag`,
		func(rows *sql.Rows) error {
			var tag string
			if err := rows.Scan(&tag); err != nil {
				return fmt.Errorf("scan tag: %w", err)
			}
			report.Tags = append(report.Tags, tag)
			return nil
		}, username)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	if report.ModComments, err = s.ListModComments(ctx, username); err != nil {
		return nil, err
	}
	if report.Reports, err = s.reportsByAuthor(ctx, username); err != nil {
		return nil, err
	}

	if recent > 0 {
		err = s.eachRow(ctx,
			`SELECT `+itemColumns+` FROM content_items WHERE author = ?
			 ORDER BY created_utc DESC LIMIT ?`,
			func(rows *sql.Rows) error {
				it, err := scanItem(rows)
				if err != nil {
					return err
				}
				report.Recent = append(report.Recent, it)
				return nil
			}, username, recent)
		if err != nil {
			return nil, fmt.Errorf("list recent items: %w", err)
		}
	}

	return report, nil
}

// AddModComment stores a moderator comment and populates its ID and CreatedAt.
func (s *SQLite) AddModComment(ctx context.Context, c *model.ModComment) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO mod_comments (username, author, text, created_at) VALUES (?, ?, ?, ?)`,
		c.Username, c.Author, c.Text, now,
	)
	if err != nil {
		return fmt.Errorf("insert mod comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	c.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListModComments returns a user's comments, oldest first.
func (s *SQLite) ListModComments(ctx context.Context, username string) ([]model.ModComment, error) {
	var out []model.ModComment
	err := s.eachRow(ctx,
		`SELECT id, username, author, text, created_at FROM mod_comments WHERE username = ? ORDER BY id`,
		func(rows *sql.Rows) error {
			var c model.ModComment
			var created string
			if err := rows.Scan(&c.ID, &c.Username, &c.Author, &c.Text, &created); err != nil {
				return fmt.Errorf("scan mod comment: %w", err)
			}
			c.CreatedAt, _ = time.Parse(timeLayout, created)
			out = append(out, c)
			return nil
		}, username)
	if err != nil {
		return nil, fmt.Errorf("list mod comments: %w", err)
	}
	return out, nil
}

// RemoveModComment deletes the index-th (1-based) comment of a user.
func (s *SQLite) RemoveModComment(ctx context.Context, username string, index int) error {
	comments, err := s.ListModComments(ctx, username)
	if err != nil {
		return err
	}
	if index < 1 || index > len(comments) {
		return fmt.Errorf("comment %d of %s: %w", index, username, ErrNotFound)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM mod_comments WHERE id = ?`, comments[index-1].ID,
	); err != nil {
		return fmt.Errorf("delete mod comment: %w", err)
	}
	return nil
}
