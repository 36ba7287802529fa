package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"modbot/internal/model"
)

// CreateReview stores an open review and assigns its ID and CreatedAt.
func (s *SQLite) CreateReview(ctx context.Context, r *model.Review) error {
	now := time.Now().UTC().Format(timeLayout)
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (id, item_key, action, requested_by, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, r.ItemKey, string(r.Action), r.RequestedBy, string(model.ReviewOpen), now,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	r.ID = id
	r.Status = model.ReviewOpen
	r.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetReview returns a review by ID.
func (s *SQLite) GetReview(ctx context.Context, id string) (*model.Review, error) {
	var r model.Review
	var action, status, created string
	var resolved sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, item_key, action, requested_by, resolved_by, status, created_at, resolved_at
		 FROM reviews WHERE id = ?`, id,
	).Scan(&r.ID, &r.ItemKey, &action, &r.RequestedBy, &r.ResolvedBy, &status, &created, &resolved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("review %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan review: %w", err)
	}
	r.Action = model.ActionTag(action)
	r.Status = model.ReviewStatus(status)
	r.CreatedAt, _ = time.Parse(timeLayout, created)
	if resolved.Valid {
		t, _ := time.Parse(timeLayout, resolved.String)
		r.ResolvedAt = &t
	}
	return &r, nil
}

// ResolveReview closes an open review.
func (s *SQLite) ResolveReview(ctx context.Context, id string, status model.ReviewStatus, resolvedBy string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reviews SET status = ?, resolved_by = ?, resolved_at = ?
		 WHERE id = ? AND status = ?`,
		string(status), resolvedBy, time.Now().UTC().Format(timeLayout), id, string(model.ReviewOpen),
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetReview(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("review %s: %w", id, ErrAlreadyResolved)
	}
	return nil
}

// CastVote records a vote. A user's later vote replaces the earlier one.
func (s *SQLite) CastVote(ctx context.Context, v model.Vote) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO review_votes (review_id, user_id, username, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT (review_id, user_id) DO UPDATE SET username = excluded.username, value = excluded.value`,
		v.ReviewID, v.UserID, v.Username, v.Value,
	)
	if err != nil {
		return fmt.Errorf("cast vote: %w", err)
	}
	return nil
}

// ListVotes returns a review's votes ordered by user ID.
func (s *SQLite) ListVotes(ctx context.Context, reviewID string) ([]model.Vote, error) {
	var out []model.Vote
	err := s.eachRow(ctx,
		`SELECT review_id, user_id, username, value FROM review_votes WHERE review_id = ? ORDER BY user_id`,
		func(rows *sql.Rows) error {
			var v model.Vote
			if err := rows.Scan(&v.ReviewID, &v.UserID, &v.Username, &v.Value); err != nil {
				return fmt.Errorf("scan vote: %w", err)
			}
			out = append(out, v)
			return nil
		}, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	return out, nil
}
