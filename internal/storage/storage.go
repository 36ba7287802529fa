// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"modbot/internal/filter"
	"modbot/internal/model"
)

// Sentinel errors returned by Storage implementations.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyResolved = errors.New("review already resolved")
)

// Storage is the interface for all persistence operations.
type Storage interface {
	filter.Repository

	CreateFilter(ctx context.Context, f *model.Filter) error
	GetFilter(ctx context.Context, name string) (*model.Filter, error)
	// ListFilters returns the filters of a platform, or all filters when
	// platform is empty.
	ListFilters(ctx context.Context, platform string) ([]model.Filter, error)
	AddMatch(ctx context.Context, filterName, value string) (bool, error)
	RemoveMatch(ctx context.Context, filterName, value string) (bool, error)
	SetNotify(ctx context.Context, filterName string, targets []string) error

	// StoreNewItems persists items not seen before and returns them sorted
	// by creation time.
	StoreNewItems(ctx context.Context, items []model.ContentItem) ([]model.ContentItem, error)
	GetItem(ctx context.Context, platform, id string) (*model.ContentItem, error)
	PruneItems(ctx context.Context, before time.Time) (int64, error)
	FindReposts(ctx context.Context, platform, id string) ([]model.ContentItem, error)

	RecordReports(ctx context.Context, reports []model.ContentReport) ([]model.ContentReport, error)
	ReportWatermark(ctx context.Context, platform, source string) (int64, error)

	UserReport(ctx context.Context, username string, recent int) (*model.UserReport, error)
	AddModComment(ctx context.Context, c *model.ModComment) error
	ListModComments(ctx context.Context, username string) ([]model.ModComment, error)
	RemoveModComment(ctx context.Context, username string, index int) error

	IgnoreItem(ctx context.Context, key string) error
	IsIgnored(ctx context.Context, key string) (bool, error)
	ClearIgnoreBuffer(ctx context.Context) (int64, error)

	CreateReview(ctx context.Context, r *model.Review) error
	GetReview(ctx context.Context, id string) (*model.Review, error)
	ResolveReview(ctx context.Context, id string, status model.ReviewStatus, resolvedBy string) error
	CastVote(ctx context.Context, v model.Vote) error
	ListVotes(ctx context.Context, reviewID string) ([]model.Vote, error)

	Close() error
}
