// Package source fetches content items from the platforms the bot watches.
package source

import (
	"context"

	"modbot/internal/model"
)

// Source produces the latest content items of one platform.
type Source interface {
	Platform() string
	Name() string
	Fetch(ctx context.Context) ([]model.ContentItem, error)
}

// ReportSource lists content that users or moderators reported.
type ReportSource interface {
	Source
	ReportsEnabled() bool
	FetchReports(ctx context.Context) ([]model.ContentReport, error)
}
