package filter

import (
	"context"
	"fmt"

	"modbot/internal/model"
)

// Repository persists history filter changes produced by a batch.
type Repository interface {
	AddHistory(ctx context.Context, filterName string, rec model.HistoryRecord) error
	ReplaceHistory(ctx context.Context, filterName string, recs []model.HistoryRecord) error
}

// ItemMatches pairs an item with the matches it triggered.
type ItemMatches struct {
	Item    model.ContentItem
	Matches []model.TriggeredMatch
}

// Result is the outcome of evaluating one batch.
type Result struct {
	Items   []ItemMatches
	Updates []HistoryUpdate
	// Inert lists history filters skipped because their parent is unknown.
	Inert []string
}

// Matched returns only the items that triggered at least one filter.
func (r Result) Matched() []ItemMatches {
	var out []ItemMatches
	for _, im := range r.Items {
		if len(im.Matches) > 0 {
			out = append(out, im)
		}
	}
	return out
}

// BatchResult is a Result whose history updates have been flushed.
type BatchResult struct {
	Result
	Warnings []error
}

// Evaluate runs every filter of the given platform against every item.
// Items are visited in input order and filters in their given order, so
// history records added by an earlier item are visible to later ones.
// Evaluate does not modify its arguments and performs no I/O; the returned
// Updates must be applied with Flush.
func Evaluate(items []model.ContentItem, filters []model.Filter, platform string) Result {
	active := make([]model.Filter, 0, len(filters))
	for _, f := range filters {
		if f.Platform == platform {
			active = append(active, f)
		}
	}

	tracker := newHistoryTracker(active)
	res := Result{Items: make([]ItemMatches, 0, len(items))}

	for _, item := range items {
		var matches []model.TriggeredMatch
		for _, f := range active {
			switch f.Kind {
			case model.FilterMediaSourceHistory:
				if m, ok := tracker.observe(item, f); ok {
					matches = append(matches, m)
				}
			default:
				matches = append(matches, MatchItem(item, f)...)
			}
		}
		res.Items = append(res.Items, ItemMatches{Item: item, Matches: dedupeHistory(matches)})
	}

	res.Updates = tracker.updates
	res.Inert = tracker.inertFilters()
	return res
}

// Flush applies history updates in order. A failed update does not stop
// the remaining ones; each failure is returned.
func Flush(ctx context.Context, repo Repository, updates []HistoryUpdate) []error {
	var errs []error
	for _, u := range updates {
		var err error
		switch u.Op {
		case UpdateAdd:
			err = repo.AddHistory(ctx, u.Filter, u.Record)
		case UpdateReplace:
			err = repo.ReplaceHistory(ctx, u.Filter, u.Records)
		default:
			err = fmt.Errorf("unknown operation %s", u.Op)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s history %q: %w", u.Op, u.Filter, err))
		}
	}
	return errs
}

// EvaluateBatch evaluates a batch and flushes its history updates.
// Persistence failures are reported as warnings and never change the
// evaluated matches.
func EvaluateBatch(ctx context.Context, repo Repository, items []model.ContentItem, filters []model.Filter, platform string) BatchResult {
	res := Evaluate(items, filters, platform)
	return BatchResult{
		Result:   res,
		Warnings: Flush(ctx, repo, res.Updates),
	}
}
