package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"modbot/internal/filter"
	"modbot/internal/model"
)

var ignoreFilterTS = cmpopts.IgnoreFields(model.Filter{}, "ID", "CreatedAt")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCreateFilter(t *testing.T, s *SQLite, f model.Filter) model.Filter {
	t.Helper()
	if err := s.CreateFilter(context.Background(), &f); err != nil {
		t.Fatalf("create filter %q: %v", f.Name, err)
	}
	return f
}

func TestFilterCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	tests := []struct {
		name   string
		filter model.Filter
	}{
		{
			name: "pattern filter",
			filter: model.Filter{
				Name:        "linkban",
				Platform:    model.PlatformReddit,
				Kind:        model.FilterPatterns,
				Action:      model.Action{Tag: model.ActionRemove},
				Matches:     []string{`spam\.com`, `scam\.net`},
				Notify:      []string{"@mods", "@admins"},
				Description: "known spam domains",
			},
		},
		{
			name: "history filter",
			filter: model.Filter{
				Name:     "repost-guard",
				Platform: model.PlatformReddit,
				Kind:     model.FilterMediaSourceHistory,
				Action:   model.Action{Tag: model.ActionRemove, CooldownMinutes: 60},
				Parent:   "verified-media",
				History: []model.HistoryRecord{
					{Value: "Song A", LastSeen: 100},
					{Value: "Song B", LastSeen: 200},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := mustCreateFilter(t, s, tt.filter)
			if created.ID == 0 {
				t.Fatal("expected non-zero ID")
			}

			got, err := s.GetFilter(ctx, tt.filter.Name)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if diff := cmp.Diff(tt.filter, *got, ignoreFilterTS); diff != "" {
				t.Errorf("GetFilter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreateFilterDuplicateName(t *testing.T) {
	s := newTestDB(t)
	f := model.Filter{Name: "dup", Platform: model.PlatformReddit, Kind: model.FilterUsers}
	mustCreateFilter(t, s, f)
	if err := s.CreateFilter(context.Background(), &f); err == nil {
		t.Error("expected error for duplicate name")
	}
}

func TestGetFilterNotFound(t *testing.T) {
	s := newTestDB(t)
	_, err := s.GetFilter(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	mustCreateFilter(t, s, model.Filter{Name: "b", Platform: model.PlatformReddit, Kind: model.FilterUsers, Matches: []string{"x"}})
	mustCreateFilter(t, s, model.Filter{Name: "a", Platform: model.PlatformRSS, Kind: model.FilterPatterns, Matches: []string{"y"}})
	mustCreateFilter(t, s, model.Filter{Name: "c", Platform: model.PlatformReddit, Kind: model.FilterPatterns, Matches: []string{"z"}})

	tests := []struct {
		platform string
		want     []string
	}{
		{platform: model.PlatformReddit, want: []string{"b", "c"}},
		{platform: model.PlatformRSS, want: []string{"a"}},
		{platform: "", want: []string{"b", "a", "c"}},
		{platform: "mastodon", want: nil},
	}

	for _, tt := range tests {
		t.Run("platform="+tt.platform, func(t *testing.T) {
			filters, err := s.ListFilters(ctx, tt.platform)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			var names []string
			for _, f := range filters {
				names = append(names, f.Name)
				if len(f.Matches) != 1 {
					t.Errorf("filter %q has %d matches, want 1", f.Name, len(f.Matches))
				}
			}
			if diff := cmp.Diff(tt.want, names); diff != "" {
				t.Errorf("names mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAddRemoveMatch(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	mustCreateFilter(t, s, model.Filter{Name: "watchlist", Platform: model.PlatformReddit, Kind: model.FilterUsers})

	added, err := s.AddMatch(ctx, "watchlist", "alice")
	if err != nil || !added {
		t.Fatalf("AddMatch() = %v, %v; want true, nil", added, err)
	}
	added, err = s.AddMatch(ctx, "watchlist", "alice")
	if err != nil || added {
		t.Fatalf("second AddMatch() = %v, %v; want false, nil", added, err)
	}

	report, err := s.UserReport(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("user report: %v", err)
	}
	if diff := cmp.Diff([]string{"watchlist"}, report.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}

	removed, err := s.RemoveMatch(ctx, "watchlist", "alice")
	if err != nil || !removed {
		t.Fatalf("RemoveMatch() = %v, %v; want true, nil", removed, err)
	}
	removed, err = s.RemoveMatch(ctx, "watchlist", "alice")
	if err != nil || removed {
		t.Fatalf("second RemoveMatch() = %v, %v; want false, nil", removed, err)
	}

	f, err := s.GetFilter(ctx, "watchlist")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(f.Matches) != 0 {
		t.Errorf("matches = %v, want empty", f.Matches)
	}
	report, err = s.UserReport(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("user report: %v", err)
	}
	if len(report.Tags) != 0 {
		t.Errorf("tags = %v, want empty", report.Tags)
	}

	if _, err := s.AddMatch(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddMatch on missing filter: err = %v, want ErrNotFound", err)
	}
}

func TestSetNotify(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	mustCreateFilter(t, s, model.Filter{Name: "f", Platform: model.PlatformReddit, Kind: model.FilterUsers, Notify: []string{"@old"}})

	if err := s.SetNotify(ctx, "f", []string{"@a", "@b"}); err != nil {
		t.Fatalf("set notify: %v", err)
	}
	f, err := s.GetFilter(ctx, "f")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff([]string{"@a", "@b"}, f.Notify); diff != "" {
		t.Errorf("notify mismatch (-want +got):\n%s", diff)
	}
}

func TestHistoryPersistence(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	mustCreateFilter(t, s, model.Filter{
		Name:     "repost-guard",
		Platform: model.PlatformReddit,
		Kind:     model.FilterMediaSourceHistory,
		Action:   model.Action{Tag: model.ActionRemove, CooldownMinutes: 60},
		Parent:   "verified-media",
	})

	if err := s.AddHistory(ctx, "repost-guard", model.HistoryRecord{Value: "A", LastSeen: 10}); err != nil {
		t.Fatalf("add history: %v", err)
	}
	if err := s.AddHistory(ctx, "repost-guard", model.HistoryRecord{Value: "B", LastSeen: 20}); err != nil {
		t.Fatalf("add history: %v", err)
	}
	if err := s.ReplaceHistory(ctx, "repost-guard", []model.HistoryRecord{
		{Value: "A", LastSeen: 30},
		{Value: "B", LastSeen: 20},
	}); err != nil {
		t.Fatalf("replace history: %v", err)
	}

	f, err := s.GetFilter(ctx, "repost-guard")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := []model.HistoryRecord{{Value: "A", LastSeen: 30}, {Value: "B", LastSeen: 20}}
	if diff := cmp.Diff(want, f.History); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	if err := s.ReplaceHistory(ctx, "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReplaceHistory on missing filter: err = %v, want ErrNotFound", err)
	}
}

func TestEvaluateBatchAgainstSQLite(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	mustCreateFilter(t, s, model.Filter{
		Name:     "verified-media",
		Platform: model.PlatformReddit,
		Kind:     model.FilterMediaSource,
		Action:   model.Action{Tag: model.ActionMonitor},
		Matches:  []string{"https://youtube.com/c/artist"},
	})
	mustCreateFilter(t, s, model.Filter{
		Name:     "repost-guard",
		Platform: model.PlatformReddit,
		Kind:     model.FilterMediaSourceHistory,
		Action:   model.Action{Tag: model.ActionRemove, CooldownMinutes: 60},
		Parent:   "verified-media",
	})

	item := func(id string, created int64) model.ContentItem {
		return model.ContentItem{
			ID:         id,
			Platform:   model.PlatformReddit,
			Kind:       model.KindSubmission,
			CreatedUTC: created,
			Extra:      &model.SubmissionExtra{MediaSource: "https://youtube.com/c/artist", MediaTitle: "Song"},
		}
	}

	filters, err := s.ListFilters(ctx, model.PlatformReddit)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	res := filter.EvaluateBatch(ctx, s, []model.ContentItem{item("a", 1000), item("b", 1600)}, filters, model.PlatformReddit)
	if len(res.Warnings) != 0 {
		t.Fatalf("warnings: %v", res.Warnings)
	}

	f, err := s.GetFilter(ctx, "repost-guard")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff([]model.HistoryRecord{{Value: "Song", LastSeen: 1600}}, f.History); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreNewItems(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	batch := []model.ContentItem{
		{ID: "3", Platform: model.PlatformReddit, Kind: model.KindComment, Author: "a", Body: "c", CreatedUTC: 30},
		{ID: "1", Platform: model.PlatformReddit, Kind: model.KindSubmission, Author: "a", Title: "t", CreatedUTC: 10,
			Extra: &model.SubmissionExtra{MediaSource: "src", MediaTitle: "mt", Flair: "f"}},
		{ID: "2", Platform: model.PlatformReddit, Kind: model.KindComment, Author: "b", Body: "c2", CreatedUTC: 10},
	}

	fresh, err := s.StoreNewItems(ctx, batch)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	var ids []string
	for _, it := range fresh {
		ids = append(ids, it.ID)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, ids); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	again, err := s.StoreNewItems(ctx, append(batch, model.ContentItem{ID: "4", Platform: model.PlatformReddit, Kind: model.KindComment, CreatedUTC: 5}))
	if err != nil {
		t.Fatalf("store again: %v", err)
	}
	if len(again) != 1 || again[0].ID != "4" {
		t.Errorf("second store returned %+v, want only item 4", again)
	}

	got, err := s.GetItem(ctx, model.PlatformReddit, "1")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if diff := cmp.Diff(batch[1], *got); diff != "" {
		t.Errorf("GetItem mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.GetItem(ctx, model.PlatformReddit, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetItem missing: err = %v, want ErrNotFound", err)
	}

	n, err := s.PruneItems(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 4 {
		t.Errorf("pruned %d items, want 4", n)
	}
}

func TestIgnoreBuffer(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if err := s.IgnoreItem(ctx, "reddit_1"); err != nil {
		t.Fatalf("ignore: %v", err)
	}
	if err := s.IgnoreItem(ctx, "reddit_1"); err != nil {
		t.Fatalf("ignore twice: %v", err)
	}
	ok, err := s.IsIgnored(ctx, "reddit_1")
	if err != nil || !ok {
		t.Fatalf("IsIgnored() = %v, %v; want true, nil", ok, err)
	}
	n, err := s.ClearIgnoreBuffer(ctx)
	if err != nil || n != 1 {
		t.Fatalf("ClearIgnoreBuffer() = %d, %v; want 1, nil", n, err)
	}
	ok, err = s.IsIgnored(ctx, "reddit_1")
	if err != nil || ok {
		t.Fatalf("IsIgnored() after clear = %v, %v; want false, nil", ok, err)
	}
}

func TestUserReport(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	_, err := s.StoreNewItems(ctx, []model.ContentItem{
		{ID: "1", Platform: model.PlatformReddit, Kind: model.KindSubmission, Author: "bob", Title: "first", CreatedUTC: 10},
		{ID: "2", Platform: model.PlatformReddit, Kind: model.KindComment, Author: "bob", Body: "second", CreatedUTC: 20},
		{ID: "3", Platform: model.PlatformReddit, Kind: model.KindComment, Author: "bob", Body: "third", CreatedUTC: 30},
		{ID: "4", Platform: model.PlatformReddit, Kind: model.KindComment, Author: "eve", Body: "other", CreatedUTC: 40},
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	for _, text := range []string{"warned once", "second warning"} {
		if err := s.AddModComment(ctx, &model.ModComment{Username: "bob", Author: "mod1", Text: text}); err != nil {
			t.Fatalf("add comment: %v", err)
		}
	}
	if err := s.RemoveModComment(ctx, "bob", 1); err != nil {
		t.Fatalf("remove comment: %v", err)
	}
	if err := s.RemoveModComment(ctx, "bob", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("remove out of range: err = %v, want ErrNotFound", err)
	}

	report, err := s.UserReport(ctx, "bob", 2)
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	if report.SubmissionCount != 1 || report.CommentCount != 2 {
		t.Errorf("counts = %d/%d, want 1/2", report.SubmissionCount, report.CommentCount)
	}
	var texts []string
	for _, c := range report.ModComments {
		texts = append(texts, c.Text)
	}
	if diff := cmp.Diff([]string{"second warning"}, texts); diff != "" {
		t.Errorf("comments mismatch (-want +got):\n%s", diff)
	}
	var recent []string
	for _, it := range report.Recent {
		recent = append(recent, it.ID)
	}
	if diff := cmp.Diff([]string{"3", "2"}, recent); diff != "" {
		t.Errorf("recent mismatch (-want +got):\n%s", diff)
	}
}

func TestReviews(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	r := model.Review{ItemKey: "reddit_1", Action: model.ActionRemove, RequestedBy: "mod1"}
	if err := s.CreateReview(ctx, &r); err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.ID == "" || r.Status != model.ReviewOpen {
		t.Fatalf("created review = %+v", r)
	}

	votes := []model.Vote{
		{ReviewID: r.ID, UserID: 2, Username: "mod2", Value: 1},
		{ReviewID: r.ID, UserID: 1, Username: "mod1", Value: 1},
		{ReviewID: r.ID, UserID: 2, Username: "mod2", Value: -1},
	}
	for _, v := range votes {
		if err := s.CastVote(ctx, v); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}
	got, err := s.ListVotes(ctx, r.ID)
	if err != nil {
		t.Fatalf("list votes: %v", err)
	}
	wantVotes := []model.Vote{
		{ReviewID: r.ID, UserID: 1, Username: "mod1", Value: 1},
		{ReviewID: r.ID, UserID: 2, Username: "mod2", Value: -1},
	}
	if diff := cmp.Diff(wantVotes, got); diff != "" {
		t.Errorf("votes mismatch (-want +got):\n%s", diff)
	}

	if err := s.ResolveReview(ctx, r.ID, model.ReviewApproved, "mod3"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	stored, err := s.GetReview(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := model.Review{
		ID:          r.ID,
		ItemKey:     "reddit_1",
		Action:      model.ActionRemove,
		RequestedBy: "mod1",
		ResolvedBy:  "mod3",
		Status:      model.ReviewApproved,
	}
	if diff := cmp.Diff(want, *stored, cmpopts.IgnoreFields(model.Review{}, "CreatedAt", "ResolvedAt")); diff != "" {
		t.Errorf("review mismatch (-want +got):\n%s", diff)
	}
	if stored.ResolvedAt == nil {
		t.Error("expected ResolvedAt to be set")
	}

	if err := s.ResolveReview(ctx, r.ID, model.ReviewRejected, "mod4"); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("second resolve: err = %v, want ErrAlreadyResolved", err)
	}
	if err := s.ResolveReview(ctx, "nope", model.ReviewRejected, "mod4"); !errors.Is(err, ErrNotFound) {
		t.Errorf("resolve missing: err = %v, want ErrNotFound", err)
	}
}

func TestCommitWrapsError(t *testing.T) {
	s := newTestDB(t)
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	err = commit(tx, "history")
	if !errors.Is(err, sql.ErrTxDone) {
		t.Fatalf("commit error = %v, want sql.ErrTxDone", err)
	}
	if got, want := err.Error(), "commit history: "+sql.ErrTxDone.Error(); got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
}

func reported(id, source, author string, created int64, reasons map[string]int) model.ContentReport {
	return model.ContentReport{
		ItemID:     id,
		Platform:   model.PlatformReddit,
		Source:     source,
		Kind:       model.KindComment,
		Author:     author,
		Content:    "body of " + id,
		Permalink:  "https://reddit.com/r/" + source + "/" + id,
		CreatedUTC: created,
		Reasons:    reasons,
	}
}

func reportKeys(reports []model.ContentReport) []string {
	var keys []string
	for _, r := range reports {
		keys = append(keys, r.Key())
	}
	return keys
}

func TestRecordReports(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	first := []model.ContentReport{
		reported("c2", "music", "bob", 200, map[string]int{"spam": 2}),
		reported("c1", "music", "bob", 100, map[string]int{"rude": 1}),
		reported("v1", "videos", "eve", 50, map[string]int{"spam": 1}),
	}
	fresh, err := s.RecordReports(ctx, first)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if diff := cmp.Diff([]string{"reddit_c2", "reddit_c1", "reddit_v1"}, reportKeys(fresh)); diff != "" {
		t.Errorf("first batch mismatch (-want +got):\n%s", diff)
	}

	for source, want := range map[string]int64{"music": 200, "videos": 50, "unknown": 0} {
		got, err := s.ReportWatermark(ctx, model.PlatformReddit, source)
		if err != nil {
			t.Fatalf("watermark %s: %v", source, err)
		}
		if got != want {
			t.Errorf("watermark %s = %d, want %d", source, got, want)
		}
	}

	// The queue still lists c2 with more reports; only items created after
	// the watermark are recorded.
	second := []model.ContentReport{
		reported("c3", "music", "bob", 300, map[string]int{"spam": 1, "rude": 1}),
		reported("c2", "music", "bob", 200, map[string]int{"spam": 5}),
		reported("v1", "videos", "eve", 50, map[string]int{"spam": 3}),
	}
	fresh, err = s.RecordReports(ctx, second)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if diff := cmp.Diff([]string{"reddit_c3"}, reportKeys(fresh)); diff != "" {
		t.Errorf("second batch mismatch (-want +got):\n%s", diff)
	}

	if fresh, err = s.RecordReports(ctx, nil); err != nil || len(fresh) != 0 {
		t.Errorf("RecordReports(nil) = %v, %v; want empty, nil", fresh, err)
	}

	report, err := s.UserReport(ctx, "bob", 0)
	if err != nil {
		t.Fatalf("user report: %v", err)
	}
	want := []model.ContentReport{
		reported("c3", "music", "bob", 300, map[string]int{"spam": 1, "rude": 1}),
		reported("c2", "music", "bob", 200, map[string]int{"spam": 2}),
		reported("c1", "music", "bob", 100, map[string]int{"rude": 1}),
	}
	if diff := cmp.Diff(want, report.Reports); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordReportsMergesReasons(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if _, err := s.RecordReports(ctx, []model.ContentReport{
		reported("c1", "music", "bob", 100, map[string]int{"spam": 1, "rude": 2}),
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	// Reset the watermark so c1 is recorded again with new counts.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM report_watermarks`); err != nil {
		t.Fatalf("reset watermark: %v", err)
	}
	if _, err := s.RecordReports(ctx, []model.ContentReport{
		reported("c1", "music", "bob", 100, map[string]int{"spam": 4}),
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	report, err := s.UserReport(ctx, "bob", 0)
	if err != nil {
		t.Fatalf("user report: %v", err)
	}
	if len(report.Reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(report.Reports))
	}
	if diff := cmp.Diff(map[string]int{"spam": 4, "rude": 2}, report.Reports[0].Reasons); diff != "" {
		t.Errorf("reasons mismatch (-want +got):\n%s", diff)
	}
	if got := report.Reports[0].Total(); got != 6 {
		t.Errorf("Total() = %d, want 6", got)
	}
}

func TestFindReposts(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	_, err := s.StoreNewItems(ctx, []model.ContentItem{
		{ID: "a", Platform: model.PlatformReddit, Kind: model.KindSubmission, Author: "bob", Title: "Song", CreatedUTC: 10},
		{ID: "b", Platform: model.PlatformReddit, Kind: model.KindSubmission, Author: "eve", Title: "Song", CreatedUTC: 30},
		{ID: "c", Platform: model.PlatformReddit, Kind: model.KindSubmission, Author: "eve", Title: "Song", CreatedUTC: 20},
		{ID: "d", Platform: model.PlatformReddit, Kind: model.KindSubmission, Author: "bob", Title: "Other", CreatedUTC: 40},
		{ID: "e", Platform: model.PlatformReddit, Kind: model.KindComment, Author: "bob", Body: "Song", CreatedUTC: 50},
		{ID: "f", Platform: model.PlatformRSS, Kind: model.KindSubmission, Author: "feed", Title: "Song", CreatedUTC: 60},
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	tests := []struct {
		name    string
		id      string
		want    []string
		wantErr error
	}{
		{name: "same title newest first", id: "a", want: []string{"b", "c"}},
		{name: "excludes itself", id: "b", want: []string{"c", "a"}},
		{name: "unique title", id: "d"},
		{name: "comments have no reposts", id: "e"},
		{name: "unknown item", id: "zzz", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindReposts(ctx, model.PlatformReddit, tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			var ids []string
			for _, it := range got {
				ids = append(ids, it.ID)
			}
			if diff := cmp.Diff(tt.want, ids, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("reposts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
