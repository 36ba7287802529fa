package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"modbot/internal/model"
	"modbot/internal/storage"
)

func TestNewMaintenanceInvalidSchedule(t *testing.T) {
	_, err := NewMaintenance(newTestStore(t), "every tuesday", time.Hour, discardLogger())
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestMaintenanceRunOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	items := []model.ContentItem{
		{ID: "old", Platform: model.PlatformReddit, Kind: model.KindComment, CreatedUTC: t0},
	}
	if _, err := store.StoreNewItems(ctx, items); err != nil {
		t.Fatalf("store items: %v", err)
	}
	if err := store.IgnoreItem(ctx, "reddit_old"); err != nil {
		t.Fatalf("ignore: %v", err)
	}

	m, err := NewMaintenance(store, "@daily", 24*time.Hour, discardLogger())
	if err != nil {
		t.Fatalf("new maintenance: %v", err)
	}

	// Nothing is old enough yet.
	m.RunOnce(ctx)
	if _, err := store.GetItem(ctx, model.PlatformReddit, "old"); err != nil {
		t.Fatalf("item pruned too early: %v", err)
	}
	ignored, err := store.IsIgnored(ctx, "reddit_old")
	if err != nil {
		t.Fatalf("is ignored: %v", err)
	}
	if diff := cmp.Diff(false, ignored); diff != "" {
		t.Errorf("ignore buffer not cleared (-want +got):\n%s", diff)
	}

	m.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	m.RunOnce(ctx)
	_, err = store.GetItem(ctx, model.PlatformReddit, "old")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after prune, got %v", err)
	}
}

func TestMaintenanceStartStop(t *testing.T) {
	m, err := NewMaintenance(newTestStore(t), "*/5 * * * *", time.Hour, discardLogger())
	if err != nil {
		t.Fatalf("new maintenance: %v", err)
	}
	m.Start()

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
