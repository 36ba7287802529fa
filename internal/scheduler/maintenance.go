package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"modbot/internal/storage"
)

// Maintenance runs periodic housekeeping on a cron schedule: the ignore
// buffer is emptied and stored items older than the retention are pruned.
type Maintenance struct {
	store     storage.Storage
	retention time.Duration
	log       *slog.Logger
	now       func() time.Time
	cron      *cron.Cron
}

// NewMaintenance registers the housekeeping job under schedule, a standard
// five-field cron spec or a descriptor such as "@daily".
func NewMaintenance(store storage.Storage, schedule string, retention time.Duration, log *slog.Logger) (*Maintenance, error) {
	m := &Maintenance{
		store:     store,
		retention: retention,
		log:       log,
		now:       time.Now,
		cron:      cron.New(),
	}
	if _, err := m.cron.AddFunc(schedule, func() { m.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("add maintenance job %q: %w", schedule, err)
	}
	return m, nil
}

// Start runs the cron scheduler in its own goroutine.
func (m *Maintenance) Start() {
	m.cron.Start()
	m.log.Info("maintenance scheduled", "entries", len(m.cron.Entries()))
}

// Stop halts the scheduler and waits for a running job to finish.
func (m *Maintenance) Stop() {
	<-m.cron.Stop().Done()
}

// RunOnce performs one housekeeping pass.
func (m *Maintenance) RunOnce(ctx context.Context) {
	cleared, err := m.store.ClearIgnoreBuffer(ctx)
	if err != nil {
		m.log.Error("clear ignore buffer", "error", err)
	}

	var pruned int64
	if m.retention > 0 {
		pruned, err = m.store.PruneItems(ctx, m.now().Add(-m.retention))
		if err != nil {
			m.log.Error("prune items", "error", err)
		}
	}

	m.log.Info("maintenance complete", "ignored_cleared", cleared, "items_pruned", pruned)
}
