package scheduler

import (
	"context"
	"log/slog"
	"time"

	"modbot/internal/filter"
	"modbot/internal/metrics"
	"modbot/internal/model"
	"modbot/internal/source"
	"modbot/internal/storage"
)

// Notifier delivers alerts for items that triggered filters and for newly
// reported content.
type Notifier interface {
	SendAlert(ctx context.Context, im filter.ItemMatches, action model.ActionTag) error
	SendReport(ctx context.Context, r model.ContentReport) error
}

// Scheduler periodically polls sources, evaluates new items and sends alerts.
type Scheduler struct {
	store    storage.Storage
	sources  []source.Source
	notifier Notifier
	ranks    filter.RankTable
	log      *slog.Logger
	tick     time.Duration
	trigger  chan struct{}
}

// New creates a Scheduler polling every interval.
func New(store storage.Storage, sources []source.Source, notifier Notifier, ranks filter.RankTable, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		sources:  sources,
		notifier: notifier,
		ranks:    ranks,
		log:      log,
		tick:     interval,
		trigger:  make(chan struct{}, 1),
	}
}

// SetTickInterval overrides the poll interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Trigger requests an immediate poll cycle. It never blocks; a request
// made while one is already pending is dropped.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.pollAll(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollAll(ctx)
		case <-s.trigger:
			s.log.Info("manual poll triggered")
			s.pollAll(ctx)
		}
	}
}

// pollAll polls sources one after another so that history filters of a
// platform are never evaluated concurrently.
func (s *Scheduler) pollAll(ctx context.Context) {
	for _, src := range s.sources {
		if ctx.Err() != nil {
			return
		}
		s.poll(ctx, src)
		if rs, ok := src.(source.ReportSource); ok && rs.ReportsEnabled() {
			s.pollReports(ctx, rs)
		}
	}
}

func (s *Scheduler) poll(ctx context.Context, src source.Source) {
	platform := src.Platform()
	start := time.Now()
	defer func() {
		metrics.PollDuration.WithLabelValues(platform).Observe(time.Since(start).Seconds())
	}()

	s.log.Debug("polling source", "platform", platform, "source", src.Name())

	fetched, err := src.Fetch(ctx)
	if err != nil {
		s.log.Error("fetch source", "platform", platform, "source", src.Name(), "error", err)
		return
	}
	metrics.ItemsFetched.WithLabelValues(platform).Add(float64(len(fetched)))

	items, err := s.store.StoreNewItems(ctx, fetched)
	if err != nil {
		s.log.Error("store items", "platform", platform, "error", err)
		return
	}
	if len(items) == 0 {
		return
	}
	metrics.ItemsEvaluated.WithLabelValues(platform).Add(float64(len(items)))

	filters, err := s.store.ListFilters(ctx, platform)
	if err != nil {
		s.log.Error("list filters", "platform", platform, "error", err)
		return
	}

	res := filter.EvaluateBatch(ctx, s.store, items, filters, platform)
	for _, w := range res.Warnings {
		metrics.HistoryFlushFailures.Inc()
		s.log.Warn("flush history", "platform", platform, "error", w)
	}
	for _, name := range res.Inert {
		metrics.InertFilters.Inc()
		s.log.Warn("history filter has no usable parent", "filter", name)
	}

	sent := 0
	for _, im := range res.Matched() {
		ignored, err := s.store.IsIgnored(ctx, im.Item.Key())
		if err != nil {
			s.log.Error("check ignore buffer", "item", im.Item.Key(), "error", err)
			continue
		}
		if ignored {
			continue
		}

		for _, m := range im.Matches {
			metrics.FilterMatches.WithLabelValues(string(m.Kind)).Inc()
		}
		action := s.ranks.Resolve(im.Matches)
		metrics.ActionsResolved.WithLabelValues(string(action)).Inc()

		if err := s.notifier.SendAlert(ctx, im, action); err != nil {
			metrics.AlertsSent.WithLabelValues("failed").Inc()
			s.log.Error("send alert", "item", im.Item.Key(), "error", err)
			continue
		}
		metrics.AlertsSent.WithLabelValues("sent").Inc()
		sent++
	}

	s.log.Info("poll complete", "platform", platform, "source", src.Name(),
		"fetched", len(fetched), "new", len(items), "alerts", sent)
}

// pollReports records reported content newer than the stored watermarks
// and forwards each new report.
func (s *Scheduler) pollReports(ctx context.Context, src source.ReportSource) {
	platform := src.Platform()
	fetched, err := src.FetchReports(ctx)
	if err != nil {
		s.log.Error("fetch reports", "platform", platform, "source", src.Name(), "error", err)
		return
	}

	fresh, err := s.store.RecordReports(ctx, fetched)
	if err != nil {
		s.log.Error("record reports", "platform", platform, "error", err)
		return
	}
	metrics.ReportsRecorded.WithLabelValues(platform).Add(float64(len(fresh)))

	for _, r := range fresh {
		if err := s.notifier.SendReport(ctx, r); err != nil {
			s.log.Error("send report", "item", r.Key(), "error", err)
		}
	}
	if len(fresh) > 0 {
		s.log.Info("reports recorded", "platform", platform, "source", src.Name(),
			"queued", len(fetched), "new", len(fresh))
	}
}
