// Package metrics declares the Prometheus collectors exported by the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_items_fetched_total",
		Help: "Content items returned by sources",
	}, []string{"platform"})

	ItemsEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_items_evaluated_total",
		Help: "New content items evaluated against filters",
	}, []string{"platform"})

	FilterMatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_filter_matches_total",
		Help: "Triggered matches by filter kind",
	}, []string{"kind"})

	ActionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_actions_resolved_total",
		Help: "Resolved moderation actions per alerted item",
	}, []string{"action"})

	HistoryFlushFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modbot_history_flush_failures_total",
		Help: "History filter updates that could not be persisted",
	})

	InertFilters = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modbot_inert_history_filters_total",
		Help: "History filters skipped because their parent was missing",
	})

	AlertsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_alerts_total",
		Help: "Alert messages by delivery status",
	}, []string{"status"})

	ReportsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_reports_recorded_total",
		Help: "Reported items stored from platform report queues",
	}, []string{"platform"})

	PollDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "modbot_poll_duration_seconds",
		Help:    "Duration of one poll of a source",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform"})
)
