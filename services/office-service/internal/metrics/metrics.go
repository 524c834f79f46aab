package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lashoffice_sync_runs_total",
		Help: "Calendar sync runs by final status.",
	}, []string{"status"})

	SyncActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lashoffice_sync_appointments_total",
		Help: "Appointments touched by reconciliation, by action.",
	}, []string{"action"})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lashoffice_sync_duration_seconds",
		Help:    "Wall-clock duration of a full sync run.",
		Buckets: prometheus.DefBuckets,
	})
)
