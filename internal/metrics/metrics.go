package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contentsync_runs_total",
		Help: "Completed sync runs by result.",
	}, []string{"result"})

	RecordsImported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contentsync_records_imported_total",
		Help: "Records imported into the content store.",
	})

	RecordsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contentsync_records_skipped_total",
		Help: "Records skipped (invalid, unknown type or duplicate).",
	})

	RecordsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contentsync_records_failed_total",
		Help: "Records that hit a store error during import.",
	})

	SideloadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contentsync_sideload_failures_total",
		Help: "Media sideload attempts that failed.",
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "contentsync_run_duration_seconds",
		Help:    "Wall-clock duration of sync runs.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)
