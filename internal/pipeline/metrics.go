package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	dispatchesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anticheat_module_dispatches_sent_total",
		Help: "Total number of batch dispatches accepted by modules",
	})

	dispatchesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anticheat_module_dispatches_failed_total",
		Help: "Total number of batch dispatches that failed",
	})

	dispatchesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anticheat_module_dispatches_skipped_total",
		Help: "Total number of dispatches skipped because a module is known-down",
	})

	dispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "anticheat_module_dispatch_duration_seconds",
		Help:    "Duration of single-module batch dispatches",
		Buckets: prometheus.DefBuckets,
	})

	transformsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anticheat_transforms_failed_total",
		Help: "Total number of per-module stream transform failures",
	})

	healthchecksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anticheat_module_healthchecks_failed_total",
		Help: "Total number of failed module health probes",
	})

	cleanupFilesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anticheat_cleanup_files_deleted_total",
		Help: "Total number of expired batch blobs deleted by retention sweeps",
	})

	cleanupRowsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anticheat_cleanup_index_rows_deleted_total",
		Help: "Total number of expired batch_index rows deleted by retention sweeps",
	})
)
