package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	batchesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anticheat_batches_ingested_total",
		Help: "Total number of accepted packet batches",
	})

	ingestBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anticheat_ingest_bytes_total",
		Help: "Total compressed payload bytes accepted on /ingest",
	})
)
