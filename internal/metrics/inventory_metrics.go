package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync outcomes used as the "result" label.
const (
	ResultApplied   = "applied"
	ResultUnchanged = "unchanged"
	ResultRejected  = "rejected"
	ResultFailed    = "failed"
)

var (
	// SyncRuns counts commit attempts by source kind and result.
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_sync_runs_total",
		Help: "The total number of inventory sync attempts",
	}, []string{"source", "result"})

	// ProductsInStore tracks the number of records written by the last commit.
	ProductsInStore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inventory_products",
		Help: "The number of products in the inventory store after the last commit",
	})

	// ProductChanges counts committed changes per diff bucket.
	ProductChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_product_changes_total",
		Help: "The total number of committed product changes",
	}, []string{"kind"})

	// BackupsCreated is a Prometheus counter for tracking the total number of snapshots taken.
	BackupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_backups_created_total",
		Help: "The total number of inventory backups created",
	})

	// BackupsDeleted is a Prometheus counter for tracking the total number of snapshots removed by sweeps.
	BackupsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_backups_deleted_total",
		Help: "The total number of inventory backups deleted by retention sweeps",
	})

	// FetchDuration observes remote source fetch latency.
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inventory_fetch_duration_seconds",
		Help:    "Latency of remote inventory fetches",
		Buckets: prometheus.DefBuckets,
	})
)
