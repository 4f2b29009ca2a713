// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rpcCallsTotal       *prometheus.CounterVec
	rpcRetriesTotal     *prometheus.CounterVec
	rpcRateLimitsTotal  *prometheus.CounterVec
	itemsSkippedTotal   *prometheus.CounterVec
	entitiesSavedTotal  *prometheus.CounterVec
	imagesFetchedTotal  prometheus.Counter
	imagesSkippedTotal  prometheus.Counter
	harvestRunsTotal    *prometheus.CounterVec
	harvestRunsInFlight prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		rpcCallsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forumvac_rpc_calls_total",
				Help: "Total RPC calls issued, labeled by resource kind and outcome.",
			},
			[]string{"resource", "outcome"},
		)

		rpcRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forumvac_rpc_retries_total",
				Help: "Total RPC retries, labeled by resource kind.",
			},
			[]string{"resource"},
		)

		rpcRateLimitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forumvac_rpc_rate_limits_total",
				Help: "Total rate-limit (429) responses, labeled by resource kind.",
			},
			[]string{"resource"},
		)

		itemsSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forumvac_items_skipped_total",
				Help: "Items abandoned after permanent errors or exhausted retries, labeled by resource kind.",
			},
			[]string{"resource"},
		)

		entitiesSavedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forumvac_entities_saved_total",
				Help: "Entities merged into the store, labeled by entity kind.",
			},
			[]string{"kind"},
		)

		imagesFetchedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "forumvac_images_fetched_total",
				Help: "Embedded images downloaded and stored.",
			},
		)

		imagesSkippedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "forumvac_images_skipped_total",
				Help: "Embedded images skipped because the store already has them.",
			},
		)

		harvestRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forumvac_harvest_runs_total",
				Help: "Completed harvest runs, labeled by kind and status.",
			},
			[]string{"kind", "status"},
		)

		harvestRunsInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "forumvac_harvest_runs_in_flight",
				Help: "Harvest runs currently executing.",
			},
		)
	})
}

// IncRPCCall records an issued RPC call and its outcome ("ok" or "error").
func IncRPCCall(resource, outcome string) {
	if rpcCallsTotal != nil {
		rpcCallsTotal.WithLabelValues(resource, outcome).Inc()
	}
}

// IncRPCRetry records a retried RPC call.
func IncRPCRetry(resource string) {
	if rpcRetriesTotal != nil {
		rpcRetriesTotal.WithLabelValues(resource).Inc()
	}
}

// IncRateLimit records a 429 from the remote.
func IncRateLimit(resource string) {
	if rpcRateLimitsTotal != nil {
		rpcRateLimitsTotal.WithLabelValues(resource).Inc()
	}
}

// IncItemSkipped records an item given up on.
func IncItemSkipped(resource string) {
	if itemsSkippedTotal != nil {
		itemsSkippedTotal.WithLabelValues(resource).Inc()
	}
}

// IncEntitySaved records a successful merge of one entity.
func IncEntitySaved(kind string) {
	if entitiesSavedTotal != nil {
		entitiesSavedTotal.WithLabelValues(kind).Inc()
	}
}

// IncImageFetched records a stored image download.
func IncImageFetched() {
	if imagesFetchedTotal != nil {
		imagesFetchedTotal.Inc()
	}
}

// IncImageSkipped records an image dedup hit.
func IncImageSkipped() {
	if imagesSkippedTotal != nil {
		imagesSkippedTotal.Inc()
	}
}

// ObserveRun records a finished run and adjusts the in-flight gauge.
func ObserveRun(kind, status string) {
	if harvestRunsTotal != nil {
		harvestRunsTotal.WithLabelValues(kind, status).Inc()
	}
}

// RunStarted bumps the in-flight gauge.
func RunStarted() {
	if harvestRunsInFlight != nil {
		harvestRunsInFlight.Inc()
	}
}

// RunFinished decrements the in-flight gauge.
func RunFinished() {
	if harvestRunsInFlight != nil {
		harvestRunsInFlight.Dec()
	}
}
