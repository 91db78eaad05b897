package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FlatState inlining migration metrics
	FlatStateInliningProcessedCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tessera_flat_state_inlining_migration_processed_count",
			Help: "Total number of FlatState entries processed by the inlining migration",
		},
	)

	FlatStateInliningProcessedTotalValuesSize = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tessera_flat_state_inlining_migration_processed_total_values_size",
			Help: "Total size in bytes of all values processed by the inlining migration",
		},
	)

	FlatStateInliningInlinedCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tessera_flat_state_inlining_migration_inlined_count",
			Help: "Total number of FlatState values rewritten as inlined",
		},
	)

	FlatStateInliningInlinedTotalValuesSize = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tessera_flat_state_inlining_migration_inlined_total_values_size",
			Help: "Total size in bytes of values selected for inlining",
		},
	)

	FlatStateInliningSkippedCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tessera_flat_state_inlining_migration_skipped_count",
			Help: "Total number of FlatState entries skipped due to errors",
		},
	)

	FlatStatePausedDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tessera_flat_state_inlining_migration_paused_duration_seconds",
			Help:    "Duration of the FlatState updates pause taken per inlining batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	// State sync dump metrics
	StateSyncDumpIterationElapsed = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tessera_state_sync_dump_iteration_elapsed_seconds",
			Help:    "Time taken to obtain and upload one state part",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"shard_id"},
	)

	StateSyncDumpSizeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tessera_state_sync_dump_size_total",
			Help: "Total size in bytes of dumped state parts by epoch height and shard",
		},
		[]string{"epoch_height", "shard_id"},
	)

	StateSyncDumpNumPartsDumped = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tessera_state_sync_dump_num_parts_dumped",
			Help: "Number of state parts dumped for the current epoch by shard",
		},
		[]string{"shard_id"},
	)

	StateSyncDumpNumPartsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tessera_state_sync_dump_num_parts_total",
			Help: "Total number of state parts in the current epoch by shard",
		},
		[]string{"shard_id"},
	)

	StateSyncDumpEpochHeight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tessera_state_sync_dump_epoch_height",
			Help: "Epoch height of the epoch currently being dumped by shard",
		},
		[]string{"shard_id"},
	)
)

func init() {
	prometheus.MustRegister(FlatStateInliningProcessedCount)
	prometheus.MustRegister(FlatStateInliningProcessedTotalValuesSize)
	prometheus.MustRegister(FlatStateInliningInlinedCount)
	prometheus.MustRegister(FlatStateInliningInlinedTotalValuesSize)
	prometheus.MustRegister(FlatStateInliningSkippedCount)
	prometheus.MustRegister(FlatStatePausedDuration)
	prometheus.MustRegister(StateSyncDumpIterationElapsed)
	prometheus.MustRegister(StateSyncDumpSizeTotal)
	prometheus.MustRegister(StateSyncDumpNumPartsDumped)
	prometheus.MustRegister(StateSyncDumpNumPartsTotal)
	prometheus.MustRegister(StateSyncDumpEpochHeight)
}

// Handler returns the HTTP handler for the /metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
