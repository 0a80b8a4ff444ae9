package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricSnapshotsStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagestream_snapshot_stored_total",
			Help: "Number of snapshots stored",
		},
		[]string{"program"},
	)
	metricSnapshotsLastTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sagestream_snapshot_stored_last_unix_seconds",
			Help: "UNIX timestamp of last stored snapshot",
		},
		[]string{"program"},
	)
	metricSnapshotsLastSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sagestream_snapshot_stored_last_size_bytes",
			Help: "Size of last stored snapshot in bytes",
		},
		[]string{"program"},
	)
	metricSnapshotsStoreFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagestream_snapshot_store_failed_total",
			Help: "Number of failed snapshot store attempts",
		},
		[]string{"program"},
	)
	metricSnapshotsLoaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagestream_snapshot_loaded_total",
			Help: "Number of snapshots loaded",
		},
		[]string{"program"},
	)
	metricFetchFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagestream_snapshot_fetch_failed_total",
			Help: "Number of failed bulk account fetches",
		},
		[]string{"program"},
	)
)

func init() {
	prometheus.MustRegister(metricSnapshotsStored)
	prometheus.MustRegister(metricSnapshotsLastTimestamp)
	prometheus.MustRegister(metricSnapshotsLastSize)
	prometheus.MustRegister(metricSnapshotsStoreFailed)
	prometheus.MustRegister(metricSnapshotsLoaded)
	prometheus.MustRegister(metricFetchFailed)
}
