package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagestream_ingest_updates_total",
			Help: "Number of account updates processed, by outcome",
		},
		[]string{"program", "outcome"},
	)
	metricRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagestream_ingest_records_total",
			Help: "Number of decoded records written, by relation",
		},
		[]string{"program", "relation"},
	)
	metricStaleUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagestream_ingest_stale_updates_total",
			Help: "Number of updates with a lower slot than previously seen for the same account",
		},
		[]string{"program"},
	)
	metricHighestSlot = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sagestream_ingest_highest_slot",
			Help: "Highest slot seen in any update",
		},
		[]string{"program"},
	)
	metricApplySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sagestream_ingest_apply_seconds",
			Help:    "Time taken to decode and write a single update",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"program"},
	)
	metricStreamsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagestream_ingest_streams_finished_total",
			Help: "Number of subscription streams that finished, by final status",
		},
		[]string{"program", "status"},
	)
	metricSubscribeFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagestream_ingest_subscribe_failed_total",
			Help: "Number of failed subscribe attempts",
		},
		[]string{"program"},
	)
)

func init() {
	prometheus.MustRegister(metricUpdates)
	prometheus.MustRegister(metricRecords)
	prometheus.MustRegister(metricStaleUpdates)
	prometheus.MustRegister(metricHighestSlot)
	prometheus.MustRegister(metricApplySeconds)
	prometheus.MustRegister(metricStreamsFinished)
	prometheus.MustRegister(metricSubscribeFailed)
}
