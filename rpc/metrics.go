package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagestream_rpc_requests_total",
			Help: "JSON-RPC requests by method and result",
		},
		[]string{"method", "result"},
	)
	metricRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sagestream_rpc_request_seconds",
			Help:    "Duration of JSON-RPC requests, including reading the response",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
		[]string{"method"},
	)
	metricSubscriptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sagestream_rpc_subscriptions_total",
			Help: "Websocket program subscriptions by result",
		},
		[]string{"result"},
	)
	metricNotifications = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sagestream_rpc_notifications_total",
			Help: "Program notifications received over websocket subscriptions",
		},
	)
	metricNotificationErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sagestream_rpc_notification_errors_total",
			Help: "Websocket messages that could not be parsed",
		},
	)
)

func init() {
	prometheus.MustRegister(metricRequests)
	prometheus.MustRegister(metricRequestDuration)
	prometheus.MustRegister(metricSubscriptions)
	prometheus.MustRegister(metricNotifications)
	prometheus.MustRegister(metricNotificationErrors)
}
