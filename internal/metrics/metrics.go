// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "suno_relay_upstream_duration_seconds",
			Help:    "Time until the upstream responded with headers, in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60, 90, 120},
		},
		[]string{"operation", "status"},
	)

	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suno_relay_upstream_errors_total",
			Help: "Upstream errors by kind",
		},
		[]string{"operation", "kind"},
	)

	StreamedBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suno_relay_streamed_bytes_total",
			Help: "Audio bytes relayed to callers",
		},
		[]string{"operation"},
	)

	CallbacksReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "suno_relay_callbacks_received_total",
			Help: "Callback notifications received",
		},
	)

	CallbackStoreEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "suno_relay_callback_store_entries",
			Help: "Distinct identifiers held in the callback store",
		},
	)

	ResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suno_relay_status_code",
			Help: "Status Codes",
		},
		[]string{"path", "status_code"},
	)
)
