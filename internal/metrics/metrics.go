// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesReceivedTotal counts frames read from the link device
	FramesReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rawhttpd_frames_received_total",
			Help: "Total number of frames received from the link device",
		},
	)

	// FramesDroppedTotal counts malformed frames discarded by the codec
	FramesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawhttpd_frames_dropped_total",
			Help: "Total number of malformed frames dropped",
		},
		[]string{"reason"},
	)

	// FramesIgnoredTotal counts frames that are not addressed to the responder
	FramesIgnoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawhttpd_frames_ignored_total",
			Help: "Total number of frames ignored",
		},
		[]string{"reason"},
	)

	// SegmentsSentTotal counts outbound segments by intent
	SegmentsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawhttpd_segments_sent_total",
			Help: "Total number of TCP segments sent",
		},
		[]string{"intent"},
	)

	// ConnectionsActive tracks entries in the connection table
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rawhttpd_connections_active",
			Help: "Current number of tracked connections",
		},
	)

	// ConnectionsTotal counts connection lifecycle transitions by outcome
	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawhttpd_connections_total",
			Help: "Total number of connection transitions by outcome",
		},
		[]string{"outcome"},
	)

	// FrameLatencySeconds measures time from receive to the last reply sent
	FrameLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rawhttpd_frame_latency_seconds",
			Help:    "Latency of processing one inbound frame in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to ~1s
		},
	)
)
