// Package metrics exposes Prometheus instrumentation for the detection
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesProcessed counts frames fed through the engine.
	FramesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pizzatrack_frames_processed_total",
		Help: "Number of detection frames processed.",
	})

	// FramesDropped counts frames rejected before processing, labeled by
	// reason (out_of_order, duplicate, decode_error).
	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pizzatrack_frames_dropped_total",
		Help: "Number of detection frames dropped.",
	}, []string{"reason"})

	// ViolationsEmitted counts emitted violation events.
	ViolationsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pizzatrack_violations_total",
		Help: "Number of hygiene violations detected.",
	})

	// ActiveTracks reports the current number of tracked hands.
	ActiveTracks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pizzatrack_active_tracks",
		Help: "Number of hand tracks currently alive.",
	})

	// ProcessingDuration observes per-frame engine latency.
	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pizzatrack_frame_processing_seconds",
		Help:    "Time spent processing one detection frame.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
)
