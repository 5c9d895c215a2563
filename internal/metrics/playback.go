// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	playbackState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aurastream_playback_state",
		Help: "Current playback state (exactly one state label is 1)",
	}, []string{"state"})

	playbackLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aurastream_playback_load_duration_seconds",
		Help:    "Time from load command to playable media",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 20},
	})

	playbackStalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aurastream_playback_stalls_total",
		Help: "Total number of buffer underruns observed",
	})

	playbackErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aurastream_playback_errors_total",
		Help: "Terminal playback errors by category",
	}, []string{"category"})

	playbackRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aurastream_playback_retries_total",
		Help: "Load retries scheduled by the retry scheduler",
	})

	fastStartLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aurastream_fast_start_latency_seconds",
		Help:    "Latency from play request to first audible audio",
		Buckets: []float64{0.05, 0.1, 0.2, 0.35, 0.5, 0.75, 1, 1.5, 2.5, 5},
	})
)

var playbackStates = []string{"idle", "loading", "playing", "paused", "stalled", "recovering", "error"}

// SetPlaybackState marks the active playback state gauge.
func SetPlaybackState(state string) {
	for _, s := range playbackStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		playbackState.WithLabelValues(s).Set(value)
	}
}

// ObserveLoadDuration records the time a load took to become playable.
func ObserveLoadDuration(d time.Duration) {
	playbackLoadDuration.Observe(d.Seconds())
}

// IncStall records a buffer underrun.
func IncStall() { playbackStalls.Inc() }

// IncPlaybackError records a terminal error by category.
func IncPlaybackError(category string) {
	playbackErrors.WithLabelValues(category).Inc()
}

// IncRetry records a scheduled load retry.
func IncRetry() { playbackRetries.Inc() }

// ObserveFastStart records a request-to-first-audio interval.
func ObserveFastStart(d time.Duration) {
	fastStartLatency.Observe(d.Seconds())
}
