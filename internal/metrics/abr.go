// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	abrLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aurastream_abr_current_level",
		Help: "Current ABR ladder index (-1 when unresolved)",
	})

	abrSwitches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aurastream_abr_level_switches_total",
		Help: "ABR level switches by direction",
	}, []string{"direction"})

	abrUnstable = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aurastream_abr_unstable_episodes_total",
		Help: "Times the controller entered the unstable state",
	})

	bandwidthEstimate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aurastream_bandwidth_estimate_kbps",
		Help: "Smoothed bandwidth estimate in kbit/s",
	})
)

// SetABRLevel records the active ladder index.
func SetABRLevel(index int) { abrLevel.Set(float64(index)) }

// RecordLevelSwitch counts a switch in the given direction ("up" or "down").
func RecordLevelSwitch(direction string) {
	abrSwitches.WithLabelValues(direction).Inc()
}

// IncABRUnstable counts an unstable episode.
func IncABRUnstable() { abrUnstable.Inc() }

// SetBandwidthEstimate records the smoothed estimate.
func SetBandwidthEstimate(kbps float64) { bandwidthEstimate.Set(kbps) }
