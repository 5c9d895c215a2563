// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package quality estimates network throughput and classifies it into the
// coarse labels the ABR controller consumes. The controller never inspects
// raw samples; the classification here is its sole input.
package quality

import (
	"sync"
	"time"

	"github.com/ManuGH/aurastream/internal/clock"
	"github.com/ManuGH/aurastream/internal/metrics"
)

// Quality is a coarse network classification.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
	QualityOffline   Quality = "offline"
)

// Classification thresholds in kbit/s over the smoothed estimate.
const (
	excellentKbps = 5000
	goodKbps      = 2000
	fairKbps      = 800
)

// ewmaAlpha weights new samples; low enough to resist single-fragment
// outliers and bufferbloat spikes.
const ewmaAlpha = 0.25

const maxSamples = 32

// Sample is one observed transfer.
type Sample struct {
	BandwidthKbps float64   `json:"bandwidthKbps"`
	SampledAt     time.Time `json:"sampledAt"`
}

// Monitor maintains an exponentially-weighted moving average over recent
// throughput samples plus an explicit online/offline signal.
type Monitor struct {
	mu      sync.Mutex
	clk     clock.Clock
	samples []Sample // bounded ring, newest last
	ewma    float64
	seeded  bool
	online  bool
}

// NewMonitor creates a monitor using the given clock.
func NewMonitor(clk clock.Clock) *Monitor {
	if clk == nil {
		clk = clock.System()
	}
	return &Monitor{clk: clk, online: true}
}

// RecordSample folds one transfer observation into the estimate.
func (m *Monitor) RecordSample(bytes int64, elapsed time.Duration) {
	if bytes <= 0 || elapsed <= 0 {
		return
	}
	kbps := float64(bytes) * 8 / 1000 / elapsed.Seconds()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples = append(m.samples, Sample{BandwidthKbps: kbps, SampledAt: m.clk.Now()})
	if len(m.samples) > maxSamples {
		m.samples = m.samples[len(m.samples)-maxSamples:]
	}

	if !m.seeded {
		m.ewma = kbps
		m.seeded = true
	} else {
		m.ewma = ewmaAlpha*kbps + (1-ewmaAlpha)*m.ewma
	}
	metrics.SetBandwidthEstimate(m.ewma)
}

// EstimateBandwidthKbps returns the smoothed bandwidth estimate.
func (m *Monitor) EstimateBandwidthKbps() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ewma
}

// SetOnline records an explicit connectivity signal. Offline is a hard
// override independent of the bandwidth estimate.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online = online
}

// Online reports the last connectivity signal.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Classify maps the smoothed estimate plus connectivity into a Quality label.
// With no samples yet the monitor reports "fair" rather than guessing high.
func (m *Monitor) Classify() Quality {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.online {
		return QualityOffline
	}
	if !m.seeded {
		return QualityFair
	}
	switch {
	case m.ewma >= excellentKbps:
		return QualityExcellent
	case m.ewma >= goodKbps:
		return QualityGood
	case m.ewma >= fairKbps:
		return QualityFair
	default:
		return QualityPoor
	}
}

// Samples returns a copy of the bounded sample ring, newest last.
func (m *Monitor) Samples() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sample, len(m.samples))
	copy(out, m.samples)
	return out
}
