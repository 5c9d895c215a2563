// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/aurastream/internal/clock"
)

func TestMonitor_EstimateSeedsFromFirstSample(t *testing.T) {
	m := NewMonitor(clock.NewManual(time.Now()))

	// 1 MB in 1s = 8000 kbit/s
	m.RecordSample(1_000_000, time.Second)
	assert.InDelta(t, 8000, m.EstimateBandwidthKbps(), 1)
}

func TestMonitor_EWMAResistsOutliers(t *testing.T) {
	m := NewMonitor(clock.NewManual(time.Now()))

	for i := 0; i < 10; i++ {
		m.RecordSample(500_000, time.Second) // 4000 kbps steady
	}
	before := m.EstimateBandwidthKbps()

	// One bufferbloat spike must not dominate the estimate.
	m.RecordSample(10_000_000, time.Second) // 80000 kbps
	after := m.EstimateBandwidthKbps()
	assert.Less(t, after, before*6)
	assert.Greater(t, after, before)
}

func TestMonitor_Classify(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  Quality
	}{
		{"excellent", 1_000_000, QualityExcellent}, // 8000 kbps
		{"good", 400_000, QualityGood},             // 3200 kbps
		{"fair", 125_000, QualityFair},             // 1000 kbps
		{"poor", 50_000, QualityPoor},              // 400 kbps
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(clock.NewManual(time.Now()))
			m.RecordSample(tt.bytes, time.Second)
			assert.Equal(t, tt.want, m.Classify())
		})
	}
}

func TestMonitor_OfflineOverridesEstimate(t *testing.T) {
	m := NewMonitor(clock.NewManual(time.Now()))
	m.RecordSample(1_000_000, time.Second)
	assert.Equal(t, QualityExcellent, m.Classify())

	m.SetOnline(false)
	assert.Equal(t, QualityOffline, m.Classify())

	m.SetOnline(true)
	assert.Equal(t, QualityExcellent, m.Classify())
}

func TestMonitor_NoSamplesClassifiesFair(t *testing.T) {
	m := NewMonitor(clock.NewManual(time.Now()))
	assert.Equal(t, QualityFair, m.Classify())
}

func TestMonitor_SampleRingIsBounded(t *testing.T) {
	m := NewMonitor(clock.NewManual(time.Now()))
	for i := 0; i < 100; i++ {
		m.RecordSample(100_000, time.Second)
	}
	assert.LessOrEqual(t, len(m.Samples()), maxSamples)
}
