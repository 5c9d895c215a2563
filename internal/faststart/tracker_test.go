// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package faststart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/aurastream/internal/clock"
)

func TestTracker_RecordsSingleMeasurement(t *testing.T) {
	clk := clock.NewManual(time.Now())
	tr := NewTracker(clk)

	tr.MarkRequested("t1", "cold")
	clk.Advance(250 * time.Millisecond)
	tr.MarkFirstAudio()

	s := tr.Sample()
	require.NotNil(t, s)
	assert.Equal(t, "t1", s.TrackID)
	assert.Equal(t, int64(250), s.FirstAudioMs)
	assert.Equal(t, "cold", s.Source)

	// A second first-audio signal without a new request records nothing.
	clk.Advance(time.Second)
	tr.MarkFirstAudio()
	assert.Len(t, tr.History(), 1)
}

func TestTracker_DiscardDropsOpenMark(t *testing.T) {
	clk := clock.NewManual(time.Now())
	tr := NewTracker(clk)

	tr.MarkRequested("t1", "cold")
	tr.Discard()
	tr.MarkFirstAudio()
	assert.Nil(t, tr.Sample())
}

func TestTracker_Percentiles(t *testing.T) {
	clk := clock.NewManual(time.Now())
	tr := NewTracker(clk)

	for _, ms := range []int{100, 200, 300, 400, 500} {
		tr.MarkRequested("t", "cold")
		clk.Advance(time.Duration(ms) * time.Millisecond)
		tr.MarkFirstAudio()
	}

	p := tr.Percentiles()
	assert.Equal(t, int64(300), p.P50)
	assert.Equal(t, int64(500), p.P95)
}

func TestTracker_PercentilesEmpty(t *testing.T) {
	tr := NewTracker(clock.NewManual(time.Now()))
	assert.Equal(t, Percentiles{}, tr.Percentiles())
}

func TestTracker_HistoryBounded(t *testing.T) {
	clk := clock.NewManual(time.Now())
	tr := NewTracker(clk)

	for i := 0; i < 200; i++ {
		tr.MarkRequested("t", "cold")
		clk.Advance(10 * time.Millisecond)
		tr.MarkFirstAudio()
	}
	assert.Len(t, tr.History(), defaultHistoryCap)
}

func TestTracker_SeedRestoresHistory(t *testing.T) {
	tr := NewTracker(clock.NewManual(time.Now()))
	tr.Seed([]Sample{
		{TrackID: "a", FirstAudioMs: 120},
		{TrackID: "b", FirstAudioMs: 180},
	})

	assert.Len(t, tr.History(), 2)
	s := tr.Sample()
	require.NotNil(t, s)
	assert.Equal(t, "b", s.TrackID)
}
