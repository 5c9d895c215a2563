// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package faststart tracks the latency from a play request to the first
// audible audio, the engine's main perceived-responsiveness benchmark.
package faststart

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ManuGH/aurastream/internal/clock"
	"github.com/ManuGH/aurastream/internal/metrics"
)

const defaultHistoryCap = 50

// Sample is one completed request-to-first-audio measurement.
type Sample struct {
	TrackID        string    `json:"trackId"`
	RequestedAt    time.Time `json:"requestedAt"`
	FirstPlayingAt time.Time `json:"firstPlayingAt"`
	FirstAudioMs   int64     `json:"firstAudioMs"`
	Source         string    `json:"source"` // cold|prefetch|retry
}

// Percentiles summarises the in-session history.
type Percentiles struct {
	P50 int64 `json:"p50"`
	P95 int64 `json:"p95"`
}

type pending struct {
	trackID string
	at      time.Time
	source  string
}

// Tracker records fast-start intervals into a bounded FIFO history. A sample
// is recorded once per track load and never retroactively corrected.
type Tracker struct {
	mu      sync.Mutex
	clk     clock.Clock
	cap     int
	pending *pending
	last    *Sample
	history []Sample
}

// NewTracker creates a tracker with the default history bound.
func NewTracker(clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.System()
	}
	return &Tracker{clk: clk, cap: defaultHistoryCap}
}

// MarkRequested timestamps the play request for trackID. A new mark replaces
// any unresolved one (the previous load never produced audio).
func (t *Tracker) MarkRequested(trackID, source string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if source == "" {
		source = "cold"
	}
	t.pending = &pending{trackID: trackID, at: t.clk.Now(), source: source}
}

// MarkFirstAudio closes the open measurement, if any.
func (t *Tracker) MarkFirstAudio() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending == nil {
		return
	}
	now := t.clk.Now()
	s := Sample{
		TrackID:        t.pending.trackID,
		RequestedAt:    t.pending.at,
		FirstPlayingAt: now,
		FirstAudioMs:   now.Sub(t.pending.at).Milliseconds(),
		Source:         t.pending.source,
	}
	t.pending = nil
	t.last = &s
	t.history = append(t.history, s)
	if len(t.history) > t.cap {
		t.history = t.history[len(t.history)-t.cap:]
	}
	metrics.ObserveFastStart(time.Duration(s.FirstAudioMs) * time.Millisecond)
}

// Discard drops the open measurement (track change before first audio).
func (t *Tracker) Discard() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = nil
}

// Sample returns the most recent completed measurement, or nil.
func (t *Tracker) Sample() *Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return nil
	}
	s := *t.last
	return &s
}

// History returns a copy of the bounded in-session history, oldest first.
func (t *Tracker) History() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Sample, len(t.history))
	copy(out, t.history)
	return out
}

// Seed preloads history (restored from the store on startup).
func (t *Tracker) Seed(samples []Sample) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(samples) > t.cap {
		samples = samples[len(samples)-t.cap:]
	}
	t.history = append(t.history[:0], samples...)
	if n := len(t.history); n > 0 {
		s := t.history[n-1]
		t.last = &s
	}
}

// Percentiles computes p50/p95 by nearest-rank on the sorted history.
// Deterministic, no statistics dependency.
func (t *Tracker) Percentiles() Percentiles {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.history)
	if n == 0 {
		return Percentiles{}
	}
	sorted := make([]int64, n)
	for i, s := range t.history {
		sorted[i] = s.FirstAudioMs
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return Percentiles{
		P50: sorted[nearestRank(0.50, n)],
		P95: sorted[nearestRank(0.95, n)],
	}
}

// nearestRank returns the zero-based index of the q-th percentile for n
// sorted samples: ceil(q*n), 1-indexed.
func nearestRank(q float64, n int) int {
	rank := int(math.Ceil(q * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return rank - 1
}
