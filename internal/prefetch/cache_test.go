// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package prefetch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/aurastream/internal/media"
)

// blockingLoader signals readiness but holds the transfer open until its
// context is cancelled, recording which loads were cancelled.
type blockingLoader struct {
	mu        sync.Mutex
	cancelled []string
	ready     bool
}

func (b *blockingLoader) Load(ctx context.Context, spec media.Spec, ev media.Events) {
	if b.ready && ev.OnReady != nil {
		ev.OnReady()
	}
	<-ctx.Done()
	b.mu.Lock()
	b.cancelled = append(b.cancelled, spec.URL)
	b.mu.Unlock()
	if ev.OnComplete != nil {
		ev.OnComplete(ctx.Err())
	}
}

// instantLoader completes immediately.
type instantLoader struct{}

func (instantLoader) Load(_ context.Context, _ media.Spec, ev media.Events) {
	if ev.OnReady != nil {
		ev.OnReady()
	}
	if ev.OnProgress != nil {
		ev.OnProgress(1000, 1000, 0)
	}
	if ev.OnComplete != nil {
		ev.OnComplete(nil)
	}
}

func TestCache_ReplaceLeavesExactlyOneSlot(t *testing.T) {
	ld := &blockingLoader{}
	c := New(ld, 0)

	c.Prefetch("a", "https://cdn.example/a.mp3")
	c.Prefetch("b", "https://cdn.example/b.mp3")

	slot, ok := c.Peek()
	require.True(t, ok)
	assert.Equal(t, "b", slot.TrackID)

	// A's load context must have been cancelled; nothing of A remains.
	assert.Eventually(t, func() bool {
		ld.mu.Lock()
		defer ld.mu.Unlock()
		return len(ld.cancelled) == 1 && ld.cancelled[0] == "https://cdn.example/a.mp3"
	}, time.Second, 10*time.Millisecond)
}

func TestCache_PrefetchSameTrackIsNoOp(t *testing.T) {
	ld := &blockingLoader{}
	c := New(ld, 0)

	c.Prefetch("a", "https://cdn.example/a.mp3")
	c.Prefetch("a", "https://cdn.example/a.mp3")

	ld.mu.Lock()
	cancelled := len(ld.cancelled)
	ld.mu.Unlock()
	assert.Zero(t, cancelled)
}

func TestCache_ConsumeIfReadyEmptiesSlot(t *testing.T) {
	c := New(instantLoader{}, 0)

	c.Prefetch("a", "https://cdn.example/a.mp3")
	require.True(t, c.WaitReady(time.Second))

	slot, ok := c.ConsumeIfReady()
	require.True(t, ok)
	assert.Equal(t, "a", slot.TrackID)
	assert.Equal(t, float64(100), slot.ProgressPct)

	_, ok = c.ConsumeIfReady()
	assert.False(t, ok, "slot is empty after consumption")
}

func TestCache_ConsumeNotReadyReturnsFalse(t *testing.T) {
	ld := &blockingLoader{}
	c := New(ld, 0)

	c.Prefetch("a", "https://cdn.example/a.mp3")
	_, ok := c.ConsumeIfReady()
	assert.False(t, ok)
	c.Cancel()
}

func TestCache_CancelClearsSlot(t *testing.T) {
	ld := &blockingLoader{ready: true}
	c := New(ld, 0)

	c.Prefetch("a", "https://cdn.example/a.mp3")
	c.Cancel()
	_, ok := c.Peek()
	assert.False(t, ok)
}
