// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package prefetch background-loads the next track while the current one
// plays, for gapless transitions. Exactly one slot exists: starting a new
// prefetch atomically cancels and releases the previous one.
package prefetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/aurastream/internal/log"
	"github.com/ManuGH/aurastream/internal/media"
)

// Ready states mirror the media element's buffering stages.
const (
	ReadyNothing    = "HAVE_NOTHING"
	ReadyMetadata   = "HAVE_METADATA"
	ReadyFutureData = "HAVE_FUTURE_DATA"
	ReadyEnough     = "HAVE_ENOUGH_DATA"
)

// Slot describes the prefetched track handed to the state machine.
type Slot struct {
	TrackID     string
	URL         string
	Kind        media.Kind
	ProgressPct float64
	ReadyState  string
}

type slotState struct {
	Slot
	cancel context.CancelFunc
	ready  bool
	failed bool
}

// Cache is the single-slot prefetch cache.
type Cache struct {
	mu      sync.Mutex
	loader  media.Loader
	limiter *rate.Limiter
	logger  zerolog.Logger
	slot    *slotState
}

// New creates a cache. throttleKbps caps prefetch bandwidth so the active
// stream is never starved; zero disables the throttle.
func New(loader media.Loader, throttleKbps int) *Cache {
	var limiter *rate.Limiter
	if throttleKbps > 0 {
		bytesPerSec := rate.Limit(float64(throttleKbps) * 1000 / 8)
		limiter = rate.NewLimiter(bytesPerSec, 256*1024)
	}
	return &Cache{
		loader:  loader,
		limiter: limiter,
		logger:  log.WithComponent("prefetch"),
	}
}

// Prefetch begins loading trackID in the background. Any in-flight prefetch
// is cancelled and its resources released before the new one starts.
func (c *Cache) Prefetch(trackID, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot != nil {
		if c.slot.TrackID == trackID {
			return
		}
		c.slot.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	st := &slotState{
		Slot: Slot{
			TrackID:    trackID,
			URL:        url,
			Kind:       media.KindForURL(url),
			ReadyState: ReadyNothing,
		},
		cancel: cancel,
	}
	c.slot = st
	c.logger.Debug().Str("track_id", trackID).Msg("prefetch started")

	go c.loader.Load(ctx, media.Spec{
		URL:      url,
		Kind:     st.Kind,
		Throttle: c.limiter,
	}, c.eventsFor(st))
}

// ConsumeIfReady hands over the prefetched slot when it is playable. After
// consumption the slot is empty.
//
// The slot carries the resolved track identity and readiness, not the warmed
// bytes: the throttled transfer is cancelled here and the consumer starts its
// own full-rate load. What the prefetch buys is the readiness signal and the
// origin's cache being hot for the re-fetch.
func (c *Cache) ConsumeIfReady() (Slot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot == nil || !c.slot.ready || c.slot.failed {
		return Slot{}, false
	}
	st := c.slot
	c.slot = nil
	st.cancel()
	c.logger.Debug().Str("track_id", st.TrackID).Msg("prefetch consumed")
	return st.Slot, true
}

// Cancel discards the slot, if any.
func (c *Cache) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.slot != nil {
		c.slot.cancel()
		c.slot = nil
	}
}

// Peek returns the slot's observable state without consuming it.
func (c *Cache) Peek() (Slot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.slot == nil {
		return Slot{}, false
	}
	return c.slot.Slot, true
}

func (c *Cache) eventsFor(st *slotState) media.Events {
	var totalBytes int64
	return media.Events{
		OnMetadata: func(_ float64, total int64) {
			c.withLive(st, func() {
				totalBytes = total
				if st.ReadyState == ReadyNothing {
					st.ReadyState = ReadyMetadata
				}
			})
		},
		OnProgress: func(loaded, total int64, bufferedSec float64) {
			c.withLive(st, func() {
				if total == 0 {
					total = totalBytes
				}
				if total > 0 {
					st.ProgressPct = float64(loaded) / float64(total) * 100
				} else if bufferedSec > 0 {
					st.ProgressPct = 100 // playlist-readiness based
				}
			})
		},
		OnReady: func() {
			c.withLive(st, func() {
				st.ready = true
				st.ReadyState = ReadyFutureData
			})
		},
		OnComplete: func(err error) {
			c.withLive(st, func() {
				switch {
				case err == nil:
					st.ready = true
					st.ProgressPct = 100
					st.ReadyState = ReadyEnough
				case errors.Is(err, context.Canceled):
					// replaced or consumed; nothing to record
				default:
					st.failed = true
					st.ReadyState = ReadyNothing
					c.logger.Warn().Err(err).Str("track_id", st.TrackID).Msg("prefetch failed")
				}
			})
		},
	}
}

// withLive runs fn under the lock only while st is still the active slot, so
// callbacks from a replaced prefetch cannot touch the new one.
func (c *Cache) withLive(st *slotState, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.slot != st {
		return
	}
	fn()
}

// WaitReady blocks until the slot is playable or the timeout expires.
// Test helper for deterministic assertions against the background load.
func (c *Cache) WaitReady(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		ready := c.slot != nil && c.slot.ready
		c.mu.Unlock()
		if ready {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
