// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package abr

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/aurastream/internal/clock"
	"github.com/ManuGH/aurastream/internal/log"
	"github.com/ManuGH/aurastream/internal/metrics"
	"github.com/ManuGH/aurastream/internal/quality"
)

// ControllerState classifies where the controller is in its switch cycle.
type ControllerState string

const (
	StateOptimal    ControllerState = "optimal"
	StateUpgrading  ControllerState = "upgrading"
	StateDowngraded ControllerState = "downgraded"
	StateUnstable   ControllerState = "unstable"
)

// SwitchRecord documents one applied level switch.
type SwitchRecord struct {
	FromLevel     int       `json:"fromLevel"`
	ToLevel       int       `json:"toLevel"`
	BandwidthKbps float64   `json:"bandwidth"`
	Timestamp     time.Time `json:"timestamp"`
}

// FragmentStats are lifetime fragment delivery counters.
type FragmentStats struct {
	Loaded  int `json:"loaded"`
	Failed  int `json:"failed"`
	Retried int `json:"retried"`
}

// Snapshot is a copy of the controller's observable state.
type Snapshot struct {
	CurrentLevel     int             `json:"currentLevel"`
	RecommendedLevel int             `json:"recommendedLevel"`
	State            ControllerState `json:"abrState"`
	AutoLevelEnabled bool            `json:"autoLevelEnabled"`
	TotalSwitches    int             `json:"totalSwitches"`
	LastSwitchAt     time.Time       `json:"lastSwitchAt,omitzero"`
	SwitchHistory    []SwitchRecord  `json:"switchHistory"`
	FragmentStats    FragmentStats   `json:"fragmentStats"`
	Levels           []Level         `json:"levels"`
}

// Config holds controller tuning.
type Config struct {
	Dwell            time.Duration // minimum hold time before/after an upgrade
	FragWindow       time.Duration // trailing window for the failure rate
	FragFailureRate  float64       // rate above which the controller goes unstable
	MinFragSamples   int           // window population before the rate is trusted
	BufferFloorRatio float64       // buffered/target below which we dump a level
	HistoryCap       int
}

// DefaultConfig mirrors the tuning the dwell/flap tests assume.
func DefaultConfig() Config {
	return Config{
		Dwell:            10 * time.Second,
		FragWindow:       30 * time.Second,
		FragFailureRate:  0.3,
		MinFragSamples:   4,
		BufferFloorRatio: 0.3,
		HistoryCap:       20,
	}
}

type fragEvent struct {
	at time.Time
	ok bool
}

// Controller is the ABR ladder state machine. Only constructible for an HLS
// session; progressive playback never instantiates one. It trusts the quality
// classification as its sole network input and never inspects raw samples.
type Controller struct {
	mu     sync.Mutex
	cfg    Config
	clk    clock.Clock
	ladder Ladder
	logger zerolog.Logger

	current     int // ladder index or -1 while unresolved
	recommended int
	state       ControllerState
	auto        bool

	totalSwitches int
	lastSwitchAt  time.Time
	history       []SwitchRecord // append-only, capped, FIFO-evicted

	stats      FragmentStats
	fragEvents []fragEvent

	lastQuality  quality.Quality
	lastEstimate float64
	upgradeSince time.Time // when recommended first exceeded current
	bufferedSec  float64
	targetBuffer float64
}

// NewController creates a controller for the given ladder.
func NewController(ladder Ladder, cfg Config, clk clock.Clock) *Controller {
	if clk == nil {
		clk = clock.System()
	}
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = 20
	}
	return &Controller{
		cfg:          cfg,
		clk:          clk,
		ladder:       ladder,
		logger:       log.WithComponent("abr"),
		current:      -1,
		recommended:  0,
		state:        StateOptimal,
		auto:         true,
		targetBuffer: 30,
	}
}

// SetTargetBuffer configures the buffered-seconds target used for the
// starvation floor.
func (c *Controller) SetTargetBuffer(sec float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sec > 0 {
		c.targetBuffer = sec
	}
}

// SetAutoLevel toggles automatic switching.
func (c *Controller) SetAutoLevel(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auto = enabled
}

// OnQualityChanged feeds a fresh classification plus the smoothed estimate.
func (c *Controller) OnQualityChanged(q quality.Quality, estimateKbps float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastQuality = q
	c.lastEstimate = estimateKbps
	c.recompute()
	c.evaluate()
}

// OnFragmentLoaded records a delivered fragment.
func (c *Controller) OnFragmentLoaded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Loaded++
	c.recordFragment(true)
	c.evaluate()
}

// OnFragmentFailed records a failed fragment.
func (c *Controller) OnFragmentFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Failed++
	c.recordFragment(false)
	c.evaluate()
}

// OnFragmentRetried records a fragment retry.
func (c *Controller) OnFragmentRetried() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Retried++
	c.evaluate()
}

// OnBufferUpdate feeds the current buffered seconds. Dropping below the
// safety floor forces an immediate downgrade regardless of bandwidth.
func (c *Controller) OnBufferUpdate(bufferedSec float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bufferedSec = bufferedSec
	if c.auto && c.current > 0 && bufferedSec < c.cfg.BufferFloorRatio*c.targetBuffer {
		c.applyLocked(c.current-1, StateDowngraded)
		if c.recommended > c.current {
			c.recommended = c.current
		}
		return
	}
	c.evaluate()
}

// RecommendedLevel returns the index the controller currently recommends.
func (c *Controller) RecommendedLevel() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recommended
}

// ApplyLevel applies the given ladder index directly, recording a switch.
func (c *Controller) ApplyLevel(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ladder.Valid(index) {
		return
	}
	if index == c.current {
		return
	}
	target := StateUpgrading
	if index < c.current {
		target = StateDowngraded
	}
	c.applyLocked(index, target)
}

// Snapshot returns a copy of the observable controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settle()
	hist := make([]SwitchRecord, len(c.history))
	copy(hist, c.history)
	levels := make([]Level, len(c.ladder))
	copy(levels, c.ladder)
	return Snapshot{
		CurrentLevel:     c.current,
		RecommendedLevel: c.recommended,
		State:            c.state,
		AutoLevelEnabled: c.auto,
		TotalSwitches:    c.totalSwitches,
		LastSwitchAt:     c.lastSwitchAt,
		SwitchHistory:    hist,
		FragmentStats:    c.stats,
		Levels:           levels,
	}
}

// recompute derives the recommended level from the last classification.
// Caller must hold lock.
func (c *Controller) recompute() {
	switch c.lastQuality {
	case quality.QualityOffline:
		// Nothing fetchable; hold the recommendation.
	case quality.QualityPoor:
		c.recommended = 0
	default:
		c.recommended = c.ladder.LevelForBandwidth(c.lastEstimate)
	}
	if c.unstable() && c.recommended > c.current && c.current >= 0 {
		c.recommended = c.current
	}
}

// evaluate drives the switch policy. Caller must hold lock.
func (c *Controller) evaluate() {
	if !c.auto {
		return
	}
	now := c.clk.Now()

	if c.unstable() {
		if c.state != StateUnstable {
			c.state = StateUnstable
			metrics.IncABRUnstable()
			c.logger.Warn().
				Float64("failure_rate", c.failureRate()).
				Msg("fragment failures above threshold, forcing downgrade")
			// Force a downgrade regardless of the bandwidth estimate;
			// upgrades stay suppressed until the rate recovers.
			if c.current > 0 {
				c.applyLocked(c.current-1, StateUnstable)
			}
		}
		if c.recommended > c.current && c.current >= 0 {
			c.recommended = c.current
		}
		c.upgradeSince = time.Time{}
		return
	}
	if c.state == StateUnstable {
		c.state = StateOptimal
		c.recompute()
	}

	// First resolution binds directly to the recommendation; it is not a
	// switch.
	if c.current < 0 {
		if c.ladder.Valid(c.recommended) {
			c.current = c.recommended
			c.state = StateOptimal
			metrics.SetABRLevel(c.current)
		}
		return
	}

	if c.recommended < c.current {
		// Downgrades take effect immediately.
		c.applyLocked(c.recommended, StateDowngraded)
		c.upgradeSince = time.Time{}
		return
	}

	if c.recommended > c.current {
		// Upgrade only after sustained headroom for the dwell period.
		if c.upgradeSince.IsZero() {
			c.upgradeSince = now
			return
		}
		if now.Sub(c.upgradeSince) >= c.cfg.Dwell {
			c.applyLocked(c.recommended, StateUpgrading)
			c.upgradeSince = time.Time{}
		}
		return
	}

	// current == recommended
	c.upgradeSince = time.Time{}
	c.settle()
}

// settle clears a transient upgrading/downgraded state once the level has
// held for the dwell period. Caller must hold lock.
func (c *Controller) settle() {
	if c.state != StateUpgrading && c.state != StateDowngraded {
		return
	}
	if c.current == c.recommended && c.clk.Now().Sub(c.lastSwitchAt) >= c.cfg.Dwell {
		c.state = StateOptimal
	}
}

// applyLocked performs the switch bookkeeping. Caller must hold lock.
func (c *Controller) applyLocked(index int, state ControllerState) {
	if !c.ladder.Valid(index) || index == c.current {
		return
	}
	from := c.current
	rec := SwitchRecord{
		FromLevel:     from,
		ToLevel:       index,
		BandwidthKbps: c.lastEstimate,
		Timestamp:     c.clk.Now(),
	}
	c.history = append(c.history, rec)
	if len(c.history) > c.cfg.HistoryCap {
		c.history = c.history[len(c.history)-c.cfg.HistoryCap:]
	}
	c.totalSwitches++
	c.lastSwitchAt = rec.Timestamp
	c.current = index
	c.state = state

	direction := "up"
	if index < from {
		direction = "down"
	}
	metrics.RecordLevelSwitch(direction)
	metrics.SetABRLevel(index)
	c.logger.Info().
		Int("from", from).
		Int("to", index).
		Str("tier", c.ladder.TierName(index)).
		Float64("bandwidth_kbps", c.lastEstimate).
		Msg("level switch applied")
}

// recordFragment appends a windowed outcome. Caller must hold lock.
func (c *Controller) recordFragment(ok bool) {
	now := c.clk.Now()
	c.fragEvents = append(c.fragEvents, fragEvent{at: now, ok: ok})
	cutoff := now.Add(-c.cfg.FragWindow)
	idx := 0
	for idx < len(c.fragEvents) && c.fragEvents[idx].at.Before(cutoff) {
		idx++
	}
	c.fragEvents = c.fragEvents[idx:]
}

// failureRate computes the trailing-window failure rate. Caller must hold lock.
func (c *Controller) failureRate() float64 {
	if len(c.fragEvents) == 0 {
		return 0
	}
	failed := 0
	for _, e := range c.fragEvents {
		if !e.ok {
			failed++
		}
	}
	return float64(failed) / float64(len(c.fragEvents))
}

// unstable reports whether the windowed failure rate is above threshold.
// Caller must hold lock.
func (c *Controller) unstable() bool {
	if len(c.fragEvents) < c.cfg.MinFragSamples {
		return false
	}
	return c.failureRate() > c.cfg.FragFailureRate
}
