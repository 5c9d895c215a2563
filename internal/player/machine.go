// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package player orchestrates track delivery: it owns the playback session,
// gates every load attempt through the circuit breaker, drives the retry
// scheduler on failure and the ABR controller while HLS is active. All
// loader callbacks and commands funnel through one mutex, so state
// transitions for a session are strictly ordered.
package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/aurastream/internal/abr"
	"github.com/ManuGH/aurastream/internal/clock"
	"github.com/ManuGH/aurastream/internal/faststart"
	"github.com/ManuGH/aurastream/internal/log"
	"github.com/ManuGH/aurastream/internal/media"
	"github.com/ManuGH/aurastream/internal/metrics"
	"github.com/ManuGH/aurastream/internal/prefetch"
	"github.com/ManuGH/aurastream/internal/quality"
	"github.com/ManuGH/aurastream/internal/resilience"
	"github.com/ManuGH/aurastream/internal/snapshot"
)

// State is the playback state machine's current state.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StatePlaying    State = "playing"
	StatePaused     State = "paused"
	StateStalled    State = "stalled"
	StateRecovering State = "recovering"
	StateError      State = "error"
)

// Config holds machine tuning.
type Config struct {
	StallGrace       time.Duration // stall duration before recovery + breaker report
	TargetBuffer     float64       // seconds of buffer the engine aims for
	FastStartEnabled bool
	StorageBackend   string // reported in the snapshot, owned by the engine wiring
	ABR              abr.Config
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		StallGrace:       5 * time.Second,
		TargetBuffer:     30,
		FastStartEnabled: true,
		StorageBackend:   "memory",
		ABR:              abr.DefaultConfig(),
	}
}

// Deps are the machine's collaborators. Zero-value fields get production
// defaults except Loader, which is required.
type Deps struct {
	Clock     clock.Clock
	Loader    media.Loader
	Breaker   *resilience.CircuitBreaker
	Retry     *resilience.RetryScheduler
	Monitor   *quality.Monitor
	Prefetch  *prefetch.Cache
	FastStart *faststart.Tracker
}

// Machine is the playback state machine.
type Machine struct {
	mu  sync.Mutex
	cfg Config

	clk       clock.Clock
	loader    media.Loader
	breaker   *resilience.CircuitBreaker
	retry     *resilience.RetryScheduler
	monitor   *quality.Monitor
	prefetch  *prefetch.Cache
	faststart *faststart.Tracker
	logger    zerolog.Logger

	state   State
	session *Session

	// per-session attempt plumbing
	attemptCancel  context.CancelFunc
	firstAudioSeen bool
	decodeRetried  bool

	// media progress
	volume           float64
	currentTime      float64
	duration         float64
	bytesLoaded      int64
	totalBytes       int64
	bufferedSec      float64
	bufferedSegments int
	deliveryComplete bool

	// stall / recovery
	isWaiting        bool
	isStalled        bool
	stallCount       int
	recoveryAttempts int
	stallTimer       clock.Timer

	// retry
	retryAttempt int
	nextRetryAt  time.Time
	retryTimer   clock.Timer

	// lifetime counters (never reset mid-session)
	loadAttempts  int
	loadSuccesses int

	// error surface
	lastError   string
	errCategory ErrorCategory

	loadStartedAt      time.Time
	loadDuration       time.Duration
	mediaSessionActive bool

	hlsActive bool
	ladder    abr.Ladder
	abrCtrl   *abr.Controller
}

// New creates a machine.
func New(cfg Config, deps Deps) *Machine {
	if deps.Loader == nil {
		panic("player: Deps.Loader is required")
	}
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}
	if deps.Breaker == nil {
		deps.Breaker = resilience.NewCircuitBreaker(resilience.BreakerConfig{}, resilience.WithClock(deps.Clock))
	}
	if deps.Retry == nil {
		deps.Retry = resilience.NewRetryScheduler(resilience.RetryConfig{}, deps.Breaker)
	}
	if deps.Monitor == nil {
		deps.Monitor = quality.NewMonitor(deps.Clock)
	}
	if deps.FastStart == nil {
		deps.FastStart = faststart.NewTracker(deps.Clock)
	}
	if cfg.StallGrace <= 0 {
		cfg.StallGrace = 5 * time.Second
	}
	if cfg.TargetBuffer <= 0 {
		cfg.TargetBuffer = 30
	}

	m := &Machine{
		cfg:       cfg,
		clk:       deps.Clock,
		loader:    deps.Loader,
		breaker:   deps.Breaker,
		retry:     deps.Retry,
		monitor:   deps.Monitor,
		prefetch:  deps.Prefetch,
		faststart: deps.FastStart,
		logger:    log.WithComponent("player"),
		state:     StateIdle,
		volume:    1.0,
	}
	metrics.SetPlaybackState(string(m.state))
	return m
}

// Load starts delivery of a track, replacing any current session. The
// breaker is scoped to the origin and survives the track change; retry state
// does not.
func (m *Machine) Load(trackID, trackURL string) error {
	if trackID == "" || trackURL == "" {
		return fmt.Errorf("player: load needs track id and url")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadLocked(trackID, trackURL, "cold")
	return nil
}

// Play resumes a paused session. A no-op in every other state.
func (m *Machine) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StatePaused {
		m.transition(StatePlaying)
		m.armStallWatchdog()
	}
}

// Pause suspends playback. A no-op unless playing.
func (m *Machine) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StatePlaying {
		m.transition(StatePaused)
		m.stopStallWatchdog()
	}
}

// Seek moves the playhead. Clamped to [0, duration].
func (m *Machine) Seek(sec float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return
	}
	if sec < 0 {
		sec = 0
	}
	if m.duration > 0 && sec > m.duration {
		sec = m.duration
	}
	m.currentTime = sec
}

// SetVolume clamps v to [0, 1].
func (m *Machine) SetVolume(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	m.volume = v
}

// Skip advances to the prefetched track when one is ready; otherwise it
// tears the current session down.
func (m *Machine) Skip() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.prefetch != nil {
		if slot, ok := m.prefetch.ConsumeIfReady(); ok {
			m.loadLocked(slot.TrackID, slot.URL, "prefetch")
			return
		}
	}
	m.teardownSessionLocked()
	m.transition(StateIdle)
}

// PrefetchNext hints the next track so the transition can be gapless.
func (m *Machine) PrefetchNext(trackID, trackURL string) {
	if m.prefetch != nil {
		m.prefetch.Prefetch(trackID, trackURL)
	}
}

// SetOnline feeds the explicit connectivity signal through to the monitor
// and, when HLS is active, the ABR controller.
func (m *Machine) SetOnline(online bool) {
	m.monitor.SetOnline(online)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.abrCtrl != nil {
		m.abrCtrl.OnQualityChanged(m.monitor.Classify(), m.monitor.EstimateBandwidthKbps())
	}
}

// Close tears the engine down: session cancelled, timers stopped, prefetch
// released.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownSessionLocked()
	if m.prefetch != nil {
		m.prefetch.Cancel()
	}
	m.transition(StateIdle)
}

// loadLocked replaces the session and starts the first attempt.
func (m *Machine) loadLocked(trackID, trackURL, source string) {
	m.teardownSessionLocked()

	now := m.clk.Now()
	m.session = newSession(trackID, trackURL, now)
	m.hlsActive = m.session.Kind == media.KindHLS
	m.ladder = nil
	m.abrCtrl = nil
	m.firstAudioSeen = false
	m.decodeRetried = false
	m.deliveryComplete = false
	m.currentTime = 0
	m.duration = 0
	m.bytesLoaded = 0
	m.totalBytes = 0
	m.bufferedSec = 0
	m.bufferedSegments = 0
	m.retryAttempt = 0
	m.nextRetryAt = time.Time{}
	m.lastError = ""
	m.errCategory = ErrorNone
	m.loadStartedAt = now
	m.loadDuration = 0
	m.isStalled = false
	m.isWaiting = true
	m.mediaSessionActive = false

	if m.cfg.FastStartEnabled {
		m.faststart.MarkRequested(trackID, source)
	}
	m.logger.Info().
		Str("track_id", trackID).
		Str("kind", string(m.session.Kind)).
		Str("source", source).
		Msg("load requested")

	m.transition(StateLoading)
	m.attemptLocked()
}

// attemptLocked issues one load attempt if the breaker permits; otherwise it
// re-arms onto the breaker's cool-down boundary without consuming a retry.
func (m *Machine) attemptLocked() {
	if m.session == nil {
		return
	}
	if !m.breaker.CanAttempt() {
		m.logger.Warn().
			Str("track_id", m.session.TrackID).
			Msg("breaker open, failing fast")
		m.armRetryLocked()
		return
	}

	m.loadAttempts++
	s := m.session
	attemptCtx, cancel := context.WithCancel(s.ctx)
	m.attemptCancel = cancel

	spec := media.Spec{
		URL:  s.TrackURL,
		Kind: s.Kind,
	}
	if s.Kind == media.KindHLS {
		spec.Level = func() int {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.abrCtrl == nil {
				return 0
			}
			return m.abrCtrl.Snapshot().CurrentLevel
		}
	}
	go m.loader.Load(log.ContextWithSessionID(attemptCtx, s.ID), spec, m.eventsFor(s))
}

// eventsFor binds loader callbacks to the session so late events from an
// abandoned load are dropped.
func (m *Machine) eventsFor(s *Session) media.Events {
	// withSession runs fn under the machine lock only while s is still the
	// active session.
	withSession := func(fn func()) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.session != s {
			return
		}
		fn()
	}

	return media.Events{
		OnMetadata: func(durationSec float64, totalBytes int64) {
			withSession(func() {
				if durationSec > 0 {
					m.duration = durationSec
				}
				if totalBytes > 0 {
					m.totalBytes = totalBytes
				}
			})
		},
		OnVariants: func(variants []media.VariantInfo) {
			withSession(func() { m.installLadder(variants) })
		},
		OnSample: func(bytes int64, elapsed time.Duration) {
			m.monitor.RecordSample(bytes, elapsed)
			withSession(func() {
				if m.abrCtrl != nil {
					m.abrCtrl.OnQualityChanged(m.monitor.Classify(), m.monitor.EstimateBandwidthKbps())
				}
			})
		},
		OnProgress: func(loaded, total int64, bufferedSec float64) {
			withSession(func() {
				m.bytesLoaded = loaded
				if total > 0 {
					m.totalBytes = total
				}
				if bufferedSec > 0 {
					m.bufferedSec = bufferedSec
				}
				if m.abrCtrl != nil {
					m.abrCtrl.OnBufferUpdate(m.bufferedSec)
				}
				if m.state == StatePlaying {
					m.armStallWatchdog()
				}
			})
		},
		OnReady: func() {
			withSession(m.handleReadyLocked)
		},
		OnFragment: func(outcome media.FragmentOutcome) {
			withSession(func() {
				if m.abrCtrl == nil {
					return
				}
				switch outcome {
				case media.FragmentLoaded:
					m.bufferedSegments++
					m.abrCtrl.OnFragmentLoaded()
				case media.FragmentFailed:
					m.abrCtrl.OnFragmentFailed()
				case media.FragmentRetried:
					m.abrCtrl.OnFragmentRetried()
				}
			})
		},
		OnComplete: func(err error) {
			withSession(func() {
				if err == nil {
					m.handleEndedLocked()
					return
				}
				m.handleFailureLocked(err)
			})
		},
	}
}

func (m *Machine) installLadder(variants []media.VariantInfo) {
	levels := make([]abr.Level, 0, len(variants))
	for _, v := range variants {
		name := v.Name
		if name == "" {
			name = fmt.Sprintf("%dk", v.BandwidthKbps)
		}
		levels = append(levels, abr.Level{BitrateKbps: v.BandwidthKbps, TierName: name})
	}
	ladder, err := abr.NewLadder(levels)
	if err != nil {
		m.logger.Warn().Err(err).Msg("unusable variant ladder, staying single-rendition")
		return
	}
	m.ladder = ladder
	m.abrCtrl = abr.NewController(ladder, m.cfg.ABR, m.clk)
	m.abrCtrl.SetTargetBuffer(m.cfg.TargetBuffer)
	m.abrCtrl.OnQualityChanged(m.monitor.Classify(), m.monitor.EstimateBandwidthKbps())
}

// handleReadyLocked marks the first playable moment of an attempt.
func (m *Machine) handleReadyLocked() {
	switch m.state {
	case StateLoading, StateRecovering, StateStalled:
		// proceed
	default:
		return
	}

	if !m.firstAudioSeen {
		m.firstAudioSeen = true
		m.loadDuration = m.clk.Now().Sub(m.loadStartedAt)
		metrics.ObserveLoadDuration(m.loadDuration)
		if m.cfg.FastStartEnabled {
			m.faststart.MarkFirstAudio()
		}
		m.loadSuccesses++
	}

	m.breaker.ReportSuccess()
	m.retryAttempt = 0
	m.nextRetryAt = time.Time{}
	m.isStalled = false
	m.isWaiting = false
	m.mediaSessionActive = true
	m.lastError = ""
	m.errCategory = ErrorNone
	m.transition(StatePlaying)
	m.armStallWatchdog()
}

// handleEndedLocked finishes the session: gapless hand-off to the prefetched
// track when one is ready, otherwise back to idle.
func (m *Machine) handleEndedLocked() {
	m.deliveryComplete = true
	m.stopStallWatchdog()

	if m.prefetch != nil {
		// The consumed slot yields the next track's identity; the actual
		// bytes are re-fetched at full rate (see Cache.ConsumeIfReady).
		if slot, ok := m.prefetch.ConsumeIfReady(); ok {
			m.logger.Info().
				Str("from", m.session.TrackID).
				Str("to", slot.TrackID).
				Msg("gapless transition to prefetched track")
			m.loadLocked(slot.TrackID, slot.URL, "prefetch")
			return
		}
	}

	m.mediaSessionActive = false
	m.transition(StateIdle)
}

// handleFailureLocked routes a load failure through the taxonomy, the
// breaker and the retry scheduler.
func (m *Machine) handleFailureLocked(err error) {
	category := Classify(err)
	if category == ErrorAborted {
		// user-initiated; resets nothing
		return
	}

	m.logger.Warn().
		Err(err).
		Str("category", string(category)).
		Int("attempt", m.retryAttempt).
		Msg("load attempt failed")

	// Surface the category while the retry runs; a success clears it.
	m.errCategory = category

	if category.CountsTowardBreaker() {
		m.breaker.ReportFailure()
	}

	switch {
	case category == ErrorNotFound:
		m.terminalErrorLocked(err, category)
	case category == ErrorDecode && m.decodeRetried:
		// decode failures are retried once, then fatal for the track
		m.terminalErrorLocked(err, category)
	case !category.Retryable():
		m.terminalErrorLocked(err, category)
	default:
		if category == ErrorDecode {
			m.decodeRetried = true
		}
		m.retryAttempt++
		if m.retry.ShouldGiveUp(m.retryAttempt) {
			m.terminalErrorLocked(err, category)
			return
		}
		m.transition(StateLoading)
		m.armRetryLocked()
	}
}

// armRetryLocked schedules the next attempt. When the breaker is open the
// delay tracks its cool-down boundary instead of the backoff curve.
func (m *Machine) armRetryLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
	}
	delay := m.retry.ScheduleRetry(m.retryAttempt)
	m.nextRetryAt = m.clk.Now().Add(delay)
	metrics.IncRetry()

	s := m.session
	m.retryTimer = m.clk.AfterFunc(delay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.session != s {
			return
		}
		if m.state != StateLoading && m.state != StateRecovering {
			return
		}
		m.attemptLocked()
	})
	m.logger.Debug().
		Dur("delay", delay).
		Int("attempt", m.retryAttempt).
		Msg("retry armed")
}

// terminalErrorLocked surfaces the failure and halts automatic attempts
// until a new load command or a successful half-open probe.
func (m *Machine) terminalErrorLocked(err error, category ErrorCategory) {
	m.lastError = err.Error()
	m.errCategory = category
	m.stopStallWatchdog()
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	m.nextRetryAt = time.Time{}
	metrics.IncPlaybackError(string(category))
	m.transition(StateError)
	m.logger.Error().
		Str("category", string(category)).
		Str("error", m.lastError).
		Msg("playback failed terminally")
}

// armStallWatchdog (re)arms the buffer-underrun detector. Every progress
// event pushes the deadline out; silence for the grace period is a stall.
func (m *Machine) armStallWatchdog() {
	m.stopStallWatchdog()
	if m.deliveryComplete {
		return
	}
	s := m.session
	m.stallTimer = m.clk.AfterFunc(m.cfg.StallGrace, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.session != s || m.state != StatePlaying {
			return
		}
		m.handleStallLocked()
	})
}

func (m *Machine) stopStallWatchdog() {
	if m.stallTimer != nil {
		m.stallTimer.Stop()
		m.stallTimer = nil
	}
}

// handleStallLocked runs once the grace period has elapsed with no
// progress: the stall now counts as a breaker failure and a seek-resume
// recovery begins.
func (m *Machine) handleStallLocked() {
	m.isStalled = true
	m.isWaiting = true
	m.stallCount++
	metrics.IncStall()
	m.transition(StateStalled)

	m.recoveryAttempts++
	m.breaker.ReportFailure()
	m.logger.Warn().
		Int("stall_count", m.stallCount).
		Int("recovery_attempts", m.recoveryAttempts).
		Msg("stall past grace, attempting recovery")

	if m.attemptCancel != nil {
		m.attemptCancel()
	}
	m.transition(StateRecovering)
	m.attemptLocked()
}

// teardownSessionLocked cancels the session and all timers. The breaker is
// deliberately untouched: it is scoped to the origin, not the track.
func (m *Machine) teardownSessionLocked() {
	if m.session == nil {
		return
	}
	if m.cfg.FastStartEnabled && !m.firstAudioSeen {
		m.faststart.Discard()
	}
	m.stopStallWatchdog()
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	if m.attemptCancel != nil {
		m.attemptCancel()
		m.attemptCancel = nil
	}
	m.session.Cancel()
	m.session = nil
	m.mediaSessionActive = false
}

func (m *Machine) transition(next State) {
	if m.state == next {
		return
	}
	m.logger.Debug().
		Str("from", string(m.state)).
		Str("to", string(next)).
		Msg("state transition")
	m.state = next
	metrics.SetPlaybackState(string(next))
}

// State returns the current machine state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot assembles the full metrics projection. Every call builds a fresh
// immutable copy; concurrent engine activity never shows through one.
func (m *Machine) Snapshot() snapshot.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clk.Now()
	bs := m.breaker.Snapshot()

	snap := snapshot.Snapshot{
		PlaybackState:       string(m.state),
		IsOnline:            m.monitor.Online(),
		ConnectionQuality:   string(m.monitor.Classify()),
		StorageBackend:      m.cfg.StorageBackend,
		RetryAttempt:        m.retryAttempt,
		MaxRetries:          m.retry.MaxRetries(),
		ErrorCategory:       string(m.errCategory),
		CircuitBreakerState: string(bs.State),
		FailureCount:        bs.FailureCount,
		SuccessCount:        bs.SuccessCount,
		LoadDurationMs:      m.loadDuration.Milliseconds(),
		EstimatedBandwidth:  m.monitor.EstimateBandwidthKbps(),
		BytesLoaded:         m.bytesLoaded,
		TotalBytes:          m.totalBytes,
		CurrentTime:         m.currentTime,
		Duration:            m.duration,
		Volume:              m.volume,
		IsWaiting:           m.isWaiting,
		IsStalled:           m.isStalled,
		MediaSessionActive:  m.mediaSessionActive,
		StallCount:          m.stallCount,
		RecoveryAttempts:    m.recoveryAttempts,
		ReadyState:          m.readyStateLocked(),
	}

	if m.session != nil {
		snap.CurrentTrackID = m.session.TrackID
		snap.CurrentTrackURL = m.session.TrackURL
		snap.AudioElement = string(m.session.Kind)
	}
	if m.lastError != "" {
		errText := m.lastError
		snap.Error = &errText
	}
	if !m.nextRetryAt.IsZero() {
		if remaining := m.nextRetryAt.Sub(now); remaining > 0 {
			snap.NextRetryInMs = remaining.Milliseconds()
		}
	}
	if m.loadAttempts > 0 {
		snap.SessionSuccessRate = float64(m.loadSuccesses) / float64(m.loadAttempts)
	}
	switch {
	case m.totalBytes > 0:
		snap.BufferPercentage = float64(m.bytesLoaded) / float64(m.totalBytes) * 100
	case m.cfg.TargetBuffer > 0:
		snap.BufferPercentage = m.bufferedSec / m.cfg.TargetBuffer * 100
	}
	if snap.BufferPercentage > 100 {
		snap.BufferPercentage = 100
	}

	if m.prefetch != nil {
		if slot, ok := m.prefetch.Peek(); ok {
			snap.PrefetchedTrackID = slot.TrackID
			snap.PrefetchedTrackURL = slot.URL
			snap.PrefetchProgress = slot.ProgressPct
			snap.PrefetchReadyState = slot.ReadyState
		}
	}

	snap.HLS = m.hlsBlockLocked(now)
	return snap
}

// hlsBlockLocked builds the HLS subtree. Zero-valued while no HLS session
// with a resolved ladder is active.
func (m *Machine) hlsBlockLocked(now time.Time) snapshot.HLS {
	block := snapshot.HLS{
		Levels:       []abr.Level{},
		CurrentLevel: -1,
		TargetBuffer: m.cfg.TargetBuffer,
		ABR: snapshot.ABR{
			NextAutoLevel:      -1,
			LoadLevel:          -1,
			LevelSwitchHistory: []abr.SwitchRecord{},
		},
	}
	if !m.hlsActive || m.abrCtrl == nil {
		return block
	}

	cs := m.abrCtrl.Snapshot()
	block.IsHLSActive = true
	block.BandwidthEstimate = m.monitor.EstimateBandwidthKbps()
	block.Levels = cs.Levels
	block.CurrentLevel = cs.CurrentLevel
	block.BufferLength = m.bufferedSec
	block.BufferedSegments = m.bufferedSegments
	block.LatencyMs = m.loadDuration.Milliseconds()
	block.FragmentStats = cs.FragmentStats

	var sinceSwitch int64
	if !cs.LastSwitchAt.IsZero() {
		sinceSwitch = now.Sub(cs.LastSwitchAt).Milliseconds()
	}
	block.ABR = snapshot.ABR{
		CurrentQualityTier:     m.ladder.TierName(cs.CurrentLevel),
		RecommendedQualityTier: m.ladder.TierName(cs.RecommendedLevel),
		ABRState:               string(cs.State),
		TotalLevelSwitches:     cs.TotalSwitches,
		IsUpgrading:            cs.State == abr.StateUpgrading,
		IsDowngrading:          cs.State == abr.StateDowngraded || cs.State == abr.StateUnstable,
		TimeSinceSwitchMs:      sinceSwitch,
		AutoLevelEnabled:       cs.AutoLevelEnabled,
		NextAutoLevel:          cs.RecommendedLevel,
		LoadLevel:              cs.CurrentLevel,
		LevelSwitchHistory:     cs.SwitchHistory,
	}
	return block
}

// readyStateLocked maps the machine state onto the media-element readiness
// labels the diagnostics views expect.
func (m *Machine) readyStateLocked() string {
	switch m.state {
	case StatePlaying, StatePaused:
		return prefetch.ReadyEnough
	case StateStalled, StateRecovering:
		return prefetch.ReadyMetadata
	case StateLoading:
		if m.duration > 0 || m.totalBytes > 0 {
			return prefetch.ReadyMetadata
		}
		return prefetch.ReadyNothing
	default:
		return prefetch.ReadyNothing
	}
}

// DebugPayload builds the debug-bridge block.
func (m *Machine) DebugPayload() snapshot.DebugPayload {
	m.mu.Lock()
	defer m.mu.Unlock()

	enabled := m.cfg.FastStartEnabled
	payload := snapshot.DebugPayload{
		FastStart:        m.faststart.Sample(),
		FastStartEnabled: &enabled,
		FastStartCache:   m.faststart.History(),
	}
	if m.session != nil {
		payload.PlaybackSession = m.session.ID
	}
	return payload
}
