// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resilience isolates the engine from a degrading origin: a circuit
// breaker gates load attempts and a retry scheduler spaces them out.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/aurastream/internal/clock"
	"github.com/ManuGH/aurastream/internal/metrics"
)

// State represents the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Snapshot is a point-in-time copy of the breaker's observable state.
type Snapshot struct {
	State        State     `json:"state"`
	FailureCount int       `json:"failureCount"`
	SuccessCount int       `json:"successCount"`
	OpenedAt     time.Time `json:"openedAt,omitzero"`
	ProbeBudget  int       `json:"probeBudget"`
}

// BreakerConfig holds circuit breaker tuning.
type BreakerConfig struct {
	Name      string
	Threshold int           // failures within Window that trip the breaker
	Window    time.Duration // sliding window for counting failures
	Cooldown  time.Duration // open duration before a half-open probe
}

// CircuitBreaker implements the closed/open/half-open failure-isolation state
// machine. The open→half-open transition is time-triggered and observed
// lazily by CanAttempt; callers never poll for it. The breaker is scoped to
// the origin, not to an individual track: track changes must not reset it.
type CircuitBreaker struct {
	mu           sync.Mutex
	cfg          BreakerConfig
	state        State
	failures     []time.Time // failure timestamps within the sliding window
	successCount int
	openedAt     time.Time
	probeBudget  int
	clk          clock.Clock
}

// Option configuration pattern
type Option func(*CircuitBreaker)

func WithClock(c clock.Clock) Option {
	return func(cb *CircuitBreaker) { cb.clk = c }
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(cfg BreakerConfig, opts ...Option) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 3
	}
	if cfg.Window <= 0 {
		cfg.Window = 60 * time.Second
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "playback"
	}

	cb := &CircuitBreaker{
		cfg:   cfg,
		state: StateClosed,
		clk:   clock.System(),
	}
	for _, opt := range opts {
		opt(cb)
	}

	metrics.SetCircuitBreakerState(cb.cfg.Name, string(cb.state))
	return cb
}

// CanAttempt reports whether a load attempt is currently permitted. While
// half-open it consumes the single probe: exactly one caller gets true per
// half-open episode.
func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.clk.Now().Sub(cb.openedAt) >= cb.cfg.Cooldown {
			cb.transitionTo(StateHalfOpen)
			cb.probeBudget--
			return true
		}
		return false
	default: // StateHalfOpen
		if cb.probeBudget > 0 {
			cb.probeBudget--
			return true
		}
		return false
	}
}

// ReportSuccess records a successful load. Closes the breaker from half-open;
// while open it has no effect (the breaker only reacts while half-open).
func (cb *CircuitBreaker) ReportSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		return
	}
	cb.successCount++
	cb.failures = cb.failures[:0]
	if cb.state == StateHalfOpen {
		cb.transitionTo(StateClosed)
	}
}

// ReportFailure records a failed load. A failure during the half-open probe
// re-opens with a fresh cool-down; in closed state the breaker trips once the
// windowed failure count reaches the threshold.
func (cb *CircuitBreaker) ReportFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.clk.Now()

	if cb.state == StateHalfOpen {
		metrics.RecordCircuitBreakerTrip(cb.cfg.Name, "half_open_failure")
		cb.transitionTo(StateOpen)
		return
	}

	cb.failures = append(cb.failures, now)
	cb.prune(now)

	if cb.state == StateClosed && len(cb.failures) >= cb.cfg.Threshold {
		metrics.RecordCircuitBreakerTrip(cb.cfg.Name, "threshold_exceeded")
		cb.transitionTo(StateOpen)
	}
}

// CooldownRemaining returns how long until the next half-open probe becomes
// available, or zero when the breaker is not open. The retry scheduler re-arms
// onto this boundary so the two timers cannot race.
func (cb *CircuitBreaker) CooldownRemaining() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return 0
	}
	remaining := cb.cfg.Cooldown - cb.clk.Now().Sub(cb.openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Snapshot returns a copy of the observable breaker state.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.prune(cb.clk.Now())
	return Snapshot{
		State:        cb.state,
		FailureCount: len(cb.failures),
		SuccessCount: cb.successCount,
		OpenedAt:     cb.openedAt,
		ProbeBudget:  cb.probeBudget,
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// prune drops failures that fell out of the sliding window. Caller must hold lock.
func (cb *CircuitBreaker) prune(now time.Time) {
	cutoff := now.Add(-cb.cfg.Window)
	idx := 0
	for idx < len(cb.failures) && cb.failures[idx].Before(cutoff) {
		idx++
	}
	cb.failures = cb.failures[idx:]
}

// transitionTo handles state transitions and updates metrics. Caller must hold lock.
func (cb *CircuitBreaker) transitionTo(newState State) {
	if cb.state == newState {
		return
	}
	cb.state = newState
	switch newState {
	case StateOpen:
		cb.openedAt = cb.clk.Now()
		cb.probeBudget = 0
	case StateHalfOpen:
		cb.probeBudget = 1
	case StateClosed:
		cb.failures = cb.failures[:0]
		cb.probeBudget = 0
	}
	metrics.SetCircuitBreakerState(cb.cfg.Name, string(newState))
}
