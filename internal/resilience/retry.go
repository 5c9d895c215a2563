// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resilience

import (
	"math/rand"
	"sync"
	"time"
)

// RetryConfig holds backoff tuning for the retry scheduler.
type RetryConfig struct {
	MaxRetries int
	Backoff    time.Duration // initial delay
	MaxBackoff time.Duration // cap for the exponential curve
	Jitter     float64       // fraction of the delay randomised, 0..1
}

// RetryScheduler computes when the next load attempt may be issued. The delay
// is a pure function of the attempt number except when the breaker is open,
// in which case the scheduler re-arms onto the breaker's cool-down boundary
// instead of its own backoff curve, so only one timer authority exists.
type RetryScheduler struct {
	mu      sync.Mutex
	cfg     RetryConfig
	breaker *CircuitBreaker
	rng     *rand.Rand
}

// NewRetryScheduler creates a scheduler coupled to the given breaker.
func NewRetryScheduler(cfg RetryConfig, breaker *CircuitBreaker) *RetryScheduler {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &RetryScheduler{
		cfg:     cfg,
		breaker: breaker,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// MaxRetries returns the configured attempt ceiling.
func (rs *RetryScheduler) MaxRetries() int { return rs.cfg.MaxRetries }

// ShouldGiveUp reports whether the attempt budget is exhausted. The engine
// surfaces a terminal error instead of scheduling when this is true.
func (rs *RetryScheduler) ShouldGiveUp(attempt int) bool {
	return attempt >= rs.cfg.MaxRetries
}

// DelayFor returns the backoff delay for the given attempt number: an
// exponential curve with jitter, capped at MaxBackoff.
func (rs *RetryScheduler) DelayFor(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := rs.cfg.Backoff
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= rs.cfg.MaxBackoff {
			delay = rs.cfg.MaxBackoff
			break
		}
	}
	if delay > rs.cfg.MaxBackoff {
		delay = rs.cfg.MaxBackoff
	}
	if rs.cfg.Jitter > 0 {
		rs.mu.Lock()
		spread := rs.cfg.Jitter * float64(delay)
		delta := (rs.rng.Float64()*2 - 1) * spread
		rs.mu.Unlock()
		delay += time.Duration(delta)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

// ScheduleRetry returns the delay before the next attempt. When the breaker
// is open the delay is the cool-down remainder, not the backoff curve.
func (rs *RetryScheduler) ScheduleRetry(attempt int) time.Duration {
	if rs.breaker != nil {
		if remaining := rs.breaker.CooldownRemaining(); remaining > 0 {
			return remaining
		}
	}
	return rs.DelayFor(attempt)
}
