// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/ManuGH/aurastream/internal/media"
)

// ErrorCategory classifies a playback failure. Only network- and
// decode-class failures are evidence of origin degradation; the others never
// touch the circuit breaker.
type ErrorCategory string

const (
	ErrorNone     ErrorCategory = ""
	ErrorNetwork  ErrorCategory = "network"
	ErrorDecode   ErrorCategory = "decode"
	ErrorNotFound ErrorCategory = "not-found"
	ErrorAborted  ErrorCategory = "aborted"
	ErrorStall    ErrorCategory = "stall"
	ErrorUnknown  ErrorCategory = "unknown"
)

// Classify maps a load failure onto the error taxonomy.
func Classify(err error) ErrorCategory {
	switch {
	case err == nil:
		return ErrorNone
	case errors.Is(err, context.Canceled):
		return ErrorAborted
	case errors.Is(err, media.ErrNotFound):
		return ErrorNotFound
	case errors.Is(err, media.ErrDecode):
		return ErrorDecode
	case errors.Is(err, media.ErrUpstream):
		return ErrorNetwork
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorNetwork
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ErrorNetwork
	}
	return ErrorUnknown
}

// CountsTowardBreaker reports whether the category is evidence of origin
// degradation. Only network, decode and stall qualify; an unknown failure is
// retried but never opens the breaker. Stall counts only after the grace
// threshold; the caller enforces that timing.
func (c ErrorCategory) CountsTowardBreaker() bool {
	switch c {
	case ErrorNetwork, ErrorDecode, ErrorStall:
		return true
	default:
		return false
	}
}

// Retryable reports whether the engine may retry this category at all.
// Decode failures are retryable exactly once; the machine tracks that budget.
func (c ErrorCategory) Retryable() bool {
	switch c {
	case ErrorNetwork, ErrorStall, ErrorDecode, ErrorUnknown:
		return true
	default:
		return false
	}
}
