// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/aurastream/internal/media"
)

// Session is one track-load lifetime, owned exclusively by the state
// machine. Its context is the cancellation token: a track change cancels it,
// so a late-arriving failure from an abandoned load can never corrupt the
// breaker or retry state of the successor.
type Session struct {
	ID        string
	TrackID   string
	TrackURL  string
	Kind      media.Kind
	StartedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func newSession(trackID, trackURL string, startedAt time.Time) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:        uuid.NewString(),
		TrackID:   trackID,
		TrackURL:  trackURL,
		Kind:      media.KindForURL(trackURL),
		StartedAt: startedAt,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Context returns the session's cancellation context.
func (s *Session) Context() context.Context { return s.ctx }

// Cancel invalidates every pending callback tied to the session.
func (s *Session) Cancel() { s.cancel() }
