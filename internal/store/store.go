// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store persists the engine's diagnostic artifacts: the fast-start
// history restored on startup and the most recent metrics export. Three
// backends exist (memory, badger, redis); the factory picks one from config.
package store

import (
	"context"
	"errors"

	"github.com/ManuGH/aurastream/internal/faststart"
	"github.com/ManuGH/aurastream/internal/snapshot"
)

// ErrNotFound marks a missing record; callers treat it as "nothing persisted
// yet", not a failure.
var ErrNotFound = errors.New("store: not found")

// Store persists diagnostic state across engine restarts.
type Store interface {
	// Backend returns the backend name the store was built with.
	Backend() string

	SaveFastStart(ctx context.Context, samples []faststart.Sample) error
	LoadFastStart(ctx context.Context) ([]faststart.Sample, error)

	SaveExport(ctx context.Context, doc *snapshot.ExportDocument) error
	LoadExport(ctx context.Context) (*snapshot.ExportDocument, error)

	Close() error
}
