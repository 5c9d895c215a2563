// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package diagnostics exposes the engine's debug bridge: a registry object
// handed by reference to whichever component needs read access. Lifecycle is
// tied to engine construction and teardown; there is no ambient global.
package diagnostics

import (
	"sync"

	"github.com/ManuGH/aurastream/internal/snapshot"
)

// Provider supplies the debug payload on demand. The engine registers one at
// construction; core logic never reads through the bridge.
type Provider func() snapshot.DebugPayload

// Bridge is the process diagnostics handle.
type Bridge struct {
	mu       sync.RWMutex
	provider Provider
}

// NewBridge creates an empty bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Register installs the payload provider, replacing any previous one.
func (b *Bridge) Register(p Provider) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.provider = p
}

// Unregister clears the provider on engine teardown.
func (b *Bridge) Unregister() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.provider = nil
}

// GetMetrics returns the current debug payload, or the zero payload when no
// engine is registered.
func (b *Bridge) GetMetrics() snapshot.DebugPayload {
	b.mu.RLock()
	p := b.provider
	b.mu.RUnlock()
	if p == nil {
		return snapshot.DebugPayload{}
	}
	return p()
}
