// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"sync"

	"github.com/ManuGH/aurastream/internal/faststart"
	"github.com/ManuGH/aurastream/internal/snapshot"
)

// MemoryStore keeps everything in process memory. The default backend; state
// does not survive a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	fastStart []faststart.Sample
	export    *snapshot.ExportDocument
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Backend() string { return "memory" }

func (s *MemoryStore) SaveFastStart(_ context.Context, samples []faststart.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fastStart = append(s.fastStart[:0], samples...)
	return nil
}

func (s *MemoryStore) LoadFastStart(_ context.Context) ([]faststart.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fastStart == nil {
		return nil, ErrNotFound
	}
	out := make([]faststart.Sample, len(s.fastStart))
	copy(out, s.fastStart)
	return out, nil
}

func (s *MemoryStore) SaveExport(_ context.Context, doc *snapshot.ExportDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.export = &cp
	return nil
}

func (s *MemoryStore) LoadExport(_ context.Context) (*snapshot.ExportDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.export == nil {
		return nil, ErrNotFound
	}
	cp := *s.export
	return &cp, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
