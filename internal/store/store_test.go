// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/aurastream/internal/faststart"
	"github.com/ManuGH/aurastream/internal/snapshot"
)

func sampleHistory() []faststart.Sample {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []faststart.Sample{
		{TrackID: "t1", RequestedAt: base, FirstPlayingAt: base.Add(250 * time.Millisecond), FirstAudioMs: 250, Source: "cold"},
		{TrackID: "t2", RequestedAt: base.Add(time.Minute), FirstPlayingAt: base.Add(time.Minute + 40*time.Millisecond), FirstAudioMs: 40, Source: "prefetch"},
	}
}

func sampleExport() *snapshot.ExportDocument {
	doc := &snapshot.ExportDocument{}
	doc.PlaybackState = "playing"
	doc.CurrentTrackID = "t1"
	doc.CircuitBreakerState = "closed"
	doc.Volume = 0.8
	return doc
}

func testRoundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.LoadFastStart(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.LoadExport(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	history := sampleHistory()
	require.NoError(t, s.SaveFastStart(ctx, history))
	got, err := s.LoadFastStart(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(history, got); diff != "" {
		t.Errorf("fast-start history mismatch (-want +got):\n%s", diff)
	}

	doc := sampleExport()
	require.NoError(t, s.SaveExport(ctx, doc))
	gotDoc, err := s.LoadExport(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(doc, gotDoc); diff != "" {
		t.Errorf("export mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore()
	defer func() { _ = s.Close() }()
	assert.Equal(t, "memory", s.Backend())
	testRoundTrip(t, s)
}

func TestBadgerStore_RoundTrip(t *testing.T) {
	s, err := OpenBadgerStore(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.Equal(t, "badger", s.Backend())
	testRoundTrip(t, s)
}

func TestBadgerStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveFastStart(ctx, sampleHistory()))
	require.NoError(t, s.Close())

	s, err = OpenBadgerStore(dir)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.LoadFastStart(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].TrackID)
}

func TestOpen_BackendSelection(t *testing.T) {
	s, err := Open(Options{})
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Backend())
	_ = s.Close()

	s, err = Open(Options{Backend: "badger", Path: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "badger", s.Backend())
	_ = s.Close()

	_, err = Open(Options{Backend: "badger"})
	assert.Error(t, err, "badger without a path")

	_, err = Open(Options{Backend: "redis"})
	assert.Error(t, err, "redis without an address")

	_, err = Open(Options{Backend: "bolt"})
	assert.Error(t, err)
}
