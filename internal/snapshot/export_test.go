// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/aurastream/internal/abr"
	"github.com/ManuGH/aurastream/internal/faststart"
)

func exampleDocument() ExportDocument {
	enabled := true
	doc := ExportDocument{}
	doc.PlaybackState = "playing"
	doc.CurrentTrackID = "track-7"
	doc.CurrentTrackURL = "https://cdn.example/track-7.m3u8"
	doc.IsOnline = true
	doc.ConnectionQuality = "good"
	doc.StorageBackend = "badger"
	doc.MaxRetries = 5
	doc.CircuitBreakerState = "closed"
	doc.EstimatedBandwidth = 3200.5
	doc.Volume = 0.8
	doc.AudioElement = "mse"
	doc.ReadyState = "HAVE_ENOUGH_DATA"
	doc.HLS = HLS{
		IsHLSActive:       true,
		BandwidthEstimate: 3200.5,
		Levels: []abr.Level{
			{Index: 0, BitrateKbps: 96, TierName: "low"},
			{Index: 1, BitrateKbps: 320, TierName: "high"},
		},
		CurrentLevel: 1,
		TargetBuffer: 30,
		ABR: ABR{
			CurrentQualityTier: "high",
			ABRState:           "optimal",
			AutoLevelEnabled:   true,
			NextAutoLevel:      1,
			LoadLevel:          1,
			LevelSwitchHistory: []abr.SwitchRecord{},
		},
	}
	doc.Debug = DebugPayload{
		FastStartEnabled: &enabled,
		FastStartCache: []faststart.Sample{
			{
				TrackID:        "track-7",
				RequestedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
				FirstPlayingAt: time.Date(2025, 6, 1, 12, 0, 0, 180000000, time.UTC),
				FirstAudioMs:   180,
				Source:         "cold",
			},
		},
		PlaybackSession: "2f1f0a52-7c71-49db-9f0e-64c45af58cee",
	}
	return doc
}

func TestMarshal_RoundTripPreservesStructure(t *testing.T) {
	doc := exampleDocument()

	data, err := Marshal(doc)
	require.NoError(t, err)

	var decoded ExportDocument
	require.NoError(t, json.Unmarshal(data, &decoded))
	if diff := cmp.Diff(doc, decoded); diff != "" {
		t.Errorf("export round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshal_FieldNames(t *testing.T) {
	data, err := Marshal(exampleDocument())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	// The debug-bridge payload lives under "_debug", beside the snapshot
	// fields, not nested inside them.
	assert.Contains(t, raw, "_debug")
	assert.Contains(t, raw, "playbackState")
	assert.Contains(t, raw, "circuitBreakerState")
	assert.Contains(t, raw, "hls")

	hls, ok := raw["hls"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, hls, "abr")
	assert.Contains(t, hls, "bandwidthEstimate")

	debug, ok := raw["_debug"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, debug, "fastStartCache")
	assert.Contains(t, debug, "playbackSessionId")
}

func TestWriteFile_Atomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")
	doc := exampleDocument()

	require.NoError(t, WriteFile(path, doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded ExportDocument
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "track-7", decoded.CurrentTrackID)
	assert.Equal(t, "2f1f0a52-7c71-49db-9f0e-64c45af58cee", decoded.Debug.PlaybackSession)
}

func TestSnapshot_NullErrorWhenHealthy(t *testing.T) {
	data, err := json.Marshal(Snapshot{PlaybackState: "idle"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	v, present := raw["error"]
	assert.True(t, present)
	assert.Nil(t, v, "healthy snapshots carry an explicit null error")
}
