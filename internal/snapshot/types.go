// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package snapshot defines the read-only projection of the playback engine
// that diagnostics surfaces consume. Snapshots are assembled on demand and
// every read is a fresh copy: no consumer can corrupt engine state through
// one.
package snapshot

import (
	"github.com/ManuGH/aurastream/internal/abr"
	"github.com/ManuGH/aurastream/internal/faststart"
)

// ABR is the adaptive-bitrate subtree of the HLS block.
type ABR struct {
	CurrentQualityTier     string             `json:"currentQualityTier"`
	RecommendedQualityTier string             `json:"recommendedQualityTier"`
	ABRState               string             `json:"abrState"`
	TotalLevelSwitches     int                `json:"totalLevelSwitches"`
	IsUpgrading            bool               `json:"isUpgrading"`
	IsDowngrading          bool               `json:"isDowngrading"`
	TimeSinceSwitchMs      int64              `json:"timeSinceSwitch"`
	AutoLevelEnabled       bool               `json:"autoLevelEnabled"`
	NextAutoLevel          int                `json:"nextAutoLevel"`
	LoadLevel              int                `json:"loadLevel"`
	LevelSwitchHistory     []abr.SwitchRecord `json:"levelSwitchHistory"`
}

// HLS groups the fields that only exist while an HLS session is active.
type HLS struct {
	IsHLSActive bool `json:"isHLSActive"`
	// IsNativeHLS is always false here: this engine has no platform-native
	// HLS path, every stream goes through the MSE-style loader. The field
	// stays for consumers of the export schema.
	IsNativeHLS       bool              `json:"isNativeHLS"`
	BandwidthEstimate float64           `json:"bandwidthEstimate"`
	Levels            []abr.Level       `json:"levels"`
	CurrentLevel      int               `json:"currentLevel"`
	BufferLength      float64           `json:"bufferLength"`
	TargetBuffer      float64           `json:"targetBuffer"`
	BufferedSegments  int               `json:"bufferedSegments"`
	LatencyMs         int64             `json:"latency"`
	FragmentStats     abr.FragmentStats `json:"fragmentStats"`
	ABR               ABR               `json:"abr"`
}

// Snapshot is the full metrics projection. Field names mirror what the
// diagnostics views bind to.
type Snapshot struct {
	PlaybackState       string  `json:"playbackState"`
	CurrentTrackID      string  `json:"currentTrackId"`
	CurrentTrackURL     string  `json:"currentTrackUrl"`
	IsOnline            bool    `json:"isOnline"`
	ConnectionQuality   string  `json:"connectionQuality"`
	StorageBackend      string  `json:"storageBackend"`
	RetryAttempt        int     `json:"retryAttempt"`
	MaxRetries          int     `json:"maxRetries"`
	NextRetryInMs       int64   `json:"nextRetryIn"`
	Error               *string `json:"error"`
	ErrorCategory       string  `json:"errorCategory"`
	CircuitBreakerState string  `json:"circuitBreakerState"`
	FailureCount        int     `json:"failureCount"`
	SuccessCount        int     `json:"successCount"`
	LoadDurationMs      int64   `json:"loadDuration"`
	EstimatedBandwidth  float64 `json:"estimatedBandwidth"`
	SessionSuccessRate  float64 `json:"sessionSuccessRate"`
	BufferPercentage    float64 `json:"bufferPercentage"`
	BytesLoaded         int64   `json:"bytesLoaded"`
	TotalBytes          int64   `json:"totalBytes"`
	CurrentTime         float64 `json:"currentTime"`
	Duration            float64 `json:"duration"`
	Volume              float64 `json:"volume"`
	AudioElement        string  `json:"audioElement"`
	IsWaiting           bool    `json:"isWaiting"`
	IsStalled           bool    `json:"isStalled"`
	MediaSessionActive  bool    `json:"mediaSessionActive"`
	StallCount          int     `json:"stallCount"`
	RecoveryAttempts    int     `json:"recoveryAttempts"`
	ReadyState          string  `json:"readyState"`
	PrefetchedTrackID   string  `json:"prefetchedTrackId"`
	PrefetchedTrackURL  string  `json:"prefetchedTrackUrl"`
	PrefetchProgress    float64 `json:"prefetchProgress"`
	PrefetchReadyState  string  `json:"prefetchReadyState"`
	HLS                 HLS     `json:"hls"`
}

// DebugPayload is the debug-bridge block, consumed only by development and
// admin tooling.
type DebugPayload struct {
	FastStart        *faststart.Sample  `json:"fastStart"`
	FastStartEnabled *bool              `json:"fastStartEnabled"`
	FastStartCache   []faststart.Sample `json:"fastStartCache"`
	PlaybackSession  string             `json:"playbackSessionId"`
}

// ExportDocument is the diagnostic download: the snapshot merged with the
// debug-bridge payload under `_debug`. A reporting artifact, not a wire
// protocol.
type ExportDocument struct {
	Snapshot
	Debug DebugPayload `json:"_debug"`
}
