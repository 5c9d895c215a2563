// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aurastream.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8090", cfg.Listen)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 3, cfg.Player.BreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.Player.BreakerCooldown.Std())
	assert.Equal(t, 5, cfg.Player.MaxRetries)
	assert.True(t, cfg.Player.FastStart)
	assert.Equal(t, 30, cfg.API.RateLimit)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
logLevel: debug
listen: ":9000"
storage:
  backend: badger
  path: /tmp/aurastream-test
player:
  breakerThreshold: 5
  breakerCooldown: 45s
  stallGrace: 8s
  targetBuffer: 20
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, 5, cfg.Player.BreakerThreshold)
	assert.Equal(t, 45*time.Second, cfg.Player.BreakerCooldown.Std())
	assert.Equal(t, 8*time.Second, cfg.Player.StallGrace.Std())
	assert.Equal(t, float64(20), cfg.Player.TargetBuffer)

	// Untouched fields keep their defaults.
	assert.Equal(t, 5, cfg.Player.MaxRetries)
	assert.True(t, cfg.Player.FastStart)
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	path := writeConfig(t, "logLevel: debug\n")
	t.Setenv("AURASTREAM_LOG_LEVEL", "warn")
	t.Setenv("AURASTREAM_MAX_RETRIES", "9")
	t.Setenv("AURASTREAM_STALL_GRACE", "12s")
	t.Setenv("AURASTREAM_FAST_START", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 9, cfg.Player.MaxRetries)
	assert.Equal(t, 12*time.Second, cfg.Player.StallGrace.Std())
	assert.False(t, cfg.Player.FastStart)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "bouquet: premium\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "player:\n  stallGrace: soon\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"empty listen", func(c *Config) { c.Listen = "" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "bolt" }},
		{"redis without addr", func(c *Config) { c.Storage.Backend = "redis" }},
		{"zero threshold", func(c *Config) { c.Player.BreakerThreshold = 0 }},
		{"negative retries", func(c *Config) { c.Player.MaxRetries = -1 }},
		{"jitter above one", func(c *Config) { c.Player.RetryJitter = 1.5 }},
		{"cap below initial backoff", func(c *Config) {
			c.Player.RetryBackoff = Duration(10 * time.Second)
			c.Player.MaxRetryBackoff = Duration(time.Second)
		}},
		{"zero stall grace", func(c *Config) { c.Player.StallGrace = 0 }},
		{"zero target buffer", func(c *Config) { c.Player.TargetBuffer = 0 }},
		{"zero rate limit", func(c *Config) { c.API.RateLimit = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, Validate(cfg))
		})
	}
	assert.NoError(t, Validate(Default()))
}

func TestHolder_ReloadKeepsOldConfigOnError(t *testing.T) {
	path := writeConfig(t, "logLevel: debug\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	h := NewHolder(cfg, path)
	require.NoError(t, os.WriteFile(path, []byte("logLevel: nonsense\n"), 0o644))

	assert.Error(t, h.Reload(t.Context()))
	assert.Equal(t, "debug", h.Get().LogLevel, "invalid reload leaves the old config in place")

	require.NoError(t, os.WriteFile(path, []byte("logLevel: error\n"), 0o644))
	require.NoError(t, h.Reload(t.Context()))
	assert.Equal(t, "error", h.Get().LogLevel)
}
