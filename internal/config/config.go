// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads engine configuration: defaults, then the YAML file,
// then AURASTREAM_* environment overrides, validated as a whole before any
// value is applied.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard-library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// RedisConfig holds the redis backend connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend string      `yaml:"backend"` // memory | badger | redis
	Path    string      `yaml:"path"`    // badger data directory
	Redis   RedisConfig `yaml:"redis"`
}

// PlayerConfig tunes the playback engine.
type PlayerConfig struct {
	BreakerThreshold int      `yaml:"breakerThreshold"`
	BreakerWindow    Duration `yaml:"breakerWindow"`
	BreakerCooldown  Duration `yaml:"breakerCooldown"`
	MaxRetries       int      `yaml:"maxRetries"`
	RetryBackoff     Duration `yaml:"retryBackoff"`
	MaxRetryBackoff  Duration `yaml:"maxRetryBackoff"`
	RetryJitter      float64  `yaml:"retryJitter"`
	StallGrace       Duration `yaml:"stallGrace"`
	TargetBuffer     float64  `yaml:"targetBuffer"` // seconds
	PrefetchRateKbps int      `yaml:"prefetchRateKbps"`
	FastStart        bool     `yaml:"fastStart"`
}

// APIConfig tunes the HTTP surface.
type APIConfig struct {
	RateLimit  int      `yaml:"rateLimit"` // command requests per window per client
	RateWindow Duration `yaml:"rateWindow"`
}

// Config is the full engine configuration.
type Config struct {
	LogLevel string        `yaml:"logLevel"`
	Listen   string        `yaml:"listen"`
	DataDir  string        `yaml:"dataDir"`
	Storage  StorageConfig `yaml:"storage"`
	Player   PlayerConfig  `yaml:"player"`
	API      APIConfig     `yaml:"api"`
}

// Default returns the configuration the engine runs with when nothing is
// overridden.
func Default() Config {
	return Config{
		LogLevel: "info",
		Listen:   ":8090",
		DataDir:  "./data",
		Storage: StorageConfig{
			Backend: "memory",
		},
		Player: PlayerConfig{
			BreakerThreshold: 3,
			BreakerWindow:    Duration(60 * time.Second),
			BreakerCooldown:  Duration(30 * time.Second),
			MaxRetries:       5,
			RetryBackoff:     Duration(500 * time.Millisecond),
			MaxRetryBackoff:  Duration(30 * time.Second),
			RetryJitter:      0.2,
			StallGrace:       Duration(5 * time.Second),
			TargetBuffer:     30,
			PrefetchRateKbps: 2000,
			FastStart:        true,
		},
		API: APIConfig{
			RateLimit:  30,
			RateWindow: Duration(time.Minute),
		},
	}
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true,
	"warn": true, "error": true,
}

var validBackends = map[string]bool{
	"memory": true, "badger": true, "redis": true,
}

// Validate checks the configuration as a whole. An invalid config is never
// partially applied.
func Validate(cfg Config) error {
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	if cfg.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if !validBackends[cfg.Storage.Backend] {
		return fmt.Errorf("invalid storage backend %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == "badger" && cfg.Storage.Path == "" && cfg.DataDir == "" {
		return fmt.Errorf("badger backend needs storage.path or dataDir")
	}
	if cfg.Storage.Backend == "redis" && cfg.Storage.Redis.Addr == "" {
		return fmt.Errorf("redis backend needs storage.redis.addr")
	}

	p := cfg.Player
	if p.BreakerThreshold < 1 {
		return fmt.Errorf("player.breakerThreshold must be >= 1")
	}
	if p.BreakerWindow <= 0 || p.BreakerCooldown <= 0 {
		return fmt.Errorf("player breaker window and cooldown must be positive")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("player.maxRetries must not be negative")
	}
	if p.RetryBackoff <= 0 || p.MaxRetryBackoff < p.RetryBackoff {
		return fmt.Errorf("player retry backoff must be positive and capped above the initial delay")
	}
	if p.RetryJitter < 0 || p.RetryJitter > 1 {
		return fmt.Errorf("player.retryJitter must be within [0, 1]")
	}
	if p.StallGrace <= 0 {
		return fmt.Errorf("player.stallGrace must be positive")
	}
	if p.TargetBuffer <= 0 {
		return fmt.Errorf("player.targetBuffer must be positive")
	}
	if p.PrefetchRateKbps < 0 {
		return fmt.Errorf("player.prefetchRateKbps must not be negative")
	}

	if cfg.API.RateLimit < 1 {
		return fmt.Errorf("api.rateLimit must be >= 1")
	}
	if cfg.API.RateWindow <= 0 {
		return fmt.Errorf("api.rateWindow must be positive")
	}
	return nil
}
