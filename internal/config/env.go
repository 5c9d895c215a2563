// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// applyEnv overlays AURASTREAM_* environment variables onto cfg. Environment
// wins over the file; unset variables leave the value alone.
func applyEnv(cfg *Config) error {
	setString("AURASTREAM_LOG_LEVEL", &cfg.LogLevel)
	setString("AURASTREAM_LISTEN", &cfg.Listen)
	setString("AURASTREAM_DATA_DIR", &cfg.DataDir)
	setString("AURASTREAM_STORAGE_BACKEND", &cfg.Storage.Backend)
	setString("AURASTREAM_STORAGE_PATH", &cfg.Storage.Path)
	setString("AURASTREAM_REDIS_ADDR", &cfg.Storage.Redis.Addr)
	setString("AURASTREAM_REDIS_PASSWORD", &cfg.Storage.Redis.Password)

	if err := setInt("AURASTREAM_REDIS_DB", &cfg.Storage.Redis.DB); err != nil {
		return err
	}
	if err := setInt("AURASTREAM_BREAKER_THRESHOLD", &cfg.Player.BreakerThreshold); err != nil {
		return err
	}
	if err := setDuration("AURASTREAM_BREAKER_WINDOW", &cfg.Player.BreakerWindow); err != nil {
		return err
	}
	if err := setDuration("AURASTREAM_BREAKER_COOLDOWN", &cfg.Player.BreakerCooldown); err != nil {
		return err
	}
	if err := setInt("AURASTREAM_MAX_RETRIES", &cfg.Player.MaxRetries); err != nil {
		return err
	}
	if err := setDuration("AURASTREAM_RETRY_BACKOFF", &cfg.Player.RetryBackoff); err != nil {
		return err
	}
	if err := setDuration("AURASTREAM_MAX_RETRY_BACKOFF", &cfg.Player.MaxRetryBackoff); err != nil {
		return err
	}
	if err := setDuration("AURASTREAM_STALL_GRACE", &cfg.Player.StallGrace); err != nil {
		return err
	}
	if err := setFloat("AURASTREAM_TARGET_BUFFER", &cfg.Player.TargetBuffer); err != nil {
		return err
	}
	if err := setInt("AURASTREAM_PREFETCH_RATE_KBPS", &cfg.Player.PrefetchRateKbps); err != nil {
		return err
	}
	if err := setBool("AURASTREAM_FAST_START", &cfg.Player.FastStart); err != nil {
		return err
	}
	if err := setInt("AURASTREAM_API_RATE_LIMIT", &cfg.API.RateLimit); err != nil {
		return err
	}
	return setDuration("AURASTREAM_API_RATE_WINDOW", &cfg.API.RateWindow)
}

func setString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(key string, dst *float64) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func setBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(key string, dst *Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = Duration(d)
	return nil
}
