// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command daemon runs the aurastream playback engine with its HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/aurastream/internal/api"
	"github.com/ManuGH/aurastream/internal/clock"
	"github.com/ManuGH/aurastream/internal/config"
	"github.com/ManuGH/aurastream/internal/diagnostics"
	"github.com/ManuGH/aurastream/internal/faststart"
	"github.com/ManuGH/aurastream/internal/log"
	"github.com/ManuGH/aurastream/internal/media"
	"github.com/ManuGH/aurastream/internal/player"
	"github.com/ManuGH/aurastream/internal/prefetch"
	"github.com/ManuGH/aurastream/internal/quality"
	"github.com/ManuGH/aurastream/internal/resilience"
	"github.com/ManuGH/aurastream/internal/store"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

const fastStartPersistInterval = 30 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	log.Configure(log.Config{Service: "aurastream"})
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("config_path", *configPath).Msg("configuration load failed")
	}
	log.SetLevel(cfg.LogLevel)

	if err := run(ctx, cfg, *configPath); err != nil {
		logger.Fatal().Err(err).Msg("daemon exited with error")
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, configPath string) error {
	logger := log.WithComponent("daemon")
	logger.Info().
		Str("version", version).
		Str("listen", cfg.Listen).
		Str("storage", cfg.Storage.Backend).
		Msg("starting aurastream")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing store failed")
		}
	}()

	clk := clock.System()

	tracker := faststart.NewTracker(clk)
	if history, err := st.LoadFastStart(ctx); err == nil {
		tracker.Seed(history)
		logger.Info().Int("samples", len(history)).Msg("fast-start history restored")
	} else if !errors.Is(err, store.ErrNotFound) {
		logger.Warn().Err(err).Msg("fast-start history unavailable")
	}

	breaker := resilience.NewCircuitBreaker(resilience.BreakerConfig{
		Threshold: cfg.Player.BreakerThreshold,
		Window:    cfg.Player.BreakerWindow.Std(),
		Cooldown:  cfg.Player.BreakerCooldown.Std(),
	}, resilience.WithClock(clk))
	retry := resilience.NewRetryScheduler(resilience.RetryConfig{
		MaxRetries: cfg.Player.MaxRetries,
		Backoff:    cfg.Player.RetryBackoff.Std(),
		MaxBackoff: cfg.Player.MaxRetryBackoff.Std(),
		Jitter:     cfg.Player.RetryJitter,
	}, breaker)

	loader := media.NewHTTPLoader(nil)
	machine := player.New(player.Config{
		StallGrace:       cfg.Player.StallGrace.Std(),
		TargetBuffer:     cfg.Player.TargetBuffer,
		FastStartEnabled: cfg.Player.FastStart,
		StorageBackend:   st.Backend(),
		ABR:              player.DefaultConfig().ABR,
	}, player.Deps{
		Clock:     clk,
		Loader:    loader,
		Breaker:   breaker,
		Retry:     retry,
		Monitor:   quality.NewMonitor(clk),
		Prefetch:  prefetch.New(loader, cfg.Player.PrefetchRateKbps),
		FastStart: tracker,
	})
	defer machine.Close()

	bridge := diagnostics.NewBridge()
	bridge.Register(machine.DebugPayload)
	defer bridge.Unregister()

	holder := config.NewHolder(cfg, configPath)
	if err := holder.StartWatcher(ctx); err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer holder.Stop()

	apiServer := api.NewServer(machine, bridge, st, api.Config{
		RateLimit:  cfg.API.RateLimit,
		RateWindow: cfg.API.RateWindow.Std(),
		ExportPath: filepath.Join(cfg.DataDir, "aurastream-metrics.json"),
	})
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.Listen).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Periodically persist the fast-start history so restarts keep their
	// percentile baseline.
	g.Go(func() error {
		ticker := time.NewTicker(fastStartPersistInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := st.SaveFastStart(saveCtx, tracker.History()); err != nil {
					logger.Warn().Err(err).Msg("final fast-start persist failed")
				}
				return nil
			case <-ticker.C:
				if err := st.SaveFastStart(gctx, tracker.History()); err != nil {
					logger.Warn().Err(err).Msg("fast-start persist failed")
				}
			}
		}
	})

	return g.Wait()
}

func openStore(cfg config.Config) (store.Store, error) {
	path := cfg.Storage.Path
	if path == "" {
		path = filepath.Join(cfg.DataDir, "store")
	}
	return store.Open(store.Options{
		Backend: cfg.Storage.Backend,
		Path:    path,
		Redis: store.RedisConfig{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		},
	})
}
