// SPDX-License-Identifier: MIT

// Command daemon runs the eqlens market intelligence service: it refreshes
// company snapshots from the upstream provider on an interval and serves
// the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eqlens/eqlens/internal/analysis"
	"github.com/eqlens/eqlens/internal/api"
	"github.com/eqlens/eqlens/internal/cache"
	"github.com/eqlens/eqlens/internal/config"
	"github.com/eqlens/eqlens/internal/health"
	"github.com/eqlens/eqlens/internal/jobs"
	eqlog "github.com/eqlens/eqlens/internal/log"
	"github.com/eqlens/eqlens/internal/marketdata"
	"github.com/eqlens/eqlens/internal/markets"
	"github.com/eqlens/eqlens/internal/store"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// safe defaults until config is loaded
	eqlog.Configure(eqlog.Config{
		Level:   "info",
		Service: "eqlens",
		Version: version,
	})
	logger := eqlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath, version)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
	}

	eqlog.Reconfigure(eqlog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.datadir_failed").
			Str("data_dir", cfg.DataDir).
			Msg("cannot create data directory")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Msg("starting eqlens")

	logger.Info().Msgf("→ Upstream: %s", cfg.Upstream.BaseURL)
	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)
	logger.Info().Msgf("→ Refresh interval: %s", cfg.Refresh.Interval)
	logger.Info().Msgf("→ House ticker: %s", cfg.HouseTicker)
	if cfg.APIToken != "" {
		logger.Info().Msg("→ API token: configured")
	} else {
		logger.Warn().Msg("→ API token: NOT configured. Set EQLENS_API_TOKEN to protect mutating routes.")
	}

	// market catalog, optionally from file with hot reload
	catalog := markets.Default()
	if cfg.Catalog.Path != "" {
		catalog, err = markets.LoadFile(cfg.Catalog.Path)
		if err != nil {
			logger.Fatal().
				Err(err).
				Str("event", "catalog.load_failed").
				Str("path", cfg.Catalog.Path).
				Msg("failed to load market catalog")
		}
		if cfg.Catalog.Watch {
			go func() {
				if err := markets.Watch(ctx, catalog, cfg.Catalog.Path); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error().Err(err).Str("event", "catalog.watch_failed").Msg("catalog watcher stopped")
				}
			}()
		}
	}
	logger.Info().Msgf("→ Catalog: %d segments, %d tickers", len(catalog.Segments()), len(catalog.Tickers()))

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "store.open_failed").
			Str("path", cfg.DBPath()).
			Msg("failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error().Err(err).Str("event", "store.close_failed").Msg("failed to close store")
		}
	}()

	hm := health.NewManager(version)
	hm.RegisterChecker(health.NewPingChecker("store", st.Ping))

	var c cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		rc, err := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		}, eqlog.WithComponent("cache"))
		if err != nil {
			logger.Fatal().Err(err).Str("event", "cache.redis_failed").Msg("failed to connect to redis")
		}
		defer func() { _ = rc.Close() }()
		hm.RegisterChecker(health.NewPingChecker("redis", rc.Ping))
		c = rc
	case "none":
		c = cache.NewNoOp()
	default:
		mem := cache.NewMemory(5 * time.Minute)
		defer mem.Stop()
		c = mem
	}

	provider := marketdata.New(cfg.Upstream.BaseURL, marketdata.Options{
		APIKey:     cfg.Upstream.APIKey,
		Timeout:    cfg.Upstream.Timeout,
		RatePerSec: cfg.Upstream.RatePerSec,
	})

	refresher := jobs.NewRefresher(provider, catalog, st, c, jobs.Config{
		Concurrency: cfg.Refresh.Concurrency,
		SnapshotTTL: cfg.Cache.SnapshotTTL,
		ExportPath:  cfg.ExportPath(),
	})
	hm.RegisterChecker(health.NewRefreshChecker(cfg.Refresh.Interval, refresher.LastRefresh))

	var svc *analysis.Service
	if cfg.LLM.APIKey != "" {
		llm, err := analysis.NewGemini(ctx, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout, eqlog.WithComponent("llm"))
		if err != nil {
			logger.Fatal().Err(err).Str("event", "llm.init_failed").Msg("failed to initialize LLM client")
		}
		svc = analysis.NewService(llm, st, c, cfg.HouseTicker, cfg.Cache.AnalysisTTL, eqlog.WithComponent("analysis"))
		logger.Info().Msgf("→ LLM: %s", cfg.LLM.Model)
	} else {
		logger.Warn().Msg("→ LLM: not configured, analysis routes disabled")
	}

	go refresher.RunPeriodic(ctx, cfg.Refresh.Interval)

	server := api.NewServer(api.Options{
		Catalog:        catalog,
		Store:          st,
		Cache:          c,
		Refresher:      refresher,
		Analysis:       svc,
		Health:         hm,
		Version:        version,
		APIToken:       cfg.APIToken,
		TrustedProxies: cfg.TrustedProxies,
		RateLimitRPM:   cfg.RateLimitRPM,
		HouseTicker:    cfg.HouseTicker,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("event", "http.listen").Str("addr", cfg.ListenAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Str("event", "shutdown.signal").Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Str("event", "http.serve_failed").Msg("http server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Str("event", "shutdown.failed").Msg("graceful shutdown failed")
	}

	logger.Info().Str("event", "shutdown.complete").Msg("eqlens stopped")
}
