// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command orchestrator runs the Pipeline Orchestrator (spec.md §4.H): poll
// for queued or running PipelineRun rows and drive each through the fixed
// stage sequence, launching every stage as a child process and recording
// durable per-step state so a crash resumes without repeating finished work.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/civictrace/pipeline/internal/config"
	"github.com/civictrace/pipeline/internal/logging"
	"github.com/civictrace/pipeline/internal/metrics"
	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/orchestrator"
	"github.com/civictrace/pipeline/internal/storage"
)

// buildVersion is overridden at link time (-ldflags "-X main.buildVersion=...");
// it falls back to "dev" for local runs.
var buildVersion = "dev"

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})
	log := logging.Logger().With().Str("component", "orchestrator").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, log)

	gw, err := storage.New(storage.Config{Path: cfg.Database.URL, RPS: cfg.Database.RPS}, nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open storage gateway")
	}
	defer gw.Close()

	badgerDB, err := badger.Open(badger.DefaultOptions(filepath.Join(cfg.Orchestrator.RunStatePath, "orchestrator-mirror")))
	if err != nil {
		log.Fatal().Err(err).Msg("open run-state mirror")
	}
	defer badgerDB.Close()

	if cfg.Orchestrator.MetricsAddr != "" {
		startMetricsServer(cfg.Orchestrator.MetricsAddr, log)
	}

	store := orchestrator.NewRunStore(gw)
	mirror := orchestrator.NewRunMirror(badgerDB)
	commands := orchestrator.DefaultCommands(cfg.Orchestrator.BinDir, externalScraperPaths(cfg.Scrapers))

	orch := orchestrator.NewOrchestrator(store, mirror, commands, cfg.Orchestrator.PollSeconds)

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received, stopping after current stage")
		orch.RequestStop()
	}()

	log.Info().Str("bin_dir", cfg.Orchestrator.BinDir).Dur("poll_interval", cfg.Orchestrator.PollSeconds).Msg("orchestrator starting")
	if err := orch.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("orchestrator run loop exited with error")
	}
	log.Info().Msg("orchestrator stopped")
	os.Exit(0)
}

// startMetricsServer exposes the Prometheus registry on addr, in the same
// one-route-for-promhttp.Handler shape as the teacher's chi router's own
// "/metrics" registration, and keeps AppInfo/AppUptime current for as long
// as this process runs.
func startMetricsServer(addr string, log zerolog.Logger) {
	metrics.AppInfo.WithLabelValues(buildVersion, runtime.Version()).Set(1)
	start := time.Now()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			metrics.AppUptime.Set(time.Since(start).Seconds())
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Str("addr", addr).Msg("metrics server exited")
		}
	}()
}

// externalScraperPaths turns each configured scraper command line into an
// argv slice for orchestrator.DefaultCommands. A blank command leaves that
// stage unmapped, so runStage fails it with "no command configured" rather
// than silently skipping it.
func externalScraperPaths(cfg config.ScraperConfig) map[models.StageName][]string {
	paths := map[models.StageName][]string{}
	add := func(stage models.StageName, line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		paths[stage] = strings.Fields(line)
	}
	add(models.StageTwitterScrape, cfg.TwitterScrapeCmd)
	add(models.StageInstagramScrape, cfg.InstagramScrapeCmd)
	add(models.StageTwitterProfileScrape, cfg.TwitterProfileScrapeCmd)
	add(models.StageInstagramProfileScrape, cfg.InstagramProfileScrapeCmd)
	return paths
}
