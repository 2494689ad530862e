// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command backfill runs one pass of the coordinate backfill (spec.md §4.H
// final stage): clear virtual-city placeholders, then resolve and write
// (latitude, longitude) for every event missing them. It is the
// coordinate_backfill stage the Pipeline Orchestrator launches as a child
// process.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/civictrace/pipeline/internal/config"
	"github.com/civictrace/pipeline/internal/geocode"
	"github.com/civictrace/pipeline/internal/logging"
	"github.com/civictrace/pipeline/internal/storage"
)

func main() {
	runID := flag.String("run-id", "", "pipeline run ID this invocation belongs to")
	flag.Parse()

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})
	log := logging.Logger().With().Str("stage", "coordinate_backfill").Str("run_id", *runID).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, log)

	gw, err := storage.New(storage.Config{Path: cfg.Database.URL, RPS: cfg.Database.RPS}, nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open storage gateway")
	}
	defer gw.Close()

	provider := geocode.NewHTTPProvider(cfg.Geocode.ProviderURL, cfg.Geocode.APIKey, cfg.Geocode.Timeout)

	result, err := geocode.Backfill(ctx, gw, provider)
	if err != nil {
		log.Fatal().Err(err).Msg("coordinate backfill failed")
	}

	log.Info().
		Int("statewide_cleared", result.StatewideCleared).
		Int("national_cleared", result.NationalCleared).
		Int("cache_hits", result.CacheHits).
		Int("geocoded", result.Geocoded).
		Int("failed", result.Failed).
		Int("events_updated", result.EventsUpdated).
		Msg("coordinate backfill complete")
	os.Exit(0)
}
