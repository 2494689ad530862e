// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command dedup runs one pass of the Deduplicator (spec.md §4.G): load
// pre-computed potential-duplicate groups, ask the LLM how to partition each
// group, and merge accepted decisions. It is the event_dedup stage the
// Pipeline Orchestrator launches as a child process.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/civictrace/pipeline/internal/config"
	"github.com/civictrace/pipeline/internal/dedup"
	"github.com/civictrace/pipeline/internal/llm"
	"github.com/civictrace/pipeline/internal/logging"
	"github.com/civictrace/pipeline/internal/storage"
)

// minGroupScore is the minimum max_similarity_score a potential-duplicate
// group must have to be considered, matching
// deduplicate_events_with_gemini.py's default threshold.
const minGroupScore = 0.75

func main() {
	runID := flag.String("run-id", "", "pipeline run ID this invocation belongs to")
	flag.Parse()

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})
	log := logging.Logger().With().Str("stage", "event_dedup").Str("run_id", *runID).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, log)

	gw, err := storage.New(storage.Config{Path: cfg.Database.URL, RPS: cfg.Database.RPS}, nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open storage gateway")
	}
	defer gw.Close()

	apiKey := ""
	if len(cfg.LLM.APIKeys) > 0 {
		apiKey = cfg.LLM.APIKeys[0]
	}
	client := llm.NewGenAIClient(apiKey, llm.Config{
		MaxRetries:              cfg.LLM.MaxRetries,
		InnerConnectionAttempts: llm.DefaultInnerConnectionAttempts,
	}.WithDefaults())

	groups, err := dedup.LoadGroups(ctx, gw, minGroupScore, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("load duplicate groups")
	}
	log.Info().Int("group_count", len(groups)).Msg("loaded duplicate groups")

	engine := dedup.NewEngine(gw, client, config.DryRunFromEnv())
	merged, err := engine.ProcessGroups(ctx, groups)
	if err != nil {
		log.Fatal().Err(err).Msg("process duplicate groups")
	}

	log.Info().Int("events_merged", merged).Bool("dry_run", engine.DryRun).Msg("deduplication pass complete")
	os.Exit(0)
}
