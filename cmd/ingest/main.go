// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command ingest runs one pass of the Ingestion Normalizer (spec.md §4.B):
// read raw Twitter/Instagram export files from the object store, normalize
// them into canonical Posts, discover actors, and archive consumed files.
// It is the post_process stage the Pipeline Orchestrator launches as a
// child process.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dgraph-io/badger/v4"

	"github.com/civictrace/pipeline/internal/config"
	"github.com/civictrace/pipeline/internal/ingest"
	"github.com/civictrace/pipeline/internal/logging"
	"github.com/civictrace/pipeline/internal/storage"
)

const (
	twitterBucket   = "raw-twitter-data"
	instagramBucket = "raw-instagram-data"
)

func main() {
	runID := flag.String("run-id", "", "pipeline run ID this invocation belongs to")
	flag.Parse()

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})
	log := logging.Logger().With().Str("stage", "post_process").Str("run_id", *runID).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, log)

	gw, err := storage.New(storage.Config{Path: cfg.Database.URL, RPS: cfg.Database.RPS}, nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open storage gateway")
	}
	defer gw.Close()

	objects, err := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:        cfg.ObjectStore.Endpoint,
		Region:          cfg.ObjectStore.Region,
		AccessKeyID:     cfg.ObjectStore.AccessKeyID,
		SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
		PublicBaseURL:   cfg.ObjectStore.PublicBaseURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("open object store")
	}

	badgerDB, err := badger.Open(badger.DefaultOptions(filepath.Join(cfg.Orchestrator.RunStatePath, "ingest-progress")))
	if err != nil {
		log.Fatal().Err(err).Msg("open progress store")
	}
	defer badgerDB.Close()
	progress := ingest.NewBadgerProgress(badgerDB)

	known, err := ingest.LoadKnownActorIndex(ctx, gw)
	if err != nil {
		log.Fatal().Err(err).Msg("load known actor index")
	}

	importer := ingest.NewImporter(ingest.Config{
		TwitterBucket:   twitterBucket,
		InstagramBucket: instagramBucket,
	}, gw, objects, progress, known, log)

	stats, err := importer.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("ingestion run failed")
	}

	log.Info().
		Int64("posts_inserted", stats.PostsInserted).
		Int64("files_processed", stats.FilesProcessed).
		Msg("ingestion pass complete")
	os.Exit(0)
}
