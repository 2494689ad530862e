// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command mediafetch runs one pass of the Media Fetcher (spec.md §4.C):
// download each candidate media URL for posts that still need one, upload
// the first success to the object store, and record the public URL. It is
// the image_download stage the Pipeline Orchestrator launches as a child
// process.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/civictrace/pipeline/internal/config"
	"github.com/civictrace/pipeline/internal/logging"
	"github.com/civictrace/pipeline/internal/media"
	"github.com/civictrace/pipeline/internal/models"
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
	log := logging.Logger().With().Str("stage", "image_download").Str("run_id", *runID).Logger()

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

	posts, err := postsNeedingMedia(ctx, gw)
	if err != nil {
		log.Fatal().Err(err).Msg("load posts needing media")
	}
	log.Info().Int("candidate_posts", len(posts)).Msg("loaded posts needing media")

	fetcher := media.NewFetcher(media.Config{Bucket: "instagram-media"}, gw, objects, log)
	stats, err := fetcher.Run(ctx, posts)
	if err != nil {
		log.Fatal().Err(err).Msg("media fetch run failed")
	}

	log.Info().
		Int64("fetched", stats.PostsFetched).
		Int64("expired", stats.PostsExpired).
		Int64("permanently_expired", stats.PostsPermanentlyExpired).
		Int64("unresolved", stats.PostsUnresolved).
		Msg("media fetch pass complete")
	os.Exit(0)
}

// postsNeedingMedia loads every post with at least one media URL that has
// not yet been durably resolved (no offline_media_url, or a prior transient
// EXPIRED sentinel eligible for retry).
func postsNeedingMedia(ctx context.Context, gw *storage.Gateway) ([]*models.Post, error) {
	var posts []*models.Post
	err := gw.WithRetry(ctx, "mediafetch_load_candidates", func(ctx context.Context) error {
		rows, err := gw.DB().QueryContext(ctx, `
			SELECT id, media_urls, offline_media_url
			FROM posts
			WHERE media_urls IS NOT NULL AND media_urls != ''
			  AND (offline_media_url IS NULL OR offline_media_url = ?)`,
			models.MediaExpired)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var id, mediaURLs string
			var offlineURL sql.NullString
			if err := rows.Scan(&id, &mediaURLs, &offlineURL); err != nil {
				return err
			}
			post := &models.Post{ID: id}
			if mediaURLs != "" {
				post.MediaURLs = strings.Split(mediaURLs, "\x1f")
			}
			if offlineURL.Valid {
				v := offlineURL.String
				post.OfflineMediaURL = &v
			}
			posts = append(posts, post)
		}
		return rows.Err()
	})
	return posts, err
}
