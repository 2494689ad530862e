// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on the teacher's internal/import/importer.go orchestration shape
// (open source → count/resume → process batches → log progress → persist
// stats) and original_source/automation/processors/post_processor.py's
// top-level run loop (get_files_from_bucket → process_*_file_optimized →
// discover_actors_from_posts → process_hashtags_from_posts →
// move_file_to_processed), rewritten for object-store files instead of a
// Tautulli SQLite cursor.

package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civictrace/pipeline/internal/metrics"
	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
)

const processedPrefix = "processed/"

// Config configures one ingestion run.
type Config struct {
	// TwitterBucket holds raw Twitter CSV exports (spec.md §6).
	TwitterBucket string
	// InstagramBucket holds raw Instagram JSON exports.
	InstagramBucket string
	// Migration, when true, skips the processed/ archiving step (spec.md
	// §4.B), for one-off backfills against a bucket the operator manages
	// independently.
	Migration bool
}

// Importer ties together object-store listing, normalization, deduplication,
// actor discovery, and post-ingest archiving into one ingestion run.
type Importer struct {
	cfg      Config
	gw       *storage.Gateway
	objects  storage.ObjectStore
	progress ProgressTracker
	dedup    *Deduplicator
	known    *KnownActorIndex
	log      zerolog.Logger

	mu    sync.RWMutex
	stats Stats
}

// NewImporter builds an Importer ready to Run.
func NewImporter(cfg Config, gw *storage.Gateway, objects storage.ObjectStore, progress ProgressTracker, known *KnownActorIndex, log zerolog.Logger) *Importer {
	return &Importer{
		cfg:      cfg,
		gw:       gw,
		objects:  objects,
		progress: progress,
		dedup:    NewDeduplicator(gw),
		known:    known,
		log:      log,
	}
}

// Run processes every pending file across both configured buckets.
func (imp *Importer) Run(ctx context.Context) (*Stats, error) {
	imp.mu.Lock()
	imp.stats = Stats{StartTime: time.Now()}
	imp.mu.Unlock()

	defer func() {
		imp.mu.Lock()
		imp.stats.EndTime = time.Now()
		imp.mu.Unlock()
	}()

	sources, err := imp.listPending(ctx)
	if err != nil {
		return imp.GetStats(), err
	}

	imp.log.Info().Int("files", len(sources)).Msg("ingestion run starting")

	for _, src := range sources {
		select {
		case <-ctx.Done():
			return imp.GetStats(), ctx.Err()
		default:
		}

		if err := imp.processFile(ctx, src); err != nil {
			imp.log.Error().Err(err).Str("bucket", src.Bucket).Str("key", src.Key).Msg("file processing failed")
			imp.incr(func(s *Stats) { s.Errors++ })
			continue // spec.md §4.B: per-file errors never block other files
		}
		imp.incr(func(s *Stats) { s.FilesProcessed++ })
	}

	stats := imp.GetStats()
	imp.log.Info().
		Int64("files_processed", stats.FilesProcessed).
		Int64("posts_inserted", stats.PostsInserted).
		Int64("duplicates_skipped", stats.DuplicatesSkipped).
		Int64("unknown_actors_found", stats.UnknownActorsFound).
		Int64("errors", stats.Errors).
		Dur("duration", stats.Duration()).
		Msg("ingestion run completed")

	return stats, nil
}

func (imp *Importer) listPending(ctx context.Context) ([]SourceFile, error) {
	var sources []SourceFile

	add := func(bucket, platform string) error {
		keys, err := imp.objects.List(ctx, bucket, "")
		if err != nil {
			return fmt.Errorf("list %s: %w", bucket, err)
		}
		for _, key := range keys {
			src := SourceFile{Bucket: bucket, Key: key, Platform: platform}
			if src.IsProcessed() {
				continue
			}
			done, err := imp.progress.IsDone(ctx, bucket, key)
			if err != nil {
				return fmt.Errorf("check progress for %s/%s: %w", bucket, key, err)
			}
			if done {
				continue
			}
			sources = append(sources, src)
		}
		return nil
	}

	if imp.cfg.TwitterBucket != "" {
		if err := add(imp.cfg.TwitterBucket, "twitter"); err != nil {
			return nil, err
		}
	}
	if imp.cfg.InstagramBucket != "" {
		if err := add(imp.cfg.InstagramBucket, "instagram"); err != nil {
			return nil, err
		}
	}
	return sources, nil
}

func (imp *Importer) processFile(ctx context.Context, src SourceFile) error {
	data, err := imp.objects.Get(ctx, src.Bucket, src.Key)
	if err != nil {
		return fmt.Errorf("download %s/%s: %w", src.Bucket, src.Key, err)
	}

	posts, err := imp.decodeAndNormalize(src, data)
	if err != nil {
		return fmt.Errorf("normalize %s/%s: %w", src.Bucket, src.Key, err)
	}
	imp.incr(func(s *Stats) { s.PostsRead += int64(len(posts)) })

	fresh, duplicates, err := imp.dedup.FilterNew(ctx, posts)
	if err != nil {
		return fmt.Errorf("dedup %s/%s: %w", src.Bucket, src.Key, err)
	}
	imp.incr(func(s *Stats) { s.DuplicatesSkipped += int64(len(duplicates)) })

	if len(fresh) > 0 {
		inserted, err := imp.persistPosts(ctx, fresh)
		if err != nil {
			return fmt.Errorf("persist posts from %s/%s: %w", src.Bucket, src.Key, err)
		}
		imp.dedup.RecordInserted(inserted)
		imp.incr(func(s *Stats) { s.PostsInserted += int64(len(inserted)) })

		if err := imp.discoverAndLinkActors(ctx, inserted); err != nil {
			return fmt.Errorf("link actors from %s/%s: %w", src.Bucket, src.Key, err)
		}
	}

	if !imp.cfg.Migration {
		if err := imp.archive(ctx, src); err != nil {
			return fmt.Errorf("archive %s/%s: %w", src.Bucket, src.Key, err)
		}
		imp.incr(func(s *Stats) { s.FilesMoved++ })
	}

	if err := imp.progress.MarkDone(ctx, src.Bucket, src.Key); err != nil {
		return err
	}
	metrics.UpdateIngestResumeOffset(src.Bucket+"/"+src.Key, int64(len(data)))
	return nil
}

func (imp *Importer) decodeAndNormalize(src SourceFile, data []byte) ([]*models.Post, error) {
	var posts []*models.Post
	rejected := 0

	switch src.Platform {
	case "twitter":
		raws, err := DecodeTwitterCSV(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		for _, raw := range raws {
			if post, ok := NormalizeTwitterRecord(raw); ok {
				posts = append(posts, post)
				metrics.RecordIngestPost("csv", true, "")
			} else {
				rejected++
				metrics.RecordIngestPost("csv", false, "normalization_failed")
			}
		}
	case "instagram":
		raws, err := DecodeInstagramJSON(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		for _, raw := range raws {
			if post, ok := NormalizeInstagramRecord(raw); ok {
				posts = append(posts, post)
				metrics.RecordIngestPost("json", true, "")
			} else {
				rejected++
				metrics.RecordIngestPost("json", false, "normalization_failed")
			}
		}
	default:
		return nil, fmt.Errorf("unknown platform %q", src.Platform)
	}

	imp.incr(func(s *Stats) {
		s.PostsNormalized += int64(len(posts))
		s.PostsRejected += int64(rejected)
	})
	return posts, nil
}

// persistPosts UPSERTs fresh posts and assigns each one its persisted ID.
func (imp *Importer) persistPosts(ctx context.Context, posts []*models.Post) ([]*models.Post, error) {
	rows := make([]storage.Row, len(posts))
	for i, p := range posts {
		rows[i] = postToRow(p)
	}

	result, err := imp.gw.UpsertBatch(ctx, "posts", []string{"platform", "external_post_id"}, "id", rows)
	if err != nil {
		return nil, err
	}

	inserted := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		key := string(p.Platform) + "\x1f" + p.ExternalPostID
		id, ok := result.IDsByConflictKey[key]
		if !ok {
			continue
		}
		p.ID = id
		inserted = append(inserted, p)
	}
	return inserted, nil
}

func postToRow(p *models.Post) storage.Row {
	now := time.Now().UTC()
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	return storage.Row{
		"id":                   id,
		"platform":             string(p.Platform),
		"external_post_id":     p.ExternalPostID,
		"author_handle":        p.AuthorHandle,
		"author_display_name":  p.AuthorDisplayName,
		"content_text":         p.ContentText,
		"timestamp":            p.Timestamp,
		"media_urls":           strings.Join(p.MediaURLs, "\x1f"),
		"mentioned_handles":    strings.Join(p.MentionedHandles, "\x1f"),
		"hashtags":             strings.Join(p.Hashtags, "\x1f"),
		"like_count":           p.LikeCount,
		"reply_count":          p.ReplyCount,
		"retweet_count":        p.RetweetCount,
		"location_text":        p.LocationText,
		"processed_for_events": p.ProcessedForEvents,
		"created_at":           now,
		"updated_at":           now,
	}
}

// discoverAndLinkActors evaluates each newly-inserted post's author,
// mentions, and hashtags against the known actor index, then UPSERTs the
// resulting known and unknown links (spec.md §4.B).
func (imp *Importer) discoverAndLinkActors(ctx context.Context, posts []*models.Post) error {
	discovery := NewActorDiscovery(imp.known)
	for _, p := range posts {
		discovery.Observe(p)
	}

	newUnknown, unknownLinks, err := discovery.Flush(ctx, imp.gw)
	if err != nil {
		return err
	}
	imp.incr(func(s *Stats) { s.UnknownActorsFound += newUnknown })

	if len(unknownLinks) > 0 {
		rows := make([]storage.Row, len(unknownLinks))
		for i, l := range unknownLinks {
			rows[i] = storage.Row{"post_id": l.PostID, "unknown_actor_id": l.UnknownActorID}
		}
		if _, err := imp.gw.UpsertBatch(ctx, "post_unknown_actor_links", []string{"post_id", "unknown_actor_id"}, "post_id", rows); err != nil {
			return fmt.Errorf("upsert unknown actor links: %w", err)
		}
		imp.incr(func(s *Stats) { s.UnknownActorLinks += int64(len(unknownLinks)) })
	}

	knownLinks := discovery.KnownLinks()
	if len(knownLinks) > 0 {
		rows := make([]storage.Row, len(knownLinks))
		for i, l := range knownLinks {
			rows[i] = storage.Row{"post_id": l.PostID, "actor_id": l.ActorID, "relationship_type": string(l.Relationship)}
		}
		if _, err := imp.gw.UpsertBatch(ctx, "post_actor_links", []string{"post_id", "actor_id", "relationship_type"}, "post_id", rows); err != nil {
			return fmt.Errorf("upsert known actor links: %w", err)
		}
		imp.incr(func(s *Stats) { s.KnownActorLinks += int64(len(knownLinks)) })
	}
	return nil
}

// archive moves a processed source file into processed/YYYY-MM-DD/ within
// the same bucket, per spec.md §4.B.
func (imp *Importer) archive(ctx context.Context, src SourceFile) error {
	dstKey := fmt.Sprintf("%s%s/%s", processedPrefix, time.Now().UTC().Format("2006-01-02"), src.Key)
	return imp.objects.Move(ctx, src.Bucket, src.Key, dstKey)
}

func (imp *Importer) incr(fn func(*Stats)) {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	fn(&imp.stats)
}

// GetStats returns a copy of the current run's statistics.
func (imp *Importer) GetStats() *Stats {
	imp.mu.RLock()
	defer imp.mu.RUnlock()
	stats := imp.stats
	return &stats
}
