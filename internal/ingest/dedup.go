// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on original_source/automation/processors/post_processor.py's
// is_duplicate_post/check_duplicates_batch session-cache-then-IN-query
// shape, rewritten on top of internal/cache.ExactLRU (the teacher's
// zero-false-positive dedup cache, internal/cache/bloom.go) instead of a
// hand-rolled Python set.

package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/civictrace/pipeline/internal/cache"
	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
)

// existsChunkSize bounds how many external_post_id values go into a single
// IN query, per spec.md §4.B ("≤50 IDs per call").
const existsChunkSize = 50

// sessionDedupCapacity bounds the in-memory ExactLRU backing the session
// cache; large enough to hold a full run's worth of (platform, id) pairs
// without thrashing.
const sessionDedupCapacity = 500_000

// Deduplicator tracks which (platform, external_post_id) pairs have already
// been seen, consulting an in-memory session cache before falling back to a
// chunked database existence check.
type Deduplicator struct {
	gw    *storage.Gateway
	cache *cache.ExactLRU
}

// NewDeduplicator builds a Deduplicator backed by the given Storage Gateway.
func NewDeduplicator(gw *storage.Gateway) *Deduplicator {
	return &Deduplicator{
		gw:    gw,
		cache: cache.NewExactLRU(sessionDedupCapacity, 0),
	}
}

func dedupKey(platform models.Platform, externalPostID string) string {
	return string(platform) + "\x1f" + externalPostID
}

// FilterNew splits posts into ones that are genuinely new this run and ones
// that are already-known duplicates, consulting the session cache first and
// then a chunked IN query per platform for cache misses.
func (d *Deduplicator) FilterNew(ctx context.Context, posts []*models.Post) (fresh []*models.Post, duplicates []*models.Post, err error) {
	byPlatform := make(map[models.Platform][]*models.Post)
	candidates := make([]*models.Post, 0, len(posts))

	for _, p := range posts {
		key := dedupKey(p.Platform, p.ExternalPostID)
		if d.cache.Contains(key) {
			duplicates = append(duplicates, p)
			continue
		}
		candidates = append(candidates, p)
		byPlatform[p.Platform] = append(byPlatform[p.Platform], p)
	}

	existing := make(map[string]struct{})
	for platform, platformPosts := range byPlatform {
		ids := make([]string, len(platformPosts))
		for i, p := range platformPosts {
			ids[i] = p.ExternalPostID
		}
		found, lookupErr := d.existingIDs(ctx, platform, ids)
		if lookupErr != nil {
			return nil, nil, fmt.Errorf("check existing posts for %s: %w", platform, lookupErr)
		}
		for id := range found {
			existing[dedupKey(platform, id)] = struct{}{}
		}
	}

	for _, p := range candidates {
		key := dedupKey(p.Platform, p.ExternalPostID)
		if _, found := existing[key]; found {
			d.cache.Record(key)
			duplicates = append(duplicates, p)
			continue
		}
		fresh = append(fresh, p)
	}

	return fresh, duplicates, nil
}

// existingIDs queries which of the given external_post_id values already
// exist for platform, chunked to existsChunkSize IDs per call.
func (d *Deduplicator) existingIDs(ctx context.Context, platform models.Platform, ids []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	if len(ids) == 0 {
		return found, nil
	}

	db := d.gw.DB()
	for start := 0; start < len(ids); start += existsChunkSize {
		end := start + existsChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)+1)
		args = append(args, string(platform))
		for i, id := range chunk {
			placeholders[i] = "?"
			args = append(args, id)
		}

		query := fmt.Sprintf(
			"SELECT external_post_id FROM posts WHERE platform = ? AND external_post_id IN (%s)",
			strings.Join(placeholders, ","),
		)

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("query existing posts: %w", err)
		}
		for rows.Next() {
			var id string
			if scanErr := rows.Scan(&id); scanErr != nil {
				rows.Close()
				return nil, fmt.Errorf("scan existing post id: %w", scanErr)
			}
			found[id] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	return found, nil
}

// RecordInserted marks the given posts as seen in the session cache once
// they have been durably persisted, so later files in the same run skip the
// database round-trip entirely.
func (d *Deduplicator) RecordInserted(posts []*models.Post) {
	for _, p := range posts {
		d.cache.Record(dedupKey(p.Platform, p.ExternalPostID))
	}
}
