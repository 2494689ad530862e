// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on flash_standalone_event_processor.py's save_events_to_database
// (spec.md §4.F.4), rewritten over storage.Gateway.UpsertBatch's generic
// chunked-UPSERT helper instead of the teacher's ad-hoc per-table INSERT.

package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	goccyjson "github.com/goccy/go-json"

	"github.com/civictrace/pipeline/internal/logging"
	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
	"github.com/google/uuid"
)

// embeddingToColumn serializes a 768-dim embedding as a JSON array string,
// matching the package's \x1f-joined-string convention for the driver's
// lack of native array binding (internal/ingest's postToRow does the same
// for media_urls/mentioned_handles/hashtags) — a JSON array is used here
// instead of a delimiter join since embedding components are floats, not
// delimiter-safe tokens. A nil embedding (best-effort failure) persists as
// an empty string.
func embeddingToColumn(embedding []float32) string {
	if embedding == nil {
		return ""
	}
	data, err := goccyjson.Marshal(embedding)
	if err != nil {
		return ""
	}
	return string(data)
}

// maxProcessedUpdateChunk bounds how many post IDs a single
// processed_for_events UPDATE touches (spec.md §4.F.4: "chunked to <=100
// IDs per update to avoid URL-length limits").
const maxProcessedUpdateChunk = 100

// Embedder produces a best-effort semantic embedding for an event. A nil
// Embedder (or one that errors) simply leaves Event.Embedding nil; spec.md
// §4.F.4 requires persistence to proceed regardless.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// toEventModel converts a validated RawEvent plus its translated post UUIDs
// into the persistence-ready models.Event, applying the normalization rules
// spec.md §4.F.4 names.
func toEventModel(raw RawEvent, sourceUUIDs []string, extractedBy string) *models.Event {
	return &models.Event{
		ID:               uuid.NewString(),
		EventName:        raw.EventName,
		EventDate:        models.NormalizeEventDate(raw.EventDate),
		EventDescription: raw.EventDescription,
		Location:         raw.Location,
		City:             raw.City,
		State:            raw.State,
		Participants:     raw.Participants,
		CategoryTags:     raw.CategoryTags,
		SourcePostIDs:    sourceUUIDs,
		ConfidenceScore:  raw.ConfidenceScore,
		ExtractedBy:      extractedBy,
		ExtractedAt:      time.Now().UTC(),
	}
}

// persistEvents implements spec.md §4.F.4 end to end for one batch's
// validated, UUID-translated events: best-effort embedding, batch UPSERT
// keyed on content_hash, and — for newly created rows only — post links,
// the unified actor linker, and dynamic-slug materialization.
func persistEvents(ctx context.Context, gw *storage.Gateway, embedder Embedder, slugs *SlugCache, events []*models.Event) (persisted int, err error) {
	if len(events) == 0 {
		return 0, nil
	}

	for _, e := range events {
		e.ComputeContentHash()
		if embedder != nil {
			vec, embErr := embedder.Embed(ctx, e.EventName+" "+e.EventDescription+" "+e.City+" "+e.State)
			if embErr != nil {
				logging.LoggerFromContext(ctx).Warn().Err(embErr).Str("event_name", e.EventName).Msg("event embedding failed, persisting with null vector")
			} else {
				e.Embedding = vec
			}
		}
	}

	rows := make([]storage.Row, len(events))
	for i, e := range events {
		rows[i] = storage.Row{
			"id":                e.ID,
			"event_name":        e.EventName,
			"event_date":        e.EventDate,
			"event_description": e.EventDescription,
			"location":          e.Location,
			"city":              e.City,
			"state":             e.State,
			"participants":      e.Participants,
			"category_tags":     strings.Join(e.CategoryTags, "\x1f"),
			"source_post_ids":   strings.Join(e.SourcePostIDs, "\x1f"),
			"confidence_score":  e.ConfidenceScore,
			"extracted_by":      e.ExtractedBy,
			"extracted_at":      e.ExtractedAt,
			"verified":          e.Verified,
			"content_hash":      e.ContentHash,
			"embedding":         embeddingToColumn(e.Embedding),
			"created_at":        e.ExtractedAt,
			"updated_at":        e.ExtractedAt,
		}
	}

	result, err := gw.UpsertBatch(ctx, "events", []string{"content_hash"}, "id", rows)
	if err != nil {
		return 0, fmt.Errorf("persist events: %w", err)
	}

	for _, e := range events {
		id, ok := result.IDsByConflictKey[e.ContentHash]
		if !ok {
			continue
		}
		e.ID = id

		if !result.NewByConflictKey[e.ContentHash] {
			continue // existing event: skip link creation (spec.md §4.F.4)
		}
		persisted++

		if err := upsertEventPostLinks(ctx, gw, e.ID, e.SourcePostIDs); err != nil {
			return persisted, fmt.Errorf("persist event %s post links: %w", e.ID, err)
		}

		links, err := computeUnifiedActorLinks(ctx, gw, e.ID, e.SourcePostIDs, strings.Join([]string{e.Participants, e.EventDescription}, " "), nil, nil)
		if err != nil {
			return persisted, fmt.Errorf("persist event %s actor links: %w", e.ID, err)
		}
		if err := upsertEventActorLinks(ctx, gw, links); err != nil {
			return persisted, fmt.Errorf("persist event %s actor links: %w", e.ID, err)
		}

		if err := materializeCategoryTagSlugs(ctx, gw, slugs, e.CategoryTags); err != nil {
			return persisted, fmt.Errorf("persist event %s category tags: %w", e.ID, err)
		}
	}

	return persisted, nil
}

// upsertEventPostLinks UPSERTs EventPostLink rows, keyed on (event_id,
// post_id). Existence of each post is assumed already verified: the
// caller's post UUIDs came from the batch's own translation map, which only
// ever contains posts this process just loaded.
func upsertEventPostLinks(ctx context.Context, gw *storage.Gateway, eventID string, postUUIDs []string) error {
	if len(postUUIDs) == 0 {
		return nil
	}
	rows := make([]storage.Row, len(postUUIDs))
	for i, postID := range postUUIDs {
		rows[i] = storage.Row{"event_id": eventID, "post_id": postID}
	}
	_, err := gw.UpsertBatch(ctx, "event_post_links", []string{"event_id", "post_id"}, "event_id", rows)
	return err
}

// upsertEventActorLinks UPSERTs the single-table EventActorLink
// representation (spec.md §9), known rows keyed on (event_id, actor_handle,
// platform) and unknown rows on the same key using the "unknown_<uuid>"
// sentinel handle.
func upsertEventActorLinks(ctx context.Context, gw *storage.Gateway, links []models.EventActorLink) error {
	if len(links) == 0 {
		return nil
	}
	rows := make([]storage.Row, len(links))
	for i, l := range links {
		rows[i] = storage.Row{
			"event_id":         l.EventID,
			"actor_handle":     l.ActorHandle,
			"platform":         string(l.Platform),
			"kind":             string(l.Kind),
			"actor_type":       string(l.ActorType),
			"actor_id":         nullableString(l.ActorID),
			"unknown_actor_id": nullableString(l.UnknownActorID),
		}
	}
	_, err := gw.UpsertBatch(ctx, "event_actor_links", []string{"event_id", "actor_handle", "platform"}, "event_id", rows)
	return err
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// materializeCategoryTagSlugs implements spec.md §4.F.4's last bullet: for
// every "ParentTag:identifier" category tag whose parent tag is in the
// cacheable set, UPSERT a DynamicSlug row and update the in-memory cache.
func materializeCategoryTagSlugs(ctx context.Context, gw *storage.Gateway, slugs *SlugCache, categoryTags []string) error {
	var rows []storage.Row
	var newSlugs []models.DynamicSlug
	for _, tag := range categoryTags {
		parentTag, identifier, ok := models.SplitCategoryTag(tag)
		if !ok || !models.CacheableParentTags[parentTag] {
			continue
		}
		slug := models.NewDynamicSlug(parentTag, identifier)
		if slugs != nil && slugs.Has(slug.FullSlug) {
			continue
		}
		rows = append(rows, storage.Row{
			"parent_tag":      slug.ParentTag,
			"slug_identifier": slug.SlugIdentifier,
			"full_slug":       slug.FullSlug,
		})
		newSlugs = append(newSlugs, slug)
	}
	if len(rows) == 0 {
		return nil
	}

	if _, err := gw.UpsertBatch(ctx, "dynamic_slugs", []string{"full_slug"}, "full_slug", rows); err != nil {
		return err
	}
	if slugs != nil {
		for _, s := range newSlugs {
			slugs.Put(s)
		}
	}
	return nil
}

// markPostsProcessed stamps processed_for_events and event_processed_at on
// every post in the batch, chunked to maxProcessedUpdateChunk IDs per
// UPDATE (spec.md §4.F.4).
func markPostsProcessed(ctx context.Context, gw *storage.Gateway, postUUIDs []string) error {
	now := time.Now().UTC()
	for start := 0; start < len(postUUIDs); start += maxProcessedUpdateChunk {
		end := start + maxProcessedUpdateChunk
		if end > len(postUUIDs) {
			end = len(postUUIDs)
		}
		chunk := postUUIDs[start:end]

		err := gw.WithRetry(ctx, "mark_posts_processed", func(ctx context.Context) error {
			placeholders, args := inClausePlaceholders(chunk)
			args = append([]any{now}, args...)
			_, execErr := gw.DB().ExecContext(ctx, fmt.Sprintf(
				`UPDATE posts SET processed_for_events = true, event_processed_at = ? WHERE id IN (%s)`,
				placeholders), args...)
			return execErr
		})
		if err != nil {
			return fmt.Errorf("mark posts processed (chunk %d-%d): %w", start, end, err)
		}
	}
	return nil
}
