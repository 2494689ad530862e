// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on original_source/automation/processors/post_processor.py's
// build_actor_lookup_cache, discover_actors_from_posts,
// bulk_upsert_unknown_actors, and process_hashtags_from_posts (the
// known/unknown actor discovery and "tagged" hashtag-link pass), rewritten
// over internal/models' typed Actor/UnknownActor/PostActorLink shapes
// instead of duck-typed dicts, per spec.md §9's "replace duck-typed dicts
// with tagged variants" redesign flag.

package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
)

// unknownActorUpsertChunk matches spec.md §4.B: unknown-actor rows are
// UPSERTed in chunks of ≤1,000.
const unknownActorUpsertChunk = storage.MaxUpsertChunk

// maxMentionContextLen bounds mention_context to the first 500 characters of
// the triggering post's content, per spec.md §4.B.
const maxMentionContextLen = 500

// KnownActorIndex is an in-memory lookup of every curated actor's platform
// handles, built once per run (mirrors the teacher's actor_lookup_cache).
type KnownActorIndex struct {
	byHandle map[string]knownActor // key: platform\x1fusername
}

type knownActor struct {
	actorID   string
	actorType models.ActorType
}

// LoadKnownActorIndex reads every (actor, username, platform) triple so the
// normalizer can distinguish known authors/mentions from unknown ones.
func LoadKnownActorIndex(ctx context.Context, gw *storage.Gateway) (*KnownActorIndex, error) {
	rows, err := gw.DB().QueryContext(ctx, `
		SELECT au.platform, au.username, au.actor_id, a.type
		FROM actor_usernames au
		JOIN actors a ON a.id = au.actor_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load known actor index: %w", err)
	}
	defer rows.Close()

	idx := &KnownActorIndex{byHandle: make(map[string]knownActor)}
	for rows.Next() {
		var platform, username, actorID, actorType string
		if err := rows.Scan(&platform, &username, &actorID, &actorType); err != nil {
			return nil, fmt.Errorf("scan known actor row: %w", err)
		}
		key := platform + "\x1f" + normalizeHandle(username, models.Platform(platform))
		idx.byHandle[key] = knownActor{actorID: actorID, actorType: models.ActorType(actorType)}
	}
	return idx, rows.Err()
}

// Lookup returns the curated actor behind a (platform, handle) pair, if any.
func (idx *KnownActorIndex) Lookup(platform models.Platform, handle string) (string, models.ActorType, bool) {
	entry, ok := idx.byHandle[string(platform)+"\x1f"+handle]
	if !ok {
		return "", "", false
	}
	return entry.actorID, entry.actorType, true
}

// unknownActorAgg accumulates the per-(platform,username) merge described in
// spec.md §4.B: first_seen=min, last_seen=max, mention_count+=occurrences,
// author_count+=1 if ever author, mention_context←first non-empty snippet.
type unknownActorAgg struct {
	platform       models.Platform
	username       string
	firstSeen      time.Time
	lastSeen       time.Time
	mentionCount   int64
	authorCount    int64
	mentionContext string
	edges          []pendingUnknownEdge
}

type pendingUnknownEdge struct {
	postID string
}

// ActorDiscovery collects unknown-actor aggregates and known-actor edges
// across every post in an ingestion run.
type ActorDiscovery struct {
	known *KnownActorIndex

	unknown    map[string]*unknownActorAgg // key: platform\x1fusername
	knownLinks []models.PostActorLink
}

// NewActorDiscovery starts a fresh discovery pass against the given known
// actor index.
func NewActorDiscovery(known *KnownActorIndex) *ActorDiscovery {
	return &ActorDiscovery{
		known:   known,
		unknown: make(map[string]*unknownActorAgg),
	}
}

// Observe evaluates one post's author and mentioned handles against the
// known actor index, recording known-actor edges directly and aggregating
// unknown handles for a later batched UPSERT.
func (d *ActorDiscovery) Observe(post *models.Post) {
	ts := time.Now().UTC()
	if post.Timestamp != nil {
		ts = *post.Timestamp
	}
	snippet := post.ContentText
	if len(snippet) > maxMentionContextLen {
		snippet = snippet[:maxMentionContextLen]
	}

	if post.AuthorHandle != "" {
		d.observeHandle(post.Platform, post.AuthorHandle, post.ID, ts, snippet, true)
	}
	for _, mention := range post.MentionedHandles {
		d.observeHandle(post.Platform, mention, post.ID, ts, snippet, false)
	}
	for _, tag := range post.Hashtags {
		handle := strings.ToLower(strings.TrimPrefix(tag, "#"))
		if actorID, _, ok := d.known.Lookup(post.Platform, handle); ok {
			d.knownLinks = append(d.knownLinks, models.NewPostActorLink(post.ID, actorID, models.PostActorTagged))
		}
	}
}

func (d *ActorDiscovery) observeHandle(platform models.Platform, handle, postID string, ts time.Time, snippet string, isAuthor bool) {
	if actorID, _, ok := d.known.Lookup(platform, handle); ok {
		rel := models.PostActorMentioned
		if isAuthor {
			rel = models.PostActorAuthor
		}
		d.knownLinks = append(d.knownLinks, models.NewPostActorLink(postID, actorID, rel))
		return
	}

	key := string(platform) + "\x1f" + handle
	agg, ok := d.unknown[key]
	if !ok {
		agg = &unknownActorAgg{platform: platform, username: handle, firstSeen: ts, lastSeen: ts, mentionContext: snippet}
		d.unknown[key] = agg
	}
	if ts.Before(agg.firstSeen) {
		agg.firstSeen = ts
	}
	if ts.After(agg.lastSeen) {
		agg.lastSeen = ts
	}
	agg.mentionCount++
	if isAuthor {
		agg.authorCount++
	}
	if agg.mentionContext == "" {
		agg.mentionContext = snippet
	}
	agg.edges = append(agg.edges, pendingUnknownEdge{postID: postID})
}

// KnownLinks returns every known-actor edge recorded so far.
func (d *ActorDiscovery) KnownLinks() []models.PostActorLink {
	return d.knownLinks
}

// Flush UPSERTs the aggregated unknown actors (chunked to
// unknownActorUpsertChunk) and their post↔unknown-actor edges, returning how
// many unknown actors were newly discovered.
func (d *ActorDiscovery) Flush(ctx context.Context, gw *storage.Gateway) (newActors int64, links []models.PostUnknownActorLink, err error) {
	if len(d.unknown) == 0 {
		return 0, nil, nil
	}

	keys := make([]string, 0, len(d.unknown))
	for k := range d.unknown {
		keys = append(keys, k)
	}

	ids := make(map[string]string, len(keys))
	isNew := make(map[string]bool, len(keys))

	for start := 0; start < len(keys); start += unknownActorUpsertChunk {
		end := start + unknownActorUpsertChunk
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		upsertErr := gw.WithRetry(ctx, "upsert:unknown_actors", func(ctx context.Context) error {
			return upsertUnknownActorChunk(ctx, gw, d.unknown, chunk, ids, isNew)
		})
		if upsertErr != nil {
			return 0, nil, fmt.Errorf("upsert unknown actors: %w", upsertErr)
		}
	}

	for _, k := range keys {
		agg := d.unknown[k]
		actorID, ok := ids[k]
		if !ok {
			continue
		}
		if isNew[k] {
			newActors++
		}
		seen := make(map[string]struct{}, len(agg.edges))
		for _, e := range agg.edges {
			if _, dup := seen[e.postID]; dup {
				continue
			}
			seen[e.postID] = struct{}{}
			links = append(links, models.NewPostUnknownActorLink(e.postID, actorID))
		}
	}

	return newActors, links, nil
}

// upsertUnknownActorChunk UPSERTs one chunk of aggregated unknown actors with
// the merge semantics spec.md §4.B requires (min/max/sum, not overwrite),
// which the generic column=excluded.column helper in internal/storage
// cannot express.
func upsertUnknownActorChunk(ctx context.Context, gw *storage.Gateway, unknown map[string]*unknownActorAgg, chunk []string, ids map[string]string, isNew map[string]bool) error {
	now := time.Now().UTC()
	for _, k := range chunk {
		agg := unknown[k]
		row := gw.DB().QueryRowContext(ctx, `
			INSERT INTO unknown_actors
				(platform, detected_username, first_seen, last_seen, mention_count,
				 author_count, mention_context, review_status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (platform, detected_username) DO UPDATE SET
				first_seen      = LEAST(unknown_actors.first_seen, excluded.first_seen),
				last_seen       = GREATEST(unknown_actors.last_seen, excluded.last_seen),
				mention_count   = unknown_actors.mention_count + excluded.mention_count,
				author_count    = unknown_actors.author_count + excluded.author_count,
				mention_context = CASE WHEN unknown_actors.mention_context = ''
					THEN excluded.mention_context ELSE unknown_actors.mention_context END,
				updated_at      = excluded.updated_at
			RETURNING id, (created_at = updated_at) AS is_new
		`,
			string(agg.platform), agg.username, agg.firstSeen, agg.lastSeen, agg.mentionCount,
			agg.authorCount, agg.mentionContext, string(models.UnknownActorPending), now, now,
		)

		var id string
		var wasNew bool
		if err := row.Scan(&id, &wasNew); err != nil {
			return fmt.Errorf("upsert unknown actor %s: %w", k, err)
		}
		ids[k] = id
		isNew[k] = wasNew
	}
	return nil
}
