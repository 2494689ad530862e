// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on flash_standalone_event_processor.py's tool-call handlers
// (search_actors_tool, search_dynamic_slugs_tool,
// link_posts_to_existing_event_tool, get_v2_actor_bio_info,
// fallback_text_search_events), rewritten over the typed
// models.ActorLookupResult/models.DynamicSlug shapes instead of dicts
// (spec.md §9 redesign flag).

package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/civictrace/pipeline/internal/logging"
	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
)

// toolRuntime bundles the per-batch state tool handlers need: the storage
// gateway, the shared slug cache, and the batch-local external-post-ID to
// UUID map link_posts_to_existing_event uses for translation (spec.md
// §4.F.2 item 3).
type toolRuntime struct {
	gw         *storage.Gateway
	slugCache  *SlugCache
	uuidByExt  map[string]string // external_post_id -> post UUID, this batch only
}

// dispatchTool runs one model-requested tool call and returns its JSON-able
// result (spec.md §4.F.3 step 3).
func (t *toolRuntime) dispatchTool(ctx context.Context, call toolCall) (map[string]any, error) {
	switch call.Name {
	case "search_actors":
		return t.searchActors(ctx, call.Arguments)
	case "search_dynamic_slugs":
		return t.searchDynamicSlugs(ctx, call.Arguments)
	case "link_posts_to_existing_event":
		return t.linkPostsToExistingEvent(ctx, call.Arguments)
	default:
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}
}

// toolCall is a transport-neutral restatement of llm.ToolCall, kept local
// so this file doesn't need to import llm just for the argument shape.
type toolCall struct {
	Name      string
	Arguments map[string]any
}

// searchActors implements spec.md §4.F.2 item 1: bulk actor lookup joining
// usernames to actor rows, merging unknown-actor bios from the
// unknown_actors table (supplemented feature: actor bio enrichment).
func (t *toolRuntime) searchActors(ctx context.Context, args map[string]any) (map[string]any, error) {
	requested := parseActorRequests(args)
	if len(requested) == 0 {
		return map[string]any{"results": []any{}}, nil
	}

	results := make([]map[string]any, 0, len(requested))
	for _, r := range requested {
		lookup, err := lookupActor(ctx, t.gw, r.platform, r.handle)
		if err != nil {
			return nil, fmt.Errorf("search_actors: %w", err)
		}
		results = append(results, map[string]any{
			"handle":   lookup.Handle,
			"platform": string(lookup.Platform),
			"type":     string(lookup.Kind),
			"name":     lookup.Name,
			"bio":      lookup.Bio,
			"city":     lookup.City,
			"state":    lookup.State,
		})
	}
	return map[string]any{"results": results}, nil
}

type actorRequest struct {
	platform models.Platform
	handle   string
}

func parseActorRequests(args map[string]any) []actorRequest {
	raw, _ := args["actors"].([]any)
	requests := make([]actorRequest, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		platform, _ := m["platform"].(string)
		handle, _ := m["handle"].(string)
		if handle == "" {
			continue
		}
		requests = append(requests, actorRequest{
			platform: models.Platform(strings.ToLower(platform)),
			handle:   strings.ToLower(strings.TrimPrefix(handle, "@")),
		})
	}
	return requests
}

// lookupActor resolves one (platform, handle) pair to the sum-typed result
// spec.md §9 requires: known actors win over unknown; an unresolved handle
// reports NotFound.
func lookupActor(ctx context.Context, gw *storage.Gateway, platform models.Platform, handle string) (models.ActorLookupResult, error) {
	result := models.ActorLookupResult{Handle: handle, Platform: platform, Kind: models.ActorLookupNotFound}

	row := gw.DB().QueryRowContext(ctx, `
		SELECT a.id, a.type, a.name, COALESCE(a.about, ''), COALESCE(a.city, ''), COALESCE(a.state, '')
		FROM actor_usernames au
		JOIN actors a ON a.id = au.actor_id
		WHERE au.platform = ? AND au.username = ?
	`, string(platform), handle)

	var id, actorType, name, about, city, state string
	if err := row.Scan(&id, &actorType, &name, &about, &city, &state); err == nil {
		result.Kind = models.ActorLookupKind(actorType)
		result.ActorID = id
		result.Name = name
		result.Bio = about
		result.City = city
		result.State = state
		return result, nil
	}

	row = gw.DB().QueryRowContext(ctx, `
		SELECT id, COALESCE(mention_context, '')
		FROM unknown_actors
		WHERE platform = ? AND detected_username = ?
	`, string(platform), handle)

	var unknownID, context string
	if err := row.Scan(&unknownID, &context); err == nil {
		result.Kind = models.ActorLookupUnknown
		result.UnknownActorID = unknownID
		result.Bio = context
	}

	return result, nil
}

// searchDynamicSlugs implements spec.md §4.F.2 item 2: an ILIKE search over
// slug identifiers with three escalating strategies (wildcard, prefix,
// exact) tried in order as each preceding strategy's query errors.
func (t *toolRuntime) searchDynamicSlugs(ctx context.Context, args map[string]any) (map[string]any, error) {
	term, _ := args["search_term"].(string)
	term = models.NormalizeSlugIdentifier(term)
	parentFilter, _ := args["parent_tag_filter"].(string)

	patterns := []string{"%" + term + "%", term + "%", term}

	var rows *sqlRows
	var lastErr error
	for _, pattern := range patterns {
		got, err := querySlugsLike(ctx, t.gw, pattern, parentFilter)
		if err == nil {
			rows = got
			break
		}
		lastErr = err
	}
	if rows == nil {
		return nil, fmt.Errorf("search_dynamic_slugs: exhausted all strategies: %w", lastErr)
	}

	grouped := make(map[string][]map[string]any)
	for _, r := range rows.slugs {
		grouped[r.SlugIdentifier] = append(grouped[r.SlugIdentifier], map[string]any{
			"parent_tag": r.ParentTag,
			"full_slug":  r.FullSlug,
		})
	}

	out := make(map[string]any, len(grouped))
	for id, variants := range grouped {
		out[id] = variants
	}
	return map[string]any{"matches": out}, nil
}

// sqlRows is a tiny result holder so querySlugsLike can be retried without
// re-running the ILIKE query's whole call signature at each escalation.
type sqlRows struct {
	slugs []models.DynamicSlug
}

func querySlugsLike(ctx context.Context, gw *storage.Gateway, pattern, parentFilter string) (*sqlRows, error) {
	query := `SELECT parent_tag, slug_identifier, full_slug FROM dynamic_slugs WHERE slug_identifier ILIKE ?`
	args := []any{pattern}
	if parentFilter != "" {
		query += ` AND parent_tag = ?`
		args = append(args, parentFilter)
	}

	rows, err := gw.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &sqlRows{}
	for rows.Next() {
		var s models.DynamicSlug
		if err := rows.Scan(&s.ParentTag, &s.SlugIdentifier, &s.FullSlug); err != nil {
			return nil, err
		}
		result.slugs = append(result.slugs, s)
	}
	return result, rows.Err()
}

// linkPostsToExistingEvent implements spec.md §4.F.2 item 3: translate
// model-supplied external post IDs into this batch's UUIDs, create
// EventPostLink rows, and migrate PostActor edges to EventActorLink edges.
// When the model supplies no event_id but a free-text name hint instead, it
// falls back to an ILIKE search over recent event names (supplemented
// feature, SPEC_FULL.md §11) before giving up.
func (t *toolRuntime) linkPostsToExistingEvent(ctx context.Context, args map[string]any) (map[string]any, error) {
	eventID, _ := args["event_id"].(string)
	reason, _ := args["reason"].(string)

	if eventID == "" {
		nameHint, _ := args["event_name_search"].(string)
		found, err := fallbackTextSearchEvent(ctx, t.gw, nameHint)
		if err != nil {
			return nil, fmt.Errorf("link_posts_to_existing_event: %w", err)
		}
		if found == "" {
			return map[string]any{"success": false, "linked_posts": 0, "migrated_actors": 0}, nil
		}
		eventID = found
	}

	extIDs := parseStringArray(args["post_ids"])
	postUUIDs := make([]string, 0, len(extIDs))
	for _, ext := range extIDs {
		if id, ok := t.uuidByExt[ext]; ok {
			postUUIDs = append(postUUIDs, id)
		}
	}
	if len(postUUIDs) == 0 {
		return map[string]any{"success": false, "linked_posts": 0, "migrated_actors": 0}, nil
	}

	if err := upsertEventPostLinks(ctx, t.gw, eventID, postUUIDs); err != nil {
		return nil, fmt.Errorf("link_posts_to_existing_event: %w", err)
	}

	migrated, err := migratePostActorsToEvent(ctx, t.gw, eventID, postUUIDs)
	if err != nil {
		return nil, fmt.Errorf("link_posts_to_existing_event: migrate actors: %w", err)
	}

	logging.LoggerFromContext(ctx).Info().
		Str("event_id", eventID).
		Int("linked_posts", len(postUUIDs)).
		Int("migrated_actors", migrated).
		Str("reason", reason).
		Msg("linked batch posts to existing event")

	return map[string]any{
		"success":         true,
		"linked_posts":    len(postUUIDs),
		"migrated_actors": migrated,
	}, nil
}

// fallbackTextSearchEvent ILIKE-searches recent event names for a loose
// match, returning the most recently extracted hit.
func fallbackTextSearchEvent(ctx context.Context, gw *storage.Gateway, nameHint string) (string, error) {
	nameHint = strings.TrimSpace(nameHint)
	if nameHint == "" {
		return "", nil
	}

	row := gw.DB().QueryRowContext(ctx, `
		SELECT id FROM events WHERE event_name ILIKE ? ORDER BY extracted_at DESC LIMIT 1
	`, "%"+nameHint+"%")

	var id string
	if err := row.Scan(&id); err != nil {
		return "", nil //nolint:nilerr // no match is not an error condition
	}
	return id, nil
}

func parseStringArray(v any) []string {
	raw, _ := v.([]any)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
