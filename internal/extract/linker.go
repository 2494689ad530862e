// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on flash_standalone_event_processor.py's
// link_event_actors_unified (spec.md §4.F.5): a single pass that merges
// known actors and unknown actors inherited from the source posts with
// fresh @handle mentions found in the event's own text fields.

package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
)

var handleMentionPattern = regexp.MustCompile(`@([a-z0-9_]{2,32})`)

// extractHandles pulls @handle candidates out of free text plus two
// explicit handle arrays, lowercased and de-duplicated (spec.md §4.F.5
// step 1).
func extractHandles(text string, explicit ...[]string) []string {
	seen := make(map[string]struct{})
	var handles []string

	add := func(h string) {
		h = strings.ToLower(strings.TrimPrefix(h, "@"))
		if h == "" {
			return
		}
		if _, dup := seen[h]; dup {
			return
		}
		seen[h] = struct{}{}
		handles = append(handles, h)
	}

	for _, m := range handleMentionPattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, list := range explicit {
		for _, h := range list {
			add(h)
		}
	}
	return handles
}

// computeUnifiedActorLinks implements spec.md §4.F.5's full algorithm for a
// newly created event: it folds in actors already linked to any of the
// event's source posts (steps 3-4) plus fresh handle mentions found in the
// event's own text and explicit handle arrays (steps 1-2, 5), returning a
// de-duplicated set of EventActorLink rows ready for UPSERT (step 6).
func computeUnifiedActorLinks(ctx context.Context, gw *storage.Gateway, eventID string, postUUIDs []string, eventText string, instagramHandles, twitterHandles []string) ([]models.EventActorLink, error) {
	links := make(map[string]models.EventActorLink) // keyed by dedup key

	postKnown, postUnknown, err := actorsLinkedToPosts(ctx, gw, postUUIDs)
	if err != nil {
		return nil, fmt.Errorf("compute unified actor links: %w", err)
	}
	coveredHandles := make(map[string]struct{}, len(postKnown))

	for _, pk := range postKnown {
		link := models.NewKnownEventActorLink(eventID, pk.actorID, pk.actorType, pk.handle, pk.platform)
		links[knownLinkKey(link)] = link
		coveredHandles[pk.handle] = struct{}{}
	}
	for _, unknownActorID := range postUnknown {
		link := models.NewUnknownEventActorLink(eventID, unknownActorID)
		links[unknownLinkKey(link)] = link
	}

	handles := extractHandles(eventText, instagramHandles, twitterHandles)
	fresh := make([]string, 0, len(handles))
	for _, h := range handles {
		if _, ok := coveredHandles[h]; !ok {
			fresh = append(fresh, h)
		}
	}

	if len(fresh) > 0 {
		resolved, err := resolveFreshHandles(ctx, gw, fresh)
		if err != nil {
			return nil, fmt.Errorf("compute unified actor links: resolve handles: %w", err)
		}
		for _, r := range resolved {
			if r.Kind == models.ActorLookupNotFound {
				continue
			}
			var link models.EventActorLink
			if r.Kind == models.ActorLookupUnknown {
				link = models.NewUnknownEventActorLink(eventID, r.UnknownActorID)
				links[unknownLinkKey(link)] = link
				continue
			}
			link = models.NewKnownEventActorLink(eventID, r.ActorID, models.ActorType(r.Kind), r.Handle, r.Platform)
			links[knownLinkKey(link)] = link
		}
	}

	out := make([]models.EventActorLink, 0, len(links))
	for _, l := range links {
		out = append(out, l)
	}
	return out, nil
}

func knownLinkKey(l models.EventActorLink) string {
	return "known\x1f" + string(l.Platform) + "\x1f" + l.ActorHandle
}

func unknownLinkKey(l models.EventActorLink) string {
	return "unknown\x1f" + l.UnknownActorID
}

type postKnownActor struct {
	actorID   string
	actorType models.ActorType
	handle    string
	platform  models.Platform
}

// actorsLinkedToPosts implements spec.md §4.F.5 steps 3-4: known-actor and
// unknown-actor edges already materialized against this event's source
// posts.
func actorsLinkedToPosts(ctx context.Context, gw *storage.Gateway, postUUIDs []string) ([]postKnownActor, []string, error) {
	if len(postUUIDs) == 0 {
		return nil, nil, nil
	}

	placeholders, args := inClausePlaceholders(postUUIDs)
	knownRows, err := gw.DB().QueryContext(ctx, fmt.Sprintf(`
		SELECT DISTINCT a.id, a.type, au.username, au.platform
		FROM post_actor_links pal
		JOIN actors a ON a.id = pal.actor_id
		JOIN actor_usernames au ON au.actor_id = a.id
		WHERE pal.post_id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query post actor links: %w", err)
	}
	defer knownRows.Close()

	var known []postKnownActor
	for knownRows.Next() {
		var pk postKnownActor
		var actorType, platform string
		if err := knownRows.Scan(&pk.actorID, &actorType, &pk.handle, &platform); err != nil {
			return nil, nil, err
		}
		pk.actorType = models.ActorType(actorType)
		pk.platform = models.Platform(platform)
		known = append(known, pk)
	}
	if err := knownRows.Err(); err != nil {
		return nil, nil, err
	}

	unknownRows, err := gw.DB().QueryContext(ctx, fmt.Sprintf(`
		SELECT DISTINCT unknown_actor_id FROM post_unknown_actor_links WHERE post_id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query post unknown actor links: %w", err)
	}
	defer unknownRows.Close()

	var unknown []string
	for unknownRows.Next() {
		var id string
		if err := unknownRows.Scan(&id); err != nil {
			return nil, nil, err
		}
		unknown = append(unknown, id)
	}
	return known, unknown, unknownRows.Err()
}

// resolveFreshHandles implements spec.md §4.F.5 step 5: each handle not
// already covered is tried against both instagram and twitter in the known
// directory, falling back to the unknown directory.
func resolveFreshHandles(ctx context.Context, gw *storage.Gateway, handles []string) ([]models.ActorLookupResult, error) {
	results := make([]models.ActorLookupResult, 0, len(handles))
	for _, h := range handles {
		found := false
		for _, platform := range []models.Platform{models.PlatformInstagram, models.PlatformTwitter} {
			lookup, err := lookupActor(ctx, gw, platform, h)
			if err != nil {
				return nil, err
			}
			if lookup.Kind != models.ActorLookupNotFound {
				results = append(results, lookup)
				found = true
				break
			}
		}
		if !found {
			results = append(results, models.ActorLookupResult{Handle: h, Kind: models.ActorLookupNotFound})
		}
	}
	return results, nil
}

// migratePostActorsToEvent implements the actor-migration half of
// link_posts_to_existing_event (spec.md §4.F.2 item 3): fold the given
// posts' already-materialized actor edges onto an existing event, without
// the fresh-handle-mention scan computeUnifiedActorLinks also performs for
// brand-new events.
func migratePostActorsToEvent(ctx context.Context, gw *storage.Gateway, eventID string, postUUIDs []string) (int, error) {
	known, unknown, err := actorsLinkedToPosts(ctx, gw, postUUIDs)
	if err != nil {
		return 0, err
	}

	links := make([]models.EventActorLink, 0, len(known)+len(unknown))
	for _, pk := range known {
		links = append(links, models.NewKnownEventActorLink(eventID, pk.actorID, pk.actorType, pk.handle, pk.platform))
	}
	for _, u := range unknown {
		links = append(links, models.NewUnknownEventActorLink(eventID, u))
	}

	if err := upsertEventActorLinks(ctx, gw, links); err != nil {
		return 0, err
	}
	return len(links), nil
}

func inClausePlaceholders(values []string) (string, []any) {
	ph := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		ph[i] = "?"
		args[i] = v
	}
	return strings.Join(ph, ","), args
}
