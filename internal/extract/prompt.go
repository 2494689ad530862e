// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on original_source/.../flash_standalone_event_processor.py's
// build_system_prompt and serialize_post_for_prompt, rewritten over typed
// models.Post instead of dicts.

package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/civictrace/pipeline/internal/llm"
	"github.com/civictrace/pipeline/internal/models"
)

// systemPrompt is the static rule set shared across every batch (spec.md
// §4.F.1): activity-gate criteria, confidence-score rubric, canvassing
// priority, mandatory tag combinations, dynamic-slug conventions, an
// example schema, and a closing fenced-JSON directive.
const systemPrompt = `You are extracting real-world political events from a batch of social-media posts.

ACTIVITY GATE: only emit an event for posts describing an actual occurrence
with a concrete date and place (a rally, canvass, town hall, hearing,
filing deadline, etc). Do not emit events for opinion, commentary, or
retrospective posts with no new occurrence.

CONFIDENCE RUBRIC: confidence_score in [0,1]. 0.9-1.0: explicit date, time,
and place stated by the author. 0.6-0.89: date or place inferred from
context (e.g. "this Saturday", a known recurring venue). Below 0.4: do not
emit; the activity gate was not met with enough certainty.

CANVASSING PRIORITY: canvassing and door-knocking events take priority over
generic "meeting" categorization when both could apply.

MANDATORY TAGS: every event must carry at least one category_tags entry.
Entries of the form "ParentTag:identifier" (e.g. "Candidate:jane_doe") refer
to a dynamic slug; use search_dynamic_slugs to check for an existing slug
before inventing a new identifier, and prefer the exact normalized form
(lowercase, underscores, no repeated underscores).

You may call search_actors to resolve @handles against known people,
chapters, and organizations, search_dynamic_slugs to look up existing
category tags, or link_posts_to_existing_event when the batch clearly
continues an event already in the database. If you call a tool, you will
be given its result and asked again for final JSON with no further tools
available.

Respond with a single JSON object of the shape:
` + "```json\n" +
	`{"events": [{"source_ids": ["<post uuid>", ...], "event_name": "...",
"event_date": "YYYY-MM-DD", "event_description": "...", "location": "...",
"city": "...", "state": "..", "participants": "...",
"category_tags": ["ParentTag:identifier"], "confidence_score": 0.0,
"instagram_handles": ["..."], "twitter_handles": ["..."], "justification": "..."}]}` +
	"\n```" + `
inside a fenced json code block. Emit an empty "events" array if the batch
contains no qualifying activity.`

// buildUserContent serializes every post in the batch into the per-post
// description the model reads, exposing exactly the fields spec.md §4.F.1
// names (UUID, external post ID, platform, author, timestamp, location,
// mentions, hashtags, content).
func buildUserContent(posts []models.Post) string {
	var b strings.Builder
	b.WriteString("POSTS:\n")
	for _, p := range posts {
		ts := ""
		if p.Timestamp != nil {
			ts = p.Timestamp.UTC().Format("2006-01-02T15:04:05Z")
		}
		fmt.Fprintf(&b, "---\nuuid: %s\nexternal_post_id: %s\nplatform: %s\nauthor: %s\ntimestamp: %s\nlocation: %s\nmentions: %s\nhashtags: %s\ncontent: %s\n",
			p.ID, p.ExternalPostID, p.Platform, p.AuthorHandle, ts, p.LocationText,
			strings.Join(p.MentionedHandles, ", "), strings.Join(p.Hashtags, ", "), p.ContentText)
	}
	return b.String()
}

// buildImages resolves up to one image per post (spec.md §4.F.1). A post
// with no usable offline media URL or a download/decode failure simply
// contributes no image; the batch is never failed for this reason.
func buildImages(ctx context.Context, posts []models.Post) []llm.ImagePart {
	client := newImageHTTPClient()
	images := make([]llm.ImagePart, 0, len(posts))
	for _, p := range posts {
		if p.OfflineMediaURL == nil || !strings.HasPrefix(*p.OfflineMediaURL, "http") {
			continue
		}
		img, err := fetchAndResizeImage(ctx, client, *p.OfflineMediaURL)
		if err != nil {
			continue
		}
		images = append(images, img)
	}
	return images
}

// toolDeclarations is the fixed three-function tool palette (spec.md
// §4.F.2).
func toolDeclarations() []llm.ToolDeclaration {
	return []llm.ToolDeclaration{
		{
			Name:        "search_actors",
			Description: "Bulk-look-up known and unknown actors by (platform, handle) pairs, returning type and biographical snippet.",
			Parameters: map[string]any{
				"actors": "array of {platform, handle}",
			},
		},
		{
			Name:        "search_dynamic_slugs",
			Description: "Search existing category-tag slugs by identifier substring, optionally scoped to a parent tag.",
			Parameters: map[string]any{
				"search_term":       "substring to match against slug identifiers",
				"parent_tag_filter": "optional parent tag to scope the search",
			},
		},
		{
			Name:        "link_posts_to_existing_event",
			Description: "Link this batch's posts to an event that already exists in the database instead of creating a new one.",
			Parameters: map[string]any{
				"event_id": "UUID of the existing event",
				"post_ids": "array of external post IDs from this batch to attach",
				"reason":   "short justification for why this is the same event",
			},
		},
	}
}
