// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"testing"
	"time"

	"github.com/civictrace/pipeline/internal/models"
)

func newTestKnownIndex(entries map[string]knownActor) *KnownActorIndex {
	return &KnownActorIndex{byHandle: entries}
}

func TestKnownActorIndexLookup(t *testing.T) {
	idx := newTestKnownIndex(map[string]knownActor{
		"twitter\x1fjanedoe": {actorID: "actor-1", actorType: models.ActorTypePerson},
	})

	t.Run("hit", func(t *testing.T) {
		id, typ, ok := idx.Lookup(models.PlatformTwitter, "janedoe")
		if !ok || id != "actor-1" || typ != models.ActorTypePerson {
			t.Errorf("Lookup = (%q, %q, %v), want (actor-1, person, true)", id, typ, ok)
		}
	})

	t.Run("miss", func(t *testing.T) {
		if _, _, ok := idx.Lookup(models.PlatformTwitter, "someoneelse"); ok {
			t.Error("expected miss")
		}
	})
}

func TestActorDiscoveryObserve_KnownAuthorAndMention(t *testing.T) {
	idx := newTestKnownIndex(map[string]knownActor{
		"twitter\x1fauthorhandle":  {actorID: "actor-author", actorType: models.ActorTypePerson},
		"twitter\x1fmentionedguy": {actorID: "actor-mentioned", actorType: models.ActorTypePerson},
	})
	d := NewActorDiscovery(idx)

	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	post := &models.Post{
		ID:               "post-1",
		Platform:         models.PlatformTwitter,
		AuthorHandle:     "authorhandle",
		MentionedHandles: []string{"mentionedguy"},
		ContentText:      "hello world",
		Timestamp:        &ts,
	}
	d.Observe(post)

	links := d.KnownLinks()
	if len(links) != 2 {
		t.Fatalf("got %d known links, want 2", len(links))
	}

	var sawAuthor, sawMentioned bool
	for _, l := range links {
		if l.PostID != "post-1" {
			t.Errorf("unexpected post id %q", l.PostID)
		}
		switch {
		case l.ActorID == "actor-author" && l.Relationship == models.PostActorAuthor:
			sawAuthor = true
		case l.ActorID == "actor-mentioned" && l.Relationship == models.PostActorMentioned:
			sawMentioned = true
		}
	}
	if !sawAuthor || !sawMentioned {
		t.Errorf("missing expected links: sawAuthor=%v sawMentioned=%v (links=%+v)", sawAuthor, sawMentioned, links)
	}
}

func TestActorDiscoveryObserve_KnownHashtagTagsActor(t *testing.T) {
	idx := newTestKnownIndex(map[string]knownActor{
		"twitter\x1flocalchapter": {actorID: "actor-chapter", actorType: models.ActorTypeChapter},
	})
	d := NewActorDiscovery(idx)

	post := &models.Post{
		ID:           "post-2",
		Platform:     models.PlatformTwitter,
		AuthorHandle: "someoneunknown",
		Hashtags:     []string{"#LocalChapter"},
		ContentText:  "big rally",
	}
	d.Observe(post)

	links := d.KnownLinks()
	found := false
	for _, l := range links {
		if l.ActorID == "actor-chapter" && l.Relationship == models.PostActorTagged {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a tagged link for the chapter hashtag, got %+v", links)
	}
}

func TestActorDiscoveryObserve_UnknownHandleAggregation(t *testing.T) {
	idx := newTestKnownIndex(map[string]knownActor{})
	d := NewActorDiscovery(idx)

	earlier := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	d.Observe(&models.Post{
		ID:           "post-a",
		Platform:     models.PlatformTwitter,
		AuthorHandle: "newperson",
		ContentText:  "first post content",
		Timestamp:    &later,
	})
	d.Observe(&models.Post{
		ID:               "post-b",
		Platform:         models.PlatformTwitter,
		MentionedHandles: []string{"newperson"},
		ContentText:      "second post mentions them",
		Timestamp:        &earlier,
	})

	agg, ok := d.unknown["twitter\x1fnewperson"]
	if !ok {
		t.Fatal("expected an aggregate for twitter\x1fnewperson")
	}
	if agg.mentionCount != 2 {
		t.Errorf("mention_count = %d, want 2", agg.mentionCount)
	}
	if agg.authorCount != 1 {
		t.Errorf("author_count = %d, want 1 (only one post authored by this handle)", agg.authorCount)
	}
	if !agg.firstSeen.Equal(earlier) {
		t.Errorf("first_seen = %v, want %v (the earlier timestamp)", agg.firstSeen, earlier)
	}
	if !agg.lastSeen.Equal(later) {
		t.Errorf("last_seen = %v, want %v (the later timestamp)", agg.lastSeen, later)
	}
	if agg.mentionContext != "first post content" {
		t.Errorf("mention_context = %q, want the first non-empty snippet", agg.mentionContext)
	}
	if len(agg.edges) != 2 {
		t.Errorf("got %d pending edges, want 2", len(agg.edges))
	}
}

func TestActorDiscoveryObserve_NoAuthorHandleSkipped(t *testing.T) {
	idx := newTestKnownIndex(map[string]knownActor{})
	d := NewActorDiscovery(idx)

	d.Observe(&models.Post{ID: "post-c", Platform: models.PlatformTwitter, ContentText: "no author set"})

	if len(d.unknown) != 0 {
		t.Errorf("expected no unknown aggregates when AuthorHandle is empty, got %v", d.unknown)
	}
	if len(d.KnownLinks()) != 0 {
		t.Errorf("expected no known links, got %v", d.KnownLinks())
	}
}
