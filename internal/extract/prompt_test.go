// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/civictrace/pipeline/internal/models"
)

func TestBuildUserContent_ExposesRequiredFields(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	posts := []models.Post{
		{
			ID:               "uuid-1",
			ExternalPostID:   "ext-1",
			Platform:         models.PlatformTwitter,
			AuthorHandle:     "janedoe",
			Timestamp:        &ts,
			LocationText:     "City Hall",
			MentionedHandles: []string{"bob"},
			Hashtags:         []string{"rally"},
			ContentText:      "Join us Saturday",
		},
	}
	out := buildUserContent(posts)
	for _, want := range []string{"uuid-1", "ext-1", "twitter", "janedoe", "2026-03-01", "City Hall", "bob", "rally", "Join us Saturday"} {
		if !strings.Contains(out, want) {
			t.Errorf("buildUserContent output missing %q:\n%s", want, out)
		}
	}
}

func TestToolDeclarations_ExposesThreeTools(t *testing.T) {
	decls := toolDeclarations()
	if len(decls) != 3 {
		t.Fatalf("got %d tool declarations, want 3", len(decls))
	}
	names := map[string]bool{}
	for _, d := range decls {
		names[d.Name] = true
	}
	for _, want := range []string{"search_actors", "search_dynamic_slugs", "link_posts_to_existing_event"} {
		if !names[want] {
			t.Errorf("missing tool declaration %q", want)
		}
	}
}
