// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"
	"testing"

	"github.com/civictrace/pipeline/internal/models"
)

func TestDedupKey(t *testing.T) {
	got := dedupKey(models.PlatformTwitter, "123")
	want := "twitter\x1f123"
	if got != want {
		t.Errorf("dedupKey = %q, want %q", got, want)
	}
}

// TestFilterNew_SessionCacheShortCircuit exercises FilterNew entirely through
// the in-memory session cache, never touching the database: once a post has
// been recorded as inserted, a later FilterNew call on the identical
// (platform, external_post_id) must mark it as a duplicate without needing a
// live Storage Gateway.
func TestFilterNew_SessionCacheShortCircuit(t *testing.T) {
	d := NewDeduplicator(nil)

	p := &models.Post{Platform: models.PlatformTwitter, ExternalPostID: "abc"}
	d.RecordInserted([]*models.Post{p})

	fresh, duplicates, err := d.FilterNew(context.Background(), []*models.Post{p})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fresh) != 0 {
		t.Errorf("got %d fresh posts, want 0", len(fresh))
	}
	if len(duplicates) != 1 {
		t.Fatalf("got %d duplicates, want 1", len(duplicates))
	}
	if duplicates[0] != p {
		t.Error("expected duplicate to be the same post pointer")
	}
}

func TestFilterNew_EmptyInput(t *testing.T) {
	d := NewDeduplicator(nil)
	fresh, duplicates, err := d.FilterNew(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh != nil || duplicates != nil {
		t.Errorf("got fresh=%v duplicates=%v, want nil, nil", fresh, duplicates)
	}
}
