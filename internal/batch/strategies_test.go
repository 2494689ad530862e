// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package batch

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/civictrace/pipeline/internal/models"
)

func mkPost(id, author string, ts time.Time, contentLen int) *models.Post {
	return &models.Post{
		ID:             id,
		ExternalPostID: id,
		AuthorHandle:   author,
		ContentText:    strings.Repeat("a", contentLen),
		Timestamp:      &ts,
	}
}

func totalPosts(batches []Batch) int {
	n := 0
	for _, b := range batches {
		n += len(b.Posts)
	}
	return n
}

func TestBuildBatches_TokenOptimized_RespectsPostCeiling(t *testing.T) {
	cfg := NewConfig(StrategyTokenOptimized)
	cfg.MaxPostsPerBatch = 3

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var posts []*models.Post
	for i := 0; i < 10; i++ {
		posts = append(posts, mkPost(fmt.Sprintf("p%d", i), "author", base.Add(time.Duration(i)*time.Hour), 20))
	}

	batches := BuildBatches(cfg, posts)
	if totalPosts(batches) != len(posts) {
		t.Fatalf("totalPosts = %d, want %d (no posts dropped)", totalPosts(batches), len(posts))
	}
	for i, b := range batches {
		if len(b.Posts) > cfg.MaxPostsPerBatch {
			t.Errorf("batch %d has %d posts, want <= %d", i, len(b.Posts), cfg.MaxPostsPerBatch)
		}
	}
	if len(batches) != 4 {
		t.Errorf("len(batches) = %d, want 4 (10 posts / 3 per batch)", len(batches))
	}
}

func TestBuildBatches_TokenOptimized_RespectsTokenCeiling(t *testing.T) {
	cfg := NewConfig(StrategyTokenOptimized)
	cfg.MaxTokensPerBatch = cfg.SystemPromptTokens + 2*cfg.AverageTokensPerPost + 1

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var posts []*models.Post
	for i := 0; i < 5; i++ {
		posts = append(posts, mkPost(fmt.Sprintf("p%d", i), "author", base.Add(time.Duration(i)*time.Hour), 100000))
	}

	batches := BuildBatches(cfg, posts)
	for i, b := range batches {
		if b.EstimatedTokens-cfg.ResponseTokenBuffer > cfg.MaxTokensPerBatch {
			t.Errorf("batch %d estimated at %d tokens, want <= %d", i, b.EstimatedTokens-cfg.ResponseTokenBuffer, cfg.MaxTokensPerBatch)
		}
	}
	if len(batches) < 3 {
		t.Errorf("len(batches) = %d, want at least 3 given the tight token ceiling", len(batches))
	}
}

func TestBuildBatches_TokenOptimized_SinglePostAlwaysFormsABatch(t *testing.T) {
	cfg := NewConfig(StrategyTokenOptimized)
	cfg.MaxTokensPerBatch = 1 // smaller than any single post could need

	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := []*models.Post{mkPost("p0", "author", ts, 50)}

	batches := BuildBatches(cfg, posts)
	if len(batches) != 1 || len(batches[0].Posts) != 1 {
		t.Fatalf("an oversized single post must still form its own batch, got %+v", batches)
	}
}

func TestBuildBatches_DropsPostsWithoutUsableTimestamp(t *testing.T) {
	cfg := NewConfig(StrategyTokenOptimized)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := []*models.Post{
		mkPost("p0", "author", ts, 10),
		{ID: "p1", Timestamp: nil},
	}

	batches := BuildBatches(cfg, posts)
	if totalPosts(batches) != 1 {
		t.Errorf("totalPosts = %d, want 1 (the timestampless post is never batched)", totalPosts(batches))
	}
}

func TestBuildBatches_EmptyInput(t *testing.T) {
	cfg := NewConfig(StrategyTokenOptimized)
	batches := BuildBatches(cfg, nil)
	if len(batches) != 0 {
		t.Errorf("len(batches) = %d, want 0", len(batches))
	}
}

func TestBuildBatches_DateClustered_SplitsOutOfRangePosts(t *testing.T) {
	cfg := NewConfig(StrategyDateClustered)
	cfg.MaxDateRangeDays = 5

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := []*models.Post{
		mkPost("p0", "a", base, 10),
		mkPost("p1", "a", base.AddDate(0, 0, 2), 10),
		mkPost("p2", "a", base.AddDate(0, 0, 20), 10), // far outside the 5-day window
	}
	// BuildBatches sorts recent-first by default; disable that so insertion
	// order (and therefore the date-range math) is easy to reason about.
	cfg.PrioritizeRecentPosts = false

	batches := BuildBatches(cfg, posts)
	if totalPosts(batches) != 3 {
		t.Fatalf("totalPosts = %d, want 3", totalPosts(batches))
	}
	if len(batches) < 2 {
		t.Fatalf("len(batches) = %d, want >= 2 (the far post must split into its own batch)", len(batches))
	}
	last := batches[len(batches)-1]
	if len(last.Posts) != 1 || last.Posts[0].ID != "p2" {
		t.Errorf("expected the out-of-range post to start a new batch alone, got %+v", last.Posts)
	}
}

func TestBuildBatches_DateClustered_DisabledBehavesLikeTokenOptimized(t *testing.T) {
	cfg := NewConfig(StrategyDateClustered)
	cfg.DateClusteringEnabled = false
	cfg.PrioritizeRecentPosts = false

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := []*models.Post{
		mkPost("p0", "a", base, 10),
		mkPost("p1", "a", base.AddDate(0, 0, 200), 10),
	}

	batches := BuildBatches(cfg, posts)
	if len(batches) != 1 {
		t.Errorf("len(batches) = %d, want 1 when date clustering is disabled regardless of date spread", len(batches))
	}
}

func TestBuildBatches_ChronologicalDayPacked_KeepsDaysTogetherWhenSmall(t *testing.T) {
	cfg := NewConfig(StrategyChronologicalPacked)

	day1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	posts := []*models.Post{
		mkPost("a0", "alice", day1, 10),
		mkPost("a1", "bob", day1.Add(time.Hour), 10),
		mkPost("b0", "alice", day2, 10),
	}

	batches := BuildBatches(cfg, posts)
	if totalPosts(batches) != 3 {
		t.Fatalf("totalPosts = %d, want 3", totalPosts(batches))
	}
	if len(batches) != 1 {
		t.Errorf("len(batches) = %d, want 1 (small days comfortably fit one batch)", len(batches))
	}
}

func TestBuildBatches_ChronologicalDayPacked_SubPartitionsOversizedDayByAuthor(t *testing.T) {
	cfg := NewConfig(StrategyChronologicalPacked)
	cfg.SystemPromptTokens = 100
	cfg.MaxTokensPerBatch = 1000
	cfg.PrioritizeRecentPosts = false

	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var posts []*models.Post
	for i := 0; i < 6; i++ {
		author := fmt.Sprintf("author%d", i%2)
		posts = append(posts, mkPost(fmt.Sprintf("p%d", i), author, day.Add(time.Duration(i)*time.Minute), 100000))
	}

	batches := BuildBatches(cfg, posts)
	if totalPosts(batches) != len(posts) {
		t.Fatalf("totalPosts = %d, want %d (oversized day must still be fully covered)", totalPosts(batches), len(posts))
	}
	if len(batches) < 2 {
		t.Errorf("len(batches) = %d, want >= 2 given a day too large to fit as one batch", len(batches))
	}
}

func TestBuildBatches_ChronologicalDayPacked_EmptyInput(t *testing.T) {
	cfg := NewConfig(StrategyChronologicalPacked)
	batches := BuildBatches(cfg, nil)
	if len(batches) != 0 {
		t.Errorf("len(batches) = %d, want 0", len(batches))
	}
}
