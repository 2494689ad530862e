// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package batch

import (
	"strings"
	"testing"

	"github.com/civictrace/pipeline/internal/models"
)

func TestEstimateTokensForPost(t *testing.T) {
	cfg := NewConfig(StrategyTokenOptimized)

	t.Run("scales with content length", func(t *testing.T) {
		short := &models.Post{ContentText: "hello"}
		long := &models.Post{ContentText: strings.Repeat("x", 400)}

		shortTokens := cfg.EstimateTokensForPost(short)
		longTokens := cfg.EstimateTokensForPost(long)
		if longTokens <= shortTokens {
			t.Errorf("expected longer content to cost more tokens: short=%d long=%d", shortTokens, longTokens)
		}
	})

	t.Run("clamps at AverageTokensPerPost", func(t *testing.T) {
		post := &models.Post{ContentText: strings.Repeat("x", 100000)}
		got := cfg.EstimateTokensForPost(post)
		if got != cfg.AverageTokensPerPost {
			t.Errorf("EstimateTokensForPost() = %d, want clamp at %d", got, cfg.AverageTokensPerPost)
		}
	})

	t.Run("includes hashtags and mentions overhead", func(t *testing.T) {
		bare := &models.Post{ContentText: "hi"}
		decorated := &models.Post{
			ContentText:      "hi",
			Hashtags:         []string{"rally", "election2026", "turnout"},
			MentionedHandles: []string{"someone", "another"},
			LocationText:     "Sacramento, CA",
		}
		if cfg.EstimateTokensForPost(decorated) <= cfg.EstimateTokensForPost(bare) {
			t.Error("expected hashtags/mentions/location to add token cost")
		}
	})
}

func TestCountImagesInPost(t *testing.T) {
	httpURL := "https://media.example.org/bucket/photo.jpg"
	expired := models.MediaExpired

	tests := []struct {
		name string
		post *models.Post
		want int
	}{
		{"nil offline url", &models.Post{}, 0},
		{"real public url", &models.Post{OfflineMediaURL: &httpURL}, 1},
		{"terminal sentinel", &models.Post{OfflineMediaURL: &expired}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountImagesInPost(tt.post); got != tt.want {
				t.Errorf("CountImagesInPost() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEstimateTokensForBatch(t *testing.T) {
	cfg := NewConfig(StrategyTokenOptimized)
	posts := []*models.Post{
		{ContentText: "first post"},
		{ContentText: "second post"},
	}

	got := cfg.EstimateTokensForBatch(posts)
	want := cfg.SystemPromptTokens + cfg.EstimateTokensForPost(posts[0]) + cfg.EstimateTokensForPost(posts[1]) + cfg.ResponseTokenBuffer
	if got != want {
		t.Errorf("EstimateTokensForBatch() = %d, want %d", got, want)
	}
}
