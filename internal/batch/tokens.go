// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus
//
// Grounded on estimate_tokens_for_post / estimate_tokens_for_batch /
// count_images_in_post in
// original_source/automation/processors/flash_standalone_event_processor.py.

package batch

import (
	"strings"

	"github.com/civictrace/pipeline/internal/models"
)

// postMetadataBaseTokens accounts for the fixed per-post metadata fields
// (platform, author, timestamp) the extractor prompt always carries.
const postMetadataBaseTokens = 50

// EstimateTokensForPost estimates how many tokens post will cost in an
// extractor prompt, clamped at cfg.AverageTokensPerPost.
func (cfg Config) EstimateTokensForPost(post *models.Post) int {
	tokens := postMetadataBaseTokens
	tokens += len(post.ContentText) / 4
	tokens += len(joinedLen(post.Hashtags)) / 4
	tokens += len(joinedLen(post.MentionedHandles)) / 4
	tokens += len(post.LocationText) / 4

	if tokens > cfg.AverageTokensPerPost {
		return cfg.AverageTokensPerPost
	}
	return tokens
}

// joinedLen renders a string slice the same shape Python's str(list) would
// for token-cost purposes: comma-joined, so the field-overhead estimate
// scales with element count as well as element length.
func joinedLen(values []string) string {
	return strings.Join(values, ", ")
}

// CountImagesInPost reports how many fetched images a post contributes,
// mirroring count_images_in_post: a post contributes exactly one image
// once its media has been resolved to a real public URL, never more.
func CountImagesInPost(post *models.Post) int {
	if post.OfflineMediaURL == nil {
		return 0
	}
	url := *post.OfflineMediaURL
	if strings.HasPrefix(url, "http") {
		return 1
	}
	return 0
}

// EstimateTokensForBatch estimates the total token cost of posts as a
// single batch, including the system prompt and response buffer.
func (cfg Config) EstimateTokensForBatch(posts []*models.Post) int {
	total := cfg.SystemPromptTokens
	for _, p := range posts {
		total += cfg.EstimateTokensForPost(p)
		total += CountImagesInPost(p) * cfg.AverageTokensPerImage
	}
	total += cfg.ResponseTokenBuffer
	return total
}
