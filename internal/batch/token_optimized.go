// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus
//
// Grounded on create_token_optimized_batches in
// original_source/automation/processors/flash_standalone_event_processor.py.

package batch

import "github.com/civictrace/pipeline/internal/models"

// tokenOptimizedBatches packs posts greedily in input order, starting a new
// batch whenever adding the next post would exceed cfg.MaxTokensPerBatch or
// cfg.MaxPostsPerBatch. No date-range constraint is applied.
func tokenOptimizedBatches(cfg Config, posts []*models.Post) []Batch {
	var batches []Batch
	var current []*models.Post
	currentTokens := cfg.SystemPromptTokens

	flush := func() {
		if len(current) == 0 {
			return
		}
		batches = append(batches, Batch{
			Posts:           current,
			EstimatedTokens: currentTokens + cfg.ResponseTokenBuffer,
		})
		current = nil
		currentTokens = cfg.SystemPromptTokens
	}

	for _, post := range posts {
		postTokens := cfg.EstimateTokensForPost(post)
		imageTokens := CountImagesInPost(post) * cfg.AverageTokensPerImage
		wouldBeTokens := currentTokens + postTokens + imageTokens

		wouldExceedTokens := wouldBeTokens > cfg.MaxTokensPerBatch
		wouldExceedPosts := len(current) >= cfg.MaxPostsPerBatch

		if len(current) > 0 && (wouldExceedTokens || wouldExceedPosts) {
			flush()
		}

		current = append(current, post)
		currentTokens += postTokens + imageTokens
	}
	flush()

	return batches
}
