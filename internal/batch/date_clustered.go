// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus
//
// Grounded on create_date_clustered_batches in
// original_source/automation/processors/flash_standalone_event_processor.py.

package batch

import (
	"math"

	"github.com/civictrace/pipeline/internal/models"
)

// dateClusteredBatches applies the same token/post bounds as
// tokenOptimizedBatches, plus a requirement that every post in a batch
// falls within cfg.MaxDateRangeDays of the batch's first post (only
// enforced when cfg.DateClusteringEnabled).
func dateClusteredBatches(cfg Config, posts []*models.Post) []Batch {
	var batches []Batch

	i := 0
	for i < len(posts) {
		var current []*models.Post
		currentTokens := cfg.SystemPromptTokens
		batchStart := posts[i].Timestamp

		j := i
		for j < len(posts) {
			post := posts[j]

			dateDiffDays := math.Abs(post.Timestamp.Sub(*batchStart).Hours() / 24)
			if cfg.DateClusteringEnabled && dateDiffDays > float64(cfg.MaxDateRangeDays) {
				break
			}

			postTokens := cfg.EstimateTokensForPost(post)
			imageTokens := CountImagesInPost(post) * cfg.AverageTokensPerImage
			wouldBeTokens := currentTokens + postTokens + imageTokens

			wouldExceedTokens := wouldBeTokens > cfg.MaxTokensPerBatch
			wouldExceedPosts := len(current) >= cfg.MaxPostsPerBatch

			if len(current) > 0 && (wouldExceedTokens || wouldExceedPosts) {
				break
			}

			current = append(current, post)
			currentTokens += postTokens + imageTokens
			j++
		}

		if len(current) > 0 {
			batches = append(batches, Batch{
				Posts:           current,
				EstimatedTokens: currentTokens + cfg.ResponseTokenBuffer,
			})
		}

		if j > i {
			i = j
		} else {
			i++
		}
	}

	return batches
}
