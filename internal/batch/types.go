// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package batch

import (
	"github.com/civictrace/pipeline/internal/metrics"
	"github.com/civictrace/pipeline/internal/models"
)

// Batch is one ordered group of posts handed to the extractor (spec.md
// §4.D). The builder never mutates the posts it groups.
type Batch struct {
	Posts []*models.Post

	// EstimatedTokens is the batch's token cost at the time it was built,
	// per Config.EstimateTokensForBatch.
	EstimatedTokens int
}

// BuildBatches groups posts into batches per cfg.Strategy. posts should
// already be the Batch Builder's selection-query result (unprocessed,
// ordered by timestamp); BuildBatches re-sorts them according to
// cfg.PrioritizeRecentPosts before applying the strategy.
func BuildBatches(cfg Config, posts []*models.Post) []Batch {
	cfg = cfg.WithDefaults()

	usable := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if p.HasUsableTimestamp() {
			usable = append(usable, p)
		}
	}
	sorted := sortByTimestamp(usable, cfg.PrioritizeRecentPosts)

	var batches []Batch
	switch cfg.Strategy {
	case StrategyDateClustered:
		batches = dateClusteredBatches(cfg, sorted)
	case StrategyChronologicalPacked:
		batches = chronologicalDayPackedBatches(cfg, sorted)
	default:
		batches = tokenOptimizedBatches(cfg, sorted)
	}

	for _, b := range batches {
		metrics.RecordBatchBuilt(string(cfg.Strategy), len(b.Posts), b.EstimatedTokens)
	}
	return batches
}
