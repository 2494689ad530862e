// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus
//
// Grounded on _group_related_posts, _split_into_groups, and
// create_chronological_batches in
// original_source/automation/processors/flash_standalone_event_processor.py.

package batch

import "github.com/civictrace/pipeline/internal/models"

// chronologicalDayPackedBatches groups posts by calendar date, keeps whole
// days together while a 90%-of-ceiling safety margin allows it, and only
// then repacks the resulting day-sized (or author-sub-partitioned) groups
// into final batches against the full token ceiling.
func chronologicalDayPackedBatches(cfg Config, posts []*models.Post) []Batch {
	groups := groupRelatedPosts(cfg, posts)
	return packGroupsIntoBatches(cfg, groups)
}

// groupRelatedPosts buckets posts into calendar-day groups, preserving the
// order the days first appear in (the caller has already sorted posts by
// recency). A day whose combined token cost would push the running group
// past dayFitSafetyMargin of MaxTokensPerBatch closes the current group and
// starts a fresh one; a single day too large to ever fit whole is
// sub-partitioned by author via splitIntoGroups.
func groupRelatedPosts(cfg Config, posts []*models.Post) [][]*models.Post {
	var dateOrder []string
	byDate := make(map[string][]*models.Post)
	for _, post := range posts {
		key := post.Timestamp.UTC().Format("2006-01-02")
		if _, seen := byDate[key]; !seen {
			dateOrder = append(dateOrder, key)
		}
		byDate[key] = append(byDate[key], post)
	}

	var groups [][]*models.Post
	var currentBatch []*models.Post
	currentTokens := cfg.SystemPromptTokens
	dayCeiling := int(float64(cfg.MaxTokensPerBatch) * dayFitSafetyMargin)

	for _, date := range dateOrder {
		dayPosts := byDate[date]
		dayTokens := 0
		for _, post := range dayPosts {
			dayTokens += cfg.EstimateTokensForPost(post)
			dayTokens += CountImagesInPost(post) * cfg.AverageTokensPerImage
		}

		if len(currentBatch) > 0 && currentTokens+dayTokens > dayCeiling {
			groups = append(groups, splitIntoGroups(cfg, currentBatch)...)
			currentBatch = nil
			currentTokens = cfg.SystemPromptTokens
		}

		currentBatch = append(currentBatch, dayPosts...)
		currentTokens += dayTokens
	}

	if len(currentBatch) > 0 {
		groups = append(groups, splitIntoGroups(cfg, currentBatch)...)
	}

	return groups
}

// splitIntoGroups partitions posts by author, keeping each author's posts
// contiguous, and closes a group whenever the next post would push it past
// authorSplitSafetyMargin of MaxTokensPerBatch.
func splitIntoGroups(cfg Config, posts []*models.Post) [][]*models.Post {
	var authorOrder []string
	byAuthor := make(map[string][]*models.Post)
	for _, post := range posts {
		author := post.AuthorHandle
		if author == "" {
			author = "unknown"
		}
		if _, seen := byAuthor[author]; !seen {
			authorOrder = append(authorOrder, author)
		}
		byAuthor[author] = append(byAuthor[author], post)
	}

	authorCeiling := int(float64(cfg.MaxTokensPerBatch) * authorSplitSafetyMargin)

	var groups [][]*models.Post
	var current []*models.Post
	currentTokens := 0

	for _, author := range authorOrder {
		for _, post := range byAuthor[author] {
			postTokens := cfg.EstimateTokensForPost(post)
			postTokens += CountImagesInPost(post) * cfg.AverageTokensPerImage

			if len(current) > 0 && currentTokens+postTokens > authorCeiling {
				groups = append(groups, current)
				current = nil
				currentTokens = 0
			}

			current = append(current, post)
			currentTokens += postTokens
		}
	}

	if len(current) > 0 {
		groups = append(groups, current)
	}

	return groups
}

// packGroupsIntoBatches merges consecutive groups into a batch as long as
// doing so stays within the full MaxTokensPerBatch ceiling, starting a new
// batch only when a whole group would not fit.
func packGroupsIntoBatches(cfg Config, groups [][]*models.Post) []Batch {
	var batches []Batch
	var current []*models.Post
	currentTokens := cfg.SystemPromptTokens

	for _, group := range groups {
		groupTokens := 0
		for _, post := range group {
			groupTokens += cfg.EstimateTokensForPost(post)
			groupTokens += CountImagesInPost(post) * cfg.AverageTokensPerImage
		}

		if len(current) > 0 && currentTokens+groupTokens > cfg.MaxTokensPerBatch {
			batches = append(batches, Batch{
				Posts:           current,
				EstimatedTokens: currentTokens + cfg.ResponseTokenBuffer,
			})
			current = nil
			currentTokens = cfg.SystemPromptTokens
		}

		current = append(current, group...)
		currentTokens += groupTokens
	}

	if len(current) > 0 {
		batches = append(batches, Batch{
			Posts:           current,
			EstimatedTokens: currentTokens + cfg.ResponseTokenBuffer,
		})
	}

	return batches
}
