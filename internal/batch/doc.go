// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package batch implements the Batch Builder (spec.md §4.D): pure functions
// that group an already-selected, reverse-chronological slice of
// models.Post into extractor-sized batches. None of this package touches
// the database or network; internal/storage.Gateway owns post selection
// and pagination, this package only owns the grouping policy.
//
// Three interchangeable strategies are provided, all grounded on
// original_source/automation/processors/flash_standalone_event_processor.py:
//
//   - TokenOptimized: packs posts greedily until a token or post-count
//     ceiling would be exceeded (create_token_optimized_batches).
//   - DateClustered: same bounds, plus every post in a batch must fall
//     within MaxDateRangeDays of the batch's first post
//     (create_date_clustered_batches).
//   - ChronologicalDayPacked: groups by calendar date first, packs whole
//     days together at a 90%-of-ceiling safety margin, then sub-partitions
//     any day too large to fit as a whole by author at an 80%-of-ceiling
//     margin (_group_related_posts / _split_into_groups, driven through
//     create_chronological_batches).
//
// Token estimation (EstimateTokensForPost, CountImagesInPost) mirrors the
// teacher's estimate_tokens_for_post/count_images_in_post exactly, so that
// batch shapes are comparable across a migration from the original system.
package batch
