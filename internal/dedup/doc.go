// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package dedup implements the Deduplicator (spec.md §4.G), grounded on
// automation/scripts/deduplicate_events_with_gemini.py's
// GroupBasedDeduplicator: process pre-computed DuplicateGroup rows, ask the
// LLM to partition each group into merge_groups and keep_separate sets, and
// apply only high/medium-confidence merges inside a single transaction per
// pair via storage.Gateway.WithTx.
package dedup
