// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package ingest implements the Ingestion Normalizer (spec.md §4.B): it
// reads raw CSV/JSON scraper output from the object store, normalizes it
// into canonical internal/models.Post rows, discovers unknown actors, links
// posts to known and unknown actors, and archives processed files.
//
// # Pipeline
//
//	DecodeTwitterCSV / DecodeInstagramJSON  -- raw wire records
//	NormalizeTwitterRecord / NormalizeInstagramRecord -- canonical Posts
//	Deduplicator.FilterNew                  -- drop already-seen posts
//	ActorDiscovery.Observe / Flush          -- unknown-actor aggregation
//	Importer.Run                            -- ties it all together
//
// # Resumability
//
// BadgerProgress records which source files have already been fully
// processed (normalized, persisted, and archived), so a crashed or canceled
// run can restart without re-reading already-archived objects. InMemoryProgress
// serves the same interface for tests and one-off migration runs.
//
// # Duplicate Detection
//
// Deduplicator consults an in-memory internal/cache.ExactLRU session cache
// before falling back to a chunked (≤50 IDs per call) existence query
// against the Storage Gateway, mirroring the teacher's check_duplicates_batch
// shape from the original Python processor.
package ingest
