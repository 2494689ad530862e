// Civictrace Pipeline - Political Event Intelligence Extraction
// Copyright 2026 Civictrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage is the Storage Gateway: the single point through which
// every other component reaches the relational store and the object store.
// It owns connection pooling, the process-wide DB_RPS limiter, retry/backoff
// classification, chunked batch UPSERT, and paginated reads.
package storage
