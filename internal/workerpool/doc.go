// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package workerpool implements the Worker Pool & Key Manager: N LLM
// extraction workers, each bound to one API key with its own cooldown,
// pulling batches from a shared Watermill/NATS queue (spec.md §4.E).
//
// The pub/sub plumbing (Router, Publisher, Subscriber) is adapted from
// the teacher's internal/eventprocessor package, which wires the same
// Watermill + NATS JetStream stack to fan media-server events out to
// consumers; here it fans batches out to workers instead. Each Worker is
// a suture.Service so a panicking worker is restarted with backoff by
// internal/supervisor's tree instead of taking down the whole pool.
package workerpool
