// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extract implements the Extraction Engine (spec.md §4.F): a
// bounded, two-round tool-calling exchange with an LLM that turns one batch
// of posts into zero or more structured Event rows.
//
// The interaction is modeled as the explicit state machine spec.md §9
// mandates rather than an open-ended chain: {init, awaitingTools,
// awaitingJSON, done, failed}, driven by loop.go. Exactly one tool round
// trip is permitted; a second call never offers tools, forcing the model to
// answer in JSON.
//
// Engine implements workerpool.Extractor so one Engine, bound to an
// internal/llm.Client and a storage.Gateway, is handed to every worker in
// the pool.
package extract
