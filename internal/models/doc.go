// Civictrace Pipeline - Political Event Intelligence Extraction
// Copyright 2026 Civictrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models holds the relational entities shared across every pipeline
// stage: posts, actors, unknown actors, events and their links, dynamic
// slugs, location coordinates, duplicate groups and pipeline runs.
package models
