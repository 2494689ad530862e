// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package orchestrator implements the Pipeline Orchestrator (spec.md
// §4.H), grounded on
// original_source/automation/worker/pipeline_worker.py: poll for queued or
// running PipelineRun rows, execute the fixed stage sequence as isolated
// child processes, and record per-step durable state so a crashed run
// resumes without repeating completed steps.
package orchestrator
