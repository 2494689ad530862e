// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package llm wraps the Gemini client (google.golang.org/genai) behind a
// small interface tailored to the Extraction Engine's two-step tool-calling
// exchange (spec.md §4.F.3): one call with a tool palette attached, and at
// most one follow-up call with the tool responses appended and no tools
// offered, so the model is forced to answer in plain JSON text.
//
// Transient failures (anything that is not a permanent 4xx-style rejection)
// are retried with exponential back-off inside Client.Generate, following
// the teacher's own retry discipline in storage.Gateway.WithRetry but
// against MAX_RETRIES/backoff constants sized for LLM round trips rather
// than database calls.
package llm
