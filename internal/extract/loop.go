// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on spec.md §9's tool-calling-loop design note and
// flash_standalone_event_processor.py's
// process_batch_with_worker_with_tools: one call with tools, dispatch any
// calls, at most one follow-up call with no tools offered.

package extract

import (
	"context"
	"fmt"

	"github.com/civictrace/pipeline/internal/llm"
	"github.com/civictrace/pipeline/internal/logging"
)

// runToolCallingLoop drives the interaction state machine (spec.md §4.F.3
// steps 2-5) and returns the candidate events decoded from the model's
// final text.
func runToolCallingLoop(ctx context.Context, client llm.Client, runtime *toolRuntime, systemPrompt, userContent string, images []llm.ImagePart) ([]RawEvent, error) {
	log := logging.LoggerFromContext(ctx)
	st := stateInit

	st = stateAwaitingTools
	log.Debug().Str("state", st.String()).Msg("extraction loop")

	resp, err := client.Generate(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserContent:  userContent,
		Images:       images,
		Tools:        toolDeclarations(),
	})
	if err != nil {
		st = stateFailed
		return nil, fmt.Errorf("initial llm call: %w", err)
	}

	finalText := resp.Text
	if len(resp.ToolCalls) > 0 {
		st = stateAwaitingJSON
		log.Debug().Str("state", st.String()).Int("tool_calls", len(resp.ToolCalls)).Msg("extraction loop")

		toolResponses := make([]llm.ToolResult, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			result, dispatchErr := runtime.dispatchTool(ctx, toolCall{Name: tc.Name, Arguments: tc.Arguments})
			if dispatchErr != nil {
				log.Warn().Err(dispatchErr).Str("tool", tc.Name).Msg("tool dispatch failed")
				result = map[string]any{"error": dispatchErr.Error()}
			}
			toolResponses = append(toolResponses, llm.ToolResult{Name: tc.Name, Result: result})
		}

		resp2, err := client.Generate(ctx, llm.Request{
			SystemPrompt:  systemPrompt,
			UserContent:   userContent,
			Images:        images,
			ToolResponses: toolResponses,
		})
		if err != nil {
			st = stateFailed
			return nil, fmt.Errorf("follow-up llm call: %w", err)
		}
		finalText = resp2.Text
	}

	events, err := ExtractJSONEvents(finalText)
	if err != nil {
		st = stateFailed
		log.Warn().Err(err).Str("state", st.String()).Msg("extraction loop failed")
		return nil, err
	}

	st = stateDone
	log.Debug().Str("state", st.String()).Int("candidate_events", len(events)).Msg("extraction loop")
	return events, nil
}
