// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/civictrace/pipeline/internal/llm"
)

// fakeLLMClient scripts a sequence of Responses, one per Generate call, so
// the tool-calling loop's state transitions can be exercised without a live
// API key.
type fakeLLMClient struct {
	responses []*llm.Response
	errs      []error
	calls     []llm.Request
}

func (f *fakeLLMClient) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, req)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return &llm.Response{}, nil
}

func TestRunToolCallingLoop_NoToolCallsGoesStraightToJSON(t *testing.T) {
	client := &fakeLLMClient{
		responses: []*llm.Response{
			{Text: "```json\n{\"events\":[{\"event_name\":\"Rally\",\"source_ids\":[\"p1\"],\"event_description\":\"d\",\"category_tags\":[\"X:y\"],\"confidence_score\":0.7}]}\n```"},
		},
	}
	events, err := runToolCallingLoop(context.Background(), client, &toolRuntime{}, systemPrompt, "posts...", nil)
	if err != nil {
		t.Fatalf("runToolCallingLoop: %v", err)
	}
	if len(client.calls) != 1 {
		t.Fatalf("got %d llm calls, want exactly 1 (no tool calls requested)", len(client.calls))
	}
	if len(events) != 1 || events[0].EventName != "Rally" {
		t.Fatalf("got %+v", events)
	}
}

func TestRunToolCallingLoop_ToolCallTriggersFollowUpWithNoTools(t *testing.T) {
	// "unexpected_tool" dispatches to the default branch of
	// toolRuntime.dispatchTool, which returns an error without touching
	// storage — enough to exercise the tool-call-then-JSON-only-followup
	// transition without a live database.
	client := &fakeLLMClient{
		responses: []*llm.Response{
			{ToolCalls: []llm.ToolCall{{Name: "unexpected_tool", Arguments: nil}}},
			{Text: "{\"events\":[]}"},
		},
	}
	events, err := runToolCallingLoop(context.Background(), client, &toolRuntime{}, systemPrompt, "posts...", nil)
	if err != nil {
		t.Fatalf("runToolCallingLoop: %v", err)
	}
	if len(client.calls) != 2 {
		t.Fatalf("got %d llm calls, want 2 (one tool round trip)", len(client.calls))
	}
	if len(client.calls[1].Tools) != 0 {
		t.Error("follow-up call must offer no tools, forcing a JSON answer")
	}
	if len(events) != 0 {
		t.Fatalf("got %+v, want no events", events)
	}
}

func TestRunToolCallingLoop_InitialCallErrorIsTerminal(t *testing.T) {
	client := &fakeLLMClient{errs: []error{errors.New("boom")}}
	if _, err := runToolCallingLoop(context.Background(), client, &toolRuntime{}, systemPrompt, "posts...", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunToolCallingLoop_UndecodableFinalTextFails(t *testing.T) {
	client := &fakeLLMClient{responses: []*llm.Response{{Text: "not json at all"}}}
	if _, err := runToolCallingLoop(context.Background(), client, &toolRuntime{}, systemPrompt, "posts...", nil); err == nil {
		t.Fatal("expected error")
	}
}
