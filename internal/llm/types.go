// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package llm

// ToolDeclaration describes one function the model may call
// (spec.md §4.F.2), in a transport-neutral shape the caller converts to the
// underlying SDK's function-declaration type.
type ToolDeclaration struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON-schema-shaped parameter description
}

// ImagePart is at most one downloaded, resized image attached to a post
// (spec.md §4.F.1: JPEG-normalized, <=1024x1024, 85% quality).
type ImagePart struct {
	MIMEType string
	Data     []byte
}

// Request is one turn of the tool-calling exchange.
type Request struct {
	SystemPrompt string
	UserContent  string
	Images       []ImagePart

	// Tools is non-empty only on the first turn; a second turn that
	// supplies ToolResponses must leave Tools empty so the model is forced
	// to answer in text (spec.md §4.F.3 step 4).
	Tools []ToolDeclaration

	// ToolResponses carries this turn's tool call results keyed by the
	// call's Name, appended to the conversation from the prior turn.
	ToolResponses []ToolResult
}

// ToolCall is one function invocation the model requested.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// ToolResult is the caller's answer to one ToolCall, round-tripped back to
// the model on the next turn.
type ToolResult struct {
	Name   string
	Result map[string]any
}

// Response is what one turn of Client.Generate returned.
type Response struct {
	// ToolCalls is non-empty when the model chose to call one or more
	// tools instead of answering in text.
	ToolCalls []ToolCall

	// Text is the model's plain-text answer, expected to hold a JSON
	// payload once no tools are offered.
	Text string
}
