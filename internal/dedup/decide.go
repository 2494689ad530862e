// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package dedup

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	goccyjson "github.com/goccy/go-json"

	"github.com/civictrace/pipeline/internal/llm"
	"github.com/civictrace/pipeline/internal/models"
)

var fencedJSONBlock = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// extractDecisionJSON mirrors internal/extract's fenced-block-then-braces
// fallback (spec.md §4.F.3 step 5's decoding discipline, reused here since
// deduplicate_events_with_gemini.py applies the identical fallback).
func extractDecisionJSON(text string) (string, error) {
	if m := fencedJSONBlock.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1], nil
	}
	return "", fmt.Errorf("no decodable JSON object in model response")
}

// analyzeGroup asks the model to partition one DuplicateGroup, then keeps
// only high/medium-confidence merge decisions (spec.md §4.G steps 2-3).
func analyzeGroup(ctx context.Context, client llm.Client, group models.DuplicateGroup, events map[string]models.Event) ([]MergeDecision, error) {
	if len(group.EventIDs) < 2 || len(events) < 2 {
		return nil, nil
	}

	resp, err := client.Generate(ctx, llm.Request{UserContent: buildPrompt(group, events)})
	if err != nil {
		return nil, fmt.Errorf("analyze group %s: %w", group.GroupID, err)
	}

	raw, err := extractDecisionJSON(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("analyze group %s: %w", group.GroupID, err)
	}

	var envelope decisionEnvelope
	if err := goccyjson.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("analyze group %s: decode: %w", group.GroupID, err)
	}

	accepted := make([]MergeDecision, 0, len(envelope.MergeGroups))
	for _, d := range envelope.MergeGroups {
		if d.MasterEventID == "" || len(d.DuplicateEventIDs) == 0 {
			continue
		}
		if !acceptedConfidence(d.Confidence) {
			continue
		}
		accepted = append(accepted, d)
	}
	return accepted, nil
}
