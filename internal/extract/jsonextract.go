// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on spec.md §9's "Dynamic JSON from the LLM" design note and
// flash_standalone_event_processor.py's extract_json_from_response: accept
// {events:[...]}, a bare array, or a single event, each wrapped to the same
// shape before decoding.

package extract

import (
	"fmt"
	"regexp"
	"strings"

	goccyjson "github.com/goccy/go-json"
)

// RawEvent is the LLM's untyped JSON event shape, decoded straight off the
// wire before validation and persistence-time normalization.
type RawEvent struct {
	SourceIDs        []string `json:"source_ids"`
	EventName        string   `json:"event_name" validate:"required"`
	EventDate        string   `json:"event_date"`
	EventDescription string   `json:"event_description" validate:"required"`
	Location         string   `json:"location"`
	City             string   `json:"city"`
	State            string   `json:"state"`
	Participants     string   `json:"participants"`
	CategoryTags     []string `json:"category_tags" validate:"required,min=1"`
	ConfidenceScore  float64  `json:"confidence_score" validate:"gte=0,lte=1"`
	InstagramHandles []string `json:"instagram_handles"`
	TwitterHandles   []string `json:"twitter_handles"`
	Justification    string   `json:"justification"`
}

type rawEventEnvelope struct {
	Events []RawEvent `json:"events"`
}

var fencedJSONBlock = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ExtractJSONEvents implements spec.md §4.F.3 step 5: pull the candidate
// JSON payload out of the model's final text in order (fenced json block,
// first {...} span, first [...] span wrapped as {events:[...]})  and decode
// it into RawEvents. Decoding failure at every stage returns an error; the
// caller treats that as a terminal batch failure.
func ExtractJSONEvents(text string) ([]RawEvent, error) {
	if m := fencedJSONBlock.FindStringSubmatch(text); m != nil {
		if events, err := decodeEnvelope(m[1]); err == nil {
			return events, nil
		}
	}

	if span, ok := firstBracketSpan(text, '{', '}'); ok {
		if events, err := decodeEnvelope(span); err == nil {
			return events, nil
		}
	}

	if span, ok := firstBracketSpan(text, '[', ']'); ok {
		if events, err := decodeEnvelope("{\"events\":" + span + "}"); err == nil {
			return events, nil
		}
	}

	return nil, fmt.Errorf("extract json events: no decodable JSON payload found in model response")
}

// decodeEnvelope accepts {events:[...]}, a bare array (pre-wrapped by the
// caller), or a single event object, normalizing all three to []RawEvent.
func decodeEnvelope(raw string) ([]RawEvent, error) {
	trimmed := strings.TrimSpace(raw)

	var env rawEventEnvelope
	if err := goccyjson.Unmarshal([]byte(trimmed), &env); err == nil && env.Events != nil {
		return env.Events, nil
	}

	var single RawEvent
	if err := goccyjson.Unmarshal([]byte(trimmed), &single); err == nil && single.EventName != "" {
		return []RawEvent{single}, nil
	}

	return nil, fmt.Errorf("decode json envelope: no events array or single event found")
}

// firstBracketSpan returns the text between the first occurrence of open
// and its matching close, tracking nesting depth so inner objects/arrays
// don't prematurely terminate the span.
func firstBracketSpan(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
