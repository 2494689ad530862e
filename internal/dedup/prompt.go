// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on deduplicate_events_with_gemini.py's analyze_duplicate_group:
// same group-stats header, per-event block, pairwise-similarity block, and
// electioneering caveat, reassembled as a single system-prompt-free
// UserContent string (the Extraction Engine's system/user split does not
// apply here - there are no tool calls in this exchange).
package dedup

import (
	"fmt"
	"strings"

	"github.com/civictrace/pipeline/internal/models"
)

const maxSimilarityPairsShown = 10

// electioneeringMarker is matched case-insensitively against an event's
// category tags to decide whether the conservative same-date-only merge
// instruction applies (spec.md §4.G: "Electioneering-tagged groups").
const electioneeringMarker = "electioneering"

func hasElectioneeringTag(events map[string]models.Event) bool {
	for _, e := range events {
		for _, tag := range e.CategoryTags {
			if strings.Contains(strings.ToLower(tag), electioneeringMarker) {
				return true
			}
		}
	}
	return false
}

// buildPrompt assembles the group-analysis prompt for one DuplicateGroup,
// given its full event rows keyed by ID.
func buildPrompt(group models.DuplicateGroup, events map[string]models.Event) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert at identifying duplicate events. Analyze this group of potentially duplicate events.\n\n")
	fmt.Fprintf(&b, "GROUP INFORMATION:\n")
	fmt.Fprintf(&b, "- Number of events in group: %d\n", group.GroupSize)
	fmt.Fprintf(&b, "- Maximum similarity score: %.2f\n", group.MaxSimilarityScore)
	fmt.Fprintf(&b, "- Average similarity score: %.2f\n", group.AvgSimilarityScore)
	fmt.Fprintf(&b, "- Confidence level: %s\n\n", group.ConfidenceLevel)

	b.WriteString("IMPORTANT: This group may contain multiple distinct events that happen to be similar. Your job is to:\n")
	b.WriteString("1. Identify which events are TRUE duplicates (same event reported multiple times)\n")
	b.WriteString("2. Keep distinct events separate (e.g., daily canvassing sessions)\n")
	b.WriteString("3. When merging, choose the most specific/detailed event as master\n\n")

	b.WriteString("EVENTS IN GROUP:\n")
	for i, id := range group.EventIDs {
		e, ok := events[id]
		if !ok {
			continue
		}
		date := "Unknown"
		if e.EventDate != nil {
			date = *e.EventDate
		}
		desc := e.EventDescription
		if len(desc) > 500 {
			desc = desc[:500]
		}
		tags := "None"
		if len(e.CategoryTags) > 0 {
			tags = strings.Join(e.CategoryTags, ", ")
		}
		fmt.Fprintf(&b, "\n%d. EVENT %s:\n", i+1, id)
		fmt.Fprintf(&b, "   - Name: %s\n", e.EventName)
		fmt.Fprintf(&b, "   - Date: %s\n", date)
		fmt.Fprintf(&b, "   - Location: %s, %s\n", e.City, e.State)
		fmt.Fprintf(&b, "   - Description: %s\n", desc)
		fmt.Fprintf(&b, "   - Tags: %s\n", tags)
	}

	b.WriteString("\n\nPAIRWISE SIMILARITIES:\n")
	pairs := group.Pairs
	if len(pairs) > maxSimilarityPairsShown {
		pairs = pairs[:maxSimilarityPairsShown]
	}
	for _, p := range pairs {
		aName, bName := p.EventIDA, p.EventIDB
		if e, ok := events[p.EventIDA]; ok {
			aName = e.EventName
		}
		if e, ok := events[p.EventIDB]; ok {
			bName = e.EventName
		}
		fmt.Fprintf(&b, "\n- %q vs %q: overall score %.2f\n", aName, bName, p.Similarity)
	}

	if hasElectioneeringTag(events) {
		b.WriteString("\n\nIMPORTANT - ELECTIONEERING EVENTS DETECTED:\n")
		b.WriteString("These appear to be electioneering/canvassing events that happen FREQUENTLY.\n")
		b.WriteString("- DO NOT merge unless they are on the EXACT SAME DATE and EXACT SAME LOCATION\n")
		b.WriteString("- Different dates = different canvassing sessions, even if names are identical\n")
		b.WriteString("- Be VERY conservative with electioneering merges\n")
	}

	b.WriteString("\n\nTASK: Determine which events should be merged together.\n\n")
	b.WriteString("MASTER SELECTION RULES:\n")
	b.WriteString("1. Choose the event with the MOST SPECIFIC and detailed name\n")
	b.WriteString("2. Prefer events with complete descriptions and location details\n")
	b.WriteString("3. Consider which has more tags/categorization\n")
	b.WriteString("4. If all else equal, keep the earliest created event\n\n")

	b.WriteString("Respond with a single JSON object inside a fenced ```json code block, shaped exactly as:\n")
	b.WriteString("{\n")
	b.WriteString(`  "merge_groups": [{"master_event_id": "...", "duplicate_event_ids": ["..."], "confidence": "high|medium|low", "reasoning": "..."}],` + "\n")
	b.WriteString(`  "keep_separate": [{"event_ids": ["..."], "reasoning": "..."}]` + "\n")
	b.WriteString("}\n\n")
	b.WriteString("Be conservative - only merge if you're confident they're the same event.\n")

	return b.String()
}
