// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import "testing"

func TestValidateRawEvents_AcceptsWellFormedEvent(t *testing.T) {
	events := []RawEvent{
		{
			SourceIDs:        []string{"p1"},
			EventName:        "Rally",
			EventDescription: "A rally downtown",
			CategoryTags:     []string{"Candidate:jane_doe"},
			ConfidenceScore:  0.8,
		},
	}
	valid, failures := ValidateRawEvents(events)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %+v", failures)
	}
	if len(valid) != 1 {
		t.Fatalf("got %d valid, want 1", len(valid))
	}
}

func TestValidateRawEvents_RejectsEmptySourceIDs(t *testing.T) {
	events := []RawEvent{
		{EventName: "Rally", EventDescription: "d", CategoryTags: []string{"X:y"}, ConfidenceScore: 0.5},
	}
	valid, failures := ValidateRawEvents(events)
	if len(valid) != 0 {
		t.Fatalf("got %d valid, want 0", len(valid))
	}
	if len(failures) != 1 || failures[0].Reason != "source_ids is empty" {
		t.Fatalf("got %+v", failures)
	}
}

func TestValidateRawEvents_RejectsOutOfRangeConfidence(t *testing.T) {
	events := []RawEvent{
		{SourceIDs: []string{"p1"}, EventName: "Rally", EventDescription: "d", CategoryTags: []string{"X:y"}, ConfidenceScore: 1.5},
	}
	valid, failures := ValidateRawEvents(events)
	if len(valid) != 0 || len(failures) != 1 {
		t.Fatalf("got valid=%+v failures=%+v", valid, failures)
	}
}

func TestValidateRawEvents_RejectsMissingCategoryTags(t *testing.T) {
	events := []RawEvent{
		{SourceIDs: []string{"p1"}, EventName: "Rally", EventDescription: "d", ConfidenceScore: 0.5},
	}
	valid, failures := ValidateRawEvents(events)
	if len(valid) != 0 || len(failures) != 1 {
		t.Fatalf("got valid=%+v failures=%+v", valid, failures)
	}
}
