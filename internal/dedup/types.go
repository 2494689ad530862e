// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package dedup

// MergeDecision is one accepted merge the model proposed: fold every event
// in DuplicateEventIDs into MasterEventID (spec.md §4.G step 2).
type MergeDecision struct {
	MasterEventID     string   `json:"master_event_id"`
	DuplicateEventIDs []string `json:"duplicate_event_ids"`
	Confidence        string   `json:"confidence"`
	Reasoning         string   `json:"reasoning"`
}

// keepSeparate is a model-proposed non-merge; kept only for completeness of
// the decoded payload, never acted on.
type keepSeparate struct {
	EventIDs  []string `json:"event_ids"`
	Reasoning string   `json:"reasoning"`
}

// decisionEnvelope is the model's full JSON response shape.
type decisionEnvelope struct {
	MergeGroups  []MergeDecision `json:"merge_groups"`
	KeepSeparate []keepSeparate  `json:"keep_separate"`
}

// acceptedConfidence reports whether a decision's confidence clears the
// spec.md §4.G step 3 bar: "only accept high/medium merges".
func acceptedConfidence(c string) bool {
	return c == "high" || c == "medium"
}
