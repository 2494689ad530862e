// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Event is a structured record emitted by the extraction engine.
//
// Invariant: ContentHash is unique; two submissions that normalize to the
// same (name, date, location, city, state, sorted source post IDs) collapse
// to the same row.
type Event struct {
	ID               string
	EventName        string
	EventDate        *string // "YYYY-MM-DD"; day "-00" coerced to "-01"
	EventDescription string
	Location         string
	City             string
	State            string
	Participants     string // comma-joined free-form list
	CategoryTags     []string
	SourcePostIDs    []string
	ConfidenceScore  float64
	ExtractedBy      string
	ExtractedAt      time.Time
	Verified         bool
	ContentHash      string
	ProjectID        string
	Embedding        []float32 // nil on best-effort embedding failure
	Latitude         *float64
	Longitude        *float64
}

// ComputeContentHash derives the SHA-256 canonical dedup key described in
// spec.md §4.F.4: lower(name) | date | lower(location) | lower(city) |
// upper(state) | "|".join(sorted(source_post_ids)).
//
// SourcePostIDs is sorted as a side effect so the persisted array matches the
// hash input (spec.md §9 open question: persist sorted for consistency).
func (e *Event) ComputeContentHash() string {
	sort.Strings(e.SourcePostIDs)

	date := ""
	if e.EventDate != nil {
		date = *e.EventDate
	}

	parts := []string{
		strings.ToLower(strings.TrimSpace(e.EventName)),
		date,
		strings.ToLower(strings.TrimSpace(e.Location)),
		strings.ToLower(strings.TrimSpace(e.City)),
		strings.ToUpper(strings.TrimSpace(e.State)),
		strings.Join(e.SourcePostIDs, "|"),
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	e.ContentHash = hex.EncodeToString(sum[:])
	return e.ContentHash
}

// NormalizeEventDate applies the "-00" day coercion and empty-string-to-nil
// rule from spec.md §4.F.4.
func NormalizeEventDate(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasSuffix(raw, "-00") {
		raw = strings.TrimSuffix(raw, "-00") + "-01"
	}
	return &raw
}

// EventPostLink is a (event, post) materialization edge. (EventID, PostID)
// is unique.
type EventPostLink struct {
	EventID string
	PostID  string
}

// EventActorLinkKind is the tag of the EventActorLink sum type (spec.md §9).
type EventActorLinkKind string

const (
	EventActorLinkKnown   EventActorLinkKind = "known"
	EventActorLinkUnknown EventActorLinkKind = "unknown"
)

// EventActorLink is the single-table representation of the tagged union
// {Known{actor_id,...} | Unknown{unknown_actor_id,...}} from spec.md §9.
// Uniqueness: (EventID, ActorHandle, Platform); unknown rows additionally
// satisfy uniqueness on (EventID, UnknownActorID) because ActorHandle is set
// to the "unknown_<uuid>" sentinel for that row.
type EventActorLink struct {
	EventID        string
	Kind           EventActorLinkKind
	ActorHandle    string // real handle for Known, "unknown_<uuid>" for Unknown
	Platform       Platform
	ActorType      ActorType
	ActorID        string // non-empty only when Kind == Known
	UnknownActorID string // non-empty only when Kind == Unknown
}

// NewKnownEventActorLink builds the Known variant.
func NewKnownEventActorLink(eventID, actorID string, actorType ActorType, handle string, platform Platform) EventActorLink {
	return EventActorLink{
		EventID:     eventID,
		Kind:        EventActorLinkKnown,
		ActorHandle: handle,
		Platform:    platform,
		ActorType:   actorType,
		ActorID:     actorID,
	}
}

// NewUnknownEventActorLink builds the Unknown variant. Platform is always
// "unknown" per spec.md §9's canonical-platform decision (DESIGN.md open
// question #1); NormalizeActorLinkPlatform reconciles legacy rows on read.
func NewUnknownEventActorLink(eventID, unknownActorID string) EventActorLink {
	return EventActorLink{
		EventID:        eventID,
		Kind:           EventActorLinkUnknown,
		ActorHandle:    "unknown_" + unknownActorID,
		Platform:       PlatformUnknown,
		ActorType:      ActorTypeUnknown,
		UnknownActorID: unknownActorID,
	}
}

// NormalizeActorLinkPlatform reconciles legacy EventActorLink rows that were
// migrated with the post's original platform instead of the canonical
// "unknown" sentinel (DESIGN.md open question #1).
func NormalizeActorLinkPlatform(l EventActorLink) EventActorLink {
	if l.Kind == EventActorLinkUnknown {
		l.Platform = PlatformUnknown
	}
	return l
}
