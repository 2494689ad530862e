// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// ActorType classifies a known Actor.
type ActorType string

const (
	ActorTypePerson       ActorType = "person"
	ActorTypeChapter      ActorType = "chapter"
	ActorTypeOrganization ActorType = "organization"
	ActorTypeUnknown      ActorType = "unknown"
	ActorTypeNotFound     ActorType = "not_found"
)

// Actor is a curated, known entity the pipeline only reads and links to; it
// is created out-of-band by operators, never by this pipeline.
type Actor struct {
	ID      string
	Type    ActorType
	Name    string
	About   string
	City    string
	State   string
	// ProfileData holds per-platform profile blobs keyed by platform name.
	ProfileData map[Platform]map[string]any
}

// ActorUsername maps a known Actor to one of its platform handles.
// (Username, Platform) is unique.
type ActorUsername struct {
	ActorID          string
	Username         string
	Platform         Platform
	ShouldScrape     bool
	LastScrape       *time.Time
	LastProfileUpdate *time.Time
}

// UnknownActorReviewStatus tracks promotion/triage of an UnknownActor.
type UnknownActorReviewStatus string

const (
	UnknownActorPending  UnknownActorReviewStatus = "pending"
	UnknownActorAttached UnknownActorReviewStatus = "attached"
	UnknownActorIgnored  UnknownActorReviewStatus = "ignored"
)

// UnknownActor is a handle observed mentioning or authoring posts that has
// not yet been promoted to a curated Actor. (Platform, DetectedUsername) is
// unique.
type UnknownActor struct {
	ID                string
	Platform          Platform
	DetectedUsername  string
	FirstSeen         time.Time
	LastSeen          time.Time
	MentionCount      int64
	AuthorCount       int64
	ProfileSnapshot   map[string]any
	MentionContext    string
	ReviewStatus      UnknownActorReviewStatus
}

// ActorLookupKind distinguishes the sum-type result of an actor search
// (spec.md §9: "replace duck-typed dicts with tagged variants").
type ActorLookupKind string

const (
	ActorLookupPerson       ActorLookupKind = ActorLookupKind(ActorTypePerson)
	ActorLookupChapter      ActorLookupKind = ActorLookupKind(ActorTypeChapter)
	ActorLookupOrganization ActorLookupKind = ActorLookupKind(ActorTypeOrganization)
	ActorLookupUnknown      ActorLookupKind = ActorLookupKind(ActorTypeUnknown)
	ActorLookupNotFound     ActorLookupKind = ActorLookupKind(ActorTypeNotFound)
)

// ActorLookupResult is the tagged result the search_actors tool returns for
// a single requested (platform, handle) pair.
type ActorLookupResult struct {
	Handle         string
	Platform       Platform
	Kind           ActorLookupKind
	ActorID        string // set when Kind is Person/Chapter/Organization
	UnknownActorID string // set when Kind is Unknown
	Name           string
	Bio            string
	City           string
	State          string
}
