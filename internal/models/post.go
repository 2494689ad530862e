// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// Platform identifies the social network a post or actor profile came from.
type Platform string

const (
	PlatformTwitter     Platform = "twitter"
	PlatformInstagram   Platform = "instagram"
	PlatformTruthSocial Platform = "truth_social"
	PlatformUnknown     Platform = "unknown"
)

// Terminal sentinels stored in Post.OfflineMediaURL once every candidate
// media URL for a post has been confirmed unreachable.
const (
	MediaExpired           = "EXPIRED"
	MediaPermanentlyExpired = "PERMANENTLY_EXPIRED"
)

// Post is one social-media item normalized from a raw scraper record.
//
// Invariants: (Platform, ExternalPostID) is unique; AuthorHandle and every
// entry of MentionedHandles are always lowercased before persistence.
type Post struct {
	ID                 string
	Platform           Platform
	ExternalPostID     string
	AuthorHandle       string
	AuthorDisplayName  string
	ContentText        string
	Timestamp          *time.Time
	MediaURLs          []string
	MentionedHandles   []string
	Hashtags           []string
	LikeCount          int64
	ReplyCount         int64
	RetweetCount       int64
	LocationText        string
	OfflineMediaURL     *string
	ProcessedForEvents  bool
	EventProcessedAt    *time.Time
	CreatedAt           time.Time
}

// HasUsableTimestamp reports whether the post carries a timestamp and is
// therefore eligible to enter a batch (spec.md §3, Post invariants).
func (p *Post) HasUsableTimestamp() bool {
	return p.Timestamp != nil
}

// IsTerminalMediaStatus reports whether OfflineMediaURL already holds one of
// the two terminal sentinels rather than a real public URL.
func (p *Post) IsTerminalMediaStatus() bool {
	if p.OfflineMediaURL == nil {
		return false
	}
	return *p.OfflineMediaURL == MediaExpired || *p.OfflineMediaURL == MediaPermanentlyExpired
}

// NeedsMediaFetch reports whether the media fetcher still owes this post a
// download attempt: it has candidate media URLs and no usable public URL or
// terminal sentinel recorded yet.
func (p *Post) NeedsMediaFetch() bool {
	if len(p.MediaURLs) == 0 {
		return false
	}
	return p.OfflineMediaURL == nil || *p.OfflineMediaURL == ""
}

// PostActorRelationship is the edge kind between a Post and a known Actor
// (spec.md §4.B, "Known-actor edges").
type PostActorRelationship string

const (
	PostActorAuthor    PostActorRelationship = "author"
	PostActorMentioned PostActorRelationship = "mentioned"
	PostActorTagged    PostActorRelationship = "tagged"
)

// PostActorLink is a (post, known actor) materialization edge. Uniqueness:
// (PostID, ActorID, Relationship) — the same actor can be both mentioned and
// tagged on one post via two distinct handle occurrences, but never twice
// under the same relationship.
type PostActorLink struct {
	PostID       string
	ActorID      string
	Relationship PostActorRelationship
}

// NewPostActorLink builds a known-actor edge for the given relationship.
func NewPostActorLink(postID, actorID string, rel PostActorRelationship) PostActorLink {
	return PostActorLink{PostID: postID, ActorID: actorID, Relationship: rel}
}

// PostUnknownActorLink is a (post, unknown actor) materialization edge.
// Uniqueness: (PostID, UnknownActorID) per spec.md §4.B — a post that both
// authors and mentions the same unverified handle collapses to one edge.
type PostUnknownActorLink struct {
	PostID         string
	UnknownActorID string
}

// NewPostUnknownActorLink builds the edge between a post and an aggregated
// unknown-actor record.
func NewPostUnknownActorLink(postID, unknownActorID string) PostUnknownActorLink {
	return PostUnknownActorLink{PostID: postID, UnknownActorID: unknownActorID}
}
