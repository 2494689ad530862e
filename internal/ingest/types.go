// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package ingest

import "time"

// RawTwitterRecord is one row of the CSV schema described in spec.md §6.
// Fields are kept as loosely-typed strings matching the source CSV; Normalize
// does all type coercion.
type RawTwitterRecord struct {
	ID             string
	URL            string
	Date           string
	Username       string
	DisplayName    string
	Content        string
	LikeCount      string
	ReplyCount     string
	RetweetCount   string
	MentionedUsers string // JSON array or ";"-delimited
	Hashtags       string // ";"-delimited
	MediaURLs      string // JSON array
}

// RawInstagramRecord is one element of the JSON array schema described in
// spec.md §6. Owner may be set instead of Handle/Username per the two
// observed scraper formats.
type RawInstagramRecord struct {
	Handle          string
	Username        string
	Owner           *RawInstagramOwner
	Caption         string
	TakenAt         *int64 // Unix seconds
	Date            string // alternate ISO timestamp field
	ID              string
	PostID          string
	URL             string
	MediaURLs       []string
	SrcURL          string
	MentionedUsers  any // JSON array string, []string, or nil
	Hashtags        any // ";"-delimited string or []string
	LikeCount       int64
	CommentCount    int64
	DisplayName     string
}

// RawInstagramOwner is the nested author object some scraper payloads emit
// in place of top-level handle/username fields.
type RawInstagramOwner struct {
	Username string
	Name     string
}

// SourceFile identifies one object pending ingestion.
type SourceFile struct {
	Bucket   string
	Key      string
	Platform string // "twitter" or "instagram"; drives CSV vs JSON decoding
}

// IsProcessed reports whether Key already lives under the processed/ prefix
// and should be skipped per spec.md §4.B.
func (f SourceFile) IsProcessed() bool {
	return len(f.Key) >= len("processed/") && f.Key[:len("processed/")] == "processed/"
}

// Stats accumulates counters for one ingestion run, mirroring the teacher's
// ImportStats shape (internal/import/types.go) but scoped to the per-file,
// per-post terms this domain uses.
type Stats struct {
	FilesProcessed      int64
	PostsRead           int64
	PostsNormalized     int64
	PostsRejected       int64
	PostsInserted       int64
	DuplicatesSkipped   int64
	UnknownActorsFound  int64
	KnownActorLinks     int64
	UnknownActorLinks   int64
	FilesMoved          int64
	Errors              int64
	StartTime           time.Time
	EndTime             time.Time
}

// Duration returns how long the run has taken so far, or took in total once
// EndTime is set.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}
