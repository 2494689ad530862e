// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import (
	"regexp"
	"strings"
)

// CacheableParentTags lists the dynamic-slug parent tags that are worth
// keeping in the process-wide slug cache (spec.md §4.F.4). Tags outside this
// set are still persisted but never drive a cache reload.
var CacheableParentTags = map[string]bool{
	"Institution":     true,
	"BallotMeasure":   true,
	"Recall":          true,
	"Conference":      true,
	"LobbyingTopic":   true,
	"Primary":         true,
	"GeneralElection": true,
	"Church":          true,
	"Candidate":       true,
	"School":          true,
	"Election":        true,
}

var repeatUnderscore = regexp.MustCompile(`_+`)
var nonSlugChar = regexp.MustCompile(`[^a-z0-9_]`)

// DynamicSlug is a structured tag of the form ParentTag:identifier.
// FullSlug is unique; lookups are case-insensitive.
type DynamicSlug struct {
	ParentTag      string
	SlugIdentifier string
	FullSlug       string
}

// NormalizeSlugIdentifier lowercases, replaces non-alphanumerics with "_",
// and collapses repeated underscores, matching the teacher's
// SimpleSlugManager.normalize_slug_identifier.
func NormalizeSlugIdentifier(identifier string) string {
	id := strings.ToLower(strings.TrimSpace(identifier))
	id = strings.ReplaceAll(id, " ", "_")
	id = nonSlugChar.ReplaceAllString(id, "_")
	id = repeatUnderscore.ReplaceAllString(id, "_")
	return strings.Trim(id, "_")
}

// NewDynamicSlug builds a DynamicSlug with its derived FullSlug.
func NewDynamicSlug(parentTag, identifier string) DynamicSlug {
	norm := NormalizeSlugIdentifier(identifier)
	return DynamicSlug{
		ParentTag:      parentTag,
		SlugIdentifier: norm,
		FullSlug:       parentTag + ":" + norm,
	}
}

// SplitCategoryTag splits a "ParentTag:identifier" category tag into its two
// parts. ok is false when the tag carries no ":" separator.
func SplitCategoryTag(tag string) (parentTag, identifier string, ok bool) {
	idx := strings.Index(tag, ":")
	if idx < 0 {
		return "", "", false
	}
	return tag[:idx], tag[idx+1:], true
}
