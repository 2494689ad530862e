// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on original_source/automation/processors/post_processor.py's
// clean_emoji_symbols, parse_mentioned_users, parse_hashtags,
// extract_hashtags_from_text, force_utc, and normalize_platform_name,
// rewritten as pure Go functions over internal/models.Post and shaped like
// the teacher's internal/import/mapper.go field-by-field conversion style.

package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	goccyjson "github.com/goccy/go-json"

	"github.com/civictrace/pipeline/internal/models"
)

var hashtagPattern = regexp.MustCompile(`#\w+`)

// stripControlChars removes ASCII control characters (keeping newlines),
// matching clean_emoji_symbols's "ord(char) >= 32 or char == '\n'" filter.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 32 || r == '\n' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// isBlankOrNaN reports whether content_text should be discarded per
// normalization rule 1.
func isBlankOrNaN(s string) bool {
	trimmed := strings.TrimSpace(s)
	return trimmed == "" || strings.EqualFold(trimmed, "nan")
}

// forceUTC applies normalization rule 2: ISO strings, Unix seconds, and
// already-typed timestamps are accepted; anything else yields nil.
func forceUTC(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if unixSeconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t := time.Unix(unixSeconds, 0).UTC()
		return &t
	}

	candidates := []string{raw, strings.Replace(raw, "Z", "+00:00", 1)}
	for _, c := range candidates {
		for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, c); err == nil {
				u := t.UTC()
				return &u
			}
		}
	}
	return nil
}

// forceUTCUnix applies rule 2 to an already-typed Unix-seconds timestamp
// (Instagram's taken_at field).
func forceUTCUnix(seconds int64) *time.Time {
	t := time.Unix(seconds, 0).UTC()
	return &t
}

// stripCompositeSuffix applies normalization rule 3: IDs carrying a
// "uuid@domain" composite form (calendar-style scrapes) keep only the prefix
// before "@".
func stripCompositeSuffix(externalPostID string) string {
	if idx := strings.Index(externalPostID, "@"); idx >= 0 {
		return externalPostID[:idx]
	}
	return externalPostID
}

// CanonicalizePlatform applies normalization rule 4.
func CanonicalizePlatform(raw string) models.Platform {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "x", "twitter":
		return models.PlatformTwitter
	case "truthsocial", "truth", "truth_social":
		return models.PlatformTruthSocial
	default:
		return models.Platform(strings.ToLower(strings.TrimSpace(raw)))
	}
}

var nonUsernameChars = regexp.MustCompile(`[^a-z0-9_]`)

// normalizeHandle applies normalization rule 5: strip leading "@", lowercase,
// strip non-username characters, truncate twitter handles to 15 chars.
func normalizeHandle(raw string, platform models.Platform) string {
	h := strings.ToLower(strings.TrimSpace(raw))
	h = strings.TrimPrefix(h, "@")
	h = nonUsernameChars.ReplaceAllString(h, "")
	if platform == models.PlatformTwitter && len(h) > 15 {
		h = h[:15]
	}
	return h
}

// normalizeMentionedUsers applies normalization rule 6: accepts a JSON-array
// string, a ";"-delimited string, or a []string/[]any, normalizes each entry
// like a handle, and dedupes while preserving first-seen order.
func normalizeMentionedUsers(raw any, platform models.Platform) []string {
	var entries []string

	switch v := raw.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		if strings.HasPrefix(trimmed, "[") {
			var arr []string
			if err := goccyjson.Unmarshal([]byte(trimmed), &arr); err == nil {
				entries = arr
			}
		} else {
			for _, part := range strings.Split(trimmed, ";") {
				if p := strings.TrimSpace(part); p != "" {
					entries = append(entries, p)
				}
			}
		}
	case []string:
		entries = v
	case []any:
		for _, item := range v {
			entries = append(entries, toString(item))
		}
	}

	return dedupePreserveOrder(normalizeHandleList(entries, platform))
}

func normalizeHandleList(raw []string, platform models.Platform) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if h := normalizeHandle(r, platform); h != "" {
			out = append(out, h)
		}
	}
	return out
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		data, _ := goccyjson.Marshal(t)
		return string(data)
	}
}

func dedupePreserveOrder(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// normalizeHashtags applies normalization rule 7: union the hashtags field
// (";"-split) with any "#token" occurrences found in content, preserving
// order and deduping. The stored form keeps the original "#" and case
// verbatim; case-folding and "#"-stripping happen only at tagged-edge match
// time (see known.Lookup call sites), not here.
func normalizeHashtags(fieldRaw any, content string) []string {
	var field []string
	switch v := fieldRaw.(type) {
	case string:
		for _, part := range strings.Split(v, ";") {
			if p := strings.TrimSpace(part); p != "" {
				field = append(field, p)
			}
		}
	case []string:
		field = v
	case []any:
		for _, item := range v {
			field = append(field, toString(item))
		}
	}

	cleaned := make([]string, 0, len(field))
	for _, h := range field {
		h = strings.TrimSpace(h)
		if h != "" {
			cleaned = append(cleaned, h)
		}
	}

	cleaned = append(cleaned, hashtagPattern.FindAllString(content, -1)...)

	return dedupePreserveOrder(cleaned)
}

// NormalizeTwitterRecord converts one RawTwitterRecord to a canonical Post,
// applying the seven ordered normalization rules from spec.md §4.B. It
// returns (nil, false) when the record must be discarded (blank content or
// unparsable timestamp).
func NormalizeTwitterRecord(raw RawTwitterRecord) (*models.Post, bool) {
	content := stripControlChars(raw.Content)
	if isBlankOrNaN(content) {
		return nil, false
	}

	platform := CanonicalizePlatform("twitter")

	ts := forceUTC(raw.Date)
	if ts == nil {
		return nil, false
	}

	var mediaURLs []string
	if trimmed := strings.TrimSpace(raw.MediaURLs); trimmed != "" {
		_ = goccyjson.Unmarshal([]byte(trimmed), &mediaURLs)
	}

	post := &models.Post{
		Platform:         platform,
		ExternalPostID:   stripCompositeSuffix(strings.TrimSpace(raw.ID)),
		AuthorHandle:     normalizeHandle(raw.Username, platform),
		AuthorDisplayName: stripControlChars(raw.DisplayName),
		ContentText:      content,
		Timestamp:        ts,
		MediaURLs:        mediaURLs,
		MentionedHandles: normalizeMentionedUsers(raw.MentionedUsers, platform),
		Hashtags:         normalizeHashtags(raw.Hashtags, content),
		LikeCount:        parseInt(raw.LikeCount),
		ReplyCount:       parseInt(raw.ReplyCount),
		RetweetCount:     parseInt(raw.RetweetCount),
	}
	return post, true
}

// NormalizeInstagramRecord converts one RawInstagramRecord to a canonical
// Post.
func NormalizeInstagramRecord(raw RawInstagramRecord) (*models.Post, bool) {
	content := stripControlChars(raw.Caption)
	if isBlankOrNaN(content) {
		return nil, false
	}

	handle := raw.Handle
	if handle == "" {
		handle = raw.Username
	}
	displayName := raw.DisplayName
	if raw.Owner != nil {
		if handle == "" {
			handle = raw.Owner.Username
		}
		if displayName == "" {
			displayName = raw.Owner.Name
		}
	}
	if handle == "" {
		return nil, false
	}

	externalID := raw.ID
	if externalID == "" {
		externalID = raw.PostID
	}
	if externalID == "" {
		return nil, false
	}

	platform := CanonicalizePlatform("instagram")

	var ts *time.Time
	if raw.TakenAt != nil {
		ts = forceUTCUnix(*raw.TakenAt)
	} else {
		ts = forceUTC(raw.Date)
	}
	if ts == nil {
		return nil, false
	}

	mediaURLs := raw.MediaURLs
	if len(mediaURLs) == 0 && raw.SrcURL != "" {
		mediaURLs = []string{raw.SrcURL}
	}

	post := &models.Post{
		Platform:          platform,
		ExternalPostID:    stripCompositeSuffix(externalID),
		AuthorHandle:      normalizeHandle(handle, platform),
		AuthorDisplayName: stripControlChars(displayName),
		ContentText:       content,
		Timestamp:         ts,
		MediaURLs:         mediaURLs,
		MentionedHandles:  normalizeMentionedUsers(raw.MentionedUsers, platform),
		Hashtags:          normalizeHashtags(raw.Hashtags, content),
		LikeCount:         raw.LikeCount,
		ReplyCount:        raw.CommentCount,
	}
	return post, true
}

func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
