// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"testing"

	"github.com/civictrace/pipeline/internal/models"
)

func TestStripControlChars(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello world", "hello world"},
		{"control chars stripped", "hello\x00\x01 world", "hello world"},
		{"newline preserved", "line one\nline two", "line one\nline two"},
		{"leading/trailing whitespace trimmed", "  hello  ", "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripControlChars(tt.in); got != tt.want {
				t.Errorf("stripControlChars(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsBlankOrNaN(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"nan", true},
		{"NaN", true},
		{"hello", false},
	}
	for _, tt := range tests {
		if got := isBlankOrNaN(tt.in); got != tt.want {
			t.Errorf("isBlankOrNaN(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestForceUTC(t *testing.T) {
	t.Run("ISO string", func(t *testing.T) {
		ts := forceUTC("2026-01-15T10:30:00Z")
		if ts == nil {
			t.Fatal("expected non-nil timestamp")
		}
		if ts.Year() != 2026 || ts.Month() != 1 || ts.Day() != 15 {
			t.Errorf("got %v, want 2026-01-15", ts)
		}
	})

	t.Run("unix seconds", func(t *testing.T) {
		ts := forceUTC("1700000000")
		if ts == nil {
			t.Fatal("expected non-nil timestamp")
		}
	})

	t.Run("unparsable yields nil", func(t *testing.T) {
		if ts := forceUTC("not a date"); ts != nil {
			t.Errorf("got %v, want nil", ts)
		}
	})

	t.Run("empty yields nil", func(t *testing.T) {
		if ts := forceUTC(""); ts != nil {
			t.Errorf("got %v, want nil", ts)
		}
	})
}

func TestStripCompositeSuffix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc123", "abc123"},
		{"uuid-1234@calendar.example.org", "uuid-1234"},
	}
	for _, tt := range tests {
		if got := stripCompositeSuffix(tt.in); got != tt.want {
			t.Errorf("stripCompositeSuffix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalizePlatform(t *testing.T) {
	tests := []struct {
		in   string
		want models.Platform
	}{
		{"x", models.PlatformTwitter},
		{"X", models.PlatformTwitter},
		{"twitter", models.PlatformTwitter},
		{"truthsocial", models.PlatformTruthSocial},
		{"truth", models.PlatformTruthSocial},
		{"truth_social", models.PlatformTruthSocial},
		{"Instagram", models.PlatformInstagram},
		{"TikTok", models.Platform("tiktok")},
	}
	for _, tt := range tests {
		if got := CanonicalizePlatform(tt.in); got != tt.want {
			t.Errorf("CanonicalizePlatform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		platform models.Platform
		want     string
	}{
		{"strips at sign", "@JohnDoe", models.PlatformTwitter, "johndoe"},
		{"strips non-username chars", "john.doe!", models.PlatformTwitter, "johndoe"},
		{"truncates twitter handles to 15", "a_very_long_twitter_handle", models.PlatformTwitter, "a_very_long_twi"},
		{"does not truncate instagram handles", "a_very_long_instagram_handle_name", models.PlatformInstagram, "a_very_long_instagram_handle_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeHandle(tt.raw, tt.platform); got != tt.want {
				t.Errorf("normalizeHandle(%q, %q) = %q, want %q", tt.raw, tt.platform, got, tt.want)
			}
		})
	}
}

func TestNormalizeMentionedUsers(t *testing.T) {
	t.Run("JSON array string", func(t *testing.T) {
		got := normalizeMentionedUsers(`["@Alice", "bob", "@Alice"]`, models.PlatformTwitter)
		want := []string{"alice", "bob"}
		assertStringSlice(t, got, want)
	})

	t.Run("semicolon delimited string", func(t *testing.T) {
		got := normalizeMentionedUsers("@Alice;bob;@alice", models.PlatformTwitter)
		want := []string{"alice", "bob"}
		assertStringSlice(t, got, want)
	})

	t.Run("string slice", func(t *testing.T) {
		got := normalizeMentionedUsers([]string{"Alice", "Bob"}, models.PlatformInstagram)
		want := []string{"alice", "bob"}
		assertStringSlice(t, got, want)
	})

	t.Run("nil input", func(t *testing.T) {
		if got := normalizeMentionedUsers(nil, models.PlatformTwitter); got != nil {
			t.Errorf("got %v, want nil", got)
		}
	})
}

func TestNormalizeHashtags(t *testing.T) {
	t.Run("unions field and content hashtags preserving order and case", func(t *testing.T) {
		got := normalizeHashtags("Politics;Election2026", "Big news about #Election2026 and #LocalRace")
		want := []string{"Politics", "Election2026", "#Election2026", "#LocalRace"}
		assertStringSlice(t, got, want)
	})

	t.Run("dedupes", func(t *testing.T) {
		got := normalizeHashtags("", "#foo #foo #bar")
		want := []string{"#foo", "#bar"}
		assertStringSlice(t, got, want)
	})
}

func TestNormalizeTwitterRecord(t *testing.T) {
	t.Run("valid record", func(t *testing.T) {
		raw := RawTwitterRecord{
			ID:             "abc123",
			Username:       "@JaneDoe",
			DisplayName:    "Jane Doe",
			Content:        "Rally downtown today #LocalRace",
			Date:           "2026-02-01T12:00:00Z",
			LikeCount:      "5",
			ReplyCount:     "2",
			RetweetCount:   "1",
			MentionedUsers: `["@Bob"]`,
			Hashtags:       "Politics",
		}

		post, ok := NormalizeTwitterRecord(raw)
		if !ok {
			t.Fatal("expected record to normalize successfully")
		}
		if post.Platform != models.PlatformTwitter {
			t.Errorf("platform = %q, want twitter", post.Platform)
		}
		if post.AuthorHandle != "janedoe" {
			t.Errorf("author handle = %q, want janedoe", post.AuthorHandle)
		}
		if post.LikeCount != 5 {
			t.Errorf("like count = %d, want 5", post.LikeCount)
		}
		assertStringSlice(t, post.MentionedHandles, []string{"bob"})
		assertStringSlice(t, post.Hashtags, []string{"Politics", "#LocalRace"})
	})

	t.Run("blank content is discarded", func(t *testing.T) {
		raw := RawTwitterRecord{ID: "1", Content: "   ", Date: "2026-01-01T00:00:00Z"}
		if _, ok := NormalizeTwitterRecord(raw); ok {
			t.Error("expected blank-content record to be discarded")
		}
	})

	t.Run("nan content is discarded", func(t *testing.T) {
		raw := RawTwitterRecord{ID: "1", Content: "nan", Date: "2026-01-01T00:00:00Z"}
		if _, ok := NormalizeTwitterRecord(raw); ok {
			t.Error("expected nan-content record to be discarded")
		}
	})

	t.Run("unparsable timestamp is discarded", func(t *testing.T) {
		raw := RawTwitterRecord{ID: "1", Content: "hello", Date: "garbage"}
		if _, ok := NormalizeTwitterRecord(raw); ok {
			t.Error("expected unparsable-timestamp record to be discarded")
		}
	})

	t.Run("composite ID suffix stripped", func(t *testing.T) {
		raw := RawTwitterRecord{ID: "uuid-1@cal.example.org", Content: "hello", Date: "2026-01-01T00:00:00Z"}
		post, ok := NormalizeTwitterRecord(raw)
		if !ok {
			t.Fatal("expected record to normalize")
		}
		if post.ExternalPostID != "uuid-1" {
			t.Errorf("external_post_id = %q, want uuid-1", post.ExternalPostID)
		}
	})
}

func TestNormalizeInstagramRecord(t *testing.T) {
	t.Run("top-level handle", func(t *testing.T) {
		takenAt := int64(1700000000)
		raw := RawInstagramRecord{
			Handle:  "@JaneDoe",
			Caption: "Community event today",
			TakenAt: &takenAt,
			ID:      "post-1",
		}
		post, ok := NormalizeInstagramRecord(raw)
		if !ok {
			t.Fatal("expected record to normalize")
		}
		if post.AuthorHandle != "janedoe" {
			t.Errorf("author handle = %q, want janedoe", post.AuthorHandle)
		}
		if post.Platform != models.PlatformInstagram {
			t.Errorf("platform = %q, want instagram", post.Platform)
		}
	})

	t.Run("nested owner handle", func(t *testing.T) {
		takenAt := int64(1700000000)
		raw := RawInstagramRecord{
			Owner:   &RawInstagramOwner{Username: "owner_handle", Name: "Owner Name"},
			Caption: "Nested owner post",
			TakenAt: &takenAt,
			PostID:  "post-2",
		}
		post, ok := NormalizeInstagramRecord(raw)
		if !ok {
			t.Fatal("expected record to normalize")
		}
		if post.AuthorHandle != "owner_handle" {
			t.Errorf("author handle = %q, want owner_handle", post.AuthorHandle)
		}
		if post.ExternalPostID != "post-2" {
			t.Errorf("external_post_id = %q, want post-2", post.ExternalPostID)
		}
	})

	t.Run("missing handle is discarded", func(t *testing.T) {
		takenAt := int64(1700000000)
		raw := RawInstagramRecord{Caption: "no handle", TakenAt: &takenAt, ID: "post-3"}
		if _, ok := NormalizeInstagramRecord(raw); ok {
			t.Error("expected handle-less record to be discarded")
		}
	})

	t.Run("missing id is discarded", func(t *testing.T) {
		takenAt := int64(1700000000)
		raw := RawInstagramRecord{Handle: "janedoe", Caption: "no id", TakenAt: &takenAt}
		if _, ok := NormalizeInstagramRecord(raw); ok {
			t.Error("expected id-less record to be discarded")
		}
	})

	t.Run("src_url falls back when media_urls empty", func(t *testing.T) {
		takenAt := int64(1700000000)
		raw := RawInstagramRecord{
			Handle:  "janedoe",
			Caption: "media fallback",
			TakenAt: &takenAt,
			ID:      "post-4",
			SrcURL:  "https://example.com/img.jpg",
		}
		post, ok := NormalizeInstagramRecord(raw)
		if !ok {
			t.Fatal("expected record to normalize")
		}
		assertStringSlice(t, post.MediaURLs, []string{"https://example.com/img.jpg"})
	})
}

func assertStringSlice(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v (len %d), want %v (len %d)", got, len(got), want, len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
