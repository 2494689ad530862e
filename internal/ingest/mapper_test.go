// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"strings"
	"testing"
)

func TestDecodeTwitterCSV(t *testing.T) {
	t.Run("header-driven column lookup", func(t *testing.T) {
		csv := "id,username,display_name,tweet content,date,likeCount,replyCount,retweetCount,mentionedUsers,hashtags,media_urls\n" +
			`1,JaneDoe,Jane Doe,"Hello world",2026-01-01T00:00:00Z,3,1,0,"[""@bob""]",Politics,"[""https://x/1.jpg""]"` + "\n"

		records, err := DecodeTwitterCSV(strings.NewReader(csv))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("got %d records, want 1", len(records))
		}
		r := records[0]
		if r.ID != "1" || r.Username != "JaneDoe" || r.Content != "Hello world" {
			t.Errorf("unexpected record: %+v", r)
		}
		if r.LikeCount != "3" {
			t.Errorf("like count = %q, want 3", r.LikeCount)
		}
	})

	t.Run("column order independent", func(t *testing.T) {
		csv := "date,id,tweet content,username\n2026-01-01T00:00:00Z,42,some content,alice\n"
		records, err := DecodeTwitterCSV(strings.NewReader(csv))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 1 || records[0].ID != "42" || records[0].Username != "alice" {
			t.Errorf("unexpected records: %+v", records)
		}
	})

	t.Run("ragged rows tolerated", func(t *testing.T) {
		csv := "id,username,tweet content\n1,alice\n"
		records, err := DecodeTwitterCSV(strings.NewReader(csv))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 1 || records[0].Content != "" {
			t.Errorf("expected missing trailing column to become empty string, got %+v", records)
		}
	})

	t.Run("empty input yields no records", func(t *testing.T) {
		records, err := DecodeTwitterCSV(strings.NewReader(""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if records != nil {
			t.Errorf("got %v, want nil", records)
		}
	})
}

func TestDecodeInstagramJSON(t *testing.T) {
	t.Run("top-level handle shape", func(t *testing.T) {
		payload := `[{"handle":"janedoe","caption":"hello","taken_at":1700000000,"id":"p1"}]`
		records, err := DecodeInstagramJSON(strings.NewReader(payload))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("got %d records, want 1", len(records))
		}
		if records[0].Handle != "janedoe" || records[0].ID != "p1" {
			t.Errorf("unexpected record: %+v", records[0])
		}
	})

	t.Run("nested owner shape", func(t *testing.T) {
		payload := `[{"owner":{"username":"bob","name":"Bob Owner"},"caption":"hi","taken_at":1700000000,"post_id":"p2"}]`
		records, err := DecodeInstagramJSON(strings.NewReader(payload))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("got %d records, want 1", len(records))
		}
		if records[0].Owner == nil || records[0].Owner.Username != "bob" {
			t.Errorf("unexpected owner: %+v", records[0].Owner)
		}
		if records[0].PostID != "p2" {
			t.Errorf("post_id = %q, want p2", records[0].PostID)
		}
	})

	t.Run("url falls back to post_url", func(t *testing.T) {
		payload := `[{"handle":"a","caption":"c","taken_at":1,"id":"1","post_url":"https://example.com/p/1"}]`
		records, err := DecodeInstagramJSON(strings.NewReader(payload))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if records[0].URL != "https://example.com/p/1" {
			t.Errorf("url = %q, want fallback post_url", records[0].URL)
		}
	})

	t.Run("empty array yields no records", func(t *testing.T) {
		records, err := DecodeInstagramJSON(strings.NewReader(`[]`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("got %d records, want 0", len(records))
		}
	})
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "", "c"); got != "c" {
		t.Errorf("got %q, want c", got)
	}
	if got := firstNonEmpty("a", "b"); got != "a" {
		t.Errorf("got %q, want a", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
