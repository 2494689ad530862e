// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Decodes the two raw wire formats from spec.md §6 into RawTwitterRecord /
// RawInstagramRecord. Grounded on the teacher's internal/import/mapper.go
// (field-by-field conversion from a loosely-typed source row) and
// original_source/automation/processors/post_processor.py's
// prepare_post_data/prepare_instagram_post_data, which tolerate the same
// alternate field names this mapper handles.

package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	goccyjson "github.com/goccy/go-json"
)

// DecodeTwitterCSV parses a Twitter-export CSV per the column set in
// spec.md §6 ("id, url, date, username, display_name, tweet content,
// likeCount, replyCount, retweetCount, mentionedUsers, hashtags,
// media_urls"). Column order is read from the header row so field order in
// the source file doesn't matter.
func DecodeTwitterCSV(r io.Reader) ([]RawTwitterRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged rows; missing trailing columns become ""

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}

	get := func(row []string, names ...string) string {
		for _, name := range names {
			if i, ok := idx[name]; ok && i < len(row) {
				return row[i]
			}
		}
		return ""
	}

	var records []RawTwitterRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return records, fmt.Errorf("read csv row: %w", err)
		}

		records = append(records, RawTwitterRecord{
			ID:             get(row, "id"),
			URL:            get(row, "url"),
			Date:           get(row, "date"),
			Username:       get(row, "username"),
			DisplayName:    get(row, "display_name"),
			Content:        get(row, "tweet content", "content"),
			LikeCount:      get(row, "likecount"),
			ReplyCount:     get(row, "replycount"),
			RetweetCount:   get(row, "retweetcount"),
			MentionedUsers: get(row, "mentionedusers"),
			Hashtags:       get(row, "hashtags"),
			MediaURLs:      get(row, "media_urls"),
		})
	}
	return records, nil
}

// instagramWireRecord mirrors the raw JSON shape before alias resolution;
// both observed scraper formats (top-level handle/username and the nested
// owner format) decode into this one struct.
type instagramWireRecord struct {
	Handle         string `json:"handle"`
	Username       string `json:"username"`
	Owner          *struct {
		Username string `json:"username"`
		Name     string `json:"name"`
	} `json:"owner"`
	Caption        string `json:"caption"`
	TakenAt        *int64 `json:"taken_at"`
	Date           string `json:"date"`
	ID             string `json:"id"`
	PostID         string `json:"post_id"`
	URL            string `json:"url"`
	PostURL        string `json:"post_url"`
	MediaURLs      []string `json:"media_urls"`
	SrcURL         string `json:"src_url"`
	MentionedUsers any    `json:"mentioned_users"`
	Hashtags       any    `json:"hashtags"`
	LikeCount      int64  `json:"like_count"`
	CommentCount   int64  `json:"comment_count"`
	DisplayName    string `json:"display_name"`
}

// DecodeInstagramJSON parses a JSON array of Instagram post objects per
// spec.md §6, tolerating both the handle/username and owner.username shapes.
func DecodeInstagramJSON(r io.Reader) ([]RawInstagramRecord, error) {
	var wire []instagramWireRecord
	if err := goccyjson.NewDecoder(r).Decode(&wire); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode instagram json: %w", err)
	}

	records := make([]RawInstagramRecord, 0, len(wire))
	for _, w := range wire {
		rec := RawInstagramRecord{
			Handle:         w.Handle,
			Username:       w.Username,
			Caption:        w.Caption,
			TakenAt:        w.TakenAt,
			Date:           w.Date,
			ID:             w.ID,
			PostID:         w.PostID,
			URL:            firstNonEmpty(w.URL, w.PostURL),
			MediaURLs:      w.MediaURLs,
			SrcURL:         w.SrcURL,
			MentionedUsers: w.MentionedUsers,
			Hashtags:       w.Hashtags,
			LikeCount:      w.LikeCount,
			CommentCount:   w.CommentCount,
			DisplayName:    w.DisplayName,
		}
		if w.Owner != nil {
			rec.Owner = &RawInstagramOwner{Username: w.Owner.Username, Name: w.Owner.Name}
		}
		records = append(records, rec)
	}
	return records, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
