// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import (
	"net/http"
	"testing"
)

func TestDeterministicKey(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		index int
		ext   string
		want  string
	}{
		{"first candidate omits index", "abc123", 0, "jpg", "abc123.jpg"},
		{"second candidate carries index", "abc123", 1, "png", "abc123_1.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deterministicKey(tt.id, tt.index, tt.ext); got != tt.want {
				t.Errorf("deterministicKey(%q, %d, %q) = %q, want %q", tt.id, tt.index, tt.ext, got, tt.want)
			}
		})
	}
}

func TestExtFromURLOrContentType(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		want        string
	}{
		{"extension from url", "https://example.com/media/photo.PNG", "", "png"},
		{"extension from url with query string", "https://example.com/media/photo.jpg?width=800", "", "jpg"},
		{"falls back to content-type", "https://example.com/media/blob", "image/webp", "webp"},
		{"defaults to jpg", "https://example.com/media/blob", "", "jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extFromURLOrContentType(tt.url, tt.contentType); got != tt.want {
				t.Errorf("extFromURLOrContentType(%q, %q) = %q, want %q", tt.url, tt.contentType, got, tt.want)
			}
		})
	}
}

func TestIsTerminalStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusForbidden, true},
		{http.StatusNotFound, true},
		{http.StatusGone, true},
		{http.StatusInternalServerError, false},
		{http.StatusTooManyRequests, false},
		{http.StatusOK, false},
	}
	for _, tt := range tests {
		if got := isTerminalStatus(tt.code); got != tt.want {
			t.Errorf("isTerminalStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
