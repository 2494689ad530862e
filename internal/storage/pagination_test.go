// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"testing"
)

func TestFetchAllStopsOnShortPage(t *testing.T) {
	pages := [][]int{{1, 2, 3}, {4, 5, 6}, {7}}
	call := 0
	var seen []int

	fetch := func(_ context.Context, offset, limit int) ([]int, error) {
		idx := offset / limit
		if idx >= len(pages) {
			return nil, nil
		}
		call++
		return pages[idx], nil
	}

	err := FetchAll(context.Background(), 3, fetch, func(page []int) error {
		seen = append(seen, page...)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if call != 3 {
		t.Fatalf("expected 3 page fetches, got %d", call)
	}
	if len(seen) != 7 {
		t.Fatalf("expected 7 items, got %d", len(seen))
	}
}

func TestChunkStrings(t *testing.T) {
	ids := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		ids = append(ids, "x")
	}
	chunks := ChunkStrings(ids, 50)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 50 || len(chunks[2]) != 20 {
		t.Fatalf("unexpected chunk sizes: %d, %d", len(chunks[0]), len(chunks[2]))
	}
}

func TestIsConnectionError(t *testing.T) {
	cases := map[string]bool{
		"server disconnected":     true,
		"context deadline, i/o timeout": true,
		"connection reset by peer": true,
		"syntax error near FROM":  false,
		"violates unique constraint": false,
	}
	for msg, want := range cases {
		if got := isConnectionError(errString(msg)); got != want {
			t.Errorf("isConnectionError(%q) = %v, want %v", msg, got, want)
		}
	}
}

func TestIsDuplicateKeyError(t *testing.T) {
	if !isDuplicateKeyError(errString("duplicate key value violates unique constraint")) {
		t.Fatal("expected duplicate key error to be detected")
	}
	if isDuplicateKeyError(errString("connection refused")) {
		t.Fatal("did not expect connection refused to be a duplicate key error")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
