// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"reflect"
	"sort"
	"testing"
)

func TestExtractHandles_FromTextAndExplicitArrays(t *testing.T) {
	handles := extractHandles("Join @Jane_Doe and @bob at the rally, cc @Jane_Doe", []string{"@chapter_la"}, []string{"bob"})
	sort.Strings(handles)
	want := []string{"bob", "chapter_la", "jane_doe"}
	if !reflect.DeepEqual(handles, want) {
		t.Fatalf("got %v, want %v", handles, want)
	}
}

func TestExtractHandles_LengthBounds(t *testing.T) {
	long := ""
	for i := 0; i < 50; i++ {
		long += "x"
	}
	handles := extractHandles("@a @ab @" + long)
	if len(handles) != 2 {
		t.Fatalf("got %v, want exactly 2 handles (the too-short @a dropped)", handles)
	}
	if handles[0] != "ab" {
		t.Errorf("got first handle %q, want \"ab\"", handles[0])
	}
	if len(handles[1]) != 32 {
		t.Errorf("got long handle length %d, want 32 (bounded quantifier cap)", len(handles[1]))
	}
}
