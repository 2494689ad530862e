// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package batch

import (
	"testing"
	"time"

	"github.com/civictrace/pipeline/internal/models"
)

func TestSortByTimestamp(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p0 := mkPost("p0", "a", base, 10)
	p1 := mkPost("p1", "a", base.Add(time.Hour), 10)
	p2 := mkPost("p2", "a", base.Add(2*time.Hour), 10)

	t.Run("recent first", func(t *testing.T) {
		got := sortByTimestamp([]*models.Post{p0, p1, p2}, true)
		if got[0].ID != "p2" || got[1].ID != "p1" || got[2].ID != "p0" {
			t.Errorf("order = %v, want [p2 p1 p0]", idsOf(got))
		}
	})

	t.Run("oldest first", func(t *testing.T) {
		got := sortByTimestamp([]*models.Post{p2, p0, p1}, false)
		if got[0].ID != "p0" || got[1].ID != "p1" || got[2].ID != "p2" {
			t.Errorf("order = %v, want [p0 p1 p2]", idsOf(got))
		}
	})
}

func idsOf(posts []*models.Post) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}
