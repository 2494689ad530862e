// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package batch

import (
	"sort"

	"github.com/civictrace/pipeline/internal/models"
)

// sortByTimestamp returns a new slice of posts ordered by Timestamp,
// descending (newest first) when recentFirst is true. Callers must have
// already filtered out posts with a nil Timestamp.
func sortByTimestamp(posts []*models.Post, recentFirst bool) []*models.Post {
	sorted := make([]*models.Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if recentFirst {
			return sorted[i].Timestamp.After(*sorted[j].Timestamp)
		}
		return sorted[i].Timestamp.Before(*sorted[j].Timestamp)
	})
	return sorted
}
