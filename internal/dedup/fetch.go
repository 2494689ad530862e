// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package dedup

import (
	"context"
	"fmt"
	"strings"

	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
)

// loadEventDetails fetches the event fields analyzeGroup's prompt needs,
// keyed by ID (grounded on get_event_details's column projection).
func loadEventDetails(ctx context.Context, gw *storage.Gateway, eventIDs []string) (map[string]models.Event, error) {
	out := make(map[string]models.Event, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}

	placeholders, args := inClausePlaceholders(eventIDs)
	query := fmt.Sprintf(`SELECT id, event_name, event_date, event_description, city, state, category_tags
		FROM events WHERE id IN (%s)`, placeholders)

	err := gw.WithRetry(ctx, "load_event_details", func(ctx context.Context) error {
		rows, err := gw.DB().QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var e models.Event
			var eventDate, categoryTags *string
			if err := rows.Scan(&e.ID, &e.EventName, &eventDate, &e.EventDescription, &e.City, &e.State, &categoryTags); err != nil {
				return err
			}
			e.EventDate = eventDate
			if categoryTags != nil && *categoryTags != "" {
				e.CategoryTags = strings.Split(*categoryTags, "\x1f")
			}
			out[e.ID] = e
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load event details: %w", err)
	}
	return out, nil
}

// inClausePlaceholders builds a "?,?,?" placeholder list and the matching
// []any argument slice, mirroring internal/extract/linker.go's helper of
// the same name (kept package-local since the two packages share no common
// SQL-helper dependency).
func inClausePlaceholders(values []string) (string, []any) {
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	return strings.Join(placeholders, ","), args
}
