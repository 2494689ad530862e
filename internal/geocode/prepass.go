// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on backfill_v2_event_coordinates_enhanced's virtual/non-geocoded
// city cleanup step (spec.md §4.H pre-pass).
package geocode

import (
	"context"
	"fmt"

	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
)

const maxPrepassUpdateChunk = 100

// ClearVirtualCities scans every event with a non-empty city and, for each
// one whose city is a known virtual/non-geocoded placeholder, either clears
// just the city (state is itself valid: "statewide" event) or clears both
// city and state (no valid state to fall back on: "national" event). It
// returns the counts of each.
func ClearVirtualCities(ctx context.Context, gw *storage.Gateway) (statewide, national int, err error) {
	var statewideIDs, nationalIDs []string

	err = gw.WithRetry(ctx, "geocode_virtual_city_scan", func(ctx context.Context) error {
		rows, err := gw.DB().QueryContext(ctx, `SELECT id, city, state FROM events WHERE city IS NOT NULL AND city != ''`)
		if err != nil {
			return err
		}
		defer rows.Close()

		statewideIDs = nil
		nationalIDs = nil
		for rows.Next() {
			var id, city, state string
			if err := rows.Scan(&id, &city, &state); err != nil {
				return err
			}
			if !models.IsVirtualCityName(city) {
				continue
			}
			if isValidUSState(state) {
				statewideIDs = append(statewideIDs, id)
			} else {
				nationalIDs = append(nationalIDs, id)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return 0, 0, fmt.Errorf("scan virtual cities: %w", err)
	}

	if err := clearColumns(ctx, gw, statewideIDs, "city"); err != nil {
		return 0, 0, err
	}
	if err := clearColumns(ctx, gw, nationalIDs, "city", "state"); err != nil {
		return 0, 0, err
	}

	return len(statewideIDs), len(nationalIDs), nil
}

func clearColumns(ctx context.Context, gw *storage.Gateway, eventIDs []string, columns ...string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	setClause := ""
	for i, c := range columns {
		if i > 0 {
			setClause += ", "
		}
		setClause += c + " = NULL"
	}

	for start := 0; start < len(eventIDs); start += maxPrepassUpdateChunk {
		end := start + maxPrepassUpdateChunk
		if end > len(eventIDs) {
			end = len(eventIDs)
		}
		chunk := eventIDs[start:end]

		err := gw.WithRetry(ctx, "geocode_clear_virtual_city", func(ctx context.Context) error {
			placeholders, args := inClausePlaceholders(chunk)
			_, execErr := gw.DB().ExecContext(ctx, fmt.Sprintf(`UPDATE events SET %s WHERE id IN (%s)`, setClause, placeholders), args...)
			return execErr
		})
		if err != nil {
			return fmt.Errorf("clear virtual city columns (chunk %d-%d): %w", start, end, err)
		}
	}
	return nil
}

func inClausePlaceholders(values []string) (string, []any) {
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	joined := ""
	for i, p := range placeholders {
		if i > 0 {
			joined += ","
		}
		joined += p
	}
	return joined, args
}
