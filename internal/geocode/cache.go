// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on preload_cache_batch/batch_save_to_cache: a single bulk load
// of the whole location_coordinates table instead of per-lookup queries.
package geocode

import (
	"context"
	"fmt"
	"time"

	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
)

// loadCoordinateCache bulk-loads every cached coordinate, keyed by
// models.LocationCoordinate.Key().
func loadCoordinateCache(ctx context.Context, gw *storage.Gateway) (map[string]models.LocationCoordinate, error) {
	cache := make(map[string]models.LocationCoordinate)
	err := gw.WithRetry(ctx, "geocode_preload_cache", func(ctx context.Context) error {
		rows, err := gw.DB().QueryContext(ctx, `SELECT city, state, location_type, latitude, longitude FROM location_coordinates`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var c models.LocationCoordinate
			var locType string
			if err := rows.Scan(&c.City, &c.State, &locType, &c.Latitude, &c.Longitude); err != nil {
				return err
			}
			c.LocationType = models.LocationType(locType)
			cache[c.Key()] = c
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("preload coordinate cache: %w", err)
	}
	return cache, nil
}

// saveCoordinates UPSERTs newly geocoded coordinates into the cache table,
// keyed on (city, state) per backfill_coordinates.py's unique constraint.
func saveCoordinates(ctx context.Context, gw *storage.Gateway, coords []models.LocationCoordinate) error {
	if len(coords) == 0 {
		return nil
	}
	rows := make([]storage.Row, len(coords))
	now := time.Now().UTC()
	for i, c := range coords {
		rows[i] = storage.Row{
			"city":          c.City,
			"state":         c.State,
			"location_type": string(c.LocationType),
			"latitude":      c.Latitude,
			"longitude":     c.Longitude,
			"source":        c.Source,
			"confidence":    c.Confidence,
			"last_verified": now,
			"created_at":    now,
			"updated_at":    now,
		}
	}
	_, err := gw.UpsertBatch(ctx, "location_coordinates", []string{"city", "state"}, "city", rows)
	return err
}
