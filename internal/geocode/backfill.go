// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on backfill_v2_event_coordinates_enhanced's main sequence,
// minus Gemini venue normalization (out of scope: spec.md §4.H names only
// the virtual-city pre-pass, cache consult, geocoding fallback, and bulk
// update; venue-name-to-city/state normalization is a distinct feature the
// distillation did not carry forward).
package geocode

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/civictrace/pipeline/internal/logging"
	"github.com/civictrace/pipeline/internal/metrics"
	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
)

// Result summarizes one backfill pass.
type Result struct {
	StatewideCleared int
	NationalCleared  int
	CacheHits        int
	Geocoded         int
	Failed           int
	EventsUpdated    int
}

// Backfill runs the full coordinate-backfill stage (spec.md §4.H final
// stage): clear virtual cities, resolve every (city,state) missing
// coordinates from the cache or provider, then bulk-update matching events.
func Backfill(ctx context.Context, gw *storage.Gateway, provider Provider) (Result, error) {
	log := logging.LoggerFromContext(ctx)
	var res Result

	statewide, national, err := ClearVirtualCities(ctx, gw)
	if err != nil {
		return res, fmt.Errorf("backfill: %w", err)
	}
	res.StatewideCleared, res.NationalCleared = statewide, national
	log.Info().Int("statewide_cleared", statewide).Int("national_cleared", national).Msg("virtual city pre-pass complete")

	locations, err := locationsNeedingCoordinates(ctx, gw)
	if err != nil {
		return res, fmt.Errorf("backfill: %w", err)
	}

	cache, err := loadCoordinateCache(ctx, gw)
	if err != nil {
		return res, fmt.Errorf("backfill: %w", err)
	}

	resolved := make(map[string]models.LocationCoordinate, len(locations))
	var newlyGeocoded []models.LocationCoordinate

	for _, loc := range locations {
		if cached, ok := cache[loc.Key()]; ok {
			resolved[loc.Key()] = cached
			res.CacheHits++
			metrics.RecordGeocodeLookup("hit", 0)
			continue
		}
		lookupStart := time.Now()
		lat, lon, err := provider.Geocode(ctx, loc.City, loc.State)
		if err != nil {
			log.Warn().Err(err).Str("city", loc.City).Str("state", loc.State).Msg("geocoding failed")
			res.Failed++
			metrics.RecordGeocodeLookup("error", time.Since(lookupStart))
			continue
		}
		metrics.RecordGeocodeLookup("miss", time.Since(lookupStart))
		coord := models.LocationCoordinate{City: loc.City, State: loc.State, LocationType: loc.LocationType, Latitude: lat, Longitude: lon, Source: "provider", Confidence: 0.95}
		resolved[loc.Key()] = coord
		newlyGeocoded = append(newlyGeocoded, coord)
		res.Geocoded++
	}

	if err := saveCoordinates(ctx, gw, newlyGeocoded); err != nil {
		return res, fmt.Errorf("backfill: save coordinates: %w", err)
	}

	updated, err := bulkUpdateEvents(ctx, gw, resolved)
	if err != nil {
		return res, fmt.Errorf("backfill: %w", err)
	}
	res.EventsUpdated = updated

	log.Info().Int("events_updated", updated).Int("cache_hits", res.CacheHits).Int("geocoded", res.Geocoded).Int("failed", res.Failed).Msg("coordinate backfill complete")
	return res, nil
}

// locationsNeedingCoordinates finds every distinct (city, state) - and
// every distinct state-only - combination among events still missing
// latitude/longitude.
func locationsNeedingCoordinates(ctx context.Context, gw *storage.Gateway) ([]models.LocationCoordinate, error) {
	seen := make(map[string]bool)
	var out []models.LocationCoordinate

	err := gw.WithRetry(ctx, "geocode_locations_needed", func(ctx context.Context) error {
		rows, err := gw.DB().QueryContext(ctx, `SELECT DISTINCT city, state FROM events
			WHERE latitude IS NULL AND city IS NOT NULL AND city != '' AND state IS NOT NULL AND state != ''`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var city, state string
			if err := rows.Scan(&city, &state); err != nil {
				return err
			}
			loc := models.LocationCoordinate{City: city, State: state, LocationType: models.LocationTypeCity}
			if !seen[loc.Key()] {
				seen[loc.Key()] = true
				out = append(out, loc)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	err = gw.WithRetry(ctx, "geocode_state_only_locations_needed", func(ctx context.Context) error {
		rows, err := gw.DB().QueryContext(ctx, `SELECT DISTINCT state FROM events
			WHERE latitude IS NULL AND (city IS NULL OR city = '') AND state IS NOT NULL AND state != ''`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var state string
			if err := rows.Scan(&state); err != nil {
				return err
			}
			loc := models.LocationCoordinate{State: state, LocationType: models.LocationTypeState}
			if !seen[loc.Key()] {
				seen[loc.Key()] = true
				out = append(out, loc)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// bulkUpdateEvents updates every event matching a resolved (city,state) or
// state-only location that still lacks coordinates.
func bulkUpdateEvents(ctx context.Context, gw *storage.Gateway, resolved map[string]models.LocationCoordinate) (int, error) {
	total := 0
	for _, c := range resolved {
		err := gw.WithRetry(ctx, "geocode_bulk_update_events", func(ctx context.Context) error {
			var res sql.Result
			var execErr error
			if c.LocationType == models.LocationTypeState {
				res, execErr = gw.DB().ExecContext(ctx,
					`UPDATE events SET latitude = ?, longitude = ? WHERE state = ? AND (city IS NULL OR city = '') AND latitude IS NULL`,
					c.Latitude, c.Longitude, c.State)
			} else {
				res, execErr = gw.DB().ExecContext(ctx,
					`UPDATE events SET latitude = ?, longitude = ? WHERE city = ? AND state = ? AND latitude IS NULL`,
					c.Latitude, c.Longitude, c.City, c.State)
			}
			if execErr != nil {
				return execErr
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			total += int(n)
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("bulk update events for %s: %w", c.Key(), err)
		}
	}
	return total, nil
}
