// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package geocode

import "context"

// Provider resolves a (city, state) or (\"\", state) pair to coordinates.
// It is the single seam through which this package reaches an external
// geocoding vendor (spec.md §1 Non-goals: "geocoding providers... treated
// as a (city,state)->(lat,lon) function").
type Provider interface {
	Geocode(ctx context.Context, city, state string) (lat, lon float64, err error)
}
