// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package geocode implements the coordinate backfill stage (spec.md §4.H
// final stage), grounded on
// original_source/automation/scripts/backfill_coordinates.py's
// backfill_v2_event_coordinates_enhanced: a virtual-city pre-pass, a
// LocationCoordinate cache consult, a geocoding-provider fallback, and a
// bulk per-(city,state) event update. The geocoding provider itself is an
// external collaborator (spec.md §1 Non-goals): this package depends only
// on the Provider interface, never a concrete vendor SDK.
package geocode
