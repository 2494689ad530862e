// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// LocationType distinguishes a city-level cache entry from a state-level one.
type LocationType string

const (
	LocationTypeCity  LocationType = "city"
	LocationTypeState LocationType = "state"
)

// LocationCoordinate caches a geocoded (city, state) or (state) lookup keyed
// by (City, State, LocationType); City is empty for state-only entries.
type LocationCoordinate struct {
	City         string
	State        string
	LocationType LocationType
	Latitude     float64
	Longitude    float64
	Source       string
	Confidence   float64
	LastVerified time.Time
}

// Key returns the cache lookup key for this coordinate.
func (l LocationCoordinate) Key() string {
	if l.LocationType == LocationTypeState {
		return l.State + "|" + string(LocationTypeState)
	}
	return l.City + "|" + l.State + "|" + string(LocationTypeCity)
}

// virtualCityNames are placeholder city values that never resolve to real
// coordinates and must not consume geocoding quota (spec.md §4.H).
var virtualCityNames = map[string]bool{
	"unknown":   true,
	"nationwide": true,
	"online":    true,
	"tbd":       true,
	"virtual":   true,
	"n/a":       true,
}

// IsVirtualCityName reports whether a city value is a known non-geocodable
// placeholder (case-insensitive).
func IsVirtualCityName(city string) bool {
	return virtualCityNames[normalizeForVirtualCheck(city)]
}

func normalizeForVirtualCheck(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c == ' ' {
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// DuplicateGroupPair describes one pairwise similarity within a DuplicateGroup.
type DuplicateGroupPair struct {
	EventIDA   string
	EventIDB   string
	Similarity float64
}

// DuplicateGroup is a read-only cluster of candidate-duplicate events
// produced by a precomputed SQL view (spec.md §4.G).
type DuplicateGroup struct {
	GroupID            string
	EventIDs           []string
	MaxSimilarityScore float64
	AvgSimilarityScore float64
	ConfidenceLevel    string
	GroupSize          int
	Pairs              []DuplicateGroupPair
}
