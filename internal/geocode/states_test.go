// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package geocode

import "testing"

func TestIsValidUSState(t *testing.T) {
	cases := map[string]bool{
		"California":  true,
		"ca":          true,
		"  Texas  ":   true,
		"Nationwide":  false,
		"":            false,
		"Puerto Rico": false,
	}
	for in, want := range cases {
		if got := isValidUSState(in); got != want {
			t.Errorf("isValidUSState(%q) = %v, want %v", in, got, want)
		}
	}
}
