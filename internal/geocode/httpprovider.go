// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// HTTPProvider is the one concrete Provider this module ships: a thin JSON
// client against an operator-configured geocoding endpoint. spec.md §1
// treats the geocoding vendor itself as an external collaborator, so this
// stays a generic (city,state)->(lat,lon) HTTP call rather than a
// vendor-specific SDK integration; no example repo in the retrieval pack
// imports a geocoding library to ground a concrete choice against.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPProvider calls an operator-configured geocoding endpoint expecting
// GET {BaseURL}?city=...&state=...&key=... and a JSON body
// {"lat": <float>, "lon": <float>}.
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewHTTPProvider builds an HTTPProvider with the given request timeout.
func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

type geocodeResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocode implements Provider.
func (p *HTTPProvider) Geocode(ctx context.Context, city, state string) (float64, float64, error) {
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return 0, 0, fmt.Errorf("parse geocode provider url: %w", err)
	}
	q := u.Query()
	q.Set("city", city)
	q.Set("state", state)
	if p.APIKey != "" {
		q.Set("key", p.APIKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("build geocode request: %w", err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode %s, %s: %w", city, state, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocode %s, %s: provider returned status %d", city, state, resp.StatusCode)
	}

	var out geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, 0, fmt.Errorf("decode geocode response for %s, %s: %w", city, state, err)
	}
	return out.Lat, out.Lon, nil
}
