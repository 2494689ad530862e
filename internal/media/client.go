// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// HTTP client pooling mirrors the teacher's own connection-pool sizing
// discipline (internal/database/database_connection.go caps MaxIdleConns at
// a small number for efficient reuse without exhausting the downstream
// service); here the same discipline is applied to outbound media fetches
// instead of DuckDB connections, per spec.md §4.C's "DNS and connection
// pools are capped" requirement.

package media

import (
	"net"
	"net/http"
	"time"
)

// defaultMaxIdleConns and defaultMaxIdleConnsPerHost match spec.md §4.C's
// "≤150 total, ≤50 per host" connection pool ceiling.
const (
	defaultMaxIdleConns        = 150
	defaultMaxIdleConnsPerHost = 50
	defaultDialTimeout         = 10 * time.Second
	defaultRequestTimeout      = 30 * time.Second
)

// newHTTPClient builds an http.Client with capped idle-connection pools, so
// a long-running fetch of thousands of distinct hosts never exhausts file
// descriptors or trips an upstream's own per-IP connection limit.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultRequestTimeout,
	}
}
