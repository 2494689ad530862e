// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package media implements the Media Fetcher (spec.md §4.C): for every post
// with candidate media URLs and no usable offline_media_url, it downloads
// one representative item, uploads it to the object store under a
// deterministic key, and writes back either the resulting public URL or a
// terminal EXPIRED/PERMANENTLY_EXPIRED sentinel.
//
// # Concurrency
//
// Two channel-gated semaphores bound outbound work: one for HTTP downloads
// (default 100), one for object-store uploads (default 50), following the
// teacher's own preference for buffered-channel gating over an external
// semaphore package. Sub-batches of 50 posts are separated by a fixed pause
// to smooth outbound request rate.
//
// # Idempotence
//
// Fetcher pre-loads the target bucket's key listing once at startup; a
// post whose deterministic key is already present short-circuits straight
// to the existing public URL without re-downloading.
package media
