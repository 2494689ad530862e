// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import "time"

// Config tunes the Media Fetcher's concurrency and persistence behavior,
// with defaults matching spec.md §4.C.
type Config struct {
	// Bucket is the object-store bucket media items are uploaded to
	// (instagram-media per spec.md §6).
	Bucket string
	// DownloadConcurrency bounds simultaneous HTTP fetches. Default 100.
	DownloadConcurrency int
	// UploadConcurrency bounds simultaneous object-store puts. Default 50.
	UploadConcurrency int
	// SubBatchSize is how many posts are processed before SubBatchPause is
	// applied, to smooth outbound request rate. Default 50.
	SubBatchSize int
	// SubBatchPause is the delay applied after each sub-batch. Default 1s.
	SubBatchPause time.Duration
	// FlushSize is how many pending offline_media_url updates accumulate
	// before a bulk UPDATE is issued. Default 100.
	FlushSize int
}

func (c Config) withDefaults() Config {
	if c.DownloadConcurrency <= 0 {
		c.DownloadConcurrency = 100
	}
	if c.UploadConcurrency <= 0 {
		c.UploadConcurrency = 50
	}
	if c.SubBatchSize <= 0 {
		c.SubBatchSize = 50
	}
	if c.SubBatchPause <= 0 {
		c.SubBatchPause = time.Second
	}
	if c.FlushSize <= 0 {
		c.FlushSize = 100
	}
	return c
}

// Stats accumulates counters for one Media Fetcher run.
type Stats struct {
	PostsConsidered int64
	PostsFetched    int64
	PostsExpired    int64
	PostsPermanentlyExpired int64
	PostsUnresolved int64 // every candidate URL failed non-terminally; retried next run
	DownloadErrors  int64
	UploadErrors    int64
	StartTime       time.Time
	EndTime         time.Time
}

// Duration returns how long the run has taken so far, or took in total once
// EndTime is set.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}
