// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package workerpool

import "time"

// Topic names for the batch queue. BatchTopic carries newly built batches
// from the Batch Builder; PoisonTopic receives batches that failed every
// retry attempt.
const (
	BatchTopic  = "batches.pending"
	ResultTopic = "batches.results"
	PoisonTopic = "dlq.batches"
)

// PublisherConfig configures the NATS JetStream publisher that feeds
// batches onto BatchTopic.
type PublisherConfig struct {
	URL               string
	MaxReconnects     int
	ReconnectWait     time.Duration
	ReconnectBuffer   int
	EnableTrackMsgID  bool
}

// DefaultPublisherConfig returns production defaults.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024,
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig configures a durable JetStream consumer bound to
// BatchTopic, shared by every worker in the pool via a common queue group
// so each batch is delivered to exactly one worker.
type SubscriberConfig struct {
	URL              string
	StreamName       string
	QueueGroup       string
	DurableName      string
	SubscribersCount int
	MaxReconnects    int
	ReconnectWait    time.Duration
	MaxDeliver       int
	MaxAckPending    int
	AckWaitTimeout   time.Duration
	CloseTimeout     time.Duration
}

// DefaultSubscriberConfig returns production defaults for a pool of
// workerCount consumers.
func DefaultSubscriberConfig(url string, workerCount int) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		StreamName:       "BATCHES",
		QueueGroup:       "extraction-workers",
		DurableName:      "extraction-worker",
		SubscribersCount: workerCount,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		MaxDeliver:       1,
		MaxAckPending:    workerCount * 2,
		AckWaitTimeout:   10 * time.Minute,
		CloseTimeout:     30 * time.Second,
	}
}

// RouterConfig mirrors the teacher's Router middleware configuration,
// retargeted at batch delivery instead of playback events.
type RouterConfig struct {
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	ThrottlePerSecond int64

	PoisonQueueTopic string
}

// DefaultRouterConfig returns production defaults for the Router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      5,
		RetryInitialInterval: time.Second,
		RetryMaxInterval:     time.Minute,
		RetryMultiplier:      2.0,
		ThrottlePerSecond:    0,
		PoisonQueueTopic:     PoisonTopic,
	}
}
