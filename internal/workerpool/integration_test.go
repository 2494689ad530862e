// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Exercises the Publisher/Subscriber pair against a real JetStream broker,
// per internal/testinfra/doc.go's own documented NATS Container example.

//go:build integration

package workerpool

import (
	"context"
	"testing"
	"time"

	"github.com/civictrace/pipeline/internal/testinfra"
)

func TestPublishSubscribeRoundTrip(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	broker, err := testinfra.NewNATSContainer(ctx)
	if err != nil {
		t.Fatalf("start nats container: %v", err)
	}
	defer broker.Terminate(ctx) //nolint:errcheck

	pub, err := NewPublisher(DefaultPublisherConfig(broker.URL), nil)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer pub.Close()

	sub, err := NewSubscriber(&SubscriberConfig{
		URL:              broker.URL,
		QueueGroup:       "extraction-workers-test",
		DurableName:      "extraction-worker-test",
		SubscribersCount: 1,
		MaxDeliver:       1,
		MaxAckPending:    8,
		AckWaitTimeout:   10 * time.Second,
		CloseTimeout:     5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("new subscriber: %v", err)
	}
	defer sub.Close()

	received := make(chan *BatchJob, 1)
	handler := sub.NewBatchHandler(BatchTopic).Handle(func(_ context.Context, job *BatchJob) error {
		received <- job
		return nil
	})
	go handler.Run(ctx) //nolint:errcheck
	time.Sleep(500 * time.Millisecond) // let the JetStream consumer bind before publishing

	job := &BatchJob{BatchID: "batch-1", PipelineRunID: "run-1", EstimatedTokens: 1234}
	if err := pub.PublishBatch(ctx, job); err != nil {
		t.Fatalf("publish batch: %v", err)
	}

	select {
	case got := <-received:
		if got.BatchID != job.BatchID || got.PipelineRunID != job.PipelineRunID {
			t.Fatalf("round-tripped job mismatch: got %+v, want %+v", got, job)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for published batch to be delivered")
	}
}
