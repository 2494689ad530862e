// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus
//
// Adapted from internal/eventprocessor/subscriber.go: the same durable
// JetStream subscriber, retargeted from consuming playback events to
// consuming BatchJobs off a shared queue group of extraction workers.

package workerpool

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/civictrace/pipeline/internal/metrics"
)

// Subscriber wraps a Watermill subscriber configured for durable JetStream
// consumption with queue-group load balancing across workers.
type Subscriber struct {
	subscriber message.Subscriber
	config     SubscriberConfig
	logger     watermill.LoggerAdapter
}

// NewSubscriber creates a durable JetStream subscriber bound to
// cfg.StreamName, consuming via cfg.QueueGroup so each BatchJob reaches
// exactly one worker.
func NewSubscriber(cfg *SubscriberConfig, logger watermill.LoggerAdapter) (*Subscriber, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("subscriber disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("subscriber reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverNew(),
	}

	autoProvision := true
	if cfg.StreamName != "" {
		subOpts = append(subOpts, natsgo.BindStream(cfg.StreamName))
		autoProvision = false
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    autoProvision,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Subscriber{subscriber: sub, config: *cfg, logger: logger}, nil
}

// Subscribe returns a channel of raw messages for topic.
func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return s.subscriber.Subscribe(ctx, topic)
}

// Close gracefully shuts down the subscriber.
func (s *Subscriber) Close() error {
	return s.subscriber.Close()
}

// BatchHandler processes decoded BatchJobs from topic until ctx is canceled.
type BatchHandler struct {
	subscriber *Subscriber
	topic      string
	handler    func(ctx context.Context, job *BatchJob) error
	logger     watermill.LoggerAdapter
}

// NewBatchHandler creates a handler that decodes BatchJobs off topic.
func (s *Subscriber) NewBatchHandler(topic string) *BatchHandler {
	return &BatchHandler{subscriber: s, topic: topic, logger: s.logger}
}

// Handle sets the batch-processing function. Returning an error nacks the
// message, which is redelivered per the subscriber's MaxDeliver setting.
func (h *BatchHandler) Handle(fn func(ctx context.Context, job *BatchJob) error) *BatchHandler {
	h.handler = fn
	return h
}

// Run starts processing batches until context cancellation.
func (h *BatchHandler) Run(ctx context.Context) error {
	messages, err := h.subscriber.Subscribe(ctx, h.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", h.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := h.processMessage(ctx, msg); err != nil {
				h.logger.Error("batch processing failed", err, watermill.LogFields{
					"message_uuid": msg.UUID,
					"topic":        h.topic,
				})
			}
		}
	}
}

func (h *BatchHandler) processMessage(ctx context.Context, msg *message.Message) error {
	metrics.RecordNATSConsume()

	job, err := DeserializeJob(msg.Payload)
	if err != nil {
		// A message that will never parse should not be retried forever.
		msg.Ack()
		return fmt.Errorf("decode batch job: %w", err)
	}

	if h.handler == nil {
		msg.Ack()
		return nil
	}

	if err := h.handler(ctx, job); err != nil {
		msg.Nack()
		return err
	}

	msg.Ack()
	return nil
}
