// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus
//
// Adapted from the deleted tautulli.go: the same testcontainers
// start/wait/teardown shape, retargeted from a seeded Tautulli instance to
// a JetStream-enabled NATS broker for internal/workerpool's integration
// tests.

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultNATSImage is the official NATS Docker image with JetStream support.
	DefaultNATSImage = "nats:2.10-alpine"

	// DefaultNATSClientPort is the NATS client connection port.
	DefaultNATSClientPort = "4222"

	// DefaultNATSMonitorPort is the NATS HTTP monitoring port.
	DefaultNATSMonitorPort = "8222"
)

// NATSContainer represents a running NATS broker for testing the Worker
// Pool's batch dispatch queue.
type NATSContainer struct {
	testcontainers.Container
	URL string
}

// NATSOption configures the NATS container.
type NATSOption func(*natsConfig)

type natsConfig struct {
	image        string
	startTimeout time.Duration
}

// WithNATSImage sets a custom NATS Docker image.
func WithNATSImage(image string) NATSOption {
	return func(c *natsConfig) { c.image = image }
}

// WithNATSStartTimeout sets the timeout for waiting for NATS to start.
func WithNATSStartTimeout(timeout time.Duration) NATSOption {
	return func(c *natsConfig) { c.startTimeout = timeout }
}

// NewNATSContainer creates and starts a JetStream-enabled NATS broker.
//
// Example:
//
//	ctx := context.Background()
//	broker, err := testinfra.NewNATSContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer broker.Terminate(ctx)
//
//	pub, err := workerpool.NewPublisher(workerpool.DefaultPublisherConfig(broker.URL), nil)
func NewNATSContainer(ctx context.Context, opts ...NATSOption) (*NATSContainer, error) {
	cfg := &natsConfig{
		image:        DefaultNATSImage,
		startTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		Cmd:          []string{"-js", "-m", DefaultNATSMonitorPort},
		ExposedPorts: []string{DefaultNATSClientPort + "/tcp", DefaultNATSMonitorPort + "/tcp"},
		WaitingFor: wait.ForHTTP("/healthz").
			WithPort(DefaultNATSMonitorPort + "/tcp").
			WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create nats container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, DefaultNATSClientPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	return &NATSContainer{
		Container: container,
		URL:       fmt.Sprintf("nats://%s:%s", host, port.Port()),
	}, nil
}

// Terminate stops and removes the NATS container.
func (c *NATSContainer) Terminate(ctx context.Context) error {
	return c.Container.Terminate(ctx)
}
