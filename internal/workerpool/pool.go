// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package workerpool

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/thejerf/suture/v4"

	"github.com/civictrace/pipeline/internal/cache"
)

// Pool holds the live set of extraction workers. It does not itself
// implement suture.Service — each Worker is registered individually with
// internal/supervisor's workers layer so one panicking worker restarts
// without affecting the others.
type Pool struct {
	Workers []*Worker
}

// NewPool builds the worker set for Component E: N = min(maxWorkers,
// len(apiKeys)), at least 1 (spec.md §4.E Worker count selection). Each
// worker is bound to its own API key, shares one NATS subscriber
// (consuming via a common queue group so each batch reaches exactly one
// worker) and one result publisher, and carries its staggered-startup
// delay per StaggerDelays.
func NewPool(
	apiKeys []string,
	maxWorkers int,
	cooldown time.Duration,
	extractor Extractor,
	subscriber *Subscriber,
	resultPublisher *Publisher,
	cancelCheck CancelPredicate,
	logger watermill.LoggerAdapter,
) *Pool {
	n := maxWorkers
	if len(apiKeys) > 0 && len(apiKeys) < n {
		n = len(apiKeys)
	}
	if n < 1 {
		n = 1
	}

	delays := StaggerDelays(n)
	workers := make([]*Worker, n)
	for i := 0; i < n; i++ {
		key := ""
		if i < len(apiKeys) {
			key = apiKeys[i]
		}
		workers[i] = &Worker{
			ID:              i,
			APIKey:          key,
			Cooldown:        cooldown,
			StaggerDelay:    delays[i],
			Extractor:       extractor,
			Subscriber:      subscriber,
			ResultPublisher: resultPublisher,
			CancelCheck:     cancelCheck,
			Logger:          logger,
			requestWindow:   cache.NewSlidingWindowCounter(requestWindowSize, requestWindowBuckets),
		}
	}

	return &Pool{Workers: workers}
}

// RegisterWith adds every worker to sup as a supervised service and
// returns their tokens, in worker-index order.
func (p *Pool) RegisterWith(sup *suture.Supervisor) []suture.ServiceToken {
	tokens := make([]suture.ServiceToken, len(p.Workers))
	for i, w := range p.Workers {
		tokens[i] = sup.Add(w)
	}
	return tokens
}

// TotalRequestsMade sums requestsMade across every worker, used for
// metrics and end-of-run summaries.
func (p *Pool) TotalRequestsMade() int64 {
	var total int64
	for _, w := range p.Workers {
		total += w.RequestsMade()
	}
	return total
}

// TotalRequestsInLastMinute sums each worker's trailing-minute request
// count, giving a live rate figure distinct from the cumulative total.
func (p *Pool) TotalRequestsInLastMinute() int64 {
	var total int64
	for _, w := range p.Workers {
		total += w.RequestsInLastMinute()
	}
	return total
}
