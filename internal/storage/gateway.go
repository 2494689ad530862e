// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Adapted for civictrace/pipeline from internal/database/database.go and
// internal/database/database_connection.go: same connection-pool sizing and
// connection-error classification, generalized into a reusable gateway for
// chunked batch UPSERTs instead of ad-hoc per-query writes.

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/civictrace/pipeline/internal/metrics"
)

// Config configures the Storage Gateway.
type Config struct {
	// Path is the DuckDB file backing the relational store.
	Path string
	// RPS is the process-wide requests-per-second ceiling (DB_RPS).
	RPS float64
	// MaxRetries bounds the geometric back-off retry loop. Default 10.
	MaxRetries int
	// BaseBackoff is the first retry delay; doubles each attempt. Default 1s.
	BaseBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.RPS <= 0 {
		c.RPS = 20
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 10
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	return c
}

// Gateway is the single point through which every pipeline stage reaches the
// relational store and the object store.
type Gateway struct {
	db      *sql.DB
	cfg     Config
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[any]
	objects ObjectStore
	log     zerolog.Logger
}

// New opens the relational store and wires the rate limiter and circuit
// breaker. objects may be nil if this process never touches the object
// store (e.g. the deduplicator).
func New(cfg Config, objects ObjectStore, log zerolog.Logger) (*Gateway, error) {
	cfg = cfg.withDefaults()

	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", cfg.Path, err)
	}
	db.SetMaxOpenConns(runtime.NumCPU())
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb %s: %w", cfg.Path, err)
	}

	breakerSettings := gobreaker.Settings{
		Name:        "storage-gateway",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > uint32(cfg.MaxRetries)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateToFloat(to))
		},
	}

	return &Gateway{
		db:      db,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), int(cfg.RPS)+1),
		breaker: gobreaker.NewCircuitBreaker[any](breakerSettings),
		objects: objects,
		log:     log.With().Str("component", "storage_gateway").Logger(),
	}, nil
}

// Close closes the underlying database connection.
func (g *Gateway) Close() error {
	return g.db.Close()
}

// DB exposes the raw handle for stages (e.g. dedup's view queries) that need
// ad-hoc SQL beyond the generic helpers below.
func (g *Gateway) DB() *sql.DB {
	return g.db
}

// WithTx runs fn inside a single database transaction, retrying the whole
// transaction under the same transient-error/back-off/circuit-breaker policy
// as WithRetry. fn must use the *sql.Tx it is given, not g.DB(), so every
// statement participates in the same transaction and rolls back together.
// Used by the Deduplicator (spec.md §4.G), whose merge is a multi-statement
// unit that must not partially apply.
func (g *Gateway) WithTx(ctx context.Context, op string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return g.WithRetry(ctx, op, func(ctx context.Context) error {
		tx, err := g.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%s: begin tx: %w", op, err)
		}
		if err := fn(ctx, tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%s: commit tx: %w", op, err)
		}
		return nil
	})
}

// breakerStateToFloat converts a circuit breaker state to the numeric value
// the circuit_breaker_state gauge publishes.
func breakerStateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// isConnectionError checks whether err indicates a transient connection
// loss rather than a query-level failure, mirroring the teacher's
// database_connection.go classification.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"bad connection",
		"driver: bad connection",
		"database is closed",
		"server disconnected",
		"timeout",
		"i/o timeout",
		"eof",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// isDuplicateKeyError reports whether err is a constraint-violation on a
// non-conflict-keyed insert, which the spec requires to be swallowed as a
// no-op rather than retried (spec.md §7, "Duplicate key" row).
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "violates unique")
}

// WithRetry runs fn, retrying transient errors with geometric back-off
// (BaseBackoff * 2^attempt) up to MaxRetries, and behind the gateway's
// circuit breaker so a consistently failing backend stops issuing live
// attempts. Duplicate-key errors are converted to success with no retry.
// Cancellation is checked before each attempt.
func (g *Gateway) WithRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		waitStart := time.Now()
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		metrics.RecordDBRateLimitWait(time.Since(waitStart))

		queryStart := time.Now()
		_, err := g.breaker.Execute(func() (any, error) {
			return nil, fn(ctx)
		})
		metrics.RecordDBQuery(op, "", time.Since(queryStart), err)

		if err == nil {
			return nil
		}
		if isDuplicateKeyError(err) {
			g.log.Debug().Str("op", op).Msg("duplicate key treated as no-op")
			return nil
		}
		lastErr = err
		if !isConnectionError(err) {
			return err
		}

		delay := g.cfg.BaseBackoff * time.Duration(1<<uint(attempt))
		g.log.Warn().Str("op", op).Int("attempt", attempt).Dur("delay", delay).Err(err).Msg("retrying transient storage error")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s: exhausted %d retries: %w", op, g.cfg.MaxRetries, lastErr)
}
