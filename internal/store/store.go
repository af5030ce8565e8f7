// Package store is the result-store repository layer over ClickHouse:
// target registration (from Discovery), append-only probe result
// insertion (from Dispatch), and the read queries the Query/Render
// layer builds its views from.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2" // registers the "clickhouse" database/sql driver

	"hosh/pkg/apperror"
	"hosh/pkg/config"
	"hosh/pkg/metrics"
)

// Store wraps the ClickHouse connection pool used by every role that
// touches the result store (web, checker-*, discovery).
type Store struct {
	db *sql.DB
}

// Open connects to ClickHouse using cfg.Store.DSN() and verifies the
// connection with a Ping, matching the teacher's PostgresRepository's
// fail-fast construction pattern.
func Open(cfg config.StoreConfig) (*Store, error) {
	db, err := sql.Open("clickhouse", cfg.DSN())
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeStoreUnreachable, "failed to open clickhouse connection")
	}
	db.SetMaxOpenConns(32)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperror.Wrap(err, apperror.CodeStoreUnreachable, "failed to reach clickhouse")
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies connectivity, used by health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB returns the underlying connection pool, for callers that need it
// outside the repository methods above — namely cmd/hosh running
// internal/store/migrations against the same pool at startup.
func (s *Store) DB() *sql.DB {
	return s.db
}

// timeQuery records a store query's duration and error outcome against
// the Prometheus metrics the teacher's metrics package already exposes
// (RecordStoreQuery), then returns err unchanged so callers can still
// wrap/propagate it.
func timeQuery(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.Get().RecordStoreQuery(operation, time.Since(start), err)
	return err
}

