// Package migrations owns the Result Store's schema history: the
// targets/results/block_explorer_heights tables and the
// uptime_stats_by_port materialized view, applied with goose
// against the ClickHouse dialect.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Migrator applies and inspects the Result Store's goose migrations.
type Migrator struct {
	db *sql.DB
}

// NewMigrator builds a Migrator over an already-open ClickHouse
// connection (the same *sql.DB the Store uses).
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

func (m *Migrator) configure() error {
	goose.SetBaseFS(migrationFiles)
	return goose.SetDialect(string(goose.DialectClickHouse))
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.configure(); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, m.db, "sql"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Down rolls back the most recently applied migration.
func (m *Migrator) Down(ctx context.Context) error {
	if err := m.configure(); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.DownContext(ctx, m.db, "sql"); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	return nil
}

// Status reports the applied/pending state of every migration to the
// logger goose itself writes to.
func (m *Migrator) Status(ctx context.Context) error {
	if err := m.configure(); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return goose.StatusContext(ctx, m.db, "sql")
}

// Run applies pending migrations if autoMigrate is set
// (store.auto_migrate / CLICKHOUSE_AUTO_MIGRATE, on by default).
func Run(ctx context.Context, db *sql.DB, autoMigrate bool) error {
	if !autoMigrate {
		return nil
	}
	return NewMigrator(db).Up(ctx)
}
