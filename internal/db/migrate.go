package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateRecomputeTotals(db); err != nil {
		return fmt.Errorf("recomputing estimate totals: %w", err)
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id           TEXT PRIMARY KEY,
		external_id  TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS estimates (
		id             TEXT PRIMARY KEY,
		owner_id       TEXT NOT NULL REFERENCES users(id),
		title          TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		total_cost     REAL NOT NULL DEFAULT 0 CHECK(total_cost >= 0),
		total_duration REAL NOT NULL DEFAULT 0 CHECK(total_duration >= 0),
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_estimates_owner ON estimates(owner_id, updated_at)`,

	`CREATE TABLE IF NOT EXISTS estimate_items (
		id          TEXT PRIMARY KEY,
		estimate_id TEXT NOT NULL REFERENCES estimates(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		duration    REAL NOT NULL CHECK(duration >= 0),
		cost        REAL NOT NULL CHECK(cost >= 0),
		order_index INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_estimate_items_estimate ON estimate_items(estimate_id, order_index)`,

	`CREATE TABLE IF NOT EXISTS work_templates (
		id               TEXT PRIMARY KEY,
		owner_id         TEXT NOT NULL REFERENCES users(id),
		name             TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		category         TEXT NOT NULL DEFAULT '',
		default_duration REAL NOT NULL CHECK(default_duration >= 0),
		default_cost     REAL NOT NULL CHECK(default_cost >= 0),
		usage_count      INTEGER NOT NULL DEFAULT 0 CHECK(usage_count >= 0),
		is_active        INTEGER NOT NULL DEFAULT 1,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_work_templates_owner ON work_templates(owner_id, is_active)`,

	// Items remember the template they were instantiated from. No FK: templates
	// are only soft-deleted, and the reference is historical.
	`ALTER TABLE estimate_items ADD COLUMN template_id TEXT`,
}

// migrateRecomputeTotals re-derives every estimate's cached totals from its
// items. Rows written by older builds that maintained totals outside a
// transaction may have drifted; this restores sum consistency on startup.
// Idempotent: only touches estimates whose cached values differ.
func migrateRecomputeTotals(db *sql.DB) error {
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting totals transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `UPDATE estimates SET
			total_cost = (SELECT COALESCE(SUM(cost), 0) FROM estimate_items WHERE estimate_id = estimates.id),
			total_duration = (SELECT COALESCE(SUM(duration), 0) FROM estimate_items WHERE estimate_id = estimates.id)
		WHERE total_cost != (SELECT COALESCE(SUM(cost), 0) FROM estimate_items WHERE estimate_id = estimates.id)
		   OR total_duration != (SELECT COALESCE(SUM(duration), 0) FROM estimate_items WHERE estimate_id = estimates.id)`)
	if err != nil {
		return fmt.Errorf("updating drifted totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing totals migration: %w", err)
	}
	committed = true
	return nil
}
