package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	expected := []string{"users", "estimates", "estimate_items", "work_templates"}
	for _, table := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_CreatesIndexes(t *testing.T) {
	db := openTestDB(t)

	expected := []string{
		"idx_estimates_owner",
		"idx_estimate_items_estimate",
		"idx_work_templates_owner",
	}
	for _, idx := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func seedEstimate(t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []string{
		`INSERT INTO users (id, external_id, created_at) VALUES ('u1', 'ext-1', '2026-01-01T00:00:00Z')`,
		`INSERT INTO estimates (id, owner_id, title, created_at, updated_at)
			VALUES ('e1', 'u1', 'Landing', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`,
		`INSERT INTO estimate_items (id, estimate_id, name, duration, cost, order_index, created_at, updated_at)
			VALUES ('i1', 'e1', 'Design', 8, 20000, 1, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`,
	}
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
}

func TestMigrate_ForeignKeysCascadeItems(t *testing.T) {
	db := openTestDB(t)
	seedEstimate(t, db)

	_, err := db.Exec(`DELETE FROM estimates WHERE id = 'e1'`)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM estimate_items WHERE estimate_id = 'e1'`).Scan(&n))
	assert.Zero(t, n)
}

func TestMigrate_RejectsOrphanItem(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO estimate_items (id, estimate_id, name, duration, cost, created_at, updated_at)
		VALUES ('i1', 'missing', 'X', 1, 1, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	assert.Error(t, err)
}

func TestMigrate_RejectsNegativeAmounts(t *testing.T) {
	db := openTestDB(t)
	seedEstimate(t, db)

	_, err := db.Exec(`UPDATE estimate_items SET cost = -1 WHERE id = 'i1'`)
	assert.Error(t, err)
	_, err = db.Exec(`UPDATE estimates SET total_duration = -1 WHERE id = 'e1'`)
	assert.Error(t, err)
}

func TestMigrate_RecomputesDriftedTotals(t *testing.T) {
	db := openTestDB(t)
	seedEstimate(t, db)

	_, err := db.Exec(`UPDATE estimates SET total_cost = 1, total_duration = 99 WHERE id = 'e1'`)
	require.NoError(t, err)

	require.NoError(t, Migrate(db))

	var cost, dur float64
	require.NoError(t, db.QueryRow(`SELECT total_cost, total_duration FROM estimates WHERE id = 'e1'`).Scan(&cost, &dur))
	assert.Equal(t, 20000.0, cost)
	assert.Equal(t, 8.0, dur)
}
