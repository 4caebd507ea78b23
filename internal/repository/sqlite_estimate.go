package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/estibot/internal/db"
	"github.com/alexanderramin/estibot/internal/domain"
)

// estimateColumns is the canonical SELECT column list for estimates. The item
// count is a correlated subquery so every read carries it.
const estimateColumns = `e.id, e.owner_id, e.title, e.description, e.total_cost, e.total_duration,
		(SELECT COUNT(*) FROM estimate_items i WHERE i.estimate_id = e.id),
		e.created_at, e.updated_at`

// SQLiteEstimateRepo implements EstimateRepo using a SQLite database.
type SQLiteEstimateRepo struct {
	db db.DBTX
}

// NewSQLiteEstimateRepo creates a new SQLiteEstimateRepo.
func NewSQLiteEstimateRepo(conn db.DBTX) *SQLiteEstimateRepo {
	return &SQLiteEstimateRepo{db: conn}
}

func (r *SQLiteEstimateRepo) Create(ctx context.Context, e *domain.Estimate) error {
	query := `INSERT INTO estimates (id, owner_id, title, description, total_cost, total_duration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.OwnerID,
		e.Title,
		e.Description,
		e.TotalCost,
		e.TotalDuration,
		formatTime(e.CreatedAt),
		formatTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting estimate: %w", err)
	}
	return nil
}

func (r *SQLiteEstimateRepo) GetByID(ctx context.Context, id, ownerID string) (*domain.Estimate, error) {
	query := `SELECT ` + estimateColumns + ` FROM estimates e WHERE e.id = ? AND e.owner_id = ?`
	return scanEstimate(r.db.QueryRowContext(ctx, query, id, ownerID))
}

func (r *SQLiteEstimateRepo) GetUnscoped(ctx context.Context, id string) (*domain.Estimate, error) {
	query := `SELECT ` + estimateColumns + ` FROM estimates e WHERE e.id = ?`
	return scanEstimate(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteEstimateRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Estimate, error) {
	query := `SELECT ` + estimateColumns + ` FROM estimates e WHERE e.owner_id = ?
		ORDER BY e.updated_at DESC, e.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing estimates: %w", err)
	}
	defer rows.Close()

	var estimates []*domain.Estimate
	for rows.Next() {
		e, err := scanEstimate(rows)
		if err != nil {
			return nil, err
		}
		estimates = append(estimates, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating estimates: %w", err)
	}
	return estimates, nil
}

// Update writes the directly editable fields. Totals are never written here.
func (r *SQLiteEstimateRepo) Update(ctx context.Context, e *domain.Estimate) error {
	query := `UPDATE estimates SET title = ?, description = ?, updated_at = ? WHERE id = ? AND owner_id = ?`
	res, err := r.db.ExecContext(ctx, query,
		e.Title,
		e.Description,
		formatTime(e.UpdatedAt),
		e.ID,
		e.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("updating estimate: %w", err)
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrEstimateNotFound
	}
	return nil
}

// Delete removes the estimate and its items. Items are deleted explicitly so
// the cascade does not depend on the connection's foreign_keys pragma.
func (r *SQLiteEstimateRepo) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM estimate_items WHERE estimate_id IN (SELECT id FROM estimates WHERE id = ? AND owner_id = ?)`,
		id, ownerID)
	if err != nil {
		return false, fmt.Errorf("deleting estimate items: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM estimates WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("deleting estimate: %w", err)
	}
	return rowsAffected(res)
}

func (r *SQLiteEstimateRepo) RecomputeTotals(ctx context.Context, id string) (domain.Totals, error) {
	query := `UPDATE estimates SET
			total_cost = (SELECT COALESCE(SUM(cost), 0) FROM estimate_items WHERE estimate_id = ?),
			total_duration = (SELECT COALESCE(SUM(duration), 0) FROM estimate_items WHERE estimate_id = ?),
			updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, id, id, nowUTC(), id)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("recomputing estimate totals: %w", err)
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return domain.Totals{}, err
	}
	if !ok {
		return domain.Totals{}, domain.ErrEstimateNotFound
	}

	var t domain.Totals
	err = r.db.QueryRowContext(ctx, `SELECT total_cost, total_duration FROM estimates WHERE id = ?`, id).
		Scan(&t.Cost, &t.Duration)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("reading estimate totals: %w", err)
	}
	return t, nil
}

func scanEstimate(row scanner) (*domain.Estimate, error) {
	var e domain.Estimate
	var createdAtStr, updatedAtStr string
	err := row.Scan(
		&e.ID, &e.OwnerID, &e.Title, &e.Description,
		&e.TotalCost, &e.TotalDuration, &e.ItemCount,
		&createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEstimateNotFound
		}
		return nil, fmt.Errorf("scanning estimate: %w", err)
	}
	if e.CreatedAt, err = parseTime(createdAtStr, "created_at"); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAtStr, "updated_at"); err != nil {
		return nil, err
	}
	return &e, nil
}
