package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/estibot/internal/db"
	"github.com/alexanderramin/estibot/internal/domain"
)

// itemColumns is the canonical SELECT column list for estimate_items.
const itemColumns = `id, estimate_id, name, description, duration, cost, order_index,
		template_id, created_at, updated_at`

// SQLiteItemRepo implements ItemRepo using a SQLite database.
type SQLiteItemRepo struct {
	db db.DBTX
}

// NewSQLiteItemRepo creates a new SQLiteItemRepo.
func NewSQLiteItemRepo(conn db.DBTX) *SQLiteItemRepo {
	return &SQLiteItemRepo{db: conn}
}

func (r *SQLiteItemRepo) Create(ctx context.Context, it *domain.EstimateItem) error {
	query := `INSERT INTO estimate_items (id, estimate_id, name, description, duration, cost, order_index,
		template_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		it.ID,
		it.EstimateID,
		it.Name,
		it.Description,
		it.Duration,
		it.Cost,
		it.OrderIndex,
		nullableString(it.TemplateID),
		formatTime(it.CreatedAt),
		formatTime(it.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting estimate item: %w", err)
	}
	return nil
}

func (r *SQLiteItemRepo) GetByID(ctx context.Context, id string) (*domain.EstimateItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM estimate_items WHERE id = ?`, id)
	return scanItem(row)
}

func (r *SQLiteItemRepo) ListByEstimate(ctx context.Context, estimateID string) ([]*domain.EstimateItem, error) {
	query := `SELECT ` + itemColumns + ` FROM estimate_items WHERE estimate_id = ?
		ORDER BY order_index, created_at`
	rows, err := r.db.QueryContext(ctx, query, estimateID)
	if err != nil {
		return nil, fmt.Errorf("listing estimate items: %w", err)
	}
	defer rows.Close()

	var items []*domain.EstimateItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating estimate items: %w", err)
	}
	return items, nil
}

// Update writes an item's editable fields. estimate_id is deliberately absent
// from the SET list: items are never re-parented.
func (r *SQLiteItemRepo) Update(ctx context.Context, it *domain.EstimateItem) error {
	query := `UPDATE estimate_items SET name = ?, description = ?, duration = ?, cost = ?, order_index = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		it.Name,
		it.Description,
		it.Duration,
		it.Cost,
		it.OrderIndex,
		formatTime(it.UpdatedAt),
		it.ID,
	)
	if err != nil {
		return fmt.Errorf("updating estimate item: %w", err)
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *SQLiteItemRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM estimate_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting estimate item: %w", err)
	}
	return rowsAffected(res)
}

func (r *SQLiteItemRepo) NextOrderIndex(ctx context.Context, estimateID string) (int, error) {
	var next int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(order_index), 0) + 1 FROM estimate_items WHERE estimate_id = ?`, estimateID).
		Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("reading next order index: %w", err)
	}
	return next, nil
}

func (r *SQLiteItemRepo) SumByEstimate(ctx context.Context, estimateID string) (domain.Totals, error) {
	var t domain.Totals
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), COALESCE(SUM(duration), 0) FROM estimate_items WHERE estimate_id = ?`,
		estimateID).Scan(&t.Cost, &t.Duration)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("summing estimate items: %w", err)
	}
	return t, nil
}

func scanItem(row scanner) (*domain.EstimateItem, error) {
	var it domain.EstimateItem
	var templateID sql.NullString
	var createdAtStr, updatedAtStr string
	err := row.Scan(
		&it.ID, &it.EstimateID, &it.Name, &it.Description,
		&it.Duration, &it.Cost, &it.OrderIndex,
		&templateID, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("scanning estimate item: %w", err)
	}
	it.TemplateID = parseNullableString(templateID)
	if it.CreatedAt, err = parseTime(createdAtStr, "created_at"); err != nil {
		return nil, err
	}
	if it.UpdatedAt, err = parseTime(updatedAtStr, "updated_at"); err != nil {
		return nil, err
	}
	return &it, nil
}
