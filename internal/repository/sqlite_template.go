package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/estibot/internal/db"
	"github.com/alexanderramin/estibot/internal/domain"
)

const templateColumns = `id, owner_id, name, description, category, default_duration, default_cost,
		usage_count, is_active, created_at, updated_at`

// SQLiteTemplateRepo implements TemplateRepo using a SQLite database.
type SQLiteTemplateRepo struct {
	db db.DBTX
}

// NewSQLiteTemplateRepo creates a new SQLiteTemplateRepo.
func NewSQLiteTemplateRepo(conn db.DBTX) *SQLiteTemplateRepo {
	return &SQLiteTemplateRepo{db: conn}
}

func (r *SQLiteTemplateRepo) Create(ctx context.Context, t *domain.WorkTemplate) error {
	query := `INSERT INTO work_templates (id, owner_id, name, description, category, default_duration,
		default_cost, usage_count, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.OwnerID,
		t.Name,
		t.Description,
		string(t.Category),
		t.DefaultDuration,
		t.DefaultCost,
		t.UsageCount,
		boolToInt(t.IsActive),
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting work template: %w", err)
	}
	return nil
}

func (r *SQLiteTemplateRepo) GetByID(ctx context.Context, id, ownerID string) (*domain.WorkTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM work_templates WHERE id = ? AND owner_id = ?`
	return scanTemplate(r.db.QueryRowContext(ctx, query, id, ownerID))
}

func (r *SQLiteTemplateRepo) ListActive(ctx context.Context, ownerID string) ([]*domain.WorkTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM work_templates
		WHERE owner_id = ? AND is_active = 1
		ORDER BY usage_count DESC, name ASC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing work templates: %w", err)
	}
	defer rows.Close()

	var templates []*domain.WorkTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating work templates: %w", err)
	}
	return templates, nil
}

// IncrementUsage adds exactly one to usage_count. Each call counts.
func (r *SQLiteTemplateRepo) IncrementUsage(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE work_templates SET usage_count = usage_count + 1, updated_at = ? WHERE id = ?`,
		nowUTC(), id)
	if err != nil {
		return false, fmt.Errorf("incrementing template usage: %w", err)
	}
	return rowsAffected(res)
}

// Deactivate soft-deletes a template. A template that is already inactive or
// owned by someone else is left untouched without error.
func (r *SQLiteTemplateRepo) Deactivate(ctx context.Context, id, ownerID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE work_templates SET is_active = 0, updated_at = ? WHERE id = ? AND owner_id = ? AND is_active = 1`,
		nowUTC(), id, ownerID)
	if err != nil {
		return fmt.Errorf("deactivating work template: %w", err)
	}
	return nil
}

func scanTemplate(row scanner) (*domain.WorkTemplate, error) {
	var t domain.WorkTemplate
	var category, createdAtStr, updatedAtStr string
	var isActive int
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.Name, &t.Description, &category,
		&t.DefaultDuration, &t.DefaultCost, &t.UsageCount, &isActive,
		&createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("scanning work template: %w", err)
	}
	t.Category = domain.Category(category)
	t.IsActive = intToBool(isActive)
	if t.CreatedAt, err = parseTime(createdAtStr, "created_at"); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAtStr, "updated_at"); err != nil {
		return nil, err
	}
	return &t, nil
}
