package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dkrasner/taskmind/internal/models"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// CategoryRepository handles category database operations
type CategoryRepository struct {
	db *DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create creates a new category
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (id, name, color, usage_frequency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	if category.Color == "" {
		category.Color = models.DefaultCategoryColor
	}

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		category.ID,
		category.Name,
		category.Color,
		category.UsageFrequency,
		now,
		now,
	).Scan(&category.CreatedAt, &category.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category := &models.Category{}
	query := `
		SELECT id, name, color, usage_frequency, created_at, updated_at
		FROM categories
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.Color,
		&category.UsageFrequency,
		&category.CreatedAt,
		&category.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return category, nil
}

// GetByName retrieves a category by its unique name
func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	category := &models.Category{}
	query := `
		SELECT id, name, color, usage_frequency, created_at, updated_at
		FROM categories
		WHERE name = $1
	`

	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&category.ID,
		&category.Name,
		&category.Color,
		&category.UsageFrequency,
		&category.CreatedAt,
		&category.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}

	return category, nil
}

// GetOrCreate returns the category with the given name, creating it with the
// default color when absent. A concurrent insert losing the race is resolved
// by re-reading the winner's row.
func (r *CategoryRepository) GetOrCreate(ctx context.Context, name string) (*models.Category, error) {
	category, err := r.GetByName(ctx, name)
	if err == nil {
		return category, nil
	}

	category = &models.Category{
		ID:    uuid.New(),
		Name:  name,
		Color: models.DefaultCategoryColor,
	}

	if err := r.Create(ctx, category); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return r.GetByName(ctx, name)
		}
		return nil, err
	}

	return category, nil
}

// List retrieves all categories ordered by usage, most used first
func (r *CategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	query := `
		SELECT id, name, color, usage_frequency, created_at, updated_at
		FROM categories
		ORDER BY usage_frequency DESC, name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		category := &models.Category{}
		err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Color,
			&category.UsageFrequency,
			&category.CreatedAt,
			&category.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// Update updates an existing category
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	query := `
		UPDATE categories
		SET name = $2, color = $3, updated_at = $4
		WHERE id = $1
		RETURNING updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		category.ID,
		category.Name,
		category.Color,
		now,
	).Scan(&category.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("category not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}

	return nil
}

// IncrementUsage bumps a category's usage counter by one
func (r *CategoryRepository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE categories
		SET usage_frequency = usage_frequency + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment category usage: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("category not found")
	}

	return nil
}

// Delete deletes a category by ID. Tasks referencing it keep existing with
// their category cleared by the schema's ON DELETE SET NULL.
func (r *CategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM categories WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("category not found")
	}

	return nil
}
