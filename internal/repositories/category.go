package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"kiddeo/internal/models"
)

// CategoryRepository handles category data operations
type CategoryRepository struct {
	db *sqlx.DB
}

func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns all categories ordered by name
func (r *CategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	categories := []*models.Category{}
	err := r.db.SelectContext(ctx, &categories,
		"SELECT id, name, slug, description, created_at FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetBySlug retrieves a category by its slug
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	err := r.db.GetContext(ctx, &c,
		"SELECT id, name, slug, description, created_at FROM categories WHERE slug = $1", slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// Upsert creates a category or updates the one with the same slug
func (r *CategoryRepository) Upsert(ctx context.Context, c *models.Category) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO categories (name, slug, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description
		RETURNING id, created_at`

	if err := r.db.QueryRowxContext(ctx, query, c.Name, c.Slug, c.Description).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert category: %w", err)
	}
	return nil
}
