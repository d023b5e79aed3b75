package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"kiddeo/internal/models"
)

// PresetRepository stores quick-filter presets.
type PresetRepository struct {
	db *sqlx.DB
}

func NewPresetRepository(db *sqlx.DB) *PresetRepository {
	return &PresetRepository{db: db}
}

// FindPreset returns the active preset with the given page and label.
func (r *PresetRepository) FindPreset(ctx context.Context, page, label string) (*models.FilterPreset, error) {
	query := `
		SELECT id, page, label, query_json, is_active, created_at
		FROM filter_presets
		WHERE page = $1 AND label = $2 AND is_active = TRUE
		LIMIT 1`

	var p models.FilterPreset
	if err := r.db.GetContext(ctx, &p, query, page, label); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrPresetNotFound
		}
		return nil, fmt.Errorf("failed to find preset: %w", err)
	}
	return &p, nil
}

// Upsert inserts a preset or replaces the one with the same page and label.
func (r *PresetRepository) Upsert(ctx context.Context, p *models.FilterPreset) error {
	if err := p.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO filter_presets (page, label, query_json, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (page, label) DO UPDATE
		SET query_json = EXCLUDED.query_json, is_active = EXCLUDED.is_active
		RETURNING id, created_at`

	if err := r.db.QueryRowxContext(ctx, query, p.Page, p.Label, p.QueryJSON, p.IsActive).Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert preset: %w", err)
	}
	return nil
}
