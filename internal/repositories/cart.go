package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"kiddeo/internal/cart"
)

// CartRepository stores carts of signed-in users, one row per user and city.
type CartRepository struct {
	db *sqlx.DB
}

func NewCartRepository(db *sqlx.DB) *CartRepository {
	return &CartRepository{db: db}
}

// Load returns nil, nil when the user has no cart in the city.
func (r *CartRepository) Load(ctx context.Context, userID, city string) (*cart.Snapshot, error) {
	query := `SELECT payload FROM carts WHERE user_id = $1 AND city = $2`

	var payload []byte
	if err := r.db.GetContext(ctx, &payload, query, userID, city); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var snap cart.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return &snap, nil
}

// Save replaces the stored cart. Last write wins.
func (r *CartRepository) Save(ctx context.Context, userID, city string, snap cart.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	query := `
		INSERT INTO carts (user_id, city, payload, item_count, total, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, city) DO UPDATE
		SET payload = EXCLUDED.payload,
		    item_count = EXCLUDED.item_count,
		    total = EXCLUDED.total,
		    updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, userID, city, payload, snap.ItemCount, snap.Total); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// Delete removes the user's cart in the city.
func (r *CartRepository) Delete(ctx context.Context, userID, city string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1 AND city = $2`, userID, city); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
