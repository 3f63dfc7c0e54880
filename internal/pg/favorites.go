package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/easylease/sublease/internal/listing"
)

// foreignKeyViolation is the SQLSTATE for a missing referenced row.
const foreignKeyViolation = "23503"

// AddFavorite records that userID favorited listingID. Adding it twice is a
// no-op.
func (s *Store) AddFavorite(ctx context.Context, userID, listingID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO favorites (user_id, listing_id) VALUES ($1, $2)
		ON CONFLICT (user_id, listing_id) DO NOTHING`, userID, listingID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return ErrNotFound
		}
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite deletes the favorite if it exists.
func (s *Store) RemoveFavorite(ctx context.Context, userID, listingID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND listing_id = $2`, userID, listingID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// ListFavorites returns the listings userID favorited, most recently
// favorited first.
func (s *Store) ListFavorites(ctx context.Context, userID string) ([]listing.Listing, error) {
	query := `SELECT ` + listingColumns + listingFrom + `
		JOIN favorites f ON f.listing_id = l.id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC`
	out, err := s.queryListings(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return out, nil
}
