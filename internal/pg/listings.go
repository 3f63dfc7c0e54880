package pg

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/easylease/sublease/internal/listing"
)

const listingColumns = `
	l.id, l.user_id, l.title, l.description, l.street_address, l.city, l.state,
	l.zip_code, l.rent, l.sq_ft, l.universities, l.lease_start, l.lease_end,
	l.pets_allowed, l.parking_available, l.furnished, l.image_urls, l.lat, l.lng,
	l.created_at,
	p.firstname, p.lastname, p.university, p.email, p.profilepic_url`

const listingFrom = `
	FROM listings l
	LEFT JOIN profiles p ON p.id = l.user_id`

func scanListing(row pgx.Row) (listing.Listing, error) {
	var (
		l                               listing.Listing
		first, last, uni, email, avatar *string
	)
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.StreetAddress, &l.City, &l.State,
		&l.PostalCode, &l.Rent, &l.SqFt, &l.Universities, &l.LeaseStart, &l.LeaseEnd,
		&l.PetsAllowed, &l.ParkingAvailable, &l.Furnished, &l.ImageURLs, &l.Lat, &l.Lng,
		&l.CreatedAt,
		&first, &last, &uni, &email, &avatar,
	)
	if err != nil {
		return listing.Listing{}, err
	}

	// profile columns are all NULL when the owner has no profile row
	if first != nil {
		l.Owner = &listing.Owner{
			FirstName:  *first,
			LastName:   deref(last),
			University: deref(uni),
			Email:      deref(email),
			AvatarURL:  deref(avatar),
		}
	}
	return l, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *Store) queryListings(ctx context.Context, query string, args ...any) ([]listing.Listing, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []listing.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListListings returns every listing with its owner's profile, newest first.
func (s *Store) ListListings(ctx context.Context) ([]listing.Listing, error) {
	query := `SELECT ` + listingColumns + listingFrom + ` ORDER BY l.created_at DESC`
	out, err := s.queryListings(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return out, nil
}

// ListingsByOwner returns the listings posted by userID.
func (s *Store) ListingsByOwner(ctx context.Context, userID string) ([]listing.Listing, error) {
	query := `SELECT ` + listingColumns + listingFrom + ` WHERE l.user_id = $1 ORDER BY l.created_at DESC`
	out, err := s.queryListings(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list listings by owner: %w", err)
	}
	return out, nil
}

// GetListing returns one listing with its owner's profile.
func (s *Store) GetListing(ctx context.Context, id string) (*listing.Listing, error) {
	query := `SELECT ` + listingColumns + listingFrom + ` WHERE l.id = $1`
	l, err := scanListing(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return &l, nil
}

// CreateListing inserts l, assigning its id and creation time.
func (s *Store) CreateListing(ctx context.Context, l *listing.Listing) error {
	l.ID = uuid.NewString()
	l.CreatedAt = time.Now().UTC()
	if l.ImageURLs == nil {
		l.ImageURLs = []string{}
	}

	query := `
		INSERT INTO listings (
			id, user_id, title, description, street_address, city, state, zip_code,
			rent, sq_ft, universities, lease_start, lease_end, pets_allowed,
			parking_available, furnished, image_urls, lat, lng, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)`

	_, err := s.pool.Exec(ctx, query,
		l.ID, l.OwnerID, l.Title, l.Description, l.StreetAddress, l.City, l.State, l.PostalCode,
		l.Rent, l.SqFt, l.Universities, l.LeaseStart, l.LeaseEnd, l.PetsAllowed,
		l.ParkingAvailable, l.Furnished, l.ImageURLs, l.Lat, l.Lng, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

// UpdateListing overwrites the editable fields of a listing owned by
// ownerID. Images and creation time are left alone.
func (s *Store) UpdateListing(ctx context.Context, ownerID string, l *listing.Listing) error {
	query := `
		UPDATE listings SET
			title = $3, description = $4, street_address = $5, city = $6, state = $7,
			zip_code = $8, rent = $9, sq_ft = $10, universities = $11, lease_start = $12,
			lease_end = $13, pets_allowed = $14, parking_available = $15, furnished = $16,
			lat = $17, lng = $18
		WHERE id = $1 AND user_id = $2`

	tag, err := s.pool.Exec(ctx, query,
		l.ID, ownerID, l.Title, l.Description, l.StreetAddress, l.City, l.State,
		l.PostalCode, l.Rent, l.SqFt, l.Universities, l.LeaseStart,
		l.LeaseEnd, l.PetsAllowed, l.ParkingAvailable, l.Furnished,
		l.Lat, l.Lng,
	)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.ownershipError(ctx, l.ID)
	}
	return nil
}

// DeleteListing removes a listing owned by ownerID.
func (s *Store) DeleteListing(ctx context.Context, ownerID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM listings WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.ownershipError(ctx, id)
	}
	return nil
}

// AppendImages adds urls to a listing owned by ownerID, keeping at most
// listing.MaxImages. It returns the stored list and the urls that did not
// fit, in input order.
func (s *Store) AppendImages(ctx context.Context, ownerID, id string, urls []string) ([]string, []string, error) {
	query := `
		UPDATE listings
		SET image_urls = (image_urls || $3::text[])[1:$4]
		WHERE id = $1 AND user_id = $2
		RETURNING image_urls`

	var stored []string
	err := s.pool.QueryRow(ctx, query, id, ownerID, urls, listing.MaxImages).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, s.ownershipError(ctx, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("append images: %w", err)
	}
	return stored, droppedURLs(stored, urls), nil
}

// droppedURLs returns the members of urls missing from stored.
func droppedURLs(stored, urls []string) []string {
	var dropped []string
	for _, u := range urls {
		if !slices.Contains(stored, u) {
			dropped = append(dropped, u)
		}
	}
	return dropped
}

// ownershipError tells a missing row apart from one owned by someone else.
func (s *Store) ownershipError(ctx context.Context, id string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM listings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check listing: %w", err)
	}
	if exists {
		return ErrForbidden
	}
	return ErrNotFound
}
