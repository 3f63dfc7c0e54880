package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Profile is a user's public record.
type Profile struct {
	UserID     string    `json:"id"`
	FirstName  string    `json:"firstname"`
	LastName   string    `json:"lastname"`
	University string    `json:"university"`
	Email      string    `json:"email"`
	AvatarURL  string    `json:"profilepic_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateProfile inserts the profile created at signup. An existing row for
// the same user is overwritten.
func (s *Store) CreateProfile(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO profiles (id, firstname, lastname, university, email, profilepic_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			firstname = EXCLUDED.firstname,
			lastname = EXCLUDED.lastname,
			university = EXCLUDED.university,
			email = EXCLUDED.email,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	err := s.pool.QueryRow(ctx, query,
		p.UserID, p.FirstName, p.LastName, p.University, p.Email, p.AvatarURL,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// GetProfile returns the profile of userID.
func (s *Store) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	query := `
		SELECT id, firstname, lastname, university, email, profilepic_url, created_at, updated_at
		FROM profiles WHERE id = $1`

	var p Profile
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.FirstName, &p.LastName, &p.University, &p.Email, &p.AvatarURL,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// UpdateProfile changes the name and university of userID's profile.
func (s *Store) UpdateProfile(ctx context.Context, userID, firstName, lastName, university string) (*Profile, error) {
	query := `
		UPDATE profiles SET firstname = $2, lastname = $3, university = $4, updated_at = NOW()
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, userID, firstName, lastName, university)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetProfile(ctx, userID)
}

// SetAvatar stores the avatar URL of userID.
func (s *Store) SetAvatar(ctx context.Context, userID, url string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE profiles SET profilepic_url = $2, updated_at = NOW() WHERE id = $1`, userID, url)
	if err != nil {
		return fmt.Errorf("set avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
