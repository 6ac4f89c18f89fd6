package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/pyae198022/ShopHub/internal/models"
)

// GetProfile returns a NotFound error when the user has never saved one.
func (s *Store) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	var displayName, phone, line1, line2, city, state, postal, bio sql.NullString
	err := s.DB.QueryRowContext(ctx, `
		SELECT user_id, display_name, phone, address_line1, address_line2, city, state, postal_code,
			country, bio, created_at, updated_at
		FROM profiles WHERE user_id = ?
	`, userID).Scan(&p.UserID, &displayName, &phone, &line1, &line2, &city, &state, &postal,
		&p.Country, &bio, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("store.GetProfile", "profile for %s not found", userID)
	}
	if err != nil {
		return nil, dbErr("store.GetProfile", err)
	}
	p.DisplayName = displayName.String
	p.Phone = phone.String
	p.AddressLine1 = line1.String
	p.AddressLine2 = line2.String
	p.City = city.String
	p.State = state.String
	p.PostalCode = postal.String
	p.Bio = bio.String
	return &p, nil
}

// UpsertProfile creates or replaces the user's profile. created_at is kept
// from the first save.
func (s *Store) UpsertProfile(ctx context.Context, p *models.Profile) error {
	ts := now()
	p.UpdatedAt = ts
	if p.CreatedAt.IsZero() {
		p.CreatedAt = ts
	}
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO profiles (user_id, display_name, phone, address_line1, address_line2, city, state, postal_code,
			country, bio, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = excluded.display_name,
			phone = excluded.phone,
			address_line1 = excluded.address_line1,
			address_line2 = excluded.address_line2,
			city = excluded.city,
			state = excluded.state,
			postal_code = excluded.postal_code,
			country = excluded.country,
			bio = excluded.bio,
			updated_at = excluded.updated_at
		RETURNING created_at
	`, p.UserID, nullString(p.DisplayName), nullString(p.Phone), nullString(p.AddressLine1), nullString(p.AddressLine2),
		nullString(p.City), nullString(p.State), nullString(p.PostalCode), p.Country, nullString(p.Bio),
		p.CreatedAt, p.UpdatedAt).Scan(&p.CreatedAt)
	return dbErr("store.UpsertProfile", err)
}
