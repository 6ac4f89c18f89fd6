package profile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/pyae198022/ShopHub/internal/models"
	"github.com/pyae198022/ShopHub/internal/validation"
)

type Repository interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p *models.Profile) error
}

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validation.New()}
}

// Get returns the user's profile, or an unsaved blank one if they have
// never saved it.
func (s *Service) Get(ctx context.Context, userID string) (*models.Profile, error) {
	if err := requireUser("profile.Get", userID); err != nil {
		return nil, err
	}
	p, err := s.repo.GetProfile(ctx, userID)
	if apperr.Is(err, apperr.NotFound) {
		return &models.Profile{UserID: userID, Country: models.DefaultCountry}, nil
	}
	return p, err
}

// Update replaces every profile field with the trimmed input. A blank
// country falls back to the default.
func (s *Service) Update(ctx context.Context, userID string, in models.ProfileInput) (*models.Profile, error) {
	const op = "profile.Update"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}
	in = trim(in)
	if err := validation.Check(s.validate, op, in); err != nil {
		return nil, err
	}
	if in.Country == "" {
		in.Country = models.DefaultCountry
	}

	p := &models.Profile{
		UserID:       userID,
		DisplayName:  in.DisplayName,
		Phone:        in.Phone,
		AddressLine1: in.AddressLine1,
		AddressLine2: in.AddressLine2,
		City:         in.City,
		State:        in.State,
		PostalCode:   in.PostalCode,
		Country:      in.Country,
		Bio:          in.Bio,
	}
	if err := s.repo.UpsertProfile(ctx, p); err != nil {
		return nil, err
	}
	slog.Info("Profile updated", "user_id", userID)
	return p, nil
}

func trim(in models.ProfileInput) models.ProfileInput {
	for _, f := range []*string{&in.DisplayName, &in.Phone, &in.AddressLine1, &in.AddressLine2,
		&in.City, &in.State, &in.PostalCode, &in.Country, &in.Bio} {
		*f = strings.TrimSpace(*f)
	}
	return in
}

func requireUser(op, userID string) error {
	if userID == "" {
		return apperr.New(apperr.Unauthorized, op, "You must be signed in to manage your profile")
	}
	return nil
}
