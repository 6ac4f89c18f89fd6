package wishlist

import (
	"context"

	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/pyae198022/ShopHub/internal/models"
)

type Repository interface {
	ListWishlist(ctx context.Context, userID string) ([]models.WishlistEntry, error)
	AddWishlist(ctx context.Context, userID, productID string) (*models.WishlistEntry, error)
	RemoveWishlist(ctx context.Context, userID, productID string) error
}

// Service keeps at most one wishlist row per user and product; the store's
// unique key enforces it.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, userID string) ([]models.WishlistEntry, error) {
	if err := requireUser("wishlist.List", userID); err != nil {
		return nil, err
	}
	return s.repo.ListWishlist(ctx, userID)
}

func (s *Service) Contains(ctx context.Context, userID, productID string) (bool, error) {
	entries, err := s.List(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

// Add returns a Conflict if the product is already wishlisted.
func (s *Service) Add(ctx context.Context, userID, productID string) (*models.WishlistEntry, error) {
	if err := requireUser("wishlist.Add", userID); err != nil {
		return nil, err
	}
	return s.repo.AddWishlist(ctx, userID, productID)
}

// Remove returns NotFound if the product was not wishlisted.
func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	if err := requireUser("wishlist.Remove", userID); err != nil {
		return err
	}
	return s.repo.RemoveWishlist(ctx, userID, productID)
}

// Toggle adds the product if absent and removes it otherwise, reporting
// whether it is now on the wishlist.
func (s *Service) Toggle(ctx context.Context, userID, productID string) (bool, error) {
	present, err := s.Contains(ctx, userID, productID)
	if err != nil {
		return false, err
	}
	if present {
		err := s.Remove(ctx, userID, productID)
		if apperr.Is(err, apperr.NotFound) {
			// removed concurrently
			return false, nil
		}
		return false, err
	}
	_, err = s.Add(ctx, userID, productID)
	if apperr.Is(err, apperr.Conflict) {
		return true, nil
	}
	return err == nil, err
}

func requireUser(op, userID string) error {
	if userID == "" {
		return apperr.New(apperr.Unauthorized, op, "You must be signed in to use the wishlist")
	}
	return nil
}
